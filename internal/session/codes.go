package session

import (
	"errors"

	"velha/internal/game"
)

// Códigos estáveis dos erros recuperáveis, como vão no campo "code" dos
// eventos de erro. O cliente trata por código; a mensagem é só para
// humanos.
const (
	codeAuthFailed        = "auth-failed"
	codeAlreadyQueued     = "already-queued"
	codeAlreadyInSession  = "already-in-session"
	codeNotQueued         = "not-queued"
	codeNotParticipant    = "not-participant"
	codeNotYourTurn       = "not-your-turn"
	codeSessionTerminated = "session-terminated"
	codeInvalidCell       = "invalid-cell"
	codeSessionNotFound   = "session-not-found"
	codeInvalidPreference = "invalid-preference"
	codeInvalidState      = "invalid-state"
	codeInternal          = "internal"
)

func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrAlreadyQueued):
		return codeAlreadyQueued
	case errors.Is(err, ErrAlreadyInSession):
		return codeAlreadyInSession
	case errors.Is(err, ErrNotQueued):
		return codeNotQueued
	case errors.Is(err, ErrSessionNotFound):
		return codeSessionNotFound
	case errors.Is(err, game.ErrNotParticipant):
		return codeNotParticipant
	case errors.Is(err, game.ErrNotYourTurn):
		return codeNotYourTurn
	case errors.Is(err, game.ErrSessionTerminated):
		return codeSessionTerminated
	case errors.Is(err, game.ErrInvalidCell):
		return codeInvalidCell
	}
	return codeInternal
}
