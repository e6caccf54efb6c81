package session

import "errors"

// Erros recuperáveis de matchmaking e do diretório de sessões. Viram
// eventos estruturados para o cliente; nunca derrubam o processo.
var (
	ErrAlreadyQueued    = errors.New("user already has a pending queue entry")
	ErrAlreadyInSession = errors.New("user already has an active session")
	ErrNotQueued        = errors.New("user has no pending queue entry")
	ErrSessionNotFound  = errors.New("unknown session id")
)
