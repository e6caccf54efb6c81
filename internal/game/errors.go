package game

import "errors"

// Erros recuperáveis da máquina de estados. Todos são validados ANTES de
// qualquer mutação: uma jogada rejeitada nunca deixa a sessão suja.
var (
	ErrNotParticipant    = errors.New("user is not a participant of this session")
	ErrNotYourTurn       = errors.New("not your turn")
	ErrSessionTerminated = errors.New("session already reached a terminal status")
	ErrInvalidCell       = errors.New("cell index out of range or already occupied")
)
