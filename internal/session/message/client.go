package message

// Isso aqui são os eventos que vão no sentido servidor -> cliente,
// mais as constantes com os nomes de todos os eventos do protocolo.

import (
	"velha/internal/game"
	"velha/internal/network"
)

// Nomes dos eventos de entrada (cliente -> servidor).
const (
	EventAuth              = "auth"
	EventFindOpponent      = "find-opponent"
	EventCancelMatchmaking = "cancel-matchmaking"
	EventNewMove           = "new-move"
	EventForfeitGame       = "forfeit-game"
)

// Nomes dos eventos de saída (servidor -> cliente).
const (
	EventAuthOK               = "auth-ok"
	EventFoundOpponent        = "found-opponent"
	EventMatchmakingCancelled = "matchmaking-cancelled"
	EventMoveRegistered       = "move-registered"
	EventGameEnded            = "game-ended"
	EventMatchmakingError     = "matchmaking-error"
	EventError                = "error"
	EventStatusUpdate         = "status-update"
	EventBannerUpdate         = "banner-update"
)

// Sender é qualquer destino capaz de receber eventos de saída. Desacopla
// o gateway do *network.Client concreto e permite fakes nos testes.
type Sender interface {
	Send(msg network.Message)
	Close()
}

type AuthOKPayload struct {
	UserID string `json:"userId"`
}

type FoundOpponentPayload struct {
	SessionID      string      `json:"sessionId"`
	AssignedSymbol game.Symbol `json:"assignedSymbol"`
	OpponentID     string      `json:"opponentId"`
}

type MoveRegisteredPayload struct {
	SessionID string      `json:"sessionId"`
	CellIndex int         `json:"cellIndex"`
	Symbol    game.Symbol `json:"symbol"`
	NextTurn  game.Symbol `json:"nextTurn"`
	Status    game.Status `json:"status"`
	Move      int         `json:"move"`
}

type GameEndedPayload struct {
	SessionID string      `json:"sessionId"`
	Outcome   game.Status `json:"outcome"`
}

// ErrorPayload serve tanto para "matchmaking-error" quanto para o evento
// genérico "error". Code é estável para o cliente tratar por máquina.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StatusUpdatePayload struct {
	UserID string `json:"userId"`
	Status string `json:"status"` // "online" | "offline"
}

// BannerUpdatePayload é o retrato completo da partida ativa de um
// usuário, enviado quando ele (re)conecta com um jogo em andamento.
type BannerUpdatePayload struct {
	SessionID  string      `json:"sessionId"`
	Board      game.Board  `json:"board"`
	Symbol     game.Symbol `json:"symbol"`
	Turn       game.Symbol `json:"turn"`
	OpponentID string      `json:"opponentId"`
	Status     game.Status `json:"status"`
}

func AuthOK(userID string) network.Message {
	return network.NewMessage(EventAuthOK, AuthOKPayload{UserID: userID})
}

func FoundOpponent(sessionID string, symbol game.Symbol, opponentID string) network.Message {
	return network.NewMessage(EventFoundOpponent, FoundOpponentPayload{
		SessionID:      sessionID,
		AssignedSymbol: symbol,
		OpponentID:     opponentID,
	})
}

func MatchmakingCancelled() network.Message {
	return network.NewMessage(EventMatchmakingCancelled, nil)
}

func MoveRegistered(sessionID string, res *game.MoveResult) network.Message {
	return network.NewMessage(EventMoveRegistered, MoveRegisteredPayload{
		SessionID: sessionID,
		CellIndex: res.Cell,
		Symbol:    res.Symbol,
		NextTurn:  res.NextTurn,
		Status:    res.Status,
		Move:      res.Move,
	})
}

func GameEnded(sessionID string, outcome game.Status) network.Message {
	return network.NewMessage(EventGameEnded, GameEndedPayload{
		SessionID: sessionID,
		Outcome:   outcome,
	})
}

func MatchmakingError(code, msg string) network.Message {
	return network.NewMessage(EventMatchmakingError, ErrorPayload{Code: code, Message: msg})
}

func Error(code, msg string) network.Message {
	return network.NewMessage(EventError, ErrorPayload{Code: code, Message: msg})
}

func StatusUpdate(userID, status string) network.Message {
	return network.NewMessage(EventStatusUpdate, StatusUpdatePayload{UserID: userID, Status: status})
}

func BannerUpdate(s *game.Session, userID string) network.Message {
	return network.NewMessage(EventBannerUpdate, BannerUpdatePayload{
		SessionID:  s.ID,
		Board:      s.Board,
		Symbol:     s.SymbolOf(userID),
		Turn:       s.Turn,
		OpponentID: s.OpponentOf(userID),
		Status:     s.Status,
	})
}
