package session

import (
	"time"

	"velha/internal/network"
	"velha/internal/session/message"
)

// Estados possíveis de uma conexão de jogador. O roteador de eventos do
// gateway é escolhido pelo estado, então comando fora de hora nem chega
// na lógica de jogo.
const (
	StateUnauthenticated = "unauthenticated"
	StateLobby           = "lobby"
	StateInQueue         = "in-queue"
	StateInMatch         = "in-match"
)

// PlayerConn é a entrada do registro de conexões: amarra um transporte
// vivo (sender) à identidade autenticada e ao estado do jogador. Durante
// a janela de tolerância após uma desconexão, sender fica nil mas a
// entrada sobrevive no índice por usuário.
type PlayerConn struct {
	sender message.Sender

	UserID    string
	State     string
	SessionID string

	// Timer de tolerância de reconexão. No máximo um por usuário;
	// criado e cancelado somente pela goroutine do Hub.
	grace *time.Timer
}

// Connected informa se há um transporte vivo por trás da entrada.
func (pc *PlayerConn) Connected() bool {
	return pc.sender != nil
}

// Send repassa o evento para o transporte, se houver um. Durante a
// janela de tolerância os eventos são simplesmente perdidos; o retrato
// completo chega via banner-update na reconexão.
func (pc *PlayerConn) Send(msg network.Message) {
	if pc.sender != nil {
		pc.sender.Send(msg)
	}
}
