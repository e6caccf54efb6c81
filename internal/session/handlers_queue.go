package session

import (
	"encoding/json"

	"velha/internal/session/message"
)

// handleCancelMatchmaking tira o usuário da fila. Se o pareamento já
// aconteceu, a entrada não existe mais e o cancelamento chega tarde:
// como fila e sessão mudam no mesmo evento, não há janela entre os dois.
func handleCancelMatchmaking(g *Gateway, pc *PlayerConn, payload json.RawMessage) {
	if err := g.matchmaker.Cancel(pc.UserID); err != nil {
		pc.Send(message.MatchmakingError(errorCode(err), err.Error()))
		return
	}
	pc.State = StateLobby
	pc.Send(message.MatchmakingCancelled())
}

func (g *Gateway) registerQueueHandlers() {
	g.queueRouter[message.EventCancelMatchmaking] = handleCancelMatchmaking
}
