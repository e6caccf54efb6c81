package session

import (
	"encoding/json"
	"log"

	"velha/internal/session/message"
)

type newMovePayload struct {
	SessionID string `json:"sessionId"`
	// Ponteiro para diferenciar "campo ausente" de "célula 0".
	CellIndex *int `json:"cellIndex"`
}

type forfeitPayload struct {
	SessionID string `json:"sessionId"`
}

// handleNewMove aplica uma jogada. Toda a validação mora na máquina de
// estados da sessão; aqui só se traduz payload e se difunde o resultado
// para os dois participantes, na ordem em que foi produzido.
func handleNewMove(g *Gateway, pc *PlayerConn, payload json.RawMessage) {
	var req newMovePayload
	if err := json.Unmarshal(payload, &req); err != nil || req.CellIndex == nil || req.SessionID == "" {
		log.Printf("WARN: [gateway] malformed new-move payload dropped")
		return
	}

	sess, err := g.directory.Get(req.SessionID)
	if err != nil {
		pc.Send(message.Error(errorCode(err), err.Error()))
		return
	}

	res, err := sess.ApplyMove(pc.UserID, *req.CellIndex)
	if err != nil {
		pc.Send(message.Error(errorCode(err), err.Error()))
		return
	}

	broadcast := message.MoveRegistered(sess.ID, res)
	for _, p := range sess.Players {
		if conn := g.registry.Lookup(p.UserID); conn != nil {
			conn.Send(broadcast)
		}
	}

	if res.Status.Terminal() {
		g.endSession(sess)
	}
}

// handleForfeitGame encerra a partida contra quem desistiu.
func handleForfeitGame(g *Gateway, pc *PlayerConn, payload json.RawMessage) {
	var req forfeitPayload
	if err := json.Unmarshal(payload, &req); err != nil || req.SessionID == "" {
		log.Printf("WARN: [gateway] malformed forfeit-game payload dropped")
		return
	}

	sess, err := g.directory.Get(req.SessionID)
	if err != nil {
		pc.Send(message.Error(errorCode(err), err.Error()))
		return
	}

	if err := sess.Forfeit(pc.UserID); err != nil {
		pc.Send(message.Error(errorCode(err), err.Error()))
		return
	}

	log.Printf("[gateway] user %s forfeited session %s", pc.UserID, sess.ID)
	g.endSession(sess)
}

func (g *Gateway) registerMatchHandlers() {
	g.matchRouter[message.EventNewMove] = handleNewMove
	g.matchRouter[message.EventForfeitGame] = handleForfeitGame
}
