package session

import (
	"encoding/json"
	"log"

	"velha/internal/session/message"
)

type authPayload struct {
	Token string `json:"token"`
}

type findOpponentPayload struct {
	SidePreference string `json:"sidePreference"`
}

// handleAuth é o handshake de identidade: valida o token emitido pelo
// serviço de auth e amarra a identidade à conexão. Se a identidade já
// estava viva em outra conexão, a mais nova vence e a antiga é
// derrubada. Reconexão com partida ativa cancela o timer de tolerância
// e devolve o retrato completo do jogo via banner-update.
func handleAuth(g *Gateway, pc *PlayerConn, payload json.RawMessage) {
	var req authPayload
	if err := json.Unmarshal(payload, &req); err != nil {
		log.Printf("WARN: [gateway] malformed auth payload dropped")
		return
	}

	id, err := g.verifier.Verify(req.Token)
	if err != nil {
		pc.Send(message.Error(codeAuthFailed, "authentication failed"))
		return
	}

	final, evicted := g.registry.Authenticate(pc, id.UserID)
	if evicted != nil {
		evicted.Close()
	}

	final.Send(message.AuthOK(id.UserID))

	if sess := g.directory.ActiveSessionOf(id.UserID); sess != nil {
		// Partida em andamento sobrevive à troca de conexão sem mudar
		// uma célula sequer.
		final.State = StateInMatch
		final.SessionID = sess.ID
		final.Send(message.BannerUpdate(sess, id.UserID))
		log.Printf("[gateway] user %s rejoined session %s", id.UserID, sess.ID)
	}

	g.announceStatus(id.UserID, "online")
	log.Printf("[gateway] user %s authenticated (state %s)", id.UserID, final.State)
}

// handleFindOpponent coloca o usuário na fila de matchmaking. Quando já
// existe alguém compatível esperando, o par sai formado na mesma hora e
// os dois recebem found-opponent; senão o usuário fica aguardando e
// nenhum evento é emitido agora.
func handleFindOpponent(g *Gateway, pc *PlayerConn, payload json.RawMessage) {
	var req findOpponentPayload
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			log.Printf("WARN: [gateway] malformed find-opponent payload dropped")
			return
		}
	}

	pref, ok := ParsePref(req.SidePreference)
	if !ok {
		pc.Send(message.MatchmakingError(codeInvalidPreference,
			"sidePreference must be X, O or any"))
		return
	}

	sess, err := g.matchmaker.Enqueue(pc.UserID, pref)
	if err != nil {
		pc.Send(message.MatchmakingError(errorCode(err), err.Error()))
		return
	}

	if sess == nil {
		// Sem par por enquanto; o found-opponent chega de forma
		// assíncrona quando alguém compatível entrar.
		pc.State = StateInQueue
		return
	}

	g.startSession(sess)
}

func (g *Gateway) registerLobbyHandlers() {
	g.unauthRouter[message.EventAuth] = handleAuth
	g.lobbyRouter[message.EventFindOpponent] = handleFindOpponent
}
