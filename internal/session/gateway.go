package session

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"velha/internal/auth"
	"velha/internal/game"
	"velha/internal/network"
	"velha/internal/presence"
	"velha/internal/session/message"
)

// eventHandlerFunc é a assinatura de todos os handlers de eventos de
// entrada. Recebem o gateway, a conexão que agiu e o payload bruto.
type eventHandlerFunc func(g *Gateway, pc *PlayerConn, payload json.RawMessage)

// Gateway é a porta única de entrada e saída do protocolo em tempo real.
// Implementa network.EventHandler: todo evento passa primeiro pela
// resolução de identidade no Registry e depois pelo roteador do estado
// atual do jogador. Eventos de saída saem na ordem em que são produzidos
// porque tudo acontece na goroutine do Hub.
type Gateway struct {
	registry   *Registry
	matchmaker *Matchmaker
	directory  *Directory
	verifier   auth.Verifier
	notifier   *presence.Notifier

	gracePeriod time.Duration

	// schedule reentrega uma função para a fronteira de serialização.
	// Em produção aponta para Hub.Schedule; o default executa inline
	// para os testes não precisarem de um Hub.
	schedule func(func())

	// Um roteador por estado de jogador: comando fora do estado certo
	// nem encosta na lógica de jogo.
	unauthRouter map[string]eventHandlerFunc
	lobbyRouter  map[string]eventHandlerFunc
	queueRouter  map[string]eventHandlerFunc
	matchRouter  map[string]eventHandlerFunc

	// Conjunto de todos os nomes de evento válidos do protocolo, para
	// distinguir "evento desconhecido" (descartado com aviso) de
	// "evento conhecido no estado errado" (erro estruturado).
	known map[string]bool
}

func NewGateway(registry *Registry, matchmaker *Matchmaker, directory *Directory,
	verifier auth.Verifier, notifier *presence.Notifier, gracePeriod time.Duration) *Gateway {

	g := &Gateway{
		registry:     registry,
		matchmaker:   matchmaker,
		directory:    directory,
		verifier:     verifier,
		notifier:     notifier,
		gracePeriod:  gracePeriod,
		schedule:     func(task func()) { task() },
		unauthRouter: make(map[string]eventHandlerFunc),
		lobbyRouter:  make(map[string]eventHandlerFunc),
		queueRouter:  make(map[string]eventHandlerFunc),
		matchRouter:  make(map[string]eventHandlerFunc),
	}

	g.registerLobbyHandlers()
	g.registerQueueHandlers()
	g.registerMatchHandlers()

	g.known = make(map[string]bool)
	for _, router := range []map[string]eventHandlerFunc{
		g.unauthRouter, g.lobbyRouter, g.queueRouter, g.matchRouter,
	} {
		for name := range router {
			g.known[name] = true
		}
	}

	return g
}

// SetScheduler liga o gateway à fronteira de serialização do Hub.
// Precisa ser chamado antes de Listen.
func (g *Gateway) SetScheduler(fn func(func())) {
	g.schedule = fn
}

// --- Implementação da interface network.EventHandler ---

func (g *Gateway) OnConnect(c *network.Client) {
	log.Printf("[gateway] connection from %s. Live connections: %d",
		c.Conn().RemoteAddr(), g.registry.Connections()+1)
	g.Connect(c)
}

func (g *Gateway) OnDisconnect(c *network.Client) {
	g.Disconnect(c)
}

func (g *Gateway) OnMessage(c *network.Client, msg network.Message) {
	g.Dispatch(c, msg)
}

// --- Núcleo independente de transporte (também usado pelos testes) ---

// Connect cria a entrada não autenticada do transporte novo.
func (g *Gateway) Connect(s message.Sender) *PlayerConn {
	return g.registry.Register(s)
}

// Disconnect trata a queda de um transporte: cancela fila, abre a
// janela de tolerância de quem estava em partida ou só descarta a
// entrada.
func (g *Gateway) Disconnect(s message.Sender) {
	pc := g.registry.Remove(s)
	if pc == nil {
		// Transporte já despejado pela política "conexão mais nova vence".
		return
	}

	switch pc.State {
	case StateInQueue:
		if err := g.matchmaker.Cancel(pc.UserID); err != nil {
			log.Printf("WARN: [gateway] queued user %s had no queue entry on disconnect", pc.UserID)
		}
		g.registry.Unbind(pc)
		g.announceStatus(pc.UserID, "offline")

	case StateInMatch:
		g.announceStatus(pc.UserID, "offline")
		userID := pc.UserID
		g.registry.StartGrace(pc, g.gracePeriod, func() {
			g.schedule(func() { g.expireGrace(userID) })
		})
		log.Printf("[gateway] user %s disconnected mid-match, grace window of %s started",
			userID, g.gracePeriod)

	default:
		if pc.UserID != "" {
			g.registry.Unbind(pc)
			g.announceStatus(pc.UserID, "offline")
		}
	}
}

// Dispatch resolve identidade e roteia o evento pelo estado atual.
func (g *Gateway) Dispatch(s message.Sender, msg network.Message) {
	pc := g.registry.Get(s)
	if pc == nil {
		log.Printf("WARN: [gateway] message %q from unregistered connection dropped", msg.Type)
		return
	}

	var router map[string]eventHandlerFunc
	switch pc.State {
	case StateUnauthenticated:
		router = g.unauthRouter
	case StateLobby:
		router = g.lobbyRouter
	case StateInQueue:
		router = g.queueRouter
	case StateInMatch:
		router = g.matchRouter
	default:
		log.Printf("ERROR: [gateway] user %s in impossible state %q", pc.UserID, pc.State)
		return
	}

	handler, found := router[msg.Type]
	if !found {
		if g.known[msg.Type] {
			// Evento legítimo do protocolo, só que fora de hora.
			pc.Send(message.Error(codeInvalidState,
				fmt.Sprintf("event %q is not valid while %s", msg.Type, pc.State)))
			return
		}
		// Nome desconhecido: descarta sem dar retorno ao cliente, para
		// não virar oráculo de protocolo para quem fica sondando.
		log.Printf("WARN: [gateway] unknown event %q dropped", msg.Type)
		return
	}

	handler(g, pc, msg.Payload)
}

// --- Transições compartilhadas ---

// startSession avisa os dois pareados e move ambos para a partida.
func (g *Gateway) startSession(sess *game.Session) {
	for _, p := range sess.Players {
		conn := g.registry.Lookup(p.UserID)
		if conn == nil {
			continue
		}
		conn.State = StateInMatch
		conn.SessionID = sess.ID
		conn.Send(message.FoundOpponent(sess.ID, p.Symbol, sess.OpponentOf(p.UserID)))
	}
}

// endSession difunde o desfecho, devolve os conectados ao lobby, libera
// os desconectados e arquiva a sessão via diretório.
func (g *Gateway) endSession(sess *game.Session) {
	outcome := sess.Status
	for _, p := range sess.Players {
		conn := g.registry.Lookup(p.UserID)
		if conn == nil {
			continue
		}
		conn.Send(message.GameEnded(sess.ID, outcome))
		conn.SessionID = ""
		if conn.Connected() {
			conn.State = StateLobby
		} else {
			g.registry.StopGrace(conn)
			g.registry.Unbind(conn)
		}
	}
	g.notifier.PublishGameEnded(sess.ID, outcome.Result)
	g.directory.Terminate(sess.ID)
}

// expireGrace roda quando a janela de tolerância fecha sem reconexão.
// Sempre na goroutine do Hub, via schedule.
func (g *Gateway) expireGrace(userID string) {
	pc := g.registry.Lookup(userID)
	if pc == nil || pc.Connected() {
		// Reconectou a tempo (ou já foi limpo); nada a fazer.
		return
	}

	sess := g.directory.ActiveSessionOf(userID)
	if sess == nil {
		g.registry.Unbind(pc)
		return
	}

	if err := sess.Forfeit(userID); err != nil {
		g.registry.Unbind(pc)
		return
	}
	log.Printf("[gateway] user %s did not return within the grace window, forfeiting session %s",
		userID, sess.ID)
	g.endSession(sess)
}

// SweepStale encerra sessões paradas há mais tempo que maxIdle. É
// agendado periodicamente pelo main via Hub.Schedule.
func (g *Gateway) SweepStale(maxIdle time.Duration) {
	for _, sess := range g.directory.Stale(maxIdle) {
		if sess.Status.Terminal() {
			g.directory.Terminate(sess.ID)
			continue
		}
		if err := sess.Expire(); err != nil {
			continue
		}
		log.Printf("[gateway] session %s idle for over %s, expiring", sess.ID, maxIdle)
		g.endSession(sess)
	}
}

// announceStatus publica a mudança de presença e avisa a parte
// interessada local: o oponente da partida ativa, se houver.
func (g *Gateway) announceStatus(userID, status string) {
	g.notifier.PublishStatus(userID, status)
	g.deliverStatus(userID, status)
}

// DeliverRemoteStatus entrega localmente um evento de presença vindo de
// outro nó via NATS. O chamador já reentrou pela fronteira do Hub.
func (g *Gateway) DeliverRemoteStatus(evt presence.StatusEvent) {
	g.deliverStatus(evt.UserID, evt.Status)
}

func (g *Gateway) deliverStatus(userID, status string) {
	sess := g.directory.ActiveSessionOf(userID)
	if sess == nil {
		return
	}
	if opp := g.registry.Lookup(sess.OpponentOf(userID)); opp != nil {
		opp.Send(message.StatusUpdate(userID, status))
	}
}
