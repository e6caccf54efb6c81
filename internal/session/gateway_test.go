package session

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velha/internal/auth"
	"velha/internal/game"
	"velha/internal/network"
	"velha/internal/session/message"
)

// fakeSender grava tudo que o gateway manda para uma conexão, no lugar
// de um websocket de verdade.
type fakeSender struct {
	sent   []network.Message
	closed bool
}

func (f *fakeSender) Send(msg network.Message) { f.sent = append(f.sent, msg) }
func (f *fakeSender) Close()                   { f.closed = true }

// eventTypes devolve os nomes dos eventos recebidos, na ordem.
func (f *fakeSender) eventTypes() []string {
	types := make([]string, len(f.sent))
	for i, msg := range f.sent {
		types[i] = msg.Type
	}
	return types
}

// last decodifica o payload do último evento do tipo pedido. Falha o
// teste se nenhum chegou.
func (f *fakeSender) last(t *testing.T, eventType string, out any) {
	t.Helper()
	for i := len(f.sent) - 1; i >= 0; i-- {
		if f.sent[i].Type == eventType {
			require.NoError(t, json.Unmarshal(f.sent[i].Payload, out))
			return
		}
	}
	t.Fatalf("no %q event received; got %v", eventType, f.eventTypes())
}

func (f *fakeSender) count(eventType string) int {
	n := 0
	for _, msg := range f.sent {
		if msg.Type == eventType {
			n++
		}
	}
	return n
}

// stubVerifier aceita qualquer token não vazio e o usa como identidade.
type stubVerifier struct{}

func (stubVerifier) Verify(token string) (*auth.Identity, error) {
	if token == "" {
		return nil, auth.ErrInvalidToken
	}
	return &auth.Identity{UserID: token}, nil
}

func newTestGateway(gracePeriod time.Duration) *Gateway {
	registry := NewRegistry()
	directory := NewDirectory(nil)
	matchmaker := NewMatchmaker(directory)
	return NewGateway(registry, matchmaker, directory, stubVerifier{}, nil, gracePeriod)
}

// connectAndAuth simula o handshake completo de um usuário novo.
func connectAndAuth(t *testing.T, g *Gateway, userID string) *fakeSender {
	t.Helper()
	s := &fakeSender{}
	g.Connect(s)
	g.Dispatch(s, network.NewMessage(message.EventAuth, map[string]string{"token": userID}))

	var ok message.AuthOKPayload
	s.last(t, message.EventAuthOK, &ok)
	require.Equal(t, userID, ok.UserID)
	return s
}

// startMatch autentica dois usuários e os pareia. O primeiro joga X.
func startMatch(t *testing.T, g *Gateway) (sX, sO *fakeSender, sessionID string) {
	t.Helper()
	sX = connectAndAuth(t, g, "alice")
	sO = connectAndAuth(t, g, "bob")

	g.Dispatch(sX, network.NewMessage(message.EventFindOpponent, map[string]string{"sidePreference": "X"}))
	g.Dispatch(sO, network.NewMessage(message.EventFindOpponent, map[string]string{"sidePreference": "O"}))

	var pX, pO message.FoundOpponentPayload
	sX.last(t, message.EventFoundOpponent, &pX)
	sO.last(t, message.EventFoundOpponent, &pO)

	require.Equal(t, pX.SessionID, pO.SessionID)
	require.Equal(t, game.SymbolX, pX.AssignedSymbol)
	require.Equal(t, game.SymbolO, pO.AssignedSymbol)
	require.Equal(t, "bob", pX.OpponentID)
	require.Equal(t, "alice", pO.OpponentID)
	return sX, sO, pX.SessionID
}

func dispatchMove(g *Gateway, s *fakeSender, sessionID string, cell int) {
	g.Dispatch(s, network.NewMessage(message.EventNewMove, map[string]any{
		"sessionId": sessionID,
		"cellIndex": cell,
	}))
}

func TestAuthRejectsBadToken(t *testing.T) {
	g := newTestGateway(time.Hour)

	s := &fakeSender{}
	g.Connect(s)
	g.Dispatch(s, network.NewMessage(message.EventAuth, map[string]string{"token": ""}))

	var p message.ErrorPayload
	s.last(t, message.EventError, &p)
	assert.Equal(t, "auth-failed", p.Code)
	assert.Zero(t, s.count(message.EventAuthOK))
}

func TestAuthMalformedPayloadDropped(t *testing.T) {
	g := newTestGateway(time.Hour)

	s := &fakeSender{}
	g.Connect(s)
	g.Dispatch(s, network.Message{Type: message.EventAuth, Payload: json.RawMessage(`{broken`)})

	assert.Empty(t, s.sent)
}

func TestNewestConnectionWins(t *testing.T) {
	g := newTestGateway(time.Hour)

	old := connectAndAuth(t, g, "alice")
	fresh := connectAndAuth(t, g, "alice")

	assert.True(t, old.closed)
	assert.False(t, fresh.closed)

	// A conexão despejada sumiu do registro: eventos dela são descartados.
	before := len(old.sent)
	g.Dispatch(old, network.NewMessage(message.EventFindOpponent, nil))
	assert.Len(t, old.sent, before)
}

func TestUnknownEventDroppedSilently(t *testing.T) {
	g := newTestGateway(time.Hour)

	s := connectAndAuth(t, g, "alice")
	before := len(s.sent)

	g.Dispatch(s, network.NewMessage("definitely-not-an-event", nil))
	assert.Len(t, s.sent, before, "unknown events must not produce a reply")
}

func TestKnownEventInWrongState(t *testing.T) {
	g := newTestGateway(time.Hour)

	// new-move no lobby é evento legítimo fora de hora: erro estruturado.
	s := connectAndAuth(t, g, "alice")
	dispatchMove(g, s, "whatever", 0)

	var p message.ErrorPayload
	s.last(t, message.EventError, &p)
	assert.Equal(t, "invalid-state", p.Code)
}

func TestFindOpponentInvalidPreference(t *testing.T) {
	g := newTestGateway(time.Hour)

	s := connectAndAuth(t, g, "alice")
	g.Dispatch(s, network.NewMessage(message.EventFindOpponent, map[string]string{"sidePreference": "Z"}))

	var p message.ErrorPayload
	s.last(t, message.EventMatchmakingError, &p)
	assert.Equal(t, "invalid-preference", p.Code)
}

func TestCancelMatchmaking(t *testing.T) {
	g := newTestGateway(time.Hour)

	s := connectAndAuth(t, g, "alice")
	g.Dispatch(s, network.NewMessage(message.EventFindOpponent, nil))
	g.Dispatch(s, network.NewMessage(message.EventCancelMatchmaking, nil))

	assert.Equal(t, 1, s.count(message.EventMatchmakingCancelled))

	// De volta ao lobby, cancelar de novo é evento fora de hora.
	g.Dispatch(s, network.NewMessage(message.EventCancelMatchmaking, nil))
	var p message.ErrorPayload
	s.last(t, message.EventError, &p)
	assert.Equal(t, "invalid-state", p.Code)
}

func TestFullMatchToVictory(t *testing.T) {
	g := newTestGateway(time.Hour)
	sX, sO, sessionID := startMatch(t, g)

	// X joga 0,1,2 e O joga 3,4: X fecha a primeira linha.
	dispatchMove(g, sX, sessionID, 0)
	dispatchMove(g, sO, sessionID, 3)
	dispatchMove(g, sX, sessionID, 1)
	dispatchMove(g, sO, sessionID, 4)
	dispatchMove(g, sX, sessionID, 2)

	// Cada jogada chega para os DOIS participantes.
	assert.Equal(t, 5, sX.count(message.EventMoveRegistered))
	assert.Equal(t, 5, sO.count(message.EventMoveRegistered))

	var endX, endO message.GameEndedPayload
	sX.last(t, message.EventGameEnded, &endX)
	sO.last(t, message.EventGameEnded, &endO)

	assert.Equal(t, sessionID, endX.SessionID)
	assert.Equal(t, game.ResultWon, endX.Outcome.Result)
	assert.Equal(t, game.SymbolX, endX.Outcome.Winner)
	assert.Equal(t, endX.Outcome, endO.Outcome)

	// Sessão arquivada e os dois de volta ao lobby: podem enfileirar de novo.
	g.Dispatch(sX, network.NewMessage(message.EventFindOpponent, nil))
	assert.Zero(t, sX.count(message.EventMatchmakingError))
}

func TestMoveOutOfTurn(t *testing.T) {
	g := newTestGateway(time.Hour)
	_, sO, sessionID := startMatch(t, g)

	// É a vez de X; O tenta jogar.
	dispatchMove(g, sO, sessionID, 0)

	var p message.ErrorPayload
	sO.last(t, message.EventError, &p)
	assert.Equal(t, "not-your-turn", p.Code)
	assert.Zero(t, sO.count(message.EventMoveRegistered))
}

func TestMoveInvalidCell(t *testing.T) {
	g := newTestGateway(time.Hour)
	sX, _, sessionID := startMatch(t, g)

	dispatchMove(g, sX, sessionID, 9)

	var p message.ErrorPayload
	sX.last(t, message.EventError, &p)
	assert.Equal(t, "invalid-cell", p.Code)
}

func TestMoveUnknownSession(t *testing.T) {
	g := newTestGateway(time.Hour)
	sX, _, _ := startMatch(t, g)

	dispatchMove(g, sX, "nope", 0)

	var p message.ErrorPayload
	sX.last(t, message.EventError, &p)
	assert.Equal(t, "session-not-found", p.Code)
}

func TestMoveMalformedPayloadDropped(t *testing.T) {
	g := newTestGateway(time.Hour)
	sX, _, sessionID := startMatch(t, g)
	before := len(sX.sent)

	// cellIndex ausente não é célula 0: o evento é descartado.
	g.Dispatch(sX, network.NewMessage(message.EventNewMove, map[string]any{
		"sessionId": sessionID,
	}))
	assert.Len(t, sX.sent, before)
}

func TestForfeitEndsSession(t *testing.T) {
	g := newTestGateway(time.Hour)
	sX, sO, sessionID := startMatch(t, g)

	g.Dispatch(sO, network.NewMessage(message.EventForfeitGame, map[string]string{
		"sessionId": sessionID,
	}))

	var end message.GameEndedPayload
	sX.last(t, message.EventGameEnded, &end)
	assert.Equal(t, game.ResultForfeited, end.Outcome.Result)
	assert.Equal(t, game.SymbolX, end.Outcome.Winner)
	assert.Equal(t, game.SymbolO, end.Outcome.Forfeiter)
	assert.Equal(t, 1, sO.count(message.EventGameEnded))
}

func TestDisconnectInQueueCancelsEntry(t *testing.T) {
	g := newTestGateway(time.Hour)

	s := connectAndAuth(t, g, "alice")
	g.Dispatch(s, network.NewMessage(message.EventFindOpponent, nil))
	g.Disconnect(s)

	// A vaga sumiu: bob não encontra par e fica esperando.
	sBob := connectAndAuth(t, g, "bob")
	g.Dispatch(sBob, network.NewMessage(message.EventFindOpponent, nil))
	assert.Zero(t, sBob.count(message.EventFoundOpponent))
}

func TestReconnectWithinGraceKeepsGame(t *testing.T) {
	g := newTestGateway(time.Hour)
	sX, sO, sessionID := startMatch(t, g)

	dispatchMove(g, sX, sessionID, 4)

	// alice cai; bob é avisado e a partida fica congelada.
	g.Disconnect(sX)
	var st message.StatusUpdatePayload
	sO.last(t, message.EventStatusUpdate, &st)
	assert.Equal(t, "alice", st.UserID)
	assert.Equal(t, "offline", st.Status)

	// alice volta em outra conexão e recebe o retrato completo.
	back := connectAndAuth(t, g, "alice")
	var banner message.BannerUpdatePayload
	back.last(t, message.EventBannerUpdate, &banner)
	assert.Equal(t, sessionID, banner.SessionID)
	assert.Equal(t, game.SymbolX, banner.Symbol)
	assert.Equal(t, game.SymbolX, banner.Board[4])
	assert.Equal(t, game.SymbolO, banner.Turn)
	assert.Equal(t, game.ResultInProgress, banner.Status.Result)

	// E o jogo segue de onde parou.
	dispatchMove(g, sO, sessionID, 0)
	dispatchMove(g, back, sessionID, 5)
	assert.Equal(t, 2, back.count(message.EventMoveRegistered))
}

func TestGraceExpiryForfeitsDisconnected(t *testing.T) {
	g := newTestGateway(10 * time.Millisecond)

	// O timer de tolerância dispara em outra goroutine; o agendador de
	// teste devolve a tarefa para a goroutine do teste executar, igual
	// ao Hub faz em produção.
	tasks := make(chan func(), 1)
	g.SetScheduler(func(task func()) { tasks <- task })

	sX, sO, _ := startMatch(t, g)
	g.Disconnect(sX)

	select {
	case task := <-tasks:
		task()
	case <-time.After(2 * time.Second):
		t.Fatal("grace timer never fired")
	}

	var end message.GameEndedPayload
	sO.last(t, message.EventGameEnded, &end)
	assert.Equal(t, game.ResultForfeited, end.Outcome.Result)
	assert.Equal(t, game.SymbolO, end.Outcome.Winner)
	assert.Equal(t, game.SymbolX, end.Outcome.Forfeiter)
}

func TestGraceTimerIgnoredAfterReconnect(t *testing.T) {
	g := newTestGateway(10 * time.Millisecond)

	tasks := make(chan func(), 1)
	g.SetScheduler(func(task func()) { tasks <- task })

	sX, sO, sessionID := startMatch(t, g)
	g.Disconnect(sX)

	// Reconecta antes de drenar a tarefa do timer (se ela chegou a ser
	// agendada, executá-la depois da reconexão não pode desistir nada).
	back := connectAndAuth(t, g, "alice")

	select {
	case task := <-tasks:
		task()
	case <-time.After(50 * time.Millisecond):
		// Timer cancelado a tempo; melhor ainda.
	}

	assert.Zero(t, sO.count(message.EventGameEnded))
	dispatchMove(g, back, sessionID, 0)
	assert.Equal(t, 1, back.count(message.EventMoveRegistered))
}

func TestSweepStaleExpiresIdleSessions(t *testing.T) {
	g := newTestGateway(time.Hour)
	sX, sO, sessionID := startMatch(t, g)

	sess, err := g.directory.Get(sessionID)
	require.NoError(t, err)
	sess.UpdatedAt = time.Now().Add(-time.Hour)

	g.SweepStale(30 * time.Minute)

	var end message.GameEndedPayload
	sX.last(t, message.EventGameEnded, &end)
	assert.Equal(t, game.ResultDrawn, end.Outcome.Result)
	assert.Equal(t, 1, sO.count(message.EventGameEnded))
	assert.Equal(t, 0, g.directory.Count())
}

func TestErrorCodeMapping(t *testing.T) {
	cases := []struct {
		err  error
		code string
	}{
		{ErrAlreadyQueued, "already-queued"},
		{ErrAlreadyInSession, "already-in-session"},
		{ErrNotQueued, "not-queued"},
		{ErrSessionNotFound, "session-not-found"},
		{game.ErrNotParticipant, "not-participant"},
		{game.ErrNotYourTurn, "not-your-turn"},
		{game.ErrSessionTerminated, "session-terminated"},
		{game.ErrInvalidCell, "invalid-cell"},
		{errors.New("anything else"), "internal"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, errorCode(tc.err), "error %v", tc.err)
	}
}
