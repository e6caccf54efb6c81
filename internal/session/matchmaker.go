package session

import (
	"log"
	"time"

	"velha/internal/game"
)

// SidePref é a preferência de símbolo declarada ao entrar na fila.
type SidePref string

const (
	PrefX   SidePref = "X"
	PrefO   SidePref = "O"
	PrefAny SidePref = "any"
)

// ParsePref valida a preferência vinda do cliente. String vazia conta
// como "any".
func ParsePref(s string) (SidePref, bool) {
	switch SidePref(s) {
	case PrefX, PrefO, PrefAny:
		return SidePref(s), true
	case "":
		return PrefAny, true
	}
	return "", false
}

type waiter struct {
	userID     string
	pref       SidePref
	enqueuedAt time.Time
}

// Matchmaker guarda os jogadores esperando partida em três baldes (X, O,
// any) e forma pares na hora do enqueue. Como ele só roda na goroutine
// do Hub, remover os dois da fila e criar a sessão é atômico: nenhum
// observador consegue ver um pareamento pela metade.
//
// Política de pareamento (documentada aqui por ser decisão nossa):
//   - X casa com O ou any; O casa com X ou any; "any" casa com qualquer
//     balde. Dois pedidos estritos pelo MESMO símbolo nunca casam entre
//     si: ficam esperando alguém compatível.
//   - entre candidatos compatíveis vence sempre o que espera há mais
//     tempo (FIFO), não importa o balde;
//   - na atribuição de símbolos, pedido estrito sempre é atendido e o
//     "any" recebe o que sobrar; entre dois "any", o primeiro a entrar
//     na fila joga de X.
type Matchmaker struct {
	buckets   map[SidePref][]*waiter
	queued    map[string]*waiter
	directory *Directory

	// Relógio injetável para os testes de ordenação FIFO.
	now func() time.Time
}

func NewMatchmaker(directory *Directory) *Matchmaker {
	return &Matchmaker{
		buckets: map[SidePref][]*waiter{
			PrefX:   {},
			PrefO:   {},
			PrefAny: {},
		},
		queued:    make(map[string]*waiter),
		directory: directory,
		now:       time.Now,
	}
}

// Enqueue coloca o usuário na fila ou, se houver alguém compatível
// esperando, forma o par imediatamente. Devolve a sessão criada, ou nil
// quando o usuário ficou aguardando.
func (m *Matchmaker) Enqueue(userID string, pref SidePref) (*game.Session, error) {
	if _, waiting := m.queued[userID]; waiting {
		return nil, ErrAlreadyQueued
	}
	if m.directory.ActiveSessionOf(userID) != nil {
		return nil, ErrAlreadyInSession
	}

	w := &waiter{userID: userID, pref: pref, enqueuedAt: m.now()}

	opponent := m.pickOpponent(w)
	if opponent == nil {
		m.buckets[pref] = append(m.buckets[pref], w)
		m.queued[userID] = w
		log.Printf("[matchmaker] user %s queued with preference %q. Waiting: %d",
			userID, pref, len(m.queued))
		return nil, nil
	}

	// Par formado: o oponente sai da fila ANTES de criar a sessão, tudo
	// dentro do mesmo evento, então cancelamento tardio não acha nada.
	m.removeWaiter(opponent)

	userX, userO := assignSymbols(opponent, w)
	s, err := m.directory.Create(userX, userO)
	if err != nil {
		// Não deveria acontecer: quem está na fila não tem sessão ativa.
		// Devolve o oponente para a frente do balde dele e propaga.
		m.buckets[opponent.pref] = append([]*waiter{opponent}, m.buckets[opponent.pref]...)
		m.queued[opponent.userID] = opponent
		return nil, err
	}

	log.Printf("[matchmaker] MATCH FOUND! %s (X) vs %s (O), session %s. Waiting: %d",
		userX, userO, s.ID, len(m.queued))
	return s, nil
}

// Cancel remove a entrada pendente do usuário.
func (m *Matchmaker) Cancel(userID string) error {
	w, ok := m.queued[userID]
	if !ok {
		return ErrNotQueued
	}
	m.removeWaiter(w)
	log.Printf("[matchmaker] user %s left the queue. Waiting: %d", userID, len(m.queued))
	return nil
}

// Queued informa se o usuário tem entrada pendente.
func (m *Matchmaker) Queued(userID string) bool {
	_, ok := m.queued[userID]
	return ok
}

// Waiting devolve o tamanho total da fila. Só para logs e health.
func (m *Matchmaker) Waiting() int {
	return len(m.queued)
}

// pickOpponent procura o candidato compatível mais antigo para w.
// Pedido estrito não casa com o próprio balde; "any" casa com todos.
func (m *Matchmaker) pickOpponent(w *waiter) *waiter {
	var candidates []SidePref
	switch w.pref {
	case PrefX:
		candidates = []SidePref{PrefO, PrefAny}
	case PrefO:
		candidates = []SidePref{PrefX, PrefAny}
	default:
		candidates = []SidePref{PrefX, PrefO, PrefAny}
	}
	return m.oldestHead(candidates)
}

// oldestHead compara a cabeça (entrada mais antiga) de cada balde e
// devolve a mais antiga entre elas. Empate de timestamp fica com o
// primeiro balde da lista, o que mantém a escolha determinística.
func (m *Matchmaker) oldestHead(prefs []SidePref) *waiter {
	var best *waiter
	for _, p := range prefs {
		bucket := m.buckets[p]
		if len(bucket) == 0 {
			continue
		}
		head := bucket[0]
		if best == nil || head.enqueuedAt.Before(best.enqueuedAt) {
			best = head
		}
	}
	return best
}

func (m *Matchmaker) removeWaiter(w *waiter) {
	delete(m.queued, w.userID)
	bucket := m.buckets[w.pref]
	for i, entry := range bucket {
		if entry == w {
			m.buckets[w.pref] = append(bucket[:i], bucket[i+1:]...)
			return
		}
	}
}

// assignSymbols decide quem joga X e quem joga O. Pedido estrito sempre
// é atendido; entre dois "any" o primeiro da fila joga de X.
func assignSymbols(first, second *waiter) (userX, userO string) {
	switch {
	case first.pref == PrefX || second.pref == PrefO:
		return first.userID, second.userID
	case first.pref == PrefO || second.pref == PrefX:
		return second.userID, first.userID
	default:
		return first.userID, second.userID
	}
}
