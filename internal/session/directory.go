package session

import (
	"log"
	"time"

	"github.com/google/uuid"

	"velha/internal/game"
	"velha/internal/store"
)

// Directory é o dono exclusivo das sessões ativas: mapeia identificador
// de sessão para a partida e garante que cada usuário tem no máximo uma
// partida ativa. A remoção passa pelo arquivador antes de soltar a
// referência.
type Directory struct {
	sessions map[string]*game.Session
	byUser   map[string]string
	archiver store.Archiver
}

func NewDirectory(archiver store.Archiver) *Directory {
	if archiver == nil {
		archiver = store.Noop{}
	}
	return &Directory{
		sessions: make(map[string]*game.Session),
		byUser:   make(map[string]string),
		archiver: archiver,
	}
}

// Create abre uma sessão nova com userX jogando X e userO jogando O.
// Recusa participantes que já tenham partida ativa; junto com a checagem
// do matchmaker, isso fecha o invariante "nunca na fila e em partida ao
// mesmo tempo".
func (d *Directory) Create(userX, userO string) (*game.Session, error) {
	if _, busy := d.byUser[userX]; busy {
		return nil, ErrAlreadyInSession
	}
	if _, busy := d.byUser[userO]; busy {
		return nil, ErrAlreadyInSession
	}

	s := game.NewSession(uuid.NewString(), userX, userO)
	d.sessions[s.ID] = s
	d.byUser[userX] = s.ID
	d.byUser[userO] = s.ID

	log.Printf("[directory] session %s created: %s (X) vs %s (O). Active sessions: %d",
		s.ID, userX, userO, len(d.sessions))
	return s, nil
}

// Get resolve um identificador de sessão.
func (d *Directory) Get(sessionID string) (*game.Session, error) {
	s, ok := d.sessions[sessionID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// ActiveSessionOf devolve a partida ativa do usuário, ou nil.
func (d *Directory) ActiveSessionOf(userID string) *game.Session {
	id, ok := d.byUser[userID]
	if !ok {
		return nil
	}
	return d.sessions[id]
}

// Terminate tira a sessão do mapa ativo e entrega o retrato final ao
// arquivador. Chamar para um id desconhecido é inofensivo.
func (d *Directory) Terminate(sessionID string) {
	s, ok := d.sessions[sessionID]
	if !ok {
		return
	}
	delete(d.sessions, sessionID)
	for _, p := range s.Players {
		if d.byUser[p.UserID] == sessionID {
			delete(d.byUser, p.UserID)
		}
	}
	d.archiver.Archive(store.RecordOf(s))
	log.Printf("[directory] session %s terminated (%s). Active sessions: %d",
		sessionID, s.Status.Result, len(d.sessions))
}

// Stale devolve as sessões sem atividade há mais de maxIdle, para a
// varredura periódica encerrar.
func (d *Directory) Stale(maxIdle time.Duration) []*game.Session {
	cutoff := time.Now().Add(-maxIdle)
	var stale []*game.Session
	for _, s := range d.sessions {
		if s.UpdatedAt.Before(cutoff) {
			stale = append(stale, s)
		}
	}
	return stale
}

// Count devolve o número de sessões ativas. Só para logs e health.
func (d *Directory) Count() int {
	return len(d.sessions)
}
