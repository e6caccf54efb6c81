package store

import (
	"time"

	"velha/internal/game"
)

// Record é o retrato durável de uma partida encerrada, no formato que a
// camada de persistência externa consome.
type Record struct {
	SessionID string               `json:"sessionId"`
	Players   [2]game.Participant  `json:"players"`
	Board     game.Board           `json:"board"`
	Status    game.Status          `json:"status"`
	Moves     int                  `json:"moves"`
	StartedAt time.Time            `json:"startedAt"`
	EndedAt   time.Time            `json:"endedAt"`
}

// RecordOf tira o retrato de uma sessão terminada.
func RecordOf(s *game.Session) *Record {
	return &Record{
		SessionID: s.ID,
		Players:   s.Players,
		Board:     s.Board,
		Status:    s.Status,
		Moves:     s.Moves,
		StartedAt: s.StartedAt,
		EndedAt:   time.Now(),
	}
}

// Archiver recebe registros de partidas encerradas. A escrita é
// fire-and-forget do ponto de vista da máquina de estados: uma queda da
// persistência nunca pode travar nem derrubar partidas ao vivo.
type Archiver interface {
	Archive(rec *Record)
}

// Noop descarta os registros. Usado quando a persistência está
// desabilitada e nos testes.
type Noop struct{}

func (Noop) Archive(*Record) {}
