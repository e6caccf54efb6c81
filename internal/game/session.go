package game

import (
	"time"
)

// Resultados possíveis de uma sessão. in-progress é o único estado não
// terminal; os demais são absorventes.
const (
	ResultInProgress = "in-progress"
	ResultWon        = "won"
	ResultDrawn      = "drawn"
	ResultForfeited  = "forfeited"
)

// Status descreve o desfecho (ou a ausência dele) de uma sessão.
type Status struct {
	Result string `json:"result"`
	// Winner é preenchido em won e forfeited (o oponente de quem desistiu).
	Winner Symbol `json:"winner,omitempty"`
	// Forfeiter é o símbolo de quem abandonou, só em forfeited.
	Forfeiter Symbol `json:"forfeiter,omitempty"`
}

// Terminal informa se o status é absorvente.
func (s Status) Terminal() bool {
	return s.Result != ResultInProgress
}

// Participant liga uma identidade de usuário ao símbolo que ela joga.
type Participant struct {
	UserID string `json:"userId"`
	Symbol Symbol `json:"symbol"`
}

// Session é uma partida ativa entre exatamente dois participantes.
// Toda mutação passa por ApplyMove/Forfeit, sempre na goroutine do Hub,
// então a struct não carrega lock nenhum.
type Session struct {
	ID        string
	Players   [2]Participant // [0] joga X, [1] joga O
	Board     Board
	Turn      Symbol // de quem é a vez enquanto in-progress
	Moves     int
	Status    Status
	StartedAt time.Time
	UpdatedAt time.Time
}

// MoveResult é o que uma jogada aceita devolve para ser difundido aos
// dois participantes.
type MoveResult struct {
	Cell     int
	Symbol   Symbol
	NextTurn Symbol
	Status   Status
	Move     int
}

// NewSession cria uma partida nova com X começando, como manda a regra.
func NewSession(id, userX, userO string) *Session {
	now := time.Now()
	return &Session{
		ID: id,
		Players: [2]Participant{
			{UserID: userX, Symbol: SymbolX},
			{UserID: userO, Symbol: SymbolO},
		},
		Turn:      SymbolX,
		Status:    Status{Result: ResultInProgress},
		StartedAt: now,
		UpdatedAt: now,
	}
}

// SymbolOf devolve o símbolo do usuário, ou Empty se ele não participa.
func (s *Session) SymbolOf(userID string) Symbol {
	for _, p := range s.Players {
		if p.UserID == userID {
			return p.Symbol
		}
	}
	return Empty
}

// OpponentOf devolve a identidade do outro participante.
func (s *Session) OpponentOf(userID string) string {
	if s.Players[0].UserID == userID {
		return s.Players[1].UserID
	}
	return s.Players[0].UserID
}

// ApplyMove valida e aplica a jogada de um usuário em uma célula.
// A ordem de validação segue o contrato: participante, status, vez,
// célula. Nada é escrito no tabuleiro antes da última validação passar.
func (s *Session) ApplyMove(userID string, cell int) (*MoveResult, error) {
	symbol := s.SymbolOf(userID)
	if symbol == Empty {
		return nil, ErrNotParticipant
	}

	if s.Status.Terminal() {
		return nil, ErrSessionTerminated
	}

	if symbol != s.Turn {
		return nil, ErrNotYourTurn
	}

	if cell < 0 || cell > 8 || s.Board[cell] != Empty {
		return nil, ErrInvalidCell
	}

	s.Board[cell] = symbol
	s.Moves++
	s.UpdatedAt = time.Now()

	if winner := s.Board.Winner(); winner != Empty {
		s.Status = Status{Result: ResultWon, Winner: winner}
	} else if s.Board.Full() {
		s.Status = Status{Result: ResultDrawn}
	} else {
		s.Turn = symbol.Other()
	}

	return &MoveResult{
		Cell:     cell,
		Symbol:   symbol,
		NextTurn: s.Turn,
		Status:   s.Status,
		Move:     s.Moves,
	}, nil
}

// Forfeit encerra a partida contra o usuário que desistiu (ou que não
// voltou dentro da janela de tolerância). O oponente é o vencedor.
func (s *Session) Forfeit(userID string) error {
	symbol := s.SymbolOf(userID)
	if symbol == Empty {
		return ErrNotParticipant
	}

	if s.Status.Terminal() {
		return ErrSessionTerminated
	}

	s.Status = Status{
		Result:    ResultForfeited,
		Winner:    symbol.Other(),
		Forfeiter: symbol,
	}
	s.UpdatedAt = time.Now()
	return nil
}

// Expire encerra em empate uma partida abandonada pela varredura de
// inatividade. Ninguém jogou; ninguém vence.
func (s *Session) Expire() error {
	if s.Status.Terminal() {
		return ErrSessionTerminated
	}
	s.Status = Status{Result: ResultDrawn}
	s.UpdatedAt = time.Now()
	return nil
}
