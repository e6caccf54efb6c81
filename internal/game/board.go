package game

// Symbol é a marca de um jogador no tabuleiro.
type Symbol string

const (
	SymbolX Symbol = "X"
	SymbolO Symbol = "O"
	Empty   Symbol = ""
)

// Other retorna o símbolo oposto. Só faz sentido para X e O.
func (s Symbol) Other() Symbol {
	if s == SymbolX {
		return SymbolO
	}
	return SymbolX
}

// Board é a grade 3x3, indexada de 0 a 8, linha por linha.
type Board [9]Symbol

// winLines são as 8 combinações vencedoras possíveis: 3 linhas,
// 3 colunas e 2 diagonais. Com 9 células não vale a pena rastrear
// incrementalmente; checar todas após cada jogada é O(1).
var winLines = [8][3]int{
	{0, 1, 2},
	{3, 4, 5},
	{6, 7, 8},
	{0, 3, 6},
	{1, 4, 7},
	{2, 5, 8},
	{0, 4, 8},
	{2, 4, 6},
}

// Winner devolve o símbolo que completou alguma linha, ou Empty.
func (b Board) Winner() Symbol {
	for _, line := range winLines {
		a, m, c := line[0], line[1], line[2]
		if b[a] != Empty && b[a] == b[m] && b[m] == b[c] {
			return b[a]
		}
	}
	return Empty
}

// Full informa se todas as células estão ocupadas.
func (b Board) Full() bool {
	for _, cell := range b {
		if cell == Empty {
			return false
		}
	}
	return true
}
