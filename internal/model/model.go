package model

import (
	"strings"
	"time"
)

// Status de partida no store primário
type MatchStatus string

const (
	MatchScheduled MatchStatus = "SCHEDULED"
	MatchFinished  MatchStatus = "FINISHED"
)

// Status de aposta: PENDING é o único estado não-terminal
type BetStatus string

const (
	BetPending BetStatus = "PENDING"
	BetWon     BetStatus = "WON"
	BetLost    BetStatus = "LOST"
)

// Resultado individual de um lado da partida ("won" | "lost" | "draw")
const (
	ResultWon  = "won"
	ResultLost = "lost"
	ResultDraw = "draw"
)

// Team é o modelo persistido de time. Rating segue escala Elo.
type Team struct {
	ID        string
	Name      string
	Sport     string
	Rating    float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TeamResult é o bloco de resultado de um lado da partida, presente
// apenas quando a partida está FINISHED.
type TeamResult struct {
	GoalsFor     int    `json:"goalsFor"`
	GoalsAgainst int    `json:"goalsAgainst"`
	Status       string `json:"status"` // "won" | "lost" | "draw"
	YellowCards  int    `json:"yellowCards"`
	RedCards     int    `json:"redCards"`
	Fouls        int    `json:"fouls"`
}

// MatchSide embute o nome do time e, quando reportado, seu resultado.
type MatchSide struct {
	Name   string
	Result *TeamResult
}

// Match é o registro autoritativo de partida.
// A tupla (sport, matchType, date, par de times) é única.
type Match struct {
	ID        string
	Sport     string
	MatchType string // "league", "cup", ...
	Date      string // YYYY-MM-DD
	Home      MatchSide
	Away      MatchSide
	Status    MatchStatus
	HomePrice float64 // cotação calculada na criação
	AwayPrice float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventRef é o snapshot do evento embutido no documento de aposta.
// Resolvido na validação; não é re-consultado na leitura.
type EventRef struct {
	Team1 string `json:"team_1"`
	Team2 string `json:"team_2"`
	Type  string `json:"type"`
	Date  string `json:"date"` // YYYY-MM-DD
}

// Bet é o registro autoritativo de aposta. Mutação de status só acontece
// via settlement ou override administrativo.
type Bet struct {
	ID         string
	UserID     string
	UserEmail  string
	MatchID    string
	Event      EventRef
	Selection  Selection
	StakeCents int64
	Odds       float64
	Status     BetStatus
	BatchRef   string // id do lote de checkout; vazio em aposta avulsa
	CreatedAt  time.Time
}

// User carrega identidade e saldo. O saldo só muda pelas operações do ledger.
type User struct {
	ID           string
	Email        string
	Nickname     string
	FirstName    string
	LastName     string
	BalanceCents int64
	CreatedAt    time.Time
}

// NormalizeTeamName colapsa espaços repetidos e apara as bordas.
func NormalizeTeamName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

// PairKey retorna o par de nomes normalizado em minúsculas e ordenado
// lexicograficamente, tornando o par não-ordenado no nível do store.
func PairKey(a, b string) (lo, hi string) {
	la := strings.ToLower(NormalizeTeamName(a))
	lb := strings.ToLower(NormalizeTeamName(b))
	if la <= lb {
		return la, lb
	}
	return lb, la
}
