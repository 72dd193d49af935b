package propagation

import (
	"fmt"
	"time"

	"github.com/sportbet/platform/internal/model"
)

// Documentos desnormalizados do índice de busca. Um construtor canônico por
// entidade, usado tanto pelo caminho de propagação quanto pelo reindex
// completo, para que os dois nunca divirjam.

// MatchDoc é a projeção achatada de partida (índice matches_search).
type MatchDoc struct {
	MatchID   string  `json:"match_id"`
	Sport     string  `json:"sport"`
	Teams     string  `json:"teams"` // "Time A vs Time B", campo de busca textual
	Team1     string  `json:"team1"`
	Team2     string  `json:"team2"`
	Date      string  `json:"date"`
	MatchType string  `json:"matchType"`
	Status    string  `json:"status"`
	HomeOdds  float64 `json:"home_odds"`
	AwayOdds  float64 `json:"away_odds"`
}

// BetDoc é a projeção achatada de aposta (índice bets_analytics).
type BetDoc struct {
	BetID     string    `json:"bet_id"`
	User      string    `json:"user"`
	Team      string    `json:"team,omitempty"` // só para WINNER
	MatchID   string    `json:"match_id"`
	Status    string    `json:"status"`
	Stake     float64   `json:"stake"`
	Odds      float64   `json:"odds"`
	Sport     string    `json:"sport"`
	Choice    string    `json:"choice"`
	EventDate string    `json:"event_date"`
	CreatedAt time.Time `json:"createdAt"`
}

// BuildMatchDoc projeta uma partida para o índice de busca.
func BuildMatchDoc(m *model.Match) MatchDoc {
	return MatchDoc{
		MatchID:   m.ID,
		Sport:     m.Sport,
		Teams:     fmt.Sprintf("%s vs %s", m.Home.Name, m.Away.Name),
		Team1:     m.Home.Name,
		Team2:     m.Away.Name,
		Date:      m.Date,
		MatchType: m.MatchType,
		Status:    string(m.Status),
		HomeOdds:  m.HomePrice,
		AwayOdds:  m.AwayPrice,
	}
}

// BuildBetDoc projeta uma aposta para o índice de analytics. O sport vem da
// partida resolvida (desnormalização deliberada: relatórios não fazem join).
func BuildBetDoc(b *model.Bet, sport string) BetDoc {
	doc := BetDoc{
		BetID:     b.ID,
		User:      b.UserEmail,
		MatchID:   b.MatchID,
		Status:    string(b.Status),
		Stake:     model.CentsToFloat(b.StakeCents),
		Odds:      b.Odds,
		Sport:     sport,
		Choice:    string(b.Selection.Choice()),
		EventDate: b.Event.Date,
		CreatedAt: b.CreatedAt,
	}
	if b.Selection.Choice() == model.ChoiceWinner {
		doc.Team = b.Selection.Team()
	}
	return doc
}
