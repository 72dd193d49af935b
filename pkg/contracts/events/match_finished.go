package events

import "time"

// Evento publicado no tópico "match_finished" quando o resultado final
// de uma partida é reportado. Consumido pelo settlement-worker.
type MatchFinished struct {
	MatchID   string    `json:"match_id"`
	Sport     string    `json:"sport"`
	MatchType string    `json:"match_type"`
	Date      string    `json:"date"` // YYYY-MM-DD
	HomeTeam  string    `json:"home_team"`
	AwayTeam  string    `json:"away_team"`
	Ts        time.Time `json:"ts"`
}
