package events

// Evento publicado no tópico "bet_placed" após o débito e a persistência
// da aposta no store primário.
type BetPlaced struct {
	BetID      string  `json:"bet_id"`
	UserID     string  `json:"user_id"`
	UserEmail  string  `json:"user_email"`
	MatchID    string  `json:"match_id"`
	Choice     string  `json:"choice"` // "WINNER" | "EXACT_SCORE"
	StakeCents int64   `json:"stake_cents"`
	Odds       float64 `json:"odds"`
	BatchRef   string  `json:"batch_ref,omitempty"` // presente em checkout de carrinho
	TsUnixMs   int64   `json:"ts_unix_ms"`
}
