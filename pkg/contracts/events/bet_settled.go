package events

import "time"

// Evento emitido pelo settlement após a transição PENDING -> WON | LOST.
type BetSettled struct {
	BetID       string    `json:"betId"`
	UserID      string    `json:"userId"`
	MatchID     string    `json:"matchId"`
	Status      string    `json:"status"` // "WON" | "LOST"
	StakeCents  int64     `json:"stake_cents"`
	PayoutCents int64     `json:"payout_cents"` // 0 quando LOST
	Ts          time.Time `json:"ts"`
}
