package dto

import "github.com/sportbet/platform/internal/cart"

type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

type UserResponse struct {
	UserID    string  `json:"userId"`
	Email     string  `json:"email"`
	Nickname  string  `json:"nickname,omitempty"`
	FirstName string  `json:"firstName,omitempty"`
	LastName  string  `json:"lastName,omitempty"`
	Balance   float64 `json:"balance"`
}

type TeamResponse struct {
	TeamID string  `json:"teamId"`
	Name   string  `json:"name"`
	Sport  string  `json:"sport"`
	Rating float64 `json:"rating"`
}

type MatchResponse struct {
	MatchID   string      `json:"matchId"`
	Sport     string      `json:"sport"`
	MatchType string      `json:"matchType"`
	Date      string      `json:"date"`
	HomeTeam  string      `json:"homeTeam"`
	AwayTeam  string      `json:"awayTeam"`
	Status    string      `json:"status"`
	HomeOdds  float64     `json:"homeOdds"`
	AwayOdds  float64     `json:"awayOdds"`
	Home      *SideResult `json:"homeResult,omitempty"`
	Away      *SideResult `json:"awayResult,omitempty"`
}

type PlaceBetResponse struct {
	BetID  string  `json:"betId"`
	Status string  `json:"status"`
	Stake  float64 `json:"stake"`
	Odds   float64 `json:"odds"`
}

type BetResponse struct {
	BetID     string       `json:"betId"`
	UserEmail string       `json:"userEmail"`
	Event     EventPayload `json:"event"`
	Choice    string       `json:"choice"`
	Team      string       `json:"team,omitempty"`
	Score     *ScorePair   `json:"score,omitempty"`
	Stake     float64      `json:"stake"`
	Odds      float64      `json:"odds"`
	Status    string       `json:"status"`
	BatchRef  string       `json:"batchRef,omitempty"`
}

type ScorePair struct {
	Team1 int `json:"team_1"`
	Team2 int `json:"team_2"`
}

type BetStatusResponse struct {
	BetID  string `json:"betId"`
	Status string `json:"status"`
}

type CartResponse struct {
	Items []cart.Item `json:"items"`
	Total float64     `json:"total"` // soma dos stakes
}

type CheckoutResponse struct {
	BetIDs []string `json:"betIds"`
	Placed int      `json:"placed"`
}

type ReindexResponse struct {
	Entity string `json:"entity"`
	Synced int    `json:"synced"`
}

type SettlementResponse struct {
	Won     int `json:"won"`
	Lost    int `json:"lost"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}
