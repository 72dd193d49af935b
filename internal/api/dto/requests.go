package dto

import "github.com/sportbet/platform/internal/betting"

type CreateUserRequest struct {
	Email     string  `json:"email"`
	Nickname  string  `json:"nickname"`
	FirstName string  `json:"firstName"`
	LastName  string  `json:"lastName"`
	Balance   float64 `json:"balance"` // unidades de moeda; convertido a centavos
}

type CreateTeamRequest struct {
	Name   string  `json:"name"`
	Sport  string  `json:"sport"`
	Rating float64 `json:"rating,omitempty"` // default 1500 quando omitido
}

type CreateMatchRequest struct {
	Sport     string `json:"sport"`
	MatchType string `json:"matchType"` // "league", "cup", ...
	Date      string `json:"date"`      // YYYY-MM-DD
	HomeTeam  string `json:"homeTeam"`
	AwayTeam  string `json:"awayTeam"`
}

type ReportResultRequest struct {
	Home SideResult `json:"home"`
	Away SideResult `json:"away"`
}

type SideResult struct {
	GoalsFor     int    `json:"goalsFor"`
	GoalsAgainst int    `json:"goalsAgainst"`
	Status       string `json:"status"` // "won" | "lost" | "draw"
	YellowCards  int    `json:"yellowCards"`
	RedCards     int    `json:"redCards"`
	Fouls        int    `json:"fouls"`
}

type EventPayload struct {
	Team1 string `json:"team_1"`
	Team2 string `json:"team_2"`
	Type  string `json:"type"`
	Date  string `json:"date"` // YYYY-MM-DD
}

type BetPayload struct {
	Choice string             `json:"choice"` // "winner" | "score"
	Team   string             `json:"team,omitempty"`
	Score  *betting.ScorePair `json:"score,omitempty"`
	Stake  float64            `json:"stake"`
	Odds   float64            `json:"odds,omitempty"` // odd vista pelo cliente
}

type PlaceBetRequest struct {
	UserID    string       `json:"userId,omitempty"`
	UserEmail string       `json:"userEmail,omitempty"`
	Event     EventPayload `json:"event"`
	Bet       BetPayload   `json:"bet"`
}

type UpdateBetStatusRequest struct {
	BetID  string `json:"betId"`
	Status string `json:"status"` // "PENDING" | "WON" | "LOST"
}

// CartItemRequest é o corpo de inserção/atualização de item do carrinho.
// Mesmo shape de PlaceBetRequest menos a identidade, que vem da rota.
type CartItemRequest struct {
	Event EventPayload `json:"event"`
	Bet   BetPayload   `json:"bet"`
}
