package betting

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sportbet/platform/internal/model"
	"github.com/sportbet/platform/internal/repo"
)

var (
	ErrMatchNotFound = errors.New("no match for this team pair and date")
	ErrUserNotFound  = errors.New("user not found")
	ErrDuplicateBet  = errors.New("duplicate bet for this user, choice and event")
)

// ValidationError carrega a lista de campos ausentes ou malformados.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing or invalid fields: " + strings.Join(e.Fields, ", ")
}

// ScorePair é o placar previsto cru de uma submissão EXACT_SCORE.
type ScorePair struct {
	Team1 int `json:"team_1"`
	Team2 int `json:"team_2"`
}

// Submission é a submissão crua de aposta vinda da borda HTTP ou do carrinho.
type Submission struct {
	UserID     string
	UserEmail  string
	Event      model.EventRef
	Choice     string // "winner" | "score" (case-insensitive; aceita os nomes canônicos)
	Team       string // escolha WINNER; "draw" é válido
	Score      *ScorePair
	StakeCents int64
	Odds       float64 // cotação vista pelo cliente; usada quando o lado não é precificado
}

// MatchResolver resolve a partida pelo par de times (qualquer ordem) e data.
type MatchResolver interface {
	ResolveByPair(ctx context.Context, team1, team2, date string) (*model.Match, error)
}

// DuplicateChecker antecipa a checagem de duplicata; a palavra final é do
// índice único do store na inserção.
type DuplicateChecker interface {
	HasDuplicate(ctx context.Context, userID string, choice model.BetChoice, team1, team2, date string) (bool, error)
}

// UserSource resolve o usuário por id ou email.
type UserSource interface {
	Get(ctx context.Context, id string) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
}

// Validator valida uma submissão e a resolve contra uma partida existente.
// Não debita fundos nem persiste: devolve o rascunho validado ao chamador.
type Validator struct {
	matches MatchResolver
	bets    DuplicateChecker
	users   UserSource
}

func NewValidator(matches MatchResolver, bets DuplicateChecker, users UserSource) *Validator {
	return &Validator{matches: matches, bets: bets, users: users}
}

// Validate aplica o contrato de validação e devolve um rascunho de aposta
// resolvido (usuário, partida, seleção e cotação preenchidos).
func (v *Validator) Validate(ctx context.Context, sub Submission) (*model.Bet, error) {
	if err := checkRequired(sub); err != nil {
		return nil, err
	}

	user, err := v.resolveUser(ctx, sub)
	if err != nil {
		return nil, err
	}

	sel, err := buildSelection(sub)
	if err != nil {
		return nil, err
	}

	team1 := model.NormalizeTeamName(sub.Event.Team1)
	team2 := model.NormalizeTeamName(sub.Event.Team2)

	match, err := v.matches.ResolveByPair(ctx, team1, team2, sub.Event.Date)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrMatchNotFound
		}
		return nil, fmt.Errorf("resolve match: %w", err)
	}

	// escolha WINNER deve apontar para um dos lados da partida ou "draw"
	if sel.Choice() == model.ChoiceWinner &&
		!strings.EqualFold(sel.Team(), match.Home.Name) &&
		!strings.EqualFold(sel.Team(), match.Away.Name) &&
		!strings.EqualFold(sel.Team(), "draw") {
		return nil, &ValidationError{Fields: []string{"bet.team"}}
	}

	dup, err := v.bets.HasDuplicate(ctx, user.ID, sel.Choice(), team1, team2, sub.Event.Date)
	if err != nil {
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		return nil, ErrDuplicateBet
	}

	odds, err := quotedOdds(match, sel, sub.Odds)
	if err != nil {
		return nil, err
	}

	return &model.Bet{
		UserID:    user.ID,
		UserEmail: user.Email,
		MatchID:   match.ID,
		Event: model.EventRef{
			Team1: team1,
			Team2: team2,
			Type:  sub.Event.Type,
			Date:  sub.Event.Date,
		},
		Selection:  sel,
		StakeCents: sub.StakeCents,
		Odds:       odds,
		Status:     model.BetPending,
	}, nil
}

// checkRequired acumula todos os campos ausentes/inválidos num único erro.
func checkRequired(sub Submission) error {
	var missing []string
	if sub.UserID == "" && sub.UserEmail == "" {
		missing = append(missing, "userId or userEmail")
	}
	if sub.Event.Team1 == "" {
		missing = append(missing, "event.team_1")
	}
	if sub.Event.Team2 == "" {
		missing = append(missing, "event.team_2")
	}
	if sub.Event.Date == "" {
		missing = append(missing, "event.date")
	}
	if sub.Choice == "" {
		missing = append(missing, "bet.choice")
	}
	if sub.StakeCents <= 0 {
		missing = append(missing, "bet.stake")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// buildSelection converte a escolha crua na variante etiquetada.
func buildSelection(sub Submission) (model.Selection, error) {
	switch strings.ToUpper(strings.TrimSpace(sub.Choice)) {
	case "WINNER":
		sel, err := model.TeamPick(sub.Team)
		if err != nil {
			return model.Selection{}, &ValidationError{Fields: []string{"bet.team"}}
		}
		return sel, nil
	case "SCORE", "EXACT_SCORE":
		if sub.Score == nil {
			return model.Selection{}, &ValidationError{Fields: []string{"bet.score"}}
		}
		sel, err := model.ScorePick(sub.Score.Team1, sub.Score.Team2)
		if err != nil {
			return model.Selection{}, &ValidationError{Fields: []string{"bet.score"}}
		}
		return sel, nil
	default:
		return model.Selection{}, &ValidationError{Fields: []string{"bet.choice"}}
	}
}

func (v *Validator) resolveUser(ctx context.Context, sub Submission) (*model.User, error) {
	var user *model.User
	var err error
	if sub.UserID != "" {
		user, err = v.users.Get(ctx, sub.UserID)
	} else {
		user, err = v.users.ByEmail(ctx, sub.UserEmail)
	}
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("resolve user: %w", err)
	}
	return user, nil
}

// quotedOdds fixa a cotação do rascunho: escolha WINNER num dos lados usa o
// preço corrente gravado na partida; empate e placar exato não têm preço no
// par, então valem a cotação submetida (obrigatória e positiva).
func quotedOdds(match *model.Match, sel model.Selection, submitted float64) (float64, error) {
	if sel.Choice() == model.ChoiceWinner {
		if strings.EqualFold(sel.Team(), match.Home.Name) && match.HomePrice > 0 {
			return match.HomePrice, nil
		}
		if strings.EqualFold(sel.Team(), match.Away.Name) && match.AwayPrice > 0 {
			return match.AwayPrice, nil
		}
	}
	if submitted <= 0 {
		return 0, &ValidationError{Fields: []string{"bet.odds"}}
	}
	return submitted, nil
}
