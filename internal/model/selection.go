package model

import "errors"

// Tipo de escolha da aposta
type BetChoice string

const (
	ChoiceWinner     BetChoice = "WINNER"
	ChoiceExactScore BetChoice = "EXACT_SCORE"
)

var (
	ErrEmptyTeamPick    = errors.New("winner pick requires a team")
	ErrNegativeScore    = errors.New("score pick requires non-negative components")
	ErrUnknownChoice    = errors.New("unknown bet choice")
	ErrSelectionInvalid = errors.New("selection does not match choice")
)

// Selection é a variante etiquetada da escolha: ou um time (WINNER),
// ou um placar exato (EXACT_SCORE). Os construtores garantem que
// combinações inválidas de campos não existem.
type Selection struct {
	choice    BetChoice
	team      string
	homeScore int
	awayScore int
}

// TeamPick constrói uma seleção WINNER. "draw" é um valor de time válido.
func TeamPick(team string) (Selection, error) {
	team = NormalizeTeamName(team)
	if team == "" {
		return Selection{}, ErrEmptyTeamPick
	}
	return Selection{choice: ChoiceWinner, team: team}, nil
}

// ScorePick constrói uma seleção EXACT_SCORE com os dois componentes do placar.
func ScorePick(home, away int) (Selection, error) {
	if home < 0 || away < 0 {
		return Selection{}, ErrNegativeScore
	}
	return Selection{choice: ChoiceExactScore, homeScore: home, awayScore: away}, nil
}

func (s Selection) Choice() BetChoice { return s.choice }

// Team retorna o time escolhido; só tem significado para WINNER.
func (s Selection) Team() string { return s.team }

// Score retorna o placar previsto; só tem significado para EXACT_SCORE.
func (s Selection) Score() (home, away int) { return s.homeScore, s.awayScore }

// Zero indica uma Selection construída sem passar pelos construtores.
func (s Selection) Zero() bool { return s.choice == "" }
