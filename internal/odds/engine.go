package odds

import (
	"context"
	"fmt"
	"math"

	"github.com/sportbet/platform/internal/model"
)

// Parâmetros do modelo de precificação
const (
	formWindow     = 10    // últimos N jogos FINISHED considerados
	laplaceAlpha   = 1.0   // suavização do win-rate
	formWeight     = 0.6   // peso da forma recente no blend
	baselineRating = 1500  // rating default quando o time não existe
	ratingScale    = 400   // escala logística (Elo)
	margin         = 1.06  // margem embutida na cotação
	minProb        = 0.001 // clamp da probabilidade
	maxProb        = 0.999
	minPrice       = 0.50 // clamp da cotação
	maxPrice       = 10.00
)

// FormSource fornece a forma recente de um time (jogos FINISHED).
type FormSource interface {
	RecentForm(ctx context.Context, team string, n int) (wins, draws, games int, err error)
}

// RatingSource fornece o rating Elo de um time. found=false aplica o baseline.
type RatingSource interface {
	RatingByName(ctx context.Context, name string) (rating float64, found bool, err error)
}

// Quote é o par de probabilidades e cotações de uma partida.
// P1+P2 = 1 antes da margem.
type Quote struct {
	P1, P2         float64
	Price1, Price2 float64
}

// Engine calcula probabilidades de vitória e cotações a partir da forma
// recente e do rating dos dois times. Não persiste nada; o chamador grava
// as cotações no registro da partida.
type Engine struct {
	form    FormSource
	ratings RatingSource
}

func NewEngine(form FormSource, ratings RatingSource) *Engine {
	return &Engine{form: form, ratings: ratings}
}

// Quote computa o par de cotações para team1 x team2.
//  1. win-rate suavizado (Laplace) dos últimos jogos de cada time
//  2. normaliza os dois win-rates para somarem 1
//  3. probabilidade logística pela diferença de rating
//  4. blend forma/rating com peso formWeight, clamp em [minProb, maxProb]
//  5. preço = clamp(margin/p), arredondado half-up em duas casas
func (e *Engine) Quote(ctx context.Context, team1, team2 string) (Quote, error) {
	raw1, err := e.smoothedWinRate(ctx, team1)
	if err != nil {
		return Quote{}, fmt.Errorf("form %s: %w", team1, err)
	}
	raw2, err := e.smoothedWinRate(ctx, team2)
	if err != nil {
		return Quote{}, fmt.Errorf("form %s: %w", team2, err)
	}

	// normalização para somar 1; fallback neutro se ambos zero
	form1 := 0.5
	if sum := raw1 + raw2; sum > 0 {
		form1 = raw1 / sum
	}

	r1, err := e.rating(ctx, team1)
	if err != nil {
		return Quote{}, fmt.Errorf("rating %s: %w", team1, err)
	}
	r2, err := e.rating(ctx, team2)
	if err != nil {
		return Quote{}, fmt.Errorf("rating %s: %w", team2, err)
	}
	ratingProb1 := 1 / (1 + math.Pow(10, -(r1-r2)/ratingScale))

	p1 := formWeight*form1 + (1-formWeight)*ratingProb1
	p1 = clamp(p1, minProb, maxProb)
	p2 := 1 - p1

	return Quote{
		P1:     p1,
		P2:     p2,
		Price1: price(p1),
		Price2: price(p2),
	}, nil
}

// smoothedWinRate aplica Laplace: (wins + 0.5*draws + α) / (games + 2α).
// Sem histórico o resultado é 0.5 (neutro).
func (e *Engine) smoothedWinRate(ctx context.Context, team string) (float64, error) {
	wins, draws, games, err := e.form.RecentForm(ctx, team, formWindow)
	if err != nil {
		return 0, err
	}
	return (float64(wins) + 0.5*float64(draws) + laplaceAlpha) /
		(float64(games) + 2*laplaceAlpha), nil
}

// rating retorna o rating do time ou o baseline quando não cadastrado.
// Ausência de rating é decisão de política, não erro.
func (e *Engine) rating(ctx context.Context, team string) (float64, error) {
	r, found, err := e.ratings.RatingByName(ctx, team)
	if err != nil {
		return 0, err
	}
	if !found {
		return baselineRating, nil
	}
	return r, nil
}

func price(p float64) float64 {
	return model.RoundPrice(clamp(margin/p, minPrice, maxPrice))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
