package model

import "math"

// Valores monetários circulam como int64 em centavos. A conversão da
// borda HTTP arredonda half-up para duas casas.

// CentsFromFloat converte um valor em reais/euros para centavos, half-up.
func CentsFromFloat(v float64) int64 {
	return int64(math.Floor(v*100 + 0.5))
}

// CentsToFloat converte centavos para o valor decimal exposto na API.
func CentsToFloat(c int64) float64 {
	return float64(c) / 100
}

// RoundPrice arredonda uma cotação para duas casas, half-up.
func RoundPrice(v float64) float64 {
	return math.Floor(v*100+0.5) / 100
}

// WinningsCents calcula o crédito de uma aposta vencedora: stake × odds,
// arredondado half-up para o centavo.
func WinningsCents(stakeCents int64, odds float64) int64 {
	return int64(math.Floor(float64(stakeCents)*odds + 0.5))
}
