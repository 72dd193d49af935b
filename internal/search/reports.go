package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Relatórios agregados lidos do índice de analytics, nunca do store primário.

// DailyRevenue é a receita (soma de stakes) de um dia.
type DailyRevenue struct {
	Date    string  `json:"date"`
	Bets    int64   `json:"bets"`
	Revenue float64 `json:"revenue"`
}

// SportPopularity resume o volume apostado por esporte.
type SportPopularity struct {
	Sport      string  `json:"sport"`
	Bets       int64   `json:"bets"`
	TotalStake float64 `json:"total_stake"`
}

// DailyRevenueReport agrega as apostas por dia de criação com a soma dos stakes.
func (i *Index) DailyRevenueReport(ctx context.Context) ([]DailyRevenue, error) {
	const query = `{
	  "size": 0,
	  "aggs": {
	    "per_day": {
	      "date_histogram": {"field": "createdAt", "calendar_interval": "day"},
	      "aggs": {"revenue": {"sum": {"field": "stake"}}}
	    }
	  }
	}`

	var out struct {
		Aggregations struct {
			PerDay struct {
				Buckets []struct {
					KeyAsString string `json:"key_as_string"`
					DocCount    int64  `json:"doc_count"`
					Revenue     struct {
						Value float64 `json:"value"`
					} `json:"revenue"`
				} `json:"buckets"`
			} `json:"per_day"`
		} `json:"aggregations"`
	}
	if err := i.search(ctx, BetsIndex, query, &out); err != nil {
		return nil, err
	}

	report := make([]DailyRevenue, 0, len(out.Aggregations.PerDay.Buckets))
	for _, b := range out.Aggregations.PerDay.Buckets {
		report = append(report, DailyRevenue{
			Date:    b.KeyAsString,
			Bets:    b.DocCount,
			Revenue: b.Revenue.Value,
		})
	}
	return report, nil
}

// SportPopularityReport agrega contagem e volume de apostas por esporte.
func (i *Index) SportPopularityReport(ctx context.Context) ([]SportPopularity, error) {
	const query = `{
	  "size": 0,
	  "aggs": {
	    "per_sport": {
	      "terms": {"field": "sport", "size": 50},
	      "aggs": {"total_stake": {"sum": {"field": "stake"}}}
	    }
	  }
	}`

	var out struct {
		Aggregations struct {
			PerSport struct {
				Buckets []struct {
					Key        string `json:"key"`
					DocCount   int64  `json:"doc_count"`
					TotalStake struct {
						Value float64 `json:"value"`
					} `json:"total_stake"`
				} `json:"buckets"`
			} `json:"per_sport"`
		} `json:"aggregations"`
	}
	if err := i.search(ctx, BetsIndex, query, &out); err != nil {
		return nil, err
	}

	report := make([]SportPopularity, 0, len(out.Aggregations.PerSport.Buckets))
	for _, b := range out.Aggregations.PerSport.Buckets {
		report = append(report, SportPopularity{
			Sport:      b.Key,
			Bets:       b.DocCount,
			TotalStake: b.TotalStake.Value,
		})
	}
	return report, nil
}

func (i *Index) search(ctx context.Context, index, query string, out any) error {
	res, err := i.es.Search(
		i.es.Search.WithContext(ctx),
		i.es.Search.WithIndex(index),
		i.es.Search.WithBody(strings.NewReader(query)),
	)
	if err != nil {
		return fmt.Errorf("search %s: %w", index, err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("search %s: %s", index, res.String())
	}
	return json.NewDecoder(res.Body).Decode(out)
}
