package producer

import (
	"context"
	"encoding/json"
	"time"

	sharedkafka "github.com/sportbet/platform/internal/shared/kafka"
	"github.com/sportbet/platform/pkg/contracts/events"
	"github.com/sportbet/platform/pkg/contracts/topics"
)

// KafkaPublisher emite os eventos do ciclo de vida de apostas e partidas.
// Um writer por tópico, seguindo a convenção dos contratos em pkg/contracts.
type KafkaPublisher struct {
	betPlaced     *sharedkafka.Writer
	betSettled    *sharedkafka.Writer
	matchFinished *sharedkafka.Writer
}

func NewKafkaPublisher(brokers string) *KafkaPublisher {
	return &KafkaPublisher{
		betPlaced:     sharedkafka.NewWriter(brokers, topics.BetPlaced),
		betSettled:    sharedkafka.NewWriter(brokers, topics.BetSettled),
		matchFinished: sharedkafka.NewWriter(brokers, topics.MatchFinished),
	}
}

func (p *KafkaPublisher) PublishBetPlaced(ctx context.Context, e events.BetPlaced) error {
	e.TsUnixMs = time.Now().UnixMilli()
	b, _ := json.Marshal(e)
	return sharedkafka.WriteJSON(ctx, p.betPlaced, e.BetID, b)
}

func (p *KafkaPublisher) PublishBetSettled(ctx context.Context, e events.BetSettled) error {
	e.Ts = time.Now().UTC()
	b, _ := json.Marshal(e)
	return sharedkafka.WriteJSON(ctx, p.betSettled, e.BetID, b)
}

func (p *KafkaPublisher) PublishMatchFinished(ctx context.Context, e events.MatchFinished) error {
	e.Ts = time.Now().UTC()
	b, _ := json.Marshal(e)
	return sharedkafka.WriteJSON(ctx, p.matchFinished, e.MatchID, b)
}

func (p *KafkaPublisher) Close() error {
	for _, w := range []*sharedkafka.Writer{p.betPlaced, p.betSettled, p.matchFinished} {
		if err := w.Close(); err != nil {
			return err
		}
	}
	return nil
}
