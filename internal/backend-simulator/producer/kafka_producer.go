package producer

import (
	"context"
	"time"

	skafka "github.com/radieske/bch-prediction-board/internal/shared/kafka"
	"github.com/radieske/bch-prediction-board/pkg/contracts/events"
)

// Publisher publica as previsões simuladas aceitas
type Publisher interface {
	PublishPredictionSimulated(ctx context.Context, e events.PredictionSimulated) error
}

type KafkaPublisher struct {
	Writer skafka.MessageWriter
	Topic  string
}

func NewKafkaPublisher(w skafka.MessageWriter, topic string) *KafkaPublisher {
	return &KafkaPublisher{Writer: w, Topic: topic}
}

// PublishPredictionSimulated usa o ticket como chave da mensagem
func (p *KafkaPublisher) PublishPredictionSimulated(ctx context.Context, e events.PredictionSimulated) error {
	if e.Ts.IsZero() {
		e.Ts = time.Now().UTC()
	}
	return skafka.WriteJSON(ctx, p.Writer, e.TicketID, e)
}

// Noop descarta os eventos; usado quando KAFKA_BROKERS está vazio
type Noop struct{}

func (Noop) PublishPredictionSimulated(context.Context, events.PredictionSimulated) error { return nil }
