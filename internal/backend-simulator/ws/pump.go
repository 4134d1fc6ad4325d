package ws

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/pkg/contracts/events"
)

// Pump chama next a cada tick e faz broadcast do resultado até ctx terminar
func (h *Hub) Pump(ctx context.Context, every time.Duration, next func() events.RateUpdate) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			u := next()
			h.Broadcast(u)
			h.log.Debug("rate broadcast", zap.String("rate", u.Rate), zap.Int("clients", h.Len()))
		}
	}
}
