package catalog

import (
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/radieske/bch-prediction-board/pkg/contracts/events"
)

// RateWalk gera a cotação BCH/USD simulada como um passeio aleatório
// limitado a [Min, Max].
type RateWalk struct {
	mu   sync.Mutex
	rnd  *rand.Rand
	rate float64
	ts   time.Time
	now  func() time.Time

	Min, Max float64
	Step     float64 // variação máxima por tick, em fração (0.01 = 1%)
}

func NewRateWalk(start float64, seed int64) *RateWalk {
	return &RateWalk{
		rnd:  rand.New(rand.NewSource(seed)),
		rate: start,
		ts:   time.Now().UTC(),
		now:  func() time.Time { return time.Now().UTC() },
		Min:  50,
		Max:  2000,
		Step: 0.01,
	}
}

// Current devolve a última cotação gerada
func (w *RateWalk) Current() (float64, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rate, w.ts
}

// Next avança um passo e devolve a nova cotação, arredondada em centavos
func (w *RateWalk) Next() (float64, time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delta := (w.rnd.Float64()*2 - 1) * w.Step
	r := w.rate * (1 + delta)
	if r < w.Min {
		r = w.Min
	}
	if r > w.Max {
		r = w.Max
	}
	w.rate = float64(int64(r*100+0.5)) / 100
	w.ts = w.now()
	return w.rate, w.ts
}

// Update devolve a cotação atual no formato do stream
func (w *RateWalk) Update() events.RateUpdate {
	return toUpdate(w.Current())
}

// NextUpdate avança um passo e devolve a cotação no formato do stream
func (w *RateWalk) NextUpdate() events.RateUpdate {
	return toUpdate(w.Next())
}

func toUpdate(rate float64, ts time.Time) events.RateUpdate {
	return events.RateUpdate{
		Rate:      strconv.FormatFloat(rate, 'f', 2, 64),
		Timestamp: ts.UTC().Format(time.RFC3339),
	}
}
