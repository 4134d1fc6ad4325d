package ratefeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
)

// fakeBackend serve /api/bch-rate/ e /ws/bch_rate/ e expõe as conexões WS
// aceitas para o teste escrever mensagens.
type fakeBackend struct {
	srv     *httptest.Server
	conns   chan *websocket.Conn
	closed  chan struct{}
	dials   atomic.Int32
	rejectW bool
}

func newFakeBackend(t *testing.T, rate http.HandlerFunc) *fakeBackend {
	t.Helper()
	fb := &fakeBackend{
		conns:  make(chan *websocket.Conn, 4),
		closed: make(chan struct{}, 4),
	}
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}

	mux := http.NewServeMux()
	mux.HandleFunc(backend.PathRate, rate)
	mux.HandleFunc(backend.PathRateStream, func(w http.ResponseWriter, r *http.Request) {
		fb.dials.Add(1)
		if fb.rejectW {
			http.Error(w, "nope", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		fb.conns <- conn
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				fb.closed <- struct{}{}
				return
			}
		}
	})
	fb.srv = httptest.NewServer(mux)
	t.Cleanup(fb.srv.Close)
	return fb
}

func (fb *fakeBackend) wsURL() string {
	return "ws" + strings.TrimPrefix(fb.srv.URL, "http") + backend.PathRateStream
}

func rateOK(body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(body)) }
}

type recorder struct {
	mu    sync.Mutex
	rates []float64
}

func (r *recorder) push(v float64) {
	r.mu.Lock()
	r.rates = append(r.rates, v)
	r.mu.Unlock()
}

func (r *recorder) got() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.rates...)
}

func startFeed(t *testing.T, fb *fakeBackend, opts Options) (*Feed, *recorder, context.CancelFunc, chan error) {
	t.Helper()
	opts.WSURL = fb.wsURL()
	opts.Location = time.UTC
	feed := New(backend.New(fb.srv.URL, time.Second), opts, zap.NewNop())
	rec := &recorder{}
	feed.Subscribe(rec.push)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- feed.Run(ctx) }()
	t.Cleanup(cancel)
	return feed, rec, cancel, done
}

func TestFeed_InitialFetchThenStreamUpdate(t *testing.T) {
	fb := newFakeBackend(t, rateOK(`{"rate": "250.12", "timestamp": "2025-01-01T00:00:00Z"}`))
	m := NewMetrics(nil)
	feed, rec, _, _ := startFeed(t, fb, Options{FlashFor: 300 * time.Millisecond, Metrics: m})

	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, 2*time.Second, 10*time.Millisecond)
	snap := feed.Snapshot()
	assert.Equal(t, "250.12", snap.Price)
	assert.Equal(t, "00:00:00", snap.LastUpdated)
	assert.Equal(t, 250.12, snap.Rate)
	assert.False(t, snap.Flash)
	assert.Equal(t, []float64{250.12}, rec.got())

	conn := <-fb.conns
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"rate": "300", "timestamp": "2025-01-01T00:00:05Z"}`)))

	require.Eventually(t, func() bool { return len(rec.got()) == 2 }, 2*time.Second, 10*time.Millisecond)
	snap = feed.Snapshot()
	assert.Equal(t, "300.00", snap.Price)
	assert.Equal(t, "00:00:05", snap.LastUpdated)
	assert.True(t, snap.Flash)
	assert.Equal(t, []float64{250.12, 300}, rec.got())

	require.Eventually(t, func() bool { return !feed.Snapshot().Flash }, time.Second, 10*time.Millisecond)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Updates.WithLabelValues(sourceHTTP)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Updates.WithLabelValues(sourceWS)))
	assert.Equal(t, float64(300), testutil.ToFloat64(m.Current))
}

func TestFeed_MalformedMessagesIgnoredAndSmallerRateWins(t *testing.T) {
	fb := newFakeBackend(t, rateOK(`{"rate": 250, "timestamp": "2025-01-01T00:00:00Z"}`))
	m := NewMetrics(nil)
	feed, rec, _, _ := startFeed(t, fb, Options{Metrics: m})
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, 2*time.Second, 10*time.Millisecond)

	conn := <-fb.conns
	for _, msg := range []string{
		`not json`,
		`{"rate": null, "timestamp": "2025-01-01T00:00:01Z"}`,
		`{"rate": 0, "timestamp": "2025-01-01T00:00:01Z"}`,
		`{"rate": "", "timestamp": "2025-01-01T00:00:01Z"}`,
		`{"rate": "abc", "timestamp": "2025-01-01T00:00:01Z"}`,
		`{"timestamp": "2025-01-01T00:00:01Z"}`,
		`{"rate": 120.5, "timestamp": "2025-01-01T00:00:09Z"}`,
	} {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
	}

	require.Eventually(t, func() bool { return len(rec.got()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []float64{250, 120.5}, rec.got())
	assert.Equal(t, "120.50", feed.Snapshot().Price)
	assert.Equal(t, float64(6), testutil.ToFloat64(m.Dropped))
}

func TestFeed_InitialFetchFailure(t *testing.T) {
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	feed, rec, _, _ := startFeed(t, fb, Options{})

	require.Eventually(t, func() bool { return feed.Snapshot().Price == PriceError }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, ErrInitialRate, feed.Snapshot().Err)
	assert.Empty(t, rec.got())
}

func TestFeed_DeactivationStopsDelivery(t *testing.T) {
	fb := newFakeBackend(t, rateOK(`{"rate": "250", "timestamp": "2025-01-01T00:00:00Z"}`))
	feed, rec, cancel, done := startFeed(t, fb, Options{})
	require.Eventually(t, func() bool { return len(rec.got()) == 1 }, 2*time.Second, 10*time.Millisecond)
	conn := <-fb.conns

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	select {
	case <-fb.closed:
	case <-time.After(2 * time.Second):
		t.Fatal("stream not closed on deactivation")
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"rate": "999", "timestamp": "2025-01-01T00:00:00Z"}`))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []float64{250}, rec.got())
	assert.Equal(t, "250.00", feed.Snapshot().Price)

	assert.ErrorIs(t, feed.Run(context.Background()), ErrAlreadyStarted)
}

func TestFeed_LateInitialFetchAfterDeactivationIsNoop(t *testing.T) {
	release := make(chan struct{})
	fb := newFakeBackend(t, func(w http.ResponseWriter, r *http.Request) {
		<-release
		_, _ = w.Write([]byte(`{"rate": "250", "timestamp": "2025-01-01T00:00:00Z"}`))
	})
	feed, rec, cancel, done := startFeed(t, fb, Options{})
	<-fb.conns

	cancel()
	<-done
	close(release)
	time.Sleep(100 * time.Millisecond)

	assert.Empty(t, rec.got())
	assert.Equal(t, PriceLoading, feed.Snapshot().Price)
}

func TestFeed_StreamFailureWithoutReconnect(t *testing.T) {
	fb := newFakeBackend(t, rateOK(`{"rate": "250", "timestamp": "2025-01-01T00:00:00Z"}`))
	fb.rejectW = true
	feed, _, _, _ := startFeed(t, fb, Options{ReconnectDelay: 10 * time.Millisecond})

	require.Eventually(t, func() bool { return feed.Snapshot().Err == ErrStream }, 2*time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), fb.dials.Load())
}

func TestFeed_StreamReconnectWhenEnabled(t *testing.T) {
	fb := newFakeBackend(t, rateOK(`{"rate": "250", "timestamp": "2025-01-01T00:00:00Z"}`))
	fb.rejectW = true
	startFeed(t, fb, Options{Reconnect: true, ReconnectDelay: 10 * time.Millisecond})

	require.Eventually(t, func() bool { return fb.dials.Load() >= 3 }, 2*time.Second, 10*time.Millisecond)
}

func TestTruthyRate(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want float64
		ok   bool
	}{
		"string":   {`"250.12"`, 250.12, true},
		"number":   {`300`, 300, true},
		"zero str": {`"0"`, 0, true},
		"zero":     {`0`, 0, false},
		"empty":    {`""`, 0, false},
		"null":     {`null`, 0, false},
		"missing":  {``, 0, false},
		"bool":     {`true`, 0, false},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			v, ok := truthyRate([]byte(tc.raw))
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, v)
		})
	}
}
