package ratefeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/internal/prediction-board/backend"
)

var errNoURL = errors.New("rate stream url not configured")

// rateMessage é o formato de /ws/bch_rate/: { rate, timestamp }
type rateMessage struct {
	Rate      json.RawMessage `json:"rate"`
	Timestamp string          `json:"timestamp"`
}

// stream mantém a assinatura WS enquanto ctx estiver ativo.
// Sem Reconnect, uma queda encerra o stream e o readout fica com o último valor.
func (f *Feed) stream(ctx context.Context) {
	for {
		err := f.connectAndListen(ctx)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			f.log.Error("websocket error", zap.Error(err))
			f.setStreamError()
		}
		if !f.opts.Reconnect {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(f.opts.ReconnectDelay): // Aguarda antes de tentar reconectar
		}
	}
}

// connectAndListen abre a conexão e processa as mensagens até a conexão cair
// ou ctx terminar. A conexão é sempre liberada na saída; fechar duas vezes é no-op.
func (f *Feed) connectAndListen(ctx context.Context) error {
	if f.opts.WSURL == "" {
		return errNoURL
	}
	conn, _, err := f.opts.Dialer.DialContext(ctx, f.opts.WSURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// Desativação fecha a conexão, o que desbloqueia ReadMessage
	stop := context.AfterFunc(ctx, func() {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		_ = conn.Close()
	})
	defer stop()

	f.log.Info("websocket connected to BCH rate updates", zap.String("url", f.opts.WSURL))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				f.log.Info("websocket disconnected from BCH rate updates")
				return nil
			}
			return err
		}
		f.handleMessage(message)
	}
}

func (f *Feed) handleMessage(message []byte) {
	var msg rateMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		f.opts.Metrics.Dropped.Inc()
		f.log.Debug("invalid rate message", zap.Error(err))
		return
	}
	rate, ok := truthyRate(msg.Rate)
	if !ok {
		f.opts.Metrics.Dropped.Inc()
		f.log.Debug("rate message without rate", zap.ByteString("payload", message))
		return
	}
	f.log.Debug("received BCH rate update via websocket", zap.Float64("rate", rate))
	f.apply(rate, backend.ParseTimestamp(msg.Timestamp), sourceWS)
}

// truthyRate aceita rate numérico diferente de zero ou string não vazia
// parseável; null, "", 0, ausente ou outros tipos são descartados.
func truthyRate(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0, false
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || s == "" {
			return 0, false
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, false
		}
		return v, true
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || v == 0 {
		return 0, false
	}
	return v, true
}
