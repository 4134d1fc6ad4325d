package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/radieske/bch-prediction-board/pkg/contracts/events"
)

// Metrics do hub
type Metrics struct {
	Connections  prometheus.Gauge
	MessagesSent prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "simulator_ws_connections",
			Help: "Clientes WebSocket conectados",
		}),
		MessagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "simulator_ws_messages_sent_total",
			Help: "Total de mensagens WS enviadas",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Connections, m.MessagesSent)
	}
	return m
}

// Representa uma conexão de cliente WebSocket
type clientConn struct {
	id   string
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *clientConn) write(msg []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Hub gerencia os clientes do stream de cotação e faz broadcast para todos.
// Snapshot, se definido, é enviado a cada cliente logo após conectar.
type Hub struct {
	upgrader websocket.Upgrader
	mu       sync.RWMutex
	clients  map[string]*clientConn
	log      *zap.Logger
	metrics  *Metrics

	Snapshot func() (events.RateUpdate, bool)
}

// NewHub cria o hub com política de origem customizada
func NewHub(allowOrigin func(r *http.Request) bool, m *Metrics, log *zap.Logger) *Hub {
	if m == nil {
		m = NewMetrics(nil)
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     allowOrigin,
		},
		clients: make(map[string]*clientConn),
		log:     log,
		metrics: m,
	}
}

func (h *Hub) add(c *clientConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.id] = c
	h.metrics.Connections.Inc()
	h.log.Info("ws client connected", zap.String("client_id", c.id))
}

func (h *Hub) remove(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[id]; ok {
		delete(h.clients, id)
		h.metrics.Connections.Dec()
		h.log.Info("ws client disconnected", zap.String("client_id", id))
	}
}

// Len devolve o número de clientes conectados
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// HandleWS aceita a conexão e lê (descartando) até o cliente sair
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	c := &clientConn{id: uuid.NewString(), conn: conn}
	h.add(c)
	defer func() {
		h.remove(c.id)
		_ = conn.Close()
	}()

	if h.Snapshot != nil {
		if msg, ok := h.Snapshot(); ok {
			h.send(c, msg)
		}
	}

	for {
		// Lê e descarta mensagens do cliente para manter o socket limpo
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) { h.HandleWS(w, r) }

// Broadcast envia v para todos os clientes conectados
func (h *Hub) Broadcast(v events.RateUpdate) {
	h.mu.RLock()
	clients := make([]*clientConn, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		h.send(c, v)
	}
}

func (h *Hub) send(c *clientConn, v events.RateUpdate) {
	msg, _ := json.Marshal(v)
	if err := c.write(msg); err != nil {
		h.log.Warn("ws write failed", zap.String("client_id", c.id), zap.Error(err))
		_ = c.conn.Close()
		return
	}
	h.metrics.MessagesSent.Inc()
}

// CloseAll derruba todas as conexões, usado no shutdown
func (h *Hub) CloseAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		c.wmu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"),
			time.Now().Add(time.Second))
		c.wmu.Unlock()
		_ = c.conn.Close()
	}
}
