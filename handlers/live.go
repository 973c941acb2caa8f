package handlers

import (
	"context"
	"net/http"
	"slices"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"plantmaint/metrics"
	"plantmaint/services"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = 30 * time.Second
)

// LiveMessage is one frame of the live feed. Every snapshot replaces the
// previous one in full.
type LiveMessage struct {
	Type  string `json:"type"`
	Error string `json:"error,omitempty"`
	*services.Dashboard
}

// LiveHandler streams order snapshots over a websocket. The client may send
// a services.DashboardQuery at any time to change the filter; the reply to
// the newest query wins over slower replies to older ones.
type LiveHandler struct {
	orders   *services.OrderService
	dash     *services.DashboardService
	metrics  *metrics.Metrics
	upgrader websocket.Upgrader
}

func NewLiveHandler(orders *services.OrderService, dash *services.DashboardService, m *metrics.Metrics, allowedOrigins []string) *LiveHandler {
	allowAll := slices.Contains(allowedOrigins, "*")
	return &LiveHandler{
		orders:  orders,
		dash:    dash,
		metrics: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || allowAll || slices.Contains(allowedOrigins, origin)
			},
		},
	}
}

type liveConn struct {
	conn   *websocket.Conn
	board  services.Board
	cancel context.CancelFunc
}

func (c *liveConn) push(d *services.Dashboard) {
	if !c.board.Offer(d) {
		return
	}
	c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	if err := c.conn.WriteJSON(LiveMessage{Type: "snapshot", Dashboard: d}); err != nil {
		log.WithError(err).Debug("live feed write failed")
		c.cancel()
	}
}

func (c *liveConn) fail(msg string) {
	c.conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
	c.conn.WriteJSON(LiveMessage{Type: "error", Error: msg})
}

// Orders upgrades to a websocket and streams snapshots until the client
// goes away.
func (h *LiveHandler) Orders(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "period", 0)
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	q := services.DashboardQuery{PeriodDays: days, Sector: r.URL.Query().Get("sector")}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("live feed upgrade failed")
		return
	}
	defer conn.Close()

	h.metrics.LiveClients(1)
	defer h.metrics.LiveClients(-1)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	lc := &liveConn{conn: conn, cancel: cancel}

	conn.SetReadDeadline(time.Now().Add(livePongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(livePongWait))
	})

	queries := make(chan services.DashboardQuery)
	go func() {
		defer cancel()
		for {
			var next services.DashboardQuery
			if err := conn.ReadJSON(&next); err != nil {
				return
			}
			select {
			case queries <- next:
			case <-ctx.Done():
				return
			}
		}
	}()

	watchCtx, stopWatch := context.WithCancel(ctx)
	feed, err := h.orders.Watch(watchCtx, h.dash.Filter(q))
	if err != nil {
		stopWatch()
		lc.fail("Failed to subscribe to orders")
		return
	}

	results := make(chan *services.Dashboard, 4)
	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			stopWatch()
			return

		case q = <-queries:
			stopWatch()
			watchCtx, stopWatch = context.WithCancel(ctx)
			feed, err = h.orders.Watch(watchCtx, h.dash.Filter(q))
			if err != nil {
				stopWatch()
				lc.fail("Failed to subscribe to orders")
				return
			}
			seq := h.dash.NextSequence()
			go func(q services.DashboardQuery, seq uint64) {
				d, err := h.dash.RefreshSeq(ctx, seq, q)
				if err != nil {
					log.WithError(err).Warn("live dashboard refresh failed")
					return
				}
				select {
				case results <- d:
				case <-ctx.Done():
				}
			}(q, seq)

		case orders, ok := <-feed:
			if !ok {
				feed = nil
				continue
			}
			lc.push(h.dash.FromOrders(orders, q))

		case d := <-results:
			lc.push(d)

		case <-ping.C:
			deadline := time.Now().Add(liveWriteWait)
			if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				return
			}
		}
	}
}
