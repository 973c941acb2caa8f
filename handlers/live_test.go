package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"plantmaint/services"
)

func dialLive(t *testing.T, srv *httptest.Server, token string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/live?access_token=" + token
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	resp.Body.Close()
	t.Cleanup(func() { conn.Close() })
	return conn
}

// readUntil reads snapshots until match accepts one.
func readUntil(t *testing.T, conn *websocket.Conn, match func(LiveMessage) bool) LiveMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for {
		var msg LiveMessage
		require.NoError(t, conn.ReadJSON(&msg))
		require.Equal(t, "snapshot", msg.Type, msg.Error)
		if match(msg) {
			return msg
		}
	}
}

func TestLiveOrdersFeed(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	conn := dialLive(t, srv, h.tech.Token)

	first := readUntil(t, conn, func(LiveMessage) bool { return true })
	assert.Zero(t, first.Total)

	h.createOrder(newOrder("OS-001", "Carlos"))
	msg := readUntil(t, conn, func(m LiveMessage) bool { return m.Total == 1 })
	require.Len(t, msg.Orders, 1)
	assert.Equal(t, "OS-001", msg.Orders[0].OrderNumber)
	assert.Greater(t, msg.Sequence, first.Sequence)

	require.NoError(t, conn.WriteJSON(services.DashboardQuery{Sector: "Utilidades"}))
	msg = readUntil(t, conn, func(m LiveMessage) bool { return m.Query.Sector == "Utilidades" })
	assert.Zero(t, msg.Total)
}

func TestLiveOrdersRequiresToken(t *testing.T) {
	h := newHarness(t)
	srv := httptest.NewServer(h.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/orders/live"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
