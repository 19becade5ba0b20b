package feed

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorcast/internal/contracts"
	"github.com/wonny/sectorcast/internal/realtime"
	"github.com/wonny/sectorcast/pkg/config"
	"github.com/wonny/sectorcast/pkg/logger"
)

// feedServer 연결마다 구독 메시지를 받고 봉 하나를 보낸 뒤 끊는다
func feedServer(t *testing.T, subs chan<- realtime.SubscribeMessage) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var conns atomic.Int32
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		n := conns.Add(1)

		var sub realtime.SubscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		select {
		case subs <- sub:
		default:
		}

		conn.WriteMessage(websocket.TextMessage, []byte(`not json`))
		conn.WriteJSON(realtime.BarMessage{
			Type:       realtime.MessageBar,
			Sector:     "Tech",
			Instrument: "T1",
			Bar:        contracts.Bar{Date: time.Date(2024, 5, int(n), 0, 0, 0, 0, time.UTC), Close: float64(n)},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &conns
}

func TestClient_StreamReconnects(t *testing.T) {
	subs := make(chan realtime.SubscribeMessage, 4)
	srv, conns := feedServer(t, subs)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	log := logger.NewWithWriter(&config.Config{LogLevel: "error", LogFormat: "json"}, &bytes.Buffer{})
	c := NewClient(url, []string{"Tech"}, log, WithReconnect(10*time.Millisecond, 50*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	out := c.Stream(ctx)

	var got []realtime.BarMessage
	timeout := time.After(5 * time.Second)
	for len(got) < 2 {
		select {
		case msg := <-out:
			got = append(got, msg)
		case <-timeout:
			t.Fatalf("received %d messages before timeout", len(got))
		}
	}

	assert.Equal(t, 1.0, got[0].Bar.Close)
	assert.Equal(t, 2.0, got[1].Bar.Close)
	assert.GreaterOrEqual(t, conns.Load(), int32(2))

	sub := <-subs
	assert.Equal(t, realtime.MessageSubscribe, sub.Type)
	assert.Equal(t, []string{"Tech"}, sub.Sectors)

	cancel()
	require.Eventually(t, func() bool {
		select {
		case _, ok := <-out:
			return !ok
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
