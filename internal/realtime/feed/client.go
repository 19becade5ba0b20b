package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/wonny/sectorcast/internal/realtime"
	"github.com/wonny/sectorcast/pkg/logger"
)

const (
	// Reconnect settings
	reconnectDelay    = 5 * time.Second
	maxReconnectDelay = 5 * time.Minute

	// Ping/Pong settings
	pingInterval = 30 * time.Second
	pongWait     = 60 * time.Second
	writeWait    = 10 * time.Second

	bufferSize = 256
)

// Client streams bar updates from a websocket feed
// ⭐ SSOT: 실시간 피드 연결과 재연결은 이 클라이언트에서만
type Client struct {
	url     string
	sectors []string
	logger  *logger.Logger

	initialDelay time.Duration
	maxDelay     time.Duration

	mu        sync.Mutex
	connected bool
}

// Option configures a Client
type Option func(*Client)

// WithReconnect sets the exponential reconnect delays
func WithReconnect(initial, max time.Duration) Option {
	return func(c *Client) {
		c.initialDelay = initial
		c.maxDelay = max
	}
}

// NewClient creates a new feed client subscribed to sectors (비어 있으면 전체)
func NewClient(url string, sectors []string, log *logger.Logger, opts ...Option) *Client {
	c := &Client{
		url:          url,
		sectors:      sectors,
		logger:       log,
		initialDelay: reconnectDelay,
		maxDelay:     maxReconnectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Stream connects and pushes bar messages into the returned channel
// 연결이 끊기면 지수 백오프로 재연결, ctx 취소 시 채널을 닫는다
func (c *Client) Stream(ctx context.Context) <-chan realtime.BarMessage {
	out := make(chan realtime.BarMessage, bufferSize)

	go func() {
		defer close(out)

		b := backoff.NewExponentialBackOff()
		b.InitialInterval = c.initialDelay
		b.MaxInterval = c.maxDelay
		b.MaxElapsedTime = 0 // 취소될 때까지 재시도

		for {
			err := c.session(ctx, out, b.Reset)
			if ctx.Err() != nil {
				return
			}

			delay := b.NextBackOff()
			c.logger.WithError(err).WithField("delay", delay.String()).Warn("Feed disconnected, reconnecting")

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
	}()

	return out
}

// Connected reports whether a session is currently open
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

func (c *Client) setConnected(v bool) {
	c.mu.Lock()
	c.connected = v
	c.mu.Unlock()
}

// session 연결 하나의 수명: 구독 → 읽기 루프 (에러나 취소로 종료)
func (c *Client) session(ctx context.Context, out chan<- realtime.BarMessage, onConnect func()) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	sub := realtime.SubscribeMessage{Type: realtime.MessageSubscribe, Sectors: c.sectors}
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("subscribe failed: %w", err)
	}

	c.setConnected(true)
	defer c.setConnected(false)
	onConnect()
	c.logger.WithField("url", c.url).Info("Connected to feed")

	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go c.pingLoop(sessCtx, conn)
	go func() {
		<-sessCtx.Done()
		conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read failed: %w", err)
		}

		var msg realtime.BarMessage
		if err := json.Unmarshal(data, &msg); err != nil || !msg.Valid() {
			c.logger.WithField("size", len(data)).Debug("Ignoring malformed feed message")
			continue
		}

		select {
		case out <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// pingLoop sends periodic pings to keep connection alive
func (c *Client) pingLoop(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.logger.WithError(err).Debug("Failed to send ping")
				return
			}
		}
	}
}
