package ingestion

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sentiment-lab/internal/domain"
)

// WSConfig configures WebSocket market source behavior.
type WSConfig struct {
	// HandshakeTimeout is timeout for the initial dial.
	HandshakeTimeout time.Duration
	// PingInterval is interval for sending ping frames.
	PingInterval time.Duration
	// ReadTimeout is timeout for reading messages.
	ReadTimeout time.Duration
	// WriteTimeout is timeout for writing messages.
	WriteTimeout time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		ReadTimeout:      60 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WSMarketSource streams market ticks from a WebSocket ticker feed.
// Each Subscribe call owns one connection; when the connection fails the
// observation channel closes and the runner's supervisor resubscribes.
type WSMarketSource struct {
	endpoint string
	symbols  []string
	config   WSConfig
}

// NewWSMarketSource creates a market source for the given endpoint and symbols.
func NewWSMarketSource(endpoint string, symbols []string, config *WSConfig) *WSMarketSource {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}
	return &WSMarketSource{
		endpoint: endpoint,
		symbols:  symbols,
		config:   cfg,
	}
}

// Name identifies the source in logs and metrics.
func (s *WSMarketSource) Name() string {
	return "ws-market"
}

// Subscribe dials the endpoint, sends the ticker subscription and streams
// parsed ticks until the connection fails or the context is cancelled.
func (s *WSMarketSource) Subscribe(ctx context.Context) (<-chan *domain.MarketObservation, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: s.config.HandshakeTimeout,
	}

	conn, _, err := dialer.DialContext(ctx, s.endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	req := wsSubscribeRequest{
		Op:      "subscribe",
		Channel: "ticker",
		Symbols: s.symbols,
	}
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := conn.WriteJSON(req); err != nil {
		conn.Close()
		return nil, fmt.Errorf("write subscribe: %w", err)
	}

	// Buffer absorbs bursts; the runner consumes continuously.
	ch := make(chan *domain.MarketObservation, 1024)
	done := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	go s.pingLoop(conn, done, &wg)

	go func() {
		defer close(ch)
		defer func() {
			close(done)
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			wg.Wait()
		}()

		// Close the connection when the context ends so ReadMessage unblocks.
		stop := context.AfterFunc(ctx, func() { conn.Close() })
		defer stop()

		for {
			conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
			_, message, err := conn.ReadMessage()
			if err != nil {
				return
			}

			tick, ok := parseTickerMessage(message)
			if !ok {
				continue
			}

			select {
			case ch <- tick:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// pingLoop sends periodic ping frames to keep the connection alive.
func (s *WSMarketSource) pingLoop(conn *websocket.Conn, done <-chan struct{}, wg *sync.WaitGroup) {
	defer wg.Done()

	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				// Connection might be dead, the read loop will notice.
			}
		}
	}
}

// parseTickerMessage decodes a ticker frame. Non-ticker frames such as
// subscription acks and heartbeats are skipped.
func parseTickerMessage(message []byte) (*domain.MarketObservation, bool) {
	var msg wsTickerMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return nil, false
	}
	if msg.Channel != "ticker" || msg.Symbol == "" {
		return nil, false
	}

	return &domain.MarketObservation{
		Symbol:      msg.Symbol,
		TimestampMs: msg.TimestampMs,
		Price:       msg.Price,
		Volume:      msg.Volume,
		Change24h:   msg.Change24h,
	}, true
}

// WebSocket message types

type wsSubscribeRequest struct {
	Op      string   `json:"op"`
	Channel string   `json:"channel"`
	Symbols []string `json:"symbols,omitempty"`
}

type wsTickerMessage struct {
	Channel     string  `json:"channel"`
	Symbol      string  `json:"symbol"`
	TimestampMs int64   `json:"timestamp_ms"`
	Price       float64 `json:"price"`
	Volume      float64 `json:"volume"`
	Change24h   float64 `json:"change_24h"`
}
