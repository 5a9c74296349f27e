package rpcpeer

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/log"
	"github.com/gorilla/websocket"
)

const (
	defaultRetryInterval = 10 * time.Second
	headReadTimeout      = 2 * time.Minute
)

// subscribeRequest is the eth_subscribe call for new heads.
type subscribeRequest struct {
	JSONRPC string   `json:"jsonrpc"`
	ID      int      `json:"id"`
	Method  string   `json:"method"`
	Params  []string `json:"params"`
}

// notification is a subscription message pushed by the node. Replies to the
// subscribe call itself carry no method and are skipped.
type notification struct {
	Method string `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

// HeadSubscriber follows the chain head of a node over a websocket, redialing
// whenever the connection is lost.
type HeadSubscriber struct {
	url   string
	retry time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	closed bool
	done   chan struct{}
	once   sync.Once
}

// NewHeadSubscriber creates a subscriber for the websocket endpoint at url,
// redialing every retry after a failure (a default applies when zero).
func NewHeadSubscriber(url string, retry time.Duration) *HeadSubscriber {
	if retry <= 0 {
		retry = defaultRetryInterval
	}
	return &HeadSubscriber{
		url:   url,
		retry: retry,
		done:  make(chan struct{}),
	}
}

// SubscribeNewHeads starts following the head. The returned channel is closed
// once ctx is cancelled or the subscriber is closed.
func (s *HeadSubscriber) SubscribeNewHeads(ctx context.Context) <-chan *types.Header {
	heads := make(chan *types.Header)

	stop := context.AfterFunc(ctx, s.dropConnection)
	go func() {
		defer stop()
		s.readHeads(ctx, heads)
	}()

	return heads
}

// tryUntilSubscribe dials and subscribes until it succeeds, ctx is cancelled
// or the subscriber is closed.
func (s *HeadSubscriber) tryUntilSubscribe(ctx context.Context) (*websocket.Conn, bool) {
	firstTime := true
	for {
		if !firstTime {
			select {
			case <-time.After(s.retry):
			case <-ctx.Done():
				return nil, false
			case <-s.done:
				return nil, false
			}
		}
		firstTime = false

		select {
		case <-ctx.Done():
			return nil, false
		case <-s.done:
			return nil, false
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
		if err != nil {
			log.Error("Failed to dial new heads subscription", "url", s.url, "err", err)
			continue
		}
		req := subscribeRequest{
			JSONRPC: "2.0",
			ID:      1,
			Method:  "eth_subscribe",
			Params:  []string{"newHeads"},
		}
		if err := conn.WriteJSON(req); err != nil {
			log.Error("Failed to send new heads subscription", "url", s.url, "err", err)
			conn.Close()
			continue
		}

		s.mu.Lock()
		if s.closed || ctx.Err() != nil {
			s.mu.Unlock()
			conn.Close()
			return nil, false
		}
		s.conn = conn
		s.mu.Unlock()

		log.Info("Subscribed to new heads", "url", s.url)
		return conn, true
	}
}

func (s *HeadSubscriber) readHeads(ctx context.Context, heads chan<- *types.Header) {
	defer close(heads)

	conn, ok := s.tryUntilSubscribe(ctx)
	if !ok {
		return
	}
	for {
		conn.SetReadDeadline(time.Now().Add(headReadTimeout))
		_, message, err := conn.ReadMessage()
		if err != nil {
			conn.Close()
			if ctx.Err() != nil || s.isClosed() {
				return
			}
			log.Warn("Lost new heads subscription, reconnecting", "url", s.url, "err", err)
			if conn, ok = s.tryUntilSubscribe(ctx); !ok {
				return
			}
			continue
		}

		var note notification
		if err := json.Unmarshal(message, &note); err != nil || note.Method != "eth_subscription" {
			continue
		}
		header := new(types.Header)
		if err := json.Unmarshal(note.Params.Result, header); err != nil {
			log.Debug("Skipping malformed head", "url", s.url, "err", err)
			continue
		}

		select {
		case heads <- header:
		case <-ctx.Done():
			return
		case <-s.done:
			return
		}
	}
}

func (s *HeadSubscriber) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// dropConnection unblocks a pending read.
func (s *HeadSubscriber) dropConnection() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn != nil {
		s.conn.Close()
	}
}

// Close terminates the subscription and its connection.
func (s *HeadSubscriber) Close() {
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.done)
		s.mu.Unlock()

		s.dropConnection()
	})
}
