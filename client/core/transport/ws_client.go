package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/weisyn/zkcontract/internal/core/node"
	"github.com/weisyn/zkcontract/pkg/types"
)

// EventStream 节点事件订阅
type EventStream struct {
	conn   *websocket.Conn
	events chan *node.LedgerEvent
	errCh  chan error
}

// DialEvents 连接 /v1/ws/events，contract 为空时接收所有合约的事件
func DialEvents(ctx context.Context, baseURL string, contract types.ContractName) (*EventStream, error) {
	endpoint, err := eventsURL(baseURL, contract)
	if err != nil {
		return nil, err
	}
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, resp, err := dialer.DialContext(ctx, endpoint, nil)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("%w: dial websocket: %w", types.ErrTransport, err)
	}

	s := &EventStream{
		conn:   conn,
		events: make(chan *node.LedgerEvent, 16),
		errCh:  make(chan error, 1),
	}
	go s.readLoop()
	return s, nil
}

// Events 事件通道，连接断开后关闭
func (s *EventStream) Events() <-chan *node.LedgerEvent {
	return s.events
}

// Err 连接断开的原因，正常关闭时为 nil
func (s *EventStream) Err() <-chan error {
	return s.errCh
}

// Close 关闭连接
func (s *EventStream) Close() error {
	_ = s.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return s.conn.Close()
}

func (s *EventStream) readLoop() {
	defer close(s.events)
	for {
		_, msg, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.errCh <- fmt.Errorf("%w: %w", types.ErrTransport, err)
			}
			close(s.errCh)
			return
		}
		var ev node.LedgerEvent
		if err := json.Unmarshal(msg, &ev); err != nil {
			continue
		}
		s.events <- &ev
	}
}

func eventsURL(baseURL string, contract types.ContractName) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("%w: node url: %v", types.ErrTransport, err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path += "/v1/ws/events"
	if contract != "" {
		u.RawQuery = url.Values{"contract": []string{string(contract)}}.Encode()
	}
	return u.String(), nil
}
