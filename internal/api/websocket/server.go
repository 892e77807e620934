// Package websocket 账本事件推送
//
// 🔌 节点在事件总线上发布的注册、结算、拒绝事件以 JSON 文本帧推送给所有连接。
// 连接可以用 ?contract=<name> 只接收某个合约的事件。
package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/weisyn/zkcontract/internal/core/node"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/zkcontract/pkg/types"
)

const (
	sendBuffer   = 64
	writeTimeout = 10 * time.Second
	pingInterval = 30 * time.Second
)

type client struct {
	contract types.ContractName
	send     chan []byte
}

// Server WebSocket 事件推送服务
type Server struct {
	logger   *zap.Logger
	bus      event.EventBus
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*client]struct{}
	dropped uint64
}

// NewServer 创建推送服务并订阅节点事件，bus 为 nil 时不推送任何事件
func NewServer(logger *zap.Logger, bus event.EventBus) (*Server, error) {
	s := &Server{
		logger:  logger,
		bus:     bus,
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	if bus != nil {
		for _, t := range node.EventTypes {
			if err := bus.Subscribe(t, s.broadcast); err != nil {
				return nil, err
			}
		}
	}
	return s, nil
}

// Close 取消事件订阅并断开所有连接
func (s *Server) Close() {
	if s.bus != nil {
		for _, t := range node.EventTypes {
			_ = s.bus.Unsubscribe(t, s.broadcast)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		close(c.send)
		delete(s.clients, c)
	}
}

// Clients 当前连接数
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

// broadcast 事件总线回调，慢连接的消息直接丢弃
func (s *Server) broadcast(ev *node.LedgerEvent) {
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Warn("序列化事件失败", zap.Error(err))
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		if c.contract != "" && c.contract != ev.Contract {
			continue
		}
		select {
		case c.send <- data:
		default:
			s.dropped++
		}
	}
}

// HandleEvents GET /v1/ws/events
func (s *Server) HandleEvents(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("WebSocket升级失败", zap.Error(err))
		return
	}
	cl := &client{
		contract: types.ContractName(c.Query("contract")),
		send:     make(chan []byte, sendBuffer),
	}
	s.mu.Lock()
	s.clients[cl] = struct{}{}
	s.mu.Unlock()
	s.logger.Debug("WebSocket连接建立", zap.String("remote_addr", conn.RemoteAddr().String()))

	done := make(chan struct{})
	go s.writeLoop(conn, cl, done)

	// 客户端不发业务消息，读循环只用于感知断开
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Debug("WebSocket连接异常关闭", zap.Error(err))
			}
			break
		}
	}
	close(done)
	s.remove(cl)
	_ = conn.Close()
}

func (s *Server) writeLoop(conn *websocket.Conn, cl *client, done <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case msg, ok := <-cl.send:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""), time.Now().Add(writeTimeout))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (s *Server) remove(cl *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.clients[cl]; ok {
		delete(s.clients, cl)
		close(cl.send)
	}
}
