package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/weisyn/zkcontract/internal/api/http/handlers"
	"github.com/weisyn/zkcontract/internal/api/http/middleware"
	"github.com/weisyn/zkcontract/internal/api/websocket"
	apiconfig "github.com/weisyn/zkcontract/internal/config/api"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
)

// Server HTTP服务器
// 提供账本节点的 REST 接口、事件推送、指标与存活检查
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	listener   net.Listener
	options    *apiconfig.APIOptions
	logger     log.Logger
	ws         *websocket.Server
}

// New 创建HTTP服务器并注册路由
//
// bus 为 nil 时不提供事件推送，m 为 nil 或未启用指标时不提供 /metrics。
func New(
	options *apiconfig.APIOptions,
	logger log.Logger,
	service handlers.LedgerService,
	bus event.EventBus,
	m *metrics.Metrics,
) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	gin.DefaultWriter = io.Discard

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.Logger(logger))
	if options.EnableMetrics && m != nil {
		router.Use(middleware.NewMetrics(m.Registry).Middleware())
	}
	router.Use(middleware.ErrorHandler())

	s := &Server{
		router:  router,
		options: options,
		logger:  logger,
	}

	v1 := router.Group("/v1")
	handlers.NewLedgerHandlers(service, logger).RegisterRoutes(v1)

	if options.EnableEvents && bus != nil {
		ws, err := websocket.NewServer(logger.GetZapLogger(), bus)
		if err != nil {
			return nil, fmt.Errorf("创建事件推送服务失败: %w", err)
		}
		s.ws = ws
		v1.GET("/ws/events", ws.HandleEvents)
	}

	router.GET("/health", handlers.NewHealthHandler().Health)
	if options.EnableMetrics && m != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})))
	}
	return s, nil
}

// Handler 返回路由处理器
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start 监听配置地址并在后台提供服务
//
// 端口被占用时直接返回错误。
func (s *Server) Start() error {
	addr := s.options.Address()
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("监听 %s 失败: %w", addr, err)
	}
	s.listener = listener
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Errorf("❌ HTTP服务器运行失败: %v", err)
		}
	}()

	s.logger.Infof("✅ HTTP服务器启动成功，监听地址: %s", listener.Addr())
	s.logger.Infof("📡 API端点: http://%s/v1/", listener.Addr())
	s.logger.Infof("🩺 健康检查: http://%s/health", listener.Addr())
	return nil
}

// Addr 实际监听地址，未启动时为空
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop 优雅关闭，最多等待5秒
func (s *Server) Stop(ctx context.Context) error {
	if s.ws != nil {
		s.ws.Close()
	}
	if s.httpServer == nil {
		return nil
	}
	s.logger.Info("正在关闭HTTP服务器")

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(stopCtx); err != nil {
		s.logger.Errorf("HTTP服务器关闭出错: %v", err)
		return err
	}
	s.logger.Info("HTTP服务器已关闭")
	return nil
}
