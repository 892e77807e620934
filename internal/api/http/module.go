package http

import (
	"context"

	"go.uber.org/fx"

	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/internal/core/node"
	"github.com/weisyn/zkcontract/pkg/interfaces/config"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
)

// ServerParams HTTP服务器依赖
type ServerParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Provider  config.Provider
	Logger    log.Logger
	Service   *node.Service
	EventBus  event.EventBus   `optional:"true"`
	Metrics   *metrics.Metrics `optional:"true"`
}

// NewServer fx 构造函数，随应用生命周期启停
func NewServer(p ServerParams) (*Server, error) {
	server, err := New(p.Provider.GetAPI(), p.Logger, p.Service, p.EventBus, p.Metrics)
	if err != nil {
		return nil, err
	}
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return server.Start()
		},
		OnStop: server.Stop,
	})
	return server, nil
}

// Module HTTP API 模块
func Module() fx.Option {
	return fx.Module("http",
		fx.Provide(NewServer),
	)
}
