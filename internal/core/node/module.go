package node

import (
	"go.uber.org/fx"

	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/internal/core/zkproof"
	"github.com/weisyn/zkcontract/pkg/interfaces/config"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/zkcontract/pkg/interfaces/ledger"
)

// ModuleInput 账本节点模块依赖
type ModuleInput struct {
	fx.In

	Provider    config.Provider
	Logger      log.Logger
	BadgerStore storage.BadgerStore
	MemoryStore storage.MemoryStore
	Validator   *zkproof.Validator
	EventBus    event.EventBus   `optional:"true"`
	Metrics     *metrics.Metrics `optional:"true"`
}

// ModuleOutput 账本节点模块输出
type ModuleOutput struct {
	fx.Out

	Service    *Service
	NodeClient ledger.NodeClient
}

// Module 返回账本节点模块
func Module() fx.Option {
	return fx.Module("node",
		fx.Provide(func(in ModuleInput) ModuleOutput {
			options := in.Provider.GetNode()
			in.Logger.Infof("账本节点已创建 policy=%s verifier=%s", options.RegistrationPolicy, options.Verifier)
			svc := NewService(in.BadgerStore, in.MemoryStore, in.Validator, in.EventBus, options, in.Logger, in.Metrics)
			return ModuleOutput{Service: svc, NodeClient: svc}
		}),
	)
}
