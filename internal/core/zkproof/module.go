package zkproof

import (
	"go.uber.org/fx"

	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
)

// Module 账本节点侧的证明模块，只提供验证器
func Module() fx.Option {
	return fx.Module("zkproof",
		fx.Provide(func(logger log.Logger, m *metrics.Metrics) *Validator {
			return NewValidator(logger, m)
		}),
	)
}
