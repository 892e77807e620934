package metrics

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module 返回 metrics 模块的 fx.Option
//
// 提供：
// - *Metrics: Prometheus 指标集合
// - *MemoryDoctor: 内存采样组件
func Module() fx.Option {
	return fx.Module("metrics",
		fx.Provide(New),
		fx.Provide(NewMemoryDoctorProvider),
		fx.Invoke(StartMemoryDoctor),
	)
}

// MemoryDoctorProviderInput 定义 MemoryDoctor 的输入依赖
type MemoryDoctorProviderInput struct {
	fx.In

	Metrics *Metrics
	Logger  *zap.Logger `optional:"true"`
}

// NewMemoryDoctorProvider 创建 MemoryDoctor 实例
func NewMemoryDoctorProvider(input MemoryDoctorProviderInput) *MemoryDoctor {
	var logger *zap.Logger
	if input.Logger != nil {
		logger = input.Logger.With(zap.String("module", "metrics"))
	}
	return NewMemoryDoctor(DefaultMemoryDoctorConfig(), input.Metrics, logger)
}

// StartMemoryDoctor 把 MemoryDoctor 挂到应用生命周期
func StartMemoryDoctor(lc fx.Lifecycle, md *MemoryDoctor) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			// fx 的 OnStart ctx 在启动完成后即被取消
			md.Start(context.Background())
			return nil
		},
		OnStop: func(ctx context.Context) error {
			md.Stop()
			return nil
		},
	})
}
