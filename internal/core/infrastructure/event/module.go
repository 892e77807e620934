// Package event 提供事件管理功能
package event

import (
	"go.uber.org/fx"

	"github.com/weisyn/zkcontract/pkg/interfaces/config"
	eventInterface "github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
)

// ModuleInput 事件模块输入依赖
type ModuleInput struct {
	fx.In

	Provider config.Provider // 配置提供者
	Logger   log.Logger      `optional:"true"` // 日志记录器（可选）
}

// ModuleOutput 事件模块输出服务
type ModuleOutput struct {
	fx.Out

	EventBus eventInterface.EventBus // 基础事件总线
}

// Module 返回事件模块
func Module() fx.Option {
	return fx.Module("event",
		fx.Provide(
			func(input ModuleInput) ModuleOutput {
				enabled := input.Provider.GetAPI().EnableEvents
				if input.Logger != nil {
					input.Logger.Infof("事件总线已创建 enabled=%v", enabled)
				}
				return ModuleOutput{EventBus: New(enabled)}
			},
		),
	)
}
