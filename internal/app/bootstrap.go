package app

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"github.com/weisyn/zkcontract/internal/api"
	config "github.com/weisyn/zkcontract/internal/config"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/event"
	log "github.com/weisyn/zkcontract/internal/core/infrastructure/log"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/storage"
	"github.com/weisyn/zkcontract/internal/core/node"
	"github.com/weisyn/zkcontract/internal/core/zkproof"
	configiface "github.com/weisyn/zkcontract/pkg/interfaces/config"
)

// Framework layers
const (
	// 基础设施层
	LayerInfrastructure = "infrastructure"
	// 通信与数据层
	LayerCommunication = "communication"
	// 业务逻辑层
	LayerBusiness = "business"
	// 应用层
	LayerApplication = "application"
)

// Bootstrap 应用引导程序
type Bootstrap struct {
	opts    *options
	fxApp   *fx.App
	service *node.Service
}

// NewBootstrap 创建引导程序
func NewBootstrap(opts *options) *Bootstrap {
	return &Bootstrap{
		opts: opts,
	}
}

// SetupInfrastructureLayer 设置基础设施层模块
func (b *Bootstrap) SetupInfrastructureLayer() []fx.Option {
	return []fx.Option{
		config.Module(),  // 1. 配置(不依赖其他)
		log.Module(),     // 2. 日志(依赖配置)
		metrics.Module(), // 3. 指标(依赖日志)
	}
}

// SetupCommunicationLayer 设置通信与数据层模块
func (b *Bootstrap) SetupCommunicationLayer() []fx.Option {
	return []fx.Option{
		event.Module(),   // 事件(依赖配置)
		storage.Module(), // 存储(依赖配置和日志)
	}
}

// SetupBusinessLayer 设置业务逻辑层模块
// 加载顺序：验证器 -> 账本服务
func (b *Bootstrap) SetupBusinessLayer() []fx.Option {
	return []fx.Option{
		zkproof.Module(),
		node.Module(),

		fx.Populate(&b.service),
	}
}

// SetupApplicationLayer 设置应用层模块
func (b *Bootstrap) SetupApplicationLayer() []fx.Option {
	modules := []fx.Option{
		fx.Provide(func() configiface.AppOptions { return b.opts }),
	}
	if b.opts.enableAPI {
		modules = append(modules, api.Module())
	}
	return modules
}

// SetupModules 设置所有应用模块
func (b *Bootstrap) SetupModules() []fx.Option {
	var allModules []fx.Option
	allModules = append(allModules, b.SetupInfrastructureLayer()...)
	allModules = append(allModules, b.SetupCommunicationLayer()...)
	allModules = append(allModules, b.SetupBusinessLayer()...)
	allModules = append(allModules, b.SetupApplicationLayer()...)
	return allModules
}

// CreateFxApp 创建并配置fx应用
func (b *Bootstrap) CreateFxApp() error {
	b.fxApp = fx.New(
		fx.Options(b.SetupModules()...),
		// 禁用fx内部日志
		fx.NopLogger,
	)
	if err := b.fxApp.Err(); err != nil {
		return fmt.Errorf("装配模块失败: %w", err)
	}
	return nil
}

// StartApp 启动应用程序
func (b *Bootstrap) StartApp(ctx context.Context) error {
	if err := b.fxApp.Start(ctx); err != nil {
		return fmt.Errorf("启动应用失败: %w", err)
	}
	return nil
}

// StopApp 停止应用程序
func (b *Bootstrap) StopApp(ctx context.Context) error {
	if err := b.fxApp.Stop(ctx); err != nil {
		return fmt.Errorf("停止应用失败: %w", err)
	}
	return nil
}
