// Package storage 提供存储管理功能
package storage

import (
	"context"

	"github.com/weisyn/zkcontract/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/zkcontract/pkg/interfaces/config"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	storageInterface "github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/storage"
	"go.uber.org/fx"

	badgerconfig "github.com/weisyn/zkcontract/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/zkcontract/internal/config/storage/memory"
)

// ModuleParams 定义存储模块的依赖参数
type ModuleParams struct {
	fx.In

	Provider config.Provider // 配置提供者
	Logger   log.Logger      // 日志记录器
}

// ModuleOutput 定义存储模块的输出结构
type ModuleOutput struct {
	fx.Out

	BadgerStore storageInterface.BadgerStore // 持久化账本存储
	MemoryStore storageInterface.MemoryStore // 合约记录缓存
}

// Module 返回存储模块
func Module() fx.Option {
	return fx.Module("storage",
		fx.Provide(ProvideServices),
		fx.Invoke(func(lc fx.Lifecycle, badgerStore storageInterface.BadgerStore, memoryStore storageInterface.MemoryStore, logger log.Logger) {
			lc.Append(fx.Hook{
				OnStop: func(ctx context.Context) error {
					logger.Info("正在关闭存储服务...")
					if err := memoryStore.Close(); err != nil {
						// 继续关闭 BadgerDB
						logger.Errorf("关闭内存存储失败: %v", err)
					}
					if err := badgerStore.Close(); err != nil {
						logger.Errorf("关闭BadgerDB存储失败: %v", err)
						return err
					}
					logger.Info("存储服务已安全关闭")
					return nil
				},
			})
		}),
	)
}

// ProvideServices 根据配置初始化存储引擎
func ProvideServices(params ModuleParams) (ModuleOutput, error) {
	badgerStore, err := badger.New(badgerconfig.NewFromOptions(params.Provider.GetBadger()), params.Logger)
	if err != nil {
		return ModuleOutput{}, err
	}

	memoryStore, err := memory.New(memoryconfig.NewFromOptions(params.Provider.GetMemory()), params.Logger)
	if err != nil {
		_ = badgerStore.Close()
		return ModuleOutput{}, err
	}

	return ModuleOutput{
		BadgerStore: badgerStore,
		MemoryStore: memoryStore,
	}, nil
}
