package config

import (
	"github.com/weisyn/zkcontract/internal/config/api"
	"github.com/weisyn/zkcontract/internal/config/client"
	"github.com/weisyn/zkcontract/internal/config/log"
	"github.com/weisyn/zkcontract/internal/config/node"
	"github.com/weisyn/zkcontract/internal/config/prover"
	"github.com/weisyn/zkcontract/internal/config/storage/badger"
	"github.com/weisyn/zkcontract/internal/config/storage/memory"
	"github.com/weisyn/zkcontract/pkg/interfaces/config"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Provider 实现配置提供者接口
type Provider struct {
	appConfig *types.AppConfig
}

// NewProvider 创建配置提供者
func NewProvider(appConfig *types.AppConfig) config.Provider {
	if appConfig == nil {
		appConfig = &types.AppConfig{}
	}
	return &Provider{
		appConfig: appConfig,
	}
}

// GetLog 获取日志配置
func (p *Provider) GetLog() *log.LogOptions {
	return log.New(p.appConfig.Log).GetOptions()
}

// GetBadger 获取BadgerDB存储配置
func (p *Provider) GetBadger() *badger.BadgerOptions {
	storageConfig := p.appConfig.Storage
	// 未配置 storage.data_root 时落到 data_dir 之下
	if (storageConfig == nil || storageConfig.DataRoot == nil) && p.appConfig.DataDir != nil {
		merged := types.UserStorageConfig{}
		if storageConfig != nil {
			merged = *storageConfig
		}
		merged.DataRoot = p.appConfig.DataDir
		storageConfig = &merged
	}
	return badger.New(storageConfig).GetOptions()
}

// GetMemory 获取内存缓存配置
func (p *Provider) GetMemory() *memory.MemoryOptions {
	return memory.New(p.appConfig.Storage).GetOptions()
}

// GetProver 获取证明器配置
func (p *Provider) GetProver() *prover.ProverOptions {
	return prover.New(p.appConfig.Prover).GetOptions()
}

// GetNode 获取账本节点配置
func (p *Provider) GetNode() *node.NodeOptions {
	return node.New(p.appConfig.Node).GetOptions()
}

// GetAPI 获取API服务配置
func (p *Provider) GetAPI() *api.APIOptions {
	return api.New(p.appConfig.API).GetOptions()
}

// GetClient 获取客户端配置
func (p *Provider) GetClient() *client.ClientOptions {
	return client.New(p.appConfig.Client).GetOptions()
}

// GetAppConfig 获取原始应用配置
func (p *Provider) GetAppConfig() *types.AppConfig {
	return p.appConfig
}
