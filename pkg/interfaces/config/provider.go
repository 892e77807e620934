// Package config provides configuration provider interfaces.
package config

import (
	apiconfig "github.com/weisyn/zkcontract/internal/config/api"
	clientconfig "github.com/weisyn/zkcontract/internal/config/client"
	logconfig "github.com/weisyn/zkcontract/internal/config/log"
	nodeconfig "github.com/weisyn/zkcontract/internal/config/node"
	proverconfig "github.com/weisyn/zkcontract/internal/config/prover"
	badgerconfig "github.com/weisyn/zkcontract/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/zkcontract/internal/config/storage/memory"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Provider 配置提供者接口
type Provider interface {
	// GetLog 获取日志配置
	GetLog() *logconfig.LogOptions

	// GetBadger 获取BadgerDB存储配置
	GetBadger() *badgerconfig.BadgerOptions

	// GetMemory 获取内存缓存配置
	GetMemory() *memoryconfig.MemoryOptions

	// GetProver 获取证明器配置
	GetProver() *proverconfig.ProverOptions

	// GetNode 获取账本节点配置
	GetNode() *nodeconfig.NodeOptions

	// GetAPI 获取API服务配置
	GetAPI() *apiconfig.APIOptions

	// GetClient 获取客户端配置
	GetClient() *clientconfig.ClientOptions

	// GetAppConfig 获取原始应用配置
	GetAppConfig() *types.AppConfig
}
