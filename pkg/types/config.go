// Package types provides configuration type definitions.
package types

// AppConfig 应用程序根配置
// 只包含JSON配置文件解析所需的结构，不包含任何内部字段
// 默认值和完整配置结构在 internal/config/*/defaults.go 和 internal/config/*/config.go 中定义
type AppConfig struct {
	// 应用程序基本信息
	AppName *string `json:"app_name,omitempty"` // 应用名称
	DataDir *string `json:"data_dir,omitempty"` // 数据目录路径

	// 日志配置
	Log *UserLogConfig `json:"log,omitempty"`

	// 存储配置
	Storage *UserStorageConfig `json:"storage,omitempty"`

	// 证明器配置
	Prover *UserProverConfig `json:"prover,omitempty"`

	// 账本节点配置
	Node *UserNodeConfig `json:"node,omitempty"`

	// API服务配置
	API *UserAPIConfig `json:"api,omitempty"`

	// 客户端配置（CLI 连接节点）
	Client *UserClientConfig `json:"client,omitempty"`
}

// UserLogConfig 用户日志配置
// 只包含JSON配置文件中实际出现的字段
type UserLogConfig struct {
	Level    *string `json:"level,omitempty"`     // 日志级别：debug, info, warn, error, fatal
	FilePath *string `json:"file_path,omitempty"` // 日志文件路径
}

// UserStorageConfig 用户存储配置
type UserStorageConfig struct {
	DataRoot *string `json:"data_root,omitempty"` // 存储根目录，badger 数据位于 {data_root}/badger
	InMemory *bool   `json:"in_memory,omitempty"` // 仅内存模式（数据不持久化）
	CacheTTL *string `json:"cache_ttl,omitempty"` // 合约记录缓存有效期，如 "10m"
}

// UserProverConfig 用户证明器配置
type UserProverConfig struct {
	MaxConcurrentProofs *int    `json:"max_concurrent_proofs,omitempty"` // 并发证明上限
	ProofTimeout        *string `json:"proof_timeout,omitempty"`         // 单次证明超时，如 "5m"
	MinFreeMemoryMB     *uint64 `json:"min_free_memory_mb,omitempty"`    // 开始证明前要求的最小空闲内存
	ArtifactDir         *string `json:"artifact_dir,omitempty"`          // 程序产物目录
}

// UserNodeConfig 用户账本节点配置
type UserNodeConfig struct {
	RegistrationPolicy *string `json:"registration_policy,omitempty"` // reject | supersede
}

// UserAPIConfig 用户API配置
type UserAPIConfig struct {
	Host          *string `json:"host,omitempty"`
	Port          *int    `json:"port,omitempty"`
	EnableMetrics *bool   `json:"enable_metrics,omitempty"`
	EnableEvents  *bool   `json:"enable_events,omitempty"` // 是否开放 websocket 事件流
}

// UserClientConfig 用户客户端配置
type UserClientConfig struct {
	Host    *string `json:"host,omitempty"`    // 节点地址，如 http://localhost:4321
	Timeout *string `json:"timeout,omitempty"` // 请求超时，如 "30s"
}
