package memory

import (
	"time"

	configtypes "github.com/weisyn/zkcontract/pkg/types"
)

// MemoryOptions 内存缓存配置选项
type MemoryOptions struct {
	MaxEntries        int           `json:"max_entries"`          // 窗口内预估条目数
	MaxEntrySizeBytes int           `json:"max_entry_size_bytes"` // 单条目预估大小
	DefaultTTL        time.Duration `json:"default_ttl"`          // 默认有效期
	CleanupInterval   time.Duration `json:"cleanup_interval"`     // 清理间隔
}

// Config 内存缓存配置实现
type Config struct {
	options *MemoryOptions
}

// New 创建内存缓存配置实现
func New(userConfig interface{}) *Config {
	options := &MemoryOptions{
		MaxEntries:        defaultMaxEntries,
		MaxEntrySizeBytes: defaultMaxEntrySizeBytes,
		DefaultTTL:        defaultDefaultTTL,
		CleanupInterval:   defaultCleanupInterval,
	}
	if storageConfig, ok := userConfig.(*configtypes.UserStorageConfig); ok && storageConfig != nil {
		if storageConfig.CacheTTL != nil {
			if ttl, err := time.ParseDuration(*storageConfig.CacheTTL); err == nil && ttl > 0 {
				options.DefaultTTL = ttl
			}
		}
	}
	return &Config{options: options}
}

// NewFromOptions 从MemoryOptions创建配置实现
func NewFromOptions(options *MemoryOptions) *Config {
	return &Config{options: options}
}

// GetOptions 获取完整的内存缓存配置选项
func (c *Config) GetOptions() *MemoryOptions {
	return c.options
}

// GetLifeWindow 获取生命周期窗口
func (c *Config) GetLifeWindow() time.Duration {
	return c.options.DefaultTTL
}

// GetCleanWindow 获取清理窗口
func (c *Config) GetCleanWindow() time.Duration {
	return c.options.CleanupInterval
}

// GetMaxEntriesInWindow 获取窗口内最大条目数
func (c *Config) GetMaxEntriesInWindow() int {
	return c.options.MaxEntries
}

// GetMaxEntrySize 获取单条目预估大小
func (c *Config) GetMaxEntrySize() int {
	return c.options.MaxEntrySizeBytes
}
