// Package client 提供CLI连接节点的客户端配置
package client

import (
	"time"

	configtypes "github.com/weisyn/zkcontract/pkg/types"
)

const (
	// defaultHost 默认节点地址
	defaultHost = "http://localhost:4321"

	// defaultTimeout 默认请求超时
	defaultTimeout = 30 * time.Second
)

// ClientOptions 客户端配置选项
type ClientOptions struct {
	Host    string        `json:"host"`
	Timeout time.Duration `json:"timeout"`
}

// Config 客户端配置实现
type Config struct {
	options *ClientOptions
}

// New 创建客户端配置实现
func New(userConfig interface{}) *Config {
	options := &ClientOptions{
		Host:    defaultHost,
		Timeout: defaultTimeout,
	}
	if c, ok := userConfig.(*configtypes.UserClientConfig); ok && c != nil {
		if c.Host != nil && *c.Host != "" {
			options.Host = *c.Host
		}
		if c.Timeout != nil {
			if d, err := time.ParseDuration(*c.Timeout); err == nil && d > 0 {
				options.Timeout = d
			}
		}
	}
	return &Config{options: options}
}

// GetOptions 获取完整的客户端配置选项
func (c *Config) GetOptions() *ClientOptions {
	return c.options
}
