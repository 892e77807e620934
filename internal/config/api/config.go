// Package api 提供HTTP API配置
package api

import (
	"fmt"

	configtypes "github.com/weisyn/zkcontract/pkg/types"
)

const (
	// defaultHost 默认监听地址
	defaultHost = "0.0.0.0"

	// defaultPort 默认端口
	defaultPort = 4321

	// defaultEnableMetrics 默认开放 /metrics
	defaultEnableMetrics = true

	// defaultEnableEvents 默认开放 websocket 事件流
	defaultEnableEvents = true
)

// APIOptions API服务配置选项
type APIOptions struct {
	Host          string `json:"host"`
	Port          int    `json:"port"`
	EnableMetrics bool   `json:"enable_metrics"`
	EnableEvents  bool   `json:"enable_events"`
}

// Address 返回监听地址
func (o *APIOptions) Address() string {
	return fmt.Sprintf("%s:%d", o.Host, o.Port)
}

// Config API配置实现
type Config struct {
	options *APIOptions
}

// New 创建API配置实现
func New(userConfig interface{}) *Config {
	options := &APIOptions{
		Host:          defaultHost,
		Port:          defaultPort,
		EnableMetrics: defaultEnableMetrics,
		EnableEvents:  defaultEnableEvents,
	}
	if c, ok := userConfig.(*configtypes.UserAPIConfig); ok && c != nil {
		if c.Host != nil {
			options.Host = *c.Host
		}
		if c.Port != nil {
			options.Port = *c.Port
		}
		if c.EnableMetrics != nil {
			options.EnableMetrics = *c.EnableMetrics
		}
		if c.EnableEvents != nil {
			options.EnableEvents = *c.EnableEvents
		}
	}
	return &Config{options: options}
}

// GetOptions 获取完整的API配置选项
func (c *Config) GetOptions() *APIOptions {
	return c.options
}
