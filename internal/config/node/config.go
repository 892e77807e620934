// Package node 提供账本节点配置
package node

import (
	configtypes "github.com/weisyn/zkcontract/pkg/types"
)

// RegistrationPolicy 重复注册策略
type RegistrationPolicy string

const (
	// PolicyReject 同名合约已存在时拒绝注册
	PolicyReject RegistrationPolicy = "reject"
	// PolicySupersede 同名合约已存在时以新注册替换
	PolicySupersede RegistrationPolicy = "supersede"
)

// defaultRegistrationPolicy 默认拒绝重复注册，已有状态不会被意外覆盖
const defaultRegistrationPolicy = PolicyReject

// defaultVerifier 节点支持的验证器标识
const defaultVerifier = "groth16-bn254"

// NodeOptions 账本节点配置选项
type NodeOptions struct {
	RegistrationPolicy RegistrationPolicy `json:"registration_policy"`
	Verifier           string             `json:"verifier"`
}

// Config 账本节点配置实现
type Config struct {
	options *NodeOptions
}

// New 创建账本节点配置实现
func New(userConfig interface{}) *Config {
	options := &NodeOptions{
		RegistrationPolicy: defaultRegistrationPolicy,
		Verifier:           defaultVerifier,
	}
	if c, ok := userConfig.(*configtypes.UserNodeConfig); ok && c != nil && c.RegistrationPolicy != nil {
		switch RegistrationPolicy(*c.RegistrationPolicy) {
		case PolicySupersede:
			options.RegistrationPolicy = PolicySupersede
		default:
			options.RegistrationPolicy = PolicyReject
		}
	}
	return &Config{options: options}
}

// GetOptions 获取完整的账本节点配置选项
func (c *Config) GetOptions() *NodeOptions {
	return c.options
}
