// Package configs 内嵌的默认配置
package configs

import _ "embed"

//go:embed node.json
var nodeConfig []byte

// GetNodeConfig 获取内嵌的账本节点配置
func GetNodeConfig() []byte {
	return nodeConfig
}
