// Package log 提供日志接口与级别定义
package log

import "github.com/weisyn/zkcontract/pkg/types"

// LogLevel 日志级别，定义见 pkg/types
type LogLevel = types.LogLevel

// 级别常量
const (
	DebugLevel = types.DebugLevel
	InfoLevel  = types.InfoLevel
	WarnLevel  = types.WarnLevel
	ErrorLevel = types.ErrorLevel
	FatalLevel = types.FatalLevel
)
