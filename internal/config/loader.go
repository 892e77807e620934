package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/weisyn/zkcontract/pkg/interfaces/config"
	"github.com/weisyn/zkcontract/pkg/types"
)

// appOptions 实现 config.AppOptions
type appOptions struct {
	appConfig *types.AppConfig
}

// GetAppConfig 获取应用配置
func (o *appOptions) GetAppConfig() *types.AppConfig {
	return o.appConfig
}

// NewAppOptions 包装已解析的应用配置
func NewAppOptions(appConfig *types.AppConfig) config.AppOptions {
	return &appOptions{appConfig: appConfig}
}

// LoadAppConfig 从JSON配置文件加载应用配置
//
// 🔧 字段使用指针类型区分"未设置"和"设置为零值"：
// nil 表示使用系统默认值，非 nil 表示用户明确设置。
// path 为空时返回空配置（全部使用默认值）。
func LoadAppConfig(path string) (*types.AppConfig, error) {
	if path == "" {
		return &types.AppConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}
	cfg, err := ParseAppConfig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseAppConfig 解析并校验JSON配置内容
func ParseAppConfig(data []byte) (*types.AppConfig, error) {
	var cfg types.AppConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidationError 配置验证错误
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("配置验证失败 [%s]: %s", e.Field, e.Message)
}

// Validate 校验用户明确设置的字段
func Validate(cfg *types.AppConfig) error {
	if cfg.Node != nil && cfg.Node.RegistrationPolicy != nil {
		switch *cfg.Node.RegistrationPolicy {
		case "reject", "supersede":
		default:
			return &ValidationError{Field: "node.registration_policy", Message: "必须是 reject 或 supersede"}
		}
	}
	if cfg.API != nil && cfg.API.Port != nil && (*cfg.API.Port <= 0 || *cfg.API.Port > 65535) {
		return &ValidationError{Field: "api.port", Message: "端口超出范围"}
	}
	if cfg.Prover != nil && cfg.Prover.MaxConcurrentProofs != nil && *cfg.Prover.MaxConcurrentProofs <= 0 {
		return &ValidationError{Field: "prover.max_concurrent_proofs", Message: "必须大于0"}
	}
	return nil
}
