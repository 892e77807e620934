// Package prover 提供证明器配置
package prover

import (
	"time"

	configtypes "github.com/weisyn/zkcontract/pkg/types"
)

// ProverOptions 证明器配置选项
type ProverOptions struct {
	ProvingScheme       string        `json:"proving_scheme"`        // 证明方案
	Curve               string        `json:"curve"`                 // 椭圆曲线
	MaxConcurrentProofs int           `json:"max_concurrent_proofs"` // 最大并发证明数
	ProofTimeout        time.Duration `json:"proof_timeout"`         // 单次证明超时
	MinFreeMemoryMB     uint64        `json:"min_free_memory_mb"`    // 最小空闲内存
	ArtifactDir         string        `json:"artifact_dir"`          // 程序产物目录
}

// Config 证明器配置实现
type Config struct {
	options *ProverOptions
}

// New 创建证明器配置实现
func New(userConfig interface{}) *Config {
	options := createDefaultProverOptions()
	if userConfig != nil {
		applyUserConfig(options, userConfig)
	}
	return &Config{options: options}
}

// Default 返回默认证明器选项
func Default() *ProverOptions {
	return createDefaultProverOptions()
}

func createDefaultProverOptions() *ProverOptions {
	return &ProverOptions{
		ProvingScheme:       defaultProvingScheme,
		Curve:               defaultCurve,
		MaxConcurrentProofs: defaultMaxConcurrentProofs,
		ProofTimeout:        defaultProofTimeout,
		MinFreeMemoryMB:     defaultMinFreeMemoryMB,
		ArtifactDir:         defaultArtifactDir,
	}
}

func applyUserConfig(options *ProverOptions, userConfig interface{}) {
	c, ok := userConfig.(*configtypes.UserProverConfig)
	if !ok || c == nil {
		return
	}
	if c.MaxConcurrentProofs != nil && *c.MaxConcurrentProofs > 0 {
		options.MaxConcurrentProofs = *c.MaxConcurrentProofs
	}
	if c.ProofTimeout != nil {
		if d, err := time.ParseDuration(*c.ProofTimeout); err == nil {
			options.ProofTimeout = d
		}
	}
	if c.MinFreeMemoryMB != nil {
		options.MinFreeMemoryMB = *c.MinFreeMemoryMB
	}
	if c.ArtifactDir != nil {
		options.ArtifactDir = *c.ArtifactDir
	}
}

// GetOptions 获取完整的证明器配置选项
func (c *Config) GetOptions() *ProverOptions {
	return c.options
}
