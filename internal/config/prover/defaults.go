package prover

import "time"

// 证明器默认配置值
const (
	// defaultProvingScheme 证明方案
	defaultProvingScheme = "groth16"

	// defaultCurve 椭圆曲线
	defaultCurve = "bn254"

	// defaultMaxConcurrentProofs 最大并发证明数
	// Groth16 证明会占满多核，并发过高只会互相抢占
	defaultMaxConcurrentProofs = 4

	// defaultProofTimeout 单次证明超时
	defaultProofTimeout = 5 * time.Minute

	// defaultMinFreeMemoryMB 开始证明前要求的最小空闲内存，0 表示不检查
	defaultMinFreeMemoryMB = 256

	// defaultArtifactDir 程序产物目录
	defaultArtifactDir = "./data/programs"
)
