// Package zkproof 基于 gnark Groth16 (BN254) 的证明后端
package zkproof

import (
	"errors"
	"fmt"

	"github.com/weisyn/zkcontract/pkg/types"
)

// ============================================================================
//                            零知识证明错误定义
// ============================================================================

var (
	// ErrCircuitCompilationFailed 电路编译失败
	ErrCircuitCompilationFailed = fmt.Errorf("%w: circuit compilation failed", types.ErrProving)

	// ErrSetupFailed 可信设置失败
	ErrSetupFailed = fmt.Errorf("%w: trusted setup failed", types.ErrProving)

	// ErrProofGenerationFailed 证明生成失败
	ErrProofGenerationFailed = fmt.Errorf("%w: proof generation failed", types.ErrProving)

	// ErrUnknownProgram 程序不是由本后端创建的
	ErrUnknownProgram = fmt.Errorf("%w: unknown program type", types.ErrProving)

	// ErrNoProvingKey 只含验证密钥的程序不能生成证明
	ErrNoProvingKey = fmt.Errorf("%w: program has no proving key", types.ErrProving)

	// ErrArtifactCorrupted 程序产物文件损坏
	ErrArtifactCorrupted = errors.New("program artifact corrupted")
)

// ============================================================================
//                               错误包装函数
// ============================================================================

// WrapProofGenerationFailedError 包装证明生成失败错误
func WrapProofGenerationFailedError(guest types.ContractName, err error) error {
	return fmt.Errorf("%w: guest=%s, cause=%v", ErrProofGenerationFailed, guest, err)
}

// WrapGuestRejectedError 客体执行拒绝，同时属于证明与执行两类错误
func WrapGuestRejectedError(guest types.ContractName, err error) error {
	return fmt.Errorf("%w: guest=%s rejected: %w", types.ErrProving, guest, err)
}

// WrapInvalidProofError 包装证明无效错误
func WrapInvalidProofError(reason string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", types.ErrInvalidProof, reason)
	}
	return fmt.Errorf("%w: %s: %v", types.ErrInvalidProof, reason, err)
}

// WrapArtifactError 包装产物读写错误
func WrapArtifactError(path string, err error) error {
	return fmt.Errorf("%w: path=%s, cause=%v", ErrArtifactCorrupted, path, err)
}
