package types

import (
	"errors"
	"fmt"
)

// ============================================================================
//                              错误分类
// ============================================================================

var (
	// ErrCodec 状态编解码失败
	ErrCodec = errors.New("codec error")

	// ErrExecution 合约执行拒绝了动作
	ErrExecution = errors.New("execution error")

	// ErrProving 证明生成失败
	ErrProving = errors.New("proving error")

	// ErrTransport 与账本节点通信失败
	ErrTransport = errors.New("transport error")

	// ErrConsistency 摘要、程序标识或绑定关系不一致
	ErrConsistency = errors.New("consistency error")
)

// ============================================================================
//                              具体错误
// ============================================================================

var (
	// ErrMalformedState 状态字节无法解码或不是规范形式
	ErrMalformedState = fmt.Errorf("%w: malformed state", ErrCodec)

	// ErrBlobIndexOutOfRange blob 索引越界
	ErrBlobIndexOutOfRange = fmt.Errorf("%w: blob index out of range", ErrExecution)

	// ErrWrongContract blob 不是发给当前合约的
	ErrWrongContract = fmt.Errorf("%w: blob addressed to another contract", ErrExecution)

	// ErrInvalidAction 动作载荷无法解析
	ErrInvalidAction = fmt.Errorf("%w: invalid action", ErrExecution)

	// ErrResourceExhausted 证明所需资源不足
	ErrResourceExhausted = fmt.Errorf("%w: resource exhausted", ErrProving)

	// ErrProgramIDMismatch 证明不是由注册的程序产生的
	ErrProgramIDMismatch = fmt.Errorf("%w: program id mismatch", ErrConsistency)

	// ErrStateDigestMismatch 证明承诺的前置摘要与记录不符
	ErrStateDigestMismatch = fmt.Errorf("%w: state digest mismatch", ErrConsistency)

	// ErrInvalidProof 证明校验失败
	ErrInvalidProof = fmt.Errorf("%w: invalid proof", ErrConsistency)

	// ErrBindingMismatch 证明输出与 blob 交易的身份、索引或载荷不符
	ErrBindingMismatch = fmt.Errorf("%w: proof not bound to blob transaction", ErrConsistency)

	// ErrAlreadySettled 同一 blob 已被结算
	ErrAlreadySettled = fmt.Errorf("%w: blob already settled", ErrConsistency)

	// ErrTxNotFound 未找到 blob 交易
	ErrTxNotFound = errors.New("blob transaction not found")

	// ErrContractNotFound 合约未注册
	ErrContractNotFound = errors.New("contract not found")

	// ErrContractExists 合约名已被注册
	ErrContractExists = errors.New("contract already registered")

	// ErrInvalidTransaction 交易结构非法
	ErrInvalidTransaction = errors.New("invalid transaction")
)

// ============================================================================
//                              流水线阶段错误
// ============================================================================

// Stage 流水线阶段
type Stage string

const (
	StageRegister   Stage = "register"
	StageFetchState Stage = "fetch_state"
	StageSendBlob   Stage = "send_blob"
	StageDryRun     Stage = "dry_run"
	StageProve      Stage = "prove"
	StageSendProof  Stage = "send_proof"
)

// StageError 带阶段、合约名与交易哈希上下文的错误
type StageError struct {
	Stage    Stage
	Contract ContractName
	TxHash   TxHash
	Err      error
}

// Error 实现 error
func (e *StageError) Error() string {
	if e.TxHash.IsZero() {
		return fmt.Sprintf("stage=%s contract=%s: %v", e.Stage, e.Contract, e.Err)
	}
	return fmt.Sprintf("stage=%s contract=%s tx=%s: %v", e.Stage, e.Contract, e.TxHash.Hex(), e.Err)
}

// Unwrap 支持 errors.Is / errors.As
func (e *StageError) Unwrap() error {
	return e.Err
}

// ErrorKind 返回错误所属分类名，未分类时返回空
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrCodec):
		return "codec"
	case errors.Is(err, ErrExecution):
		return "execution"
	case errors.Is(err, ErrProving):
		return "proving"
	case errors.Is(err, ErrConsistency):
		return "consistency"
	case errors.Is(err, ErrTransport):
		return "transport"
	case errors.Is(err, ErrContractNotFound):
		return "not_found"
	case errors.Is(err, ErrTxNotFound):
		return "tx_not_found"
	case errors.Is(err, ErrContractExists):
		return "exists"
	case errors.Is(err, ErrInvalidTransaction):
		return "invalid"
	default:
		return ""
	}
}

// KindError 根据分类名还原错误分类，供传输层把远端错误映射回本地分类
func KindError(kind string) error {
	switch kind {
	case "codec":
		return ErrCodec
	case "execution":
		return ErrExecution
	case "proving":
		return ErrProving
	case "consistency":
		return ErrConsistency
	case "not_found":
		return ErrContractNotFound
	case "tx_not_found":
		return ErrTxNotFound
	case "exists":
		return ErrContractExists
	case "invalid":
		return ErrInvalidTransaction
	default:
		return nil
	}
}
