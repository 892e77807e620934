// Package contract 定义合约执行契约
//
// 🎯 合约即状态机：状态值自身能编码、求摘要、执行动作。
// 执行必须是纯函数且原子：要么返回完整的新状态，要么返回错误且不留下任何修改。
package contract

import (
	"github.com/weisyn/zkcontract/pkg/types"
)

// Contract 合约状态值
type Contract interface {
	// Encode 返回状态的规范编码
	Encode() ([]byte, error)

	// Digest 返回规范编码的抗碰撞摘要
	// 对同一状态值多次调用必须返回同一结果
	Digest() (types.StateDigest, error)

	// Execute 执行 input.Blobs[input.Index] 上的动作
	// 接收者不会被修改，成功时 NewState 是新的状态值
	Execute(input *types.ContractInput) (*ExecutionResult, error)
}

// Decoder 从规范编码还原状态值
// 字节不合法时返回包装了 types.ErrMalformedState 的错误
type Decoder func(state []byte) (Contract, error)

// SideEffect 执行产生的附带记录
type SideEffect struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// ExecutionResult 一次成功执行的结果
type ExecutionResult struct {
	Output      string
	NewState    Contract
	SideEffects []SideEffect
}
