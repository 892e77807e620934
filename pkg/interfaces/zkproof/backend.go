// Package zkproof 定义证明后端接口
//
// 证明后端对客体程序做可信设置、生成证明并校验证明。
// 调用方只看到程序标识与公开输出记录，证明系统内部不外泄。
package zkproof

import (
	"context"

	"github.com/weisyn/zkcontract/pkg/types"
)

// Program 已完成可信设置的客体程序
type Program interface {
	// Guest 客体程序名（合约名），决定使用哪个状态解码器
	Guest() types.ContractName

	// ID 程序标识
	ID() (types.ProgramID, error)
}

// Backend 证明后端
type Backend interface {
	// Setup 为客体程序做可信设置
	Setup(ctx context.Context, guest types.ContractName) (Program, error)

	// Prove 在证明环境内执行客体程序并生成证明
	// ctx 取消时尽快返回，错误包装 types.ErrProving
	Prove(ctx context.Context, program Program, input *types.ContractInput) (types.ProofData, *types.ProgramOutput, error)

	// Verify 以注册的程序标识校验证明，返回其承诺的公开输出
	Verify(ctx context.Context, programID types.ProgramID, proof types.ProofData) (*types.ProgramOutput, error)
}
