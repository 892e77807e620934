// Package ledger 定义账本节点客户端接口
package ledger

import (
	"context"

	"github.com/weisyn/zkcontract/pkg/types"
)

// NodeClient 账本节点的读写入口
//
// 实现有两种：通过 HTTP 访问远端节点的 REST 客户端，以及进程内的节点服务。
type NodeClient interface {
	// RegisterContract 注册合约，返回注册交易哈希
	RegisterContract(ctx context.Context, req *types.RegisterContractRequest) (types.TxHash, error)

	// SendBlobTransaction 提交 blob 交易，返回其哈希
	SendBlobTransaction(ctx context.Context, tx *types.BlobTransaction) (types.TxHash, error)

	// SendProofTransaction 提交证明交易，返回其哈希
	SendProofTransaction(ctx context.Context, tx *types.ProofTransaction) (types.TxHash, error)

	// GetContract 查询合约注册记录
	GetContract(ctx context.Context, name types.ContractName) (*types.ContractRecord, error)
}
