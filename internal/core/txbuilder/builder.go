// Package txbuilder 组装注册、blob、执行输入与证明交易
//
// 这里只做结构校验和一致性检查，不做网络请求。
package txbuilder

import (
	"fmt"

	"github.com/weisyn/zkcontract/internal/core/codec"
	"github.com/weisyn/zkcontract/pkg/interfaces/contract"
	"github.com/weisyn/zkcontract/pkg/types"
)

// BuildRegistration 构造合约注册交易
func BuildRegistration(verifier string, programID types.ProgramID, initial contract.Contract, name types.ContractName) (*types.RegisterContractRequest, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty contract name", types.ErrInvalidTransaction)
	}
	if verifier == "" {
		return nil, fmt.Errorf("%w: empty verifier", types.ErrInvalidTransaction)
	}
	if len(programID) == 0 {
		return nil, fmt.Errorf("%w: empty program id", types.ErrInvalidTransaction)
	}
	if initial == nil {
		return nil, fmt.Errorf("%w: nil initial state", types.ErrInvalidTransaction)
	}

	state, err := initial.Encode()
	if err != nil {
		return nil, err
	}
	digest, err := initial.Digest()
	if err != nil {
		return nil, err
	}
	if digest != codec.Digest(state) {
		return nil, fmt.Errorf("%w: initial digest does not match encoded state", types.ErrCodec)
	}

	return &types.RegisterContractRequest{
		Verifier:     verifier,
		ProgramID:    programID,
		StateDigest:  digest,
		ContractName: name,
		State:        state,
	}, nil
}

// BuildBlobTransaction 构造 blob 交易，只检查结构合法性
func BuildBlobTransaction(identity types.Identity, blobs []types.Blob) (*types.BlobTransaction, error) {
	tx := &types.BlobTransaction{
		Identity: identity,
		Blobs:    append([]types.Blob(nil), blobs...),
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return tx, nil
}

// BuildContractInput 构造一次执行的输入
//
// Index 必须指向 blobs 中的元素。
func BuildContractInput(state contract.Contract, identity types.Identity, txHash types.TxHash, blobs []types.Blob, index types.BlobIndex, private []byte) (*types.ContractInput, error) {
	if state == nil {
		return nil, fmt.Errorf("%w: nil state", types.ErrInvalidTransaction)
	}
	if int(index) >= len(blobs) {
		return nil, fmt.Errorf("%w: index=%d, blobs=%d", types.ErrBlobIndexOutOfRange, index, len(blobs))
	}
	raw, err := state.Encode()
	if err != nil {
		return nil, err
	}
	return &types.ContractInput{
		State:        raw,
		Identity:     identity,
		TxHash:       txHash,
		PrivateInput: private,
		Blobs:        append([]types.Blob(nil), blobs...),
		Index:        index,
	}, nil
}

// BuildProofTransaction 构造证明交易
//
// committed 是证明承诺的输出记录，其前置摘要必须等于执行前读取的 expectedInitial，
// 否则说明证明针对的不是本次请求的状态转换。
func BuildProofTransaction(artifact types.ProofData, committed *types.ProgramOutput, name types.ContractName, expectedInitial types.StateDigest) (*types.ProofTransaction, error) {
	if len(artifact) == 0 {
		return nil, fmt.Errorf("%w: empty proof", types.ErrInvalidTransaction)
	}
	if committed == nil {
		return nil, fmt.Errorf("%w: missing committed output", types.ErrInvalidTransaction)
	}
	if committed.InitialState != expectedInitial {
		return nil, fmt.Errorf("%w: committed=%s, expected=%s", types.ErrStateDigestMismatch, committed.InitialState, expectedInitial)
	}
	return &types.ProofTransaction{
		ContractName: name,
		Proof:        artifact,
	}, nil
}
