package zkproof

import (
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/golang/snappy"

	"github.com/weisyn/zkcontract/pkg/types"
)

// artifactVersion 证明产物格式版本
const artifactVersion uint = 1

// proofArtifact 证明交易携带的产物
//
// Output 是客体提交的原始输出记录，Seal 与 Proof 绑定它。
type proofArtifact struct {
	Version       uint
	ProgramIDHash types.TxHash
	Output        []byte
	Seal          []byte
	Proof         []byte
}

func encodeArtifact(a *proofArtifact) (types.ProofData, error) {
	raw, err := rlp.EncodeToBytes(a)
	if err != nil {
		return nil, fmt.Errorf("%w: encode artifact: %v", types.ErrCodec, err)
	}
	return snappy.Encode(nil, raw), nil
}

func decodeArtifact(data types.ProofData) (*proofArtifact, error) {
	if len(data) == 0 {
		return nil, WrapInvalidProofError("empty proof", nil)
	}
	raw, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, WrapInvalidProofError("decompress", err)
	}
	var a proofArtifact
	if err := rlp.DecodeBytes(raw, &a); err != nil {
		return nil, WrapInvalidProofError("decode artifact", err)
	}
	if a.Version != artifactVersion {
		return nil, WrapInvalidProofError(fmt.Sprintf("unsupported artifact version %d", a.Version), nil)
	}
	return &a, nil
}

// CommittedOutput 不做校验地读出证明承诺的输出记录
//
// 只用于展示，结算前必须经过 Verify。
func CommittedOutput(data types.ProofData) (*types.ProgramOutput, error) {
	a, err := decodeArtifact(data)
	if err != nil {
		return nil, err
	}
	var out types.ProgramOutput
	if err := rlp.DecodeBytes(a.Output, &out); err != nil {
		return nil, WrapInvalidProofError("decode output", err)
	}
	return &out, nil
}
