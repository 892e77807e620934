// Package codec 状态与执行记录的规范编解码
//
// 所有结构统一使用 RLP 编码，摘要统一使用 Keccak256。
// 解码成功的字节重新编码后必须逐字节一致，否则视为非规范编码。
package codec

import (
	"bytes"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"

	"github.com/weisyn/zkcontract/pkg/types"
)

// EncodeState 规范编码任意状态值
func EncodeState(v interface{}) ([]byte, error) {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		return nil, fmt.Errorf("%w: encode %T: %v", types.ErrCodec, v, err)
	}
	return enc, nil
}

// DecodeState 解码状态字节到 v
//
// 多余的尾部字节、非规范整数、以及重新编码后不一致的输入
// 都返回包装了 types.ErrMalformedState 的错误。
func DecodeState(b []byte, v interface{}) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty input", types.ErrMalformedState)
	}
	if err := rlp.DecodeBytes(b, v); err != nil {
		return fmt.Errorf("%w: %v", types.ErrMalformedState, err)
	}
	// 左逆检查
	again, err := rlp.EncodeToBytes(v)
	if err != nil {
		return fmt.Errorf("%w: re-encode: %v", types.ErrMalformedState, err)
	}
	if !bytes.Equal(again, b) {
		return fmt.Errorf("%w: non-canonical encoding", types.ErrMalformedState)
	}
	return nil
}

// Digest 状态字节的摘要
func Digest(b []byte) types.StateDigest {
	return types.DigestOf(b)
}

// DigestValue 先编码再求摘要
func DigestValue(v interface{}) (types.StateDigest, error) {
	h := sha3.NewLegacyKeccak256()
	if err := rlp.Encode(h, v); err != nil {
		return types.StateDigest{}, fmt.Errorf("%w: digest %T: %v", types.ErrCodec, v, err)
	}
	var d types.StateDigest
	h.Sum(d[:0])
	return d, nil
}

// BlobsDigest blob 列表的摘要，证明以此绑定整笔 blob 交易的内容
func BlobsDigest(blobs []types.Blob) types.StateDigest {
	if blobs == nil {
		blobs = []types.Blob{}
	}
	d, err := DigestValue(blobs)
	if err != nil {
		// Blob 只含字符串与字节切片
		panic(err)
	}
	return d
}

// ============================================================================
//                              执行输入 / 输出
// ============================================================================

// EncodeInput 编码密封进客体环境的执行输入
func EncodeInput(in *types.ContractInput) ([]byte, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: nil contract input", types.ErrCodec)
	}
	return EncodeState(in)
}

// DecodeInput 解码执行输入
func DecodeInput(b []byte) (*types.ContractInput, error) {
	var in types.ContractInput
	if err := rlp.DecodeBytes(b, &in); err != nil {
		return nil, fmt.Errorf("%w: contract input: %v", types.ErrCodec, err)
	}
	return &in, nil
}

// EncodeOutput 编码客体程序提交的输出记录
func EncodeOutput(out *types.ProgramOutput) ([]byte, error) {
	if out == nil {
		return nil, fmt.Errorf("%w: nil program output", types.ErrCodec)
	}
	return EncodeState(out)
}

// DecodeOutput 解码输出记录
func DecodeOutput(b []byte) (*types.ProgramOutput, error) {
	var out types.ProgramOutput
	if err := rlp.DecodeBytes(b, &out); err != nil {
		return nil, fmt.Errorf("%w: program output: %v", types.ErrCodec, err)
	}
	return &out, nil
}

// InputCommitment 执行输入的承诺，作为证明的私有输入
func InputCommitment(in *types.ContractInput) (types.StateDigest, error) {
	return DigestValue(in)
}
