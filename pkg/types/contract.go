package types

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ============================================================================
//                              身份与合约名
// ============================================================================

// Identity 发起动作的主体，约定格式为 "<user>.<contract>"
type Identity string

// NewIdentity 按 "<user>.<contract>" 约定拼接身份
func NewIdentity(user string, contract ContractName) Identity {
	return Identity(fmt.Sprintf("%s.%s", user, contract))
}

// User 返回第一个 "." 之前的用户部分
func (i Identity) User() string {
	s := string(i)
	if idx := strings.Index(s, "."); idx >= 0 {
		return s[:idx]
	}
	return s
}

// Contract 返回第一个 "." 之后的合约部分，没有时返回空
func (i Identity) Contract() ContractName {
	s := string(i)
	if idx := strings.Index(s, "."); idx >= 0 {
		return ContractName(s[idx+1:])
	}
	return ""
}

// ContractName 合约在账本上注册的名字
type ContractName string

// BlobIndex 交易内 blob 的位置
type BlobIndex uint32

// ProgramID 程序标识：序列化后的 Groth16 验证密钥
type ProgramID []byte

// Hash 返回程序标识的 Keccak256，用于证明内绑定
func (p ProgramID) Hash() TxHash {
	return TxHash(crypto.Keccak256Hash(p))
}

// MarshalText 实现 encoding.TextMarshaler
func (p ProgramID) MarshalText() ([]byte, error) {
	return hexutil.Bytes(p).MarshalText()
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (p *ProgramID) UnmarshalText(input []byte) error {
	return (*hexutil.Bytes)(p).UnmarshalText(input)
}

// ProofData 证明产物（压缩后的字节）
type ProofData []byte

// MarshalText 实现 encoding.TextMarshaler
func (p ProofData) MarshalText() ([]byte, error) {
	return hexutil.Bytes(p).MarshalText()
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (p *ProofData) UnmarshalText(input []byte) error {
	return (*hexutil.Bytes)(p).UnmarshalText(input)
}

// ============================================================================
//                              交易结构
// ============================================================================

// Blob 寻址到某个合约的动作载荷
type Blob struct {
	ContractName ContractName  `json:"contract_name"`
	Data         hexutil.Bytes `json:"data"`
}

// BlobTransaction 声明意图：身份 + 有序的 blob 列表
type BlobTransaction struct {
	Identity Identity `json:"identity"`
	Blobs    []Blob   `json:"blobs"`
}

// Hash 计算 blob 交易哈希 keccak256(rlp(tx))
func (tx *BlobTransaction) Hash() TxHash {
	return rlpHash(tx)
}

// Validate 检查结构合法性
func (tx *BlobTransaction) Validate() error {
	if tx.Identity == "" {
		return fmt.Errorf("%w: empty identity", ErrInvalidTransaction)
	}
	if len(tx.Blobs) == 0 {
		return fmt.Errorf("%w: no blobs", ErrInvalidTransaction)
	}
	for i, b := range tx.Blobs {
		if b.ContractName == "" {
			return fmt.Errorf("%w: blob %d has no contract name", ErrInvalidTransaction, i)
		}
	}
	return nil
}

// ProofTransaction 携带证明产物，结算某个已提交的 blob 交易
type ProofTransaction struct {
	ContractName ContractName `json:"contract_name"`
	Proof        ProofData    `json:"proof"`
}

// Hash 计算证明交易哈希
func (tx *ProofTransaction) Hash() TxHash {
	return rlpHash(tx)
}

// RegisterContractRequest 合约注册交易
type RegisterContractRequest struct {
	Verifier     string       `json:"verifier"`
	ProgramID    ProgramID    `json:"program_id"`
	StateDigest  StateDigest  `json:"state_digest"`
	ContractName ContractName `json:"contract_name"`
	// State 初始状态的规范编码，账本据此回答状态查询
	State hexutil.Bytes `json:"state"`
}

// Hash 计算注册交易哈希
func (r *RegisterContractRequest) Hash() TxHash {
	return rlpHash(r)
}

// ContractRecord 账本上的合约注册记录
type ContractRecord struct {
	Name        ContractName  `json:"name"`
	Verifier    string        `json:"verifier"`
	ProgramID   ProgramID     `json:"program_id"`
	StateDigest StateDigest   `json:"state_digest"`
	State       hexutil.Bytes `json:"state"`
}

// ============================================================================
//                              执行输入
// ============================================================================

// TxContext 可选的链上下文
type TxContext struct {
	BlockHeight uint64 `json:"block_height"`
	BlockHash   TxHash `json:"block_hash"`
	Timestamp   uint64 `json:"timestamp"`
	ChainID     uint64 `json:"chain_id"`
}

// ContractInput 一次执行所需的全部输入
type ContractInput struct {
	State        []byte     `json:"state"`
	Identity     Identity   `json:"identity"`
	TxHash       TxHash     `json:"tx_hash"`
	PrivateInput []byte     `json:"private_input"`
	TxCtx        *TxContext `json:"tx_ctx" rlp:"nil"`
	Blobs        []Blob     `json:"blobs"`
	Index        BlobIndex  `json:"index"`
}

// Blob 返回 Index 指向的 blob
func (in *ContractInput) Blob() (*Blob, error) {
	if int(in.Index) >= len(in.Blobs) {
		return nil, fmt.Errorf("%w: index=%d, blobs=%d", ErrBlobIndexOutOfRange, in.Index, len(in.Blobs))
	}
	return &in.Blobs[in.Index], nil
}

func rlpHash(v interface{}) TxHash {
	enc, err := rlp.EncodeToBytes(v)
	if err != nil {
		// 以上结构均由 rlp 支持的类型组成
		panic(fmt.Sprintf("rlp encode %T: %v", v, err))
	}
	return TxHash(crypto.Keccak256Hash(enc))
}
