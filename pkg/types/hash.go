package types

import (
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// HashLength 哈希与状态摘要的固定长度
const HashLength = 32

// ============================================================================
//                              交易哈希
// ============================================================================

// TxHash 交易哈希（Keccak256）
type TxHash [HashLength]byte

// BytesToTxHash 将字节转换为交易哈希，超长时截取末尾
func BytesToTxHash(b []byte) TxHash {
	var h TxHash
	if len(b) > HashLength {
		b = b[len(b)-HashLength:]
	}
	copy(h[HashLength-len(b):], b)
	return h
}

// Bytes 返回哈希字节
func (h TxHash) Bytes() []byte { return h[:] }

// Hex 返回0x前缀的十六进制表示
func (h TxHash) Hex() string { return hexutil.Encode(h[:]) }

// String 实现 fmt.Stringer
func (h TxHash) String() string { return h.Hex() }

// IsZero 是否为零值
func (h TxHash) IsZero() bool { return h == TxHash{} }

// MarshalText 实现 encoding.TextMarshaler
func (h TxHash) MarshalText() ([]byte, error) {
	return hexutil.Bytes(h[:]).MarshalText()
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (h *TxHash) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("TxHash", input, h[:])
}

// ============================================================================
//                              状态摘要
// ============================================================================

// StateDigest 合约状态的抗碰撞摘要
type StateDigest [HashLength]byte

// DigestOf 计算任意字节的 Keccak256 摘要
func DigestOf(data ...[]byte) StateDigest {
	return StateDigest(crypto.Keccak256Hash(data...))
}

// Bytes 返回摘要字节
func (d StateDigest) Bytes() []byte { return d[:] }

// Hex 返回0x前缀的十六进制表示
func (d StateDigest) Hex() string { return hexutil.Encode(d[:]) }

// String 实现 fmt.Stringer
func (d StateDigest) String() string { return d.Hex() }

// MarshalText 实现 encoding.TextMarshaler
func (d StateDigest) MarshalText() ([]byte, error) {
	return hexutil.Bytes(d[:]).MarshalText()
}

// UnmarshalText 实现 encoding.TextUnmarshaler
func (d *StateDigest) UnmarshalText(input []byte) error {
	return hexutil.UnmarshalFixedText("StateDigest", input, d[:])
}
