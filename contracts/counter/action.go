package counter

import (
	"fmt"

	"github.com/weisyn/zkcontract/internal/core/codec"
	"github.com/weisyn/zkcontract/pkg/types"
)

// ActionKind 动作类型
type ActionKind uint8

const (
	// ActionIncrement 把调用者的计数加一
	ActionIncrement ActionKind = iota + 1
)

// Action 计数器动作，RLP 编码后作为 blob 载荷
//
// 相同身份的相同动作会得到相同的 blob 交易哈希，Nonce 用于区分多次提交。
type Action struct {
	Kind  ActionKind
	Nonce uint64
}

// Increment 构造递增动作
func Increment() Action {
	return Action{Kind: ActionIncrement}
}

// WithNonce 返回带 nonce 的副本
func (a Action) WithNonce(nonce uint64) Action {
	a.Nonce = nonce
	return a
}

// AsBlob 把动作编码为发给 contract 的 blob
func (a Action) AsBlob(contract types.ContractName) (types.Blob, error) {
	data, err := codec.EncodeState(&a)
	if err != nil {
		return types.Blob{}, err
	}
	return types.Blob{ContractName: contract, Data: data}, nil
}

// ParseAction 解析 blob 载荷
func ParseAction(data []byte) (Action, error) {
	var a Action
	if err := codec.DecodeState(data, &a); err != nil {
		return Action{}, fmt.Errorf("%w: %v", types.ErrInvalidAction, err)
	}
	if a.Kind != ActionIncrement {
		return Action{}, fmt.Errorf("%w: unknown action kind %d", types.ErrInvalidAction, a.Kind)
	}
	return a, nil
}
