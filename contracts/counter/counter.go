// Package counter 示例合约：为每个用户维护一个递增计数器
package counter

import (
	"fmt"
	"math"
	"sort"

	"github.com/weisyn/zkcontract/internal/core/codec"
	"github.com/weisyn/zkcontract/pkg/interfaces/contract"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Counter 计数器状态，键为身份的用户部分
//
// 状态值不可变：Execute 总是返回新的 Counter。
type Counter struct {
	values map[string]uint32
}

// entry 规范编码中的一条记录
type entry struct {
	Key   string
	Value uint32
}

// encoded 规范编码形态：按 Key 严格升序
type encoded struct {
	Entries []entry
}

var _ contract.Contract = (*Counter)(nil)

// New 创建空计数器
func New() *Counter {
	return &Counter{values: map[string]uint32{}}
}

// FromValues 由给定值构建计数器（复制输入）
func FromValues(values map[string]uint32) *Counter {
	c := New()
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Decode 从规范编码还原计数器，满足 contract.Decoder
func Decode(b []byte) (contract.Contract, error) {
	return DecodeCounter(b)
}

// DecodeCounter 同 Decode，返回具体类型
func DecodeCounter(b []byte) (*Counter, error) {
	var enc encoded
	if err := codec.DecodeState(b, &enc); err != nil {
		return nil, err
	}
	c := New()
	for i, e := range enc.Entries {
		if i > 0 && enc.Entries[i-1].Key >= e.Key {
			return nil, fmt.Errorf("%w: counter keys not strictly ascending at %d", types.ErrMalformedState, i)
		}
		c.values[e.Key] = e.Value
	}
	return c, nil
}

// Get 返回用户当前计数
func (c *Counter) Get(user string) uint32 {
	return c.values[user]
}

// Len 计数器中的用户数
func (c *Counter) Len() int {
	return len(c.values)
}

// Encode 返回规范编码
func (c *Counter) Encode() ([]byte, error) {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	enc := encoded{Entries: make([]entry, 0, len(keys))}
	for _, k := range keys {
		enc.Entries = append(enc.Entries, entry{Key: k, Value: c.values[k]})
	}
	return codec.EncodeState(&enc)
}

// Digest 规范编码的摘要
func (c *Counter) Digest() (types.StateDigest, error) {
	b, err := c.Encode()
	if err != nil {
		return types.StateDigest{}, err
	}
	return codec.Digest(b), nil
}

// Execute 执行 Index 指向的动作
func (c *Counter) Execute(input *types.ContractInput) (*contract.ExecutionResult, error) {
	blob, err := input.Blob()
	if err != nil {
		return nil, err
	}
	action, err := ParseAction(blob.Data)
	if err != nil {
		return nil, err
	}

	user := input.Identity.User()
	if user == "" {
		return nil, fmt.Errorf("%w: empty identity", types.ErrExecution)
	}

	switch action.Kind {
	case ActionIncrement:
		current := c.values[user]
		if current == math.MaxUint32 {
			return nil, fmt.Errorf("%w: counter overflow for %s", types.ErrExecution, user)
		}
		next := FromValues(c.values)
		next.values[user] = current + 1
		return &contract.ExecutionResult{
			Output:   fmt.Sprintf("incremented to %d", current+1),
			NewState: next,
			SideEffects: []contract.SideEffect{
				{Key: user, Value: fmt.Sprintf("%d", current+1)},
			},
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown action kind %d", types.ErrInvalidAction, action.Kind)
	}
}
