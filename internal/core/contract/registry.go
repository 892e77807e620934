// Package contract 客体程序注册表
//
// 证明后端按合约名查找状态解码器，再由执行环境驱动合约。
package contract

import (
	"fmt"
	"sort"
	"sync"

	"github.com/weisyn/zkcontract/pkg/interfaces/contract"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Registry 合约名到解码器的映射，并发安全
type Registry struct {
	mu       sync.RWMutex
	decoders map[types.ContractName]contract.Decoder
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{decoders: make(map[types.ContractName]contract.Decoder)}
}

// Register 绑定合约名与解码器，重复注册返回错误
func (r *Registry) Register(name types.ContractName, decoder contract.Decoder) error {
	if name == "" || decoder == nil {
		return fmt.Errorf("%w: empty contract name or nil decoder", types.ErrInvalidTransaction)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.decoders[name]; ok {
		return fmt.Errorf("%w: guest %s", types.ErrContractExists, name)
	}
	r.decoders[name] = decoder
	return nil
}

// Lookup 查找解码器
func (r *Registry) Lookup(name types.ContractName) (contract.Decoder, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.decoders[name]
	if !ok {
		return nil, fmt.Errorf("%w: no guest program for %s", types.ErrContractNotFound, name)
	}
	return d, nil
}

// Names 已注册的合约名（升序）
func (r *Registry) Names() []types.ContractName {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]types.ContractName, 0, len(r.decoders))
	for n := range r.decoders {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
