// Package guest 客体程序执行环境
//
// 执行环境只做三件事：读取密封的输入、驱动合约、提交输出记录。
// 环境内不访问网络和时钟，同一输入必然得到同一输出。
package guest

import (
	"errors"
	"sync"
)

// ErrEnvConsumed 单次环境被重复读取或重复提交
var ErrEnvConsumed = errors.New("guest env already consumed")

// Env 客体程序与宿主之间的通道
type Env interface {
	// Read 读取密封的输入
	Read() ([]byte, error)
	// Commit 提交公开输出
	Commit(output []byte) error
}

// SealedEnv 单次使用的内存环境：构造时密封输入，运行后读出提交
type SealedEnv struct {
	mu        sync.Mutex
	input     []byte
	read      bool
	committed []byte
	done      bool
}

// NewSealedEnv 密封输入字节
func NewSealedEnv(input []byte) *SealedEnv {
	sealed := make([]byte, len(input))
	copy(sealed, input)
	return &SealedEnv{input: sealed}
}

// Read 实现 Env，只能读取一次
func (e *SealedEnv) Read() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.read {
		return nil, ErrEnvConsumed
	}
	e.read = true
	return e.input, nil
}

// Commit 实现 Env，只能提交一次
func (e *SealedEnv) Commit(output []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.done {
		return ErrEnvConsumed
	}
	e.committed = append([]byte(nil), output...)
	e.done = true
	return nil
}

// Committed 返回提交的输出，未提交时 ok 为 false
func (e *SealedEnv) Committed() (output []byte, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.committed, e.done
}
