// Package storage 定义持久化存储与缓存接口
//
// 💾 BadgerStore 承载账本节点的合约记录、blob 交易与结算标记；
// MemoryStore 承载合约记录的读缓存。
package storage

import (
	"context"
)

//=============================================================================
// BadgerStore 接口定义
//=============================================================================

// BadgerStore 定义了键值存储的应用接口
type BadgerStore interface {
	// Close 关闭BadgerDB数据库连接
	// 应用关闭时必须调用此方法以避免数据损坏
	Close() error

	// Get 获取指定键的值
	// 如果键不存在，返回nil值和nil错误
	Get(ctx context.Context, key []byte) ([]byte, error)

	// Set 设置键值对，已存在时覆盖
	Set(ctx context.Context, key, value []byte) error

	// Delete 删除指定键的值
	// 如果键不存在，不会返回错误
	Delete(ctx context.Context, key []byte) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key []byte) (bool, error)

	// SetMany 在同一个事务内批量设置多个键值对
	// map的键为键的字符串表示
	SetMany(ctx context.Context, entries map[string][]byte) error

	// PrefixScan 按前缀扫描键值对
	// 返回map的键为键的字符串表示
	PrefixScan(ctx context.Context, prefix []byte) (map[string][]byte, error)

	// RunInTransaction 在事务中执行操作
	// 如果fn返回错误，事务将被回滚；否则提交
	RunInTransaction(ctx context.Context, fn func(tx BadgerTransaction) error) error
}

//=============================================================================
// BadgerTransaction 接口定义
//=============================================================================

// BadgerTransaction 单个事务内的键值操作
type BadgerTransaction interface {
	// Get 获取指定键的值
	// 如果键不存在，返回nil值和nil错误
	Get(key []byte) ([]byte, error)

	// Set 设置键值对
	Set(key, value []byte) error

	// Delete 删除指定键的值
	Delete(key []byte) error

	// Exists 检查键是否存在
	Exists(key []byte) (bool, error)
}
