package storage

import (
	"context"
	"time"
)

// MemoryStore 内存缓存接口
type MemoryStore interface {
	// Get 获取缓存值，返回值、是否存在及可能的错误
	Get(ctx context.Context, key string) (value []byte, exists bool, err error)

	// Set 设置缓存值，ttl为0表示使用缓存窗口的默认有效期
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete 删除指定键的缓存
	// 如果键不存在，不会返回错误
	Delete(ctx context.Context, key string) error

	// Exists 检查键是否存在
	Exists(ctx context.Context, key string) (bool, error)

	// Clear 清空所有缓存
	Clear(ctx context.Context) error

	// Count 返回缓存条目数
	Count(ctx context.Context) (int64, error)

	// Close 关闭缓存并释放资源
	Close() error
}
