package memory

import "time"

// 内存缓存默认配置值
const (
	// defaultMaxEntries 窗口内预估条目数
	// 合约数量有限，1万条足够
	defaultMaxEntries = 10000

	// defaultMaxEntrySizeBytes 单条目预估大小
	defaultMaxEntrySizeBytes = 64 * 1024

	// defaultDefaultTTL 默认有效期10分钟
	// 记录在结算时主动失效，TTL 只兜底
	defaultDefaultTTL = 10 * time.Minute

	// defaultCleanupInterval 默认清理间隔为5分钟
	defaultCleanupInterval = 5 * time.Minute
)
