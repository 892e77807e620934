package badger

// BadgerDB存储默认配置值

const (
	// defaultPath 默认数据库路径
	defaultPath = "./data/badger"

	// defaultInMemory 默认持久化到磁盘
	defaultInMemory = false

	// defaultSyncWrites 默认启用同步写入
	// 合约记录与结算标记一旦返回成功必须已经落盘
	defaultSyncWrites = true

	// defaultMemTableSize 默认内存表大小为64MB
	defaultMemTableSize = 64 << 20 // 64MB

	// defaultValueLogFileSize value log 单文件大小
	// 降低到128MB，减少 mmap 占用
	defaultValueLogFileSize = 128 << 20

	// defaultValueThreshold 值阈值，与 BadgerDB 默认值一致
	// 必须不超过内存表大小的 15%（单批次上限）
	defaultValueThreshold = 1 << 20
)
