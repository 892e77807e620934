package badger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	badgerconfig "github.com/weisyn/zkcontract/internal/config/storage/badger"
	interfaces "github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/storage"
)

// 初始化测试环境
func setupTestStore(t *testing.T, inMemory bool) *Store {
	t.Helper()

	options := &badgerconfig.BadgerOptions{
		Path:             t.TempDir(),
		InMemory:         inMemory,
		SyncWrites:       false,
		MemTableSize:     64 << 20, // 64MB
		ValueLogFileSize: 1 << 20,
	}
	store, err := New(badgerconfig.NewFromOptions(options), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store.(*Store)
}

func TestBasicOperations(t *testing.T) {
	store := setupTestStore(t, false)
	ctx := context.Background()

	key := []byte("contract/counter")
	require.NoError(t, store.Set(ctx, key, []byte("v1")))

	value, err := store.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte("v1"), value)

	exists, err := store.Exists(ctx, key)
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, store.Delete(ctx, key))
	value, err = store.Get(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, value, "删除后应返回nil")

	exists, err = store.Exists(ctx, key)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestSetManyAndPrefixScan(t *testing.T) {
	store := setupTestStore(t, true)
	ctx := context.Background()

	require.NoError(t, store.SetMany(ctx, map[string][]byte{
		"blob/aa":    []byte("1"),
		"blob/bb":    []byte("2"),
		"contract/x": []byte("3"),
	}))

	blobs, err := store.PrefixScan(ctx, []byte("blob/"))
	require.NoError(t, err)
	assert.Len(t, blobs, 2)
	assert.Equal(t, []byte("2"), blobs["blob/bb"])
}

func TestRunInTransaction(t *testing.T) {
	store := setupTestStore(t, true)
	ctx := context.Background()

	t.Run("提交", func(t *testing.T) {
		err := store.RunInTransaction(ctx, func(tx interfaces.BadgerTransaction) error {
			if err := tx.Set([]byte("a"), []byte("1")); err != nil {
				return err
			}
			v, err := tx.Get([]byte("a"))
			if err != nil {
				return err
			}
			assert.Equal(t, []byte("1"), v)
			return tx.Set([]byte("b"), []byte("2"))
		})
		require.NoError(t, err)

		v, err := store.Get(ctx, []byte("b"))
		require.NoError(t, err)
		assert.Equal(t, []byte("2"), v)
	})

	t.Run("回滚", func(t *testing.T) {
		boom := errors.New("boom")
		err := store.RunInTransaction(ctx, func(tx interfaces.BadgerTransaction) error {
			if err := tx.Set([]byte("c"), []byte("3")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		exists, err := store.Exists(ctx, []byte("c"))
		require.NoError(t, err)
		assert.False(t, exists, "失败的事务不应留下写入")
	})
}

func TestCloseRejectsWrites(t *testing.T) {
	store := setupTestStore(t, true)
	require.NoError(t, store.Close())
	require.NoError(t, store.Close(), "重复关闭应为空操作")

	err := store.Set(context.Background(), []byte("k"), []byte("v"))
	assert.ErrorIs(t, err, ErrStoreClosing)
}

func TestResolveTableSizes(t *testing.T) {
	cases := []struct {
		name      string
		memTable  int64
		threshold int64
		want      int64
		wantErr   bool
	}{
		{name: "默认内存表沿用配置阈值", memTable: 64 << 20, threshold: 1 << 20, want: 1 << 20},
		{name: "小内存表推导阈值", memTable: 1 << 20, threshold: 0, want: (1 << 20) * 15 / 100},
		{name: "大内存表推导阈值封顶", memTable: 64 << 20, threshold: 0, want: 1 << 20},
		{name: "阈值超过单批次上限", memTable: 1 << 20, threshold: 1 << 20, wantErr: true},
		{name: "阈值超过上限", memTable: 64 << 20, threshold: 2 << 20, wantErr: true},
		{name: "内存表无效", memTable: 0, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			config := badgerconfig.NewFromOptions(&badgerconfig.BadgerOptions{
				InMemory:       true,
				MemTableSize:   tc.memTable,
				ValueThreshold: tc.threshold,
			})
			memTable, threshold, err := resolveTableSizes(config)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.memTable, memTable)
			assert.Equal(t, tc.want, threshold)
		})
	}
}

func TestNewWithSmallMemTable(t *testing.T) {
	_, err := New(badgerconfig.NewFromOptions(&badgerconfig.BadgerOptions{
		InMemory:       true,
		MemTableSize:   1 << 20,
		ValueThreshold: 1 << 20,
	}), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mem_table_size")

	s, err := New(badgerconfig.NewFromOptions(&badgerconfig.BadgerOptions{
		InMemory:     true,
		MemTableSize: 1 << 20,
	}), nil)
	require.NoError(t, err)
	defer s.Close()

	ctx := context.Background()
	require.NoError(t, s.Set(ctx, []byte("k"), []byte("v")))
	value, err := s.Get(ctx, []byte("k"))
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), value)
}

func TestDefaultConfigOpens(t *testing.T) {
	options := badgerconfig.New(nil).GetOptions()
	options.InMemory = true
	s, err := New(badgerconfig.NewFromOptions(options), nil)
	require.NoError(t, err)
	require.NoError(t, s.Close())
}
