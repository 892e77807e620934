// Package node 进程内账本节点
//
// 🏛️ 账本节点保存合约注册记录与 blob 交易，验证证明交易并推进合约状态摘要。
// 持久化走 BadgerDB，合约记录读缓存走 bigcache，状态变化通过事件总线广播。
//
// 证明交易的结算顺序：
//  1. 以注册的程序标识验证证明
//  2. 找到证明绑定的 blob 交易
//  3. 核对索引、合约名、身份与 blob 列表摘要
//  4. 拒绝重复结算
//  5. 核对前置摘要与当前记录
//  6. 核对后置状态字节与后置摘要
//  7. 在同一个事务里写入新记录与结算标记
package node

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rlp"

	nodeconfig "github.com/weisyn/zkcontract/internal/config/node"
	"github.com/weisyn/zkcontract/internal/core/codec"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/event"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/storage"
	"github.com/weisyn/zkcontract/pkg/interfaces/ledger"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Verifier 证明验证能力
type Verifier interface {
	Verify(ctx context.Context, programID types.ProgramID, proof types.ProofData) (*types.ProgramOutput, error)
}

// 存储键前缀
const (
	contractPrefix = "contract/"
	blobPrefix     = "blob/"
	settledPrefix  = "settled/"

	cachePrefix = "record/"
)

// Service 账本节点服务
type Service struct {
	store    storage.BadgerStore
	cache    storage.MemoryStore
	verifier Verifier
	bus      event.EventBus
	options  *nodeconfig.NodeOptions
	logger   log.Logger
	metrics  *metrics.Metrics

	// 写操作串行化，读不加锁
	mu sync.Mutex
}

var _ ledger.NodeClient = (*Service)(nil)

// NewService 创建账本节点服务，bus 与 m 可以为 nil
func NewService(
	store storage.BadgerStore,
	cache storage.MemoryStore,
	verifier Verifier,
	bus event.EventBus,
	options *nodeconfig.NodeOptions,
	logger log.Logger,
	m *metrics.Metrics,
) *Service {
	if options == nil {
		options = nodeconfig.New(nil).GetOptions()
	}
	return &Service{
		store:    store,
		cache:    cache,
		verifier: verifier,
		bus:      bus,
		options:  options,
		logger:   logger,
		metrics:  m,
	}
}

// ============================================================================
//                              合约注册
// ============================================================================

// RegisterContract 注册合约
//
// 同名合约已存在时按注册策略处理：reject 拒绝，supersede 覆盖原记录。
func (s *Service) RegisterContract(ctx context.Context, req *types.RegisterContractRequest) (types.TxHash, error) {
	if req == nil || req.ContractName == "" {
		return types.TxHash{}, fmt.Errorf("%w: missing contract name", types.ErrInvalidTransaction)
	}
	if req.Verifier != s.options.Verifier {
		return types.TxHash{}, fmt.Errorf("%w: unsupported verifier %q", types.ErrInvalidTransaction, req.Verifier)
	}
	if len(req.ProgramID) == 0 {
		return types.TxHash{}, fmt.Errorf("%w: empty program id", types.ErrInvalidTransaction)
	}
	if codec.Digest(req.State) != req.StateDigest {
		return types.TxHash{}, fmt.Errorf("%w: registered state does not match digest", types.ErrStateDigestMismatch)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.loadRecord(ctx, req.ContractName)
	if err != nil && !errors.Is(err, types.ErrContractNotFound) {
		return types.TxHash{}, err
	}
	if existing != nil && s.options.RegistrationPolicy != nodeconfig.PolicySupersede {
		return types.TxHash{}, fmt.Errorf("%w: %s", types.ErrContractExists, req.ContractName)
	}

	record := &types.ContractRecord{
		Name:        req.ContractName,
		Verifier:    req.Verifier,
		ProgramID:   req.ProgramID,
		StateDigest: req.StateDigest,
		State:       req.State,
	}
	if err := s.saveRecord(ctx, record); err != nil {
		return types.TxHash{}, err
	}

	hash := req.Hash()
	if existing != nil {
		s.logger.Infof("合约已覆盖注册: name=%s digest=%s", req.ContractName, req.StateDigest)
	} else {
		s.logger.Infof("合约已注册: name=%s digest=%s", req.ContractName, req.StateDigest)
		if s.metrics != nil {
			s.metrics.ContractsTotal.Inc()
		}
	}
	s.publish(EventContractRegistered, &LedgerEvent{
		Contract:    req.ContractName,
		TxHash:      hash,
		StateDigest: req.StateDigest,
	})
	return hash, nil
}

// GetContract 查询合约注册记录
func (s *Service) GetContract(ctx context.Context, name types.ContractName) (*types.ContractRecord, error) {
	return s.loadRecord(ctx, name)
}

// Contracts 列出全部注册记录
func (s *Service) Contracts(ctx context.Context) ([]*types.ContractRecord, error) {
	entries, err := s.store.PrefixScan(ctx, []byte(contractPrefix))
	if err != nil {
		return nil, err
	}
	records := make([]*types.ContractRecord, 0, len(entries))
	for _, data := range entries {
		record := new(types.ContractRecord)
		if err := rlp.DecodeBytes(data, record); err != nil {
			return nil, fmt.Errorf("%w: contract record: %v", types.ErrCodec, err)
		}
		records = append(records, record)
	}
	return records, nil
}

// ============================================================================
//                              Blob 交易
// ============================================================================

// SendBlobTransaction 接收 blob 交易，每个 blob 指向的合约必须已注册
func (s *Service) SendBlobTransaction(ctx context.Context, tx *types.BlobTransaction) (types.TxHash, error) {
	if tx == nil {
		return types.TxHash{}, fmt.Errorf("%w: nil blob transaction", types.ErrInvalidTransaction)
	}
	if err := tx.Validate(); err != nil {
		return types.TxHash{}, err
	}
	for _, blob := range tx.Blobs {
		if _, err := s.loadRecord(ctx, blob.ContractName); err != nil {
			return types.TxHash{}, err
		}
	}

	data, err := rlp.EncodeToBytes(tx)
	if err != nil {
		return types.TxHash{}, fmt.Errorf("%w: blob transaction: %v", types.ErrCodec, err)
	}
	hash := tx.Hash()
	if err := s.store.Set(ctx, blobKey(hash), data); err != nil {
		return types.TxHash{}, err
	}
	if s.metrics != nil {
		s.metrics.BlobTransactions.Inc()
	}
	s.logger.Debugf("收到blob交易: tx=%s identity=%s blobs=%d", hash, tx.Identity, len(tx.Blobs))
	return hash, nil
}

// GetBlobTransaction 查询 blob 交易
func (s *Service) GetBlobTransaction(ctx context.Context, hash types.TxHash) (*types.BlobTransaction, error) {
	data, err := s.store.Get(ctx, blobKey(hash))
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, fmt.Errorf("%w: %s", types.ErrTxNotFound, hash)
	}
	tx := new(types.BlobTransaction)
	if err := rlp.DecodeBytes(data, tx); err != nil {
		return nil, fmt.Errorf("%w: blob transaction: %v", types.ErrCodec, err)
	}
	return tx, nil
}

// IsSettled 某个 blob 是否已被结算
func (s *Service) IsSettled(ctx context.Context, hash types.TxHash, index types.BlobIndex) (bool, error) {
	return s.store.Exists(ctx, settledKey(hash, index))
}

// ============================================================================
//                              证明结算
// ============================================================================

// SendProofTransaction 验证证明交易并推进合约状态
func (s *Service) SendProofTransaction(ctx context.Context, tx *types.ProofTransaction) (types.TxHash, error) {
	if tx == nil || tx.ContractName == "" || len(tx.Proof) == 0 {
		return types.TxHash{}, fmt.Errorf("%w: incomplete proof transaction", types.ErrInvalidTransaction)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash := tx.Hash()
	out, err := s.settle(ctx, tx)
	if err != nil {
		s.logger.Warnf("证明交易被拒绝: contract=%s tx=%s err=%v", tx.ContractName, hash, err)
		s.metrics.ObserveSettlement("rejected")
		s.publish(EventProofRejected, &LedgerEvent{
			Contract: tx.ContractName,
			TxHash:   hash,
			Kind:     types.ErrorKind(err),
			Error:    err.Error(),
		})
		return types.TxHash{}, err
	}

	s.logger.Infof("证明已结算: contract=%s blob=%s index=%d next=%s", tx.ContractName, out.TxHash, out.Index, out.NextState)
	s.metrics.ObserveSettlement("settled")
	s.publish(EventProofSettled, &LedgerEvent{
		Contract:    tx.ContractName,
		TxHash:      hash,
		StateDigest: out.NextState,
		Output:      out.Line(),
	})
	return hash, nil
}

func (s *Service) settle(ctx context.Context, tx *types.ProofTransaction) (*types.ProgramOutput, error) {
	record, err := s.loadRecord(ctx, tx.ContractName)
	if err != nil {
		return nil, err
	}

	// 1. 验证证明
	out, err := s.verifier.Verify(ctx, record.ProgramID, tx.Proof)
	if err != nil {
		return nil, err
	}

	// 2. 找到 blob 交易
	blobTx, err := s.GetBlobTransaction(ctx, out.TxHash)
	if err != nil {
		return nil, err
	}

	// 3. 绑定关系
	if int(out.Index) >= len(blobTx.Blobs) {
		return nil, fmt.Errorf("%w: index %d, blobs %d", types.ErrBindingMismatch, out.Index, len(blobTx.Blobs))
	}
	if blobTx.Blobs[out.Index].ContractName != tx.ContractName {
		return nil, fmt.Errorf("%w: blob %d addressed to %s", types.ErrBindingMismatch, out.Index, blobTx.Blobs[out.Index].ContractName)
	}
	if out.Identity != blobTx.Identity {
		return nil, fmt.Errorf("%w: identity %s, blob tx signed by %s", types.ErrBindingMismatch, out.Identity, blobTx.Identity)
	}
	if out.BlobsDigest != codec.BlobsDigest(blobTx.Blobs) {
		return nil, fmt.Errorf("%w: blobs digest", types.ErrBindingMismatch)
	}

	// 4. 重复结算
	settled, err := s.IsSettled(ctx, out.TxHash, out.Index)
	if err != nil {
		return nil, err
	}
	if settled {
		return nil, fmt.Errorf("%w: tx=%s index=%d", types.ErrAlreadySettled, out.TxHash, out.Index)
	}

	// 5. 前置摘要
	if out.InitialState != record.StateDigest {
		return nil, fmt.Errorf("%w: proof starts from %s, ledger at %s", types.ErrStateDigestMismatch, out.InitialState, record.StateDigest)
	}

	// 6. 后置状态
	if codec.Digest(out.NextStateData) != out.NextState {
		return nil, fmt.Errorf("%w: next state bytes do not match committed digest", types.ErrStateDigestMismatch)
	}
	if !out.Success {
		return nil, fmt.Errorf("%w: guest reported failure: %s", types.ErrInvalidProof, out.Output)
	}

	// 7. 原子写入
	next := &types.ContractRecord{
		Name:        record.Name,
		Verifier:    record.Verifier,
		ProgramID:   record.ProgramID,
		StateDigest: out.NextState,
		State:       bytes.Clone(out.NextStateData),
	}
	data, err := rlp.EncodeToBytes(next)
	if err != nil {
		return nil, fmt.Errorf("%w: contract record: %v", types.ErrCodec, err)
	}
	err = s.store.RunInTransaction(ctx, func(txn storage.BadgerTransaction) error {
		if err := txn.Set(contractKey(record.Name), data); err != nil {
			return err
		}
		return txn.Set(settledKey(out.TxHash, out.Index), tx.Hash().Bytes())
	})
	if err != nil {
		return nil, err
	}
	s.cacheRecord(ctx, record.Name, data)
	return out, nil
}

// ============================================================================
//                              存储辅助
// ============================================================================

func (s *Service) loadRecord(ctx context.Context, name types.ContractName) (*types.ContractRecord, error) {
	data, ok := s.cachedRecord(ctx, name)
	if !ok {
		var err error
		data, err = s.store.Get(ctx, contractKey(name))
		if err != nil {
			return nil, err
		}
		if data == nil {
			return nil, fmt.Errorf("%w: %s", types.ErrContractNotFound, name)
		}
		s.cacheRecord(ctx, name, data)
	}
	record := new(types.ContractRecord)
	if err := rlp.DecodeBytes(data, record); err != nil {
		return nil, fmt.Errorf("%w: contract record: %v", types.ErrCodec, err)
	}
	return record, nil
}

func (s *Service) saveRecord(ctx context.Context, record *types.ContractRecord) error {
	data, err := rlp.EncodeToBytes(record)
	if err != nil {
		return fmt.Errorf("%w: contract record: %v", types.ErrCodec, err)
	}
	if err := s.store.Set(ctx, contractKey(record.Name), data); err != nil {
		return err
	}
	s.cacheRecord(ctx, record.Name, data)
	return nil
}

// 缓存失败只影响读性能
func (s *Service) cachedRecord(ctx context.Context, name types.ContractName) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, ok, err := s.cache.Get(ctx, cachePrefix+string(name))
	if err != nil || !ok {
		return nil, false
	}
	return data, true
}

func (s *Service) cacheRecord(ctx context.Context, name types.ContractName, data []byte) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, cachePrefix+string(name), data, 0); err != nil {
		s.logger.Debugf("缓存合约记录失败: name=%s err=%v", name, err)
	}
}

func (s *Service) publish(eventType event.EventType, ev *LedgerEvent) {
	if s.bus == nil {
		return
	}
	ev.Type = eventType
	ev.Timestamp = time.Now()
	s.bus.Publish(eventType, ev)
}

func contractKey(name types.ContractName) []byte {
	return []byte(contractPrefix + string(name))
}

func blobKey(hash types.TxHash) []byte {
	return []byte(blobPrefix + hash.Hex())
}

func settledKey(hash types.TxHash, index types.BlobIndex) []byte {
	return []byte(fmt.Sprintf("%s%s/%d", settledPrefix, hash.Hex(), index))
}
