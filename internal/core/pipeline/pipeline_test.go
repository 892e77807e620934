package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/zkcontract/contracts/counter"
	nodeconfig "github.com/weisyn/zkcontract/internal/config/node"
	proverconfig "github.com/weisyn/zkcontract/internal/config/prover"
	badgerconfig "github.com/weisyn/zkcontract/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/zkcontract/internal/config/storage/memory"
	guestcontract "github.com/weisyn/zkcontract/internal/core/contract"
	logimpl "github.com/weisyn/zkcontract/internal/core/infrastructure/log"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/zkcontract/internal/core/node"
	"github.com/weisyn/zkcontract/internal/core/zkproof"
	"github.com/weisyn/zkcontract/pkg/interfaces/ledger"
	zkiface "github.com/weisyn/zkcontract/pkg/interfaces/zkproof"
	"github.com/weisyn/zkcontract/pkg/types"
)

var (
	setupOnce    sync.Once
	setupManager *zkproof.Manager
	setupProgram zkiface.Program
	setupErr     error
)

func newRegistry(t *testing.T) *guestcontract.Registry {
	t.Helper()
	registry := guestcontract.NewRegistry()
	require.NoError(t, registry.Register("counter", counter.Decode))
	return registry
}

// 可信设置只做一次
func sharedProgram(t *testing.T) (*zkproof.Manager, zkiface.Program) {
	t.Helper()
	setupOnce.Do(func() {
		registry := guestcontract.NewRegistry()
		if setupErr = registry.Register("counter", counter.Decode); setupErr != nil {
			return
		}
		options := proverconfig.Default()
		options.MinFreeMemoryMB = 0
		setupManager = zkproof.NewManager(logimpl.NewNop(), options, registry, metrics.New())
		setupProgram, setupErr = setupManager.Setup(context.Background(), "counter")
	})
	require.NoError(t, setupErr)
	return setupManager, setupProgram
}

func newNode(t *testing.T) *node.Service {
	t.Helper()
	store, err := badger.New(badgerconfig.NewFromOptions(&badgerconfig.BadgerOptions{
		InMemory:     true,
		MemTableSize: 64 << 20,
	}), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cache, err := memory.New(memoryconfig.New(nil), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cache.Close() })

	validator := zkproof.NewValidator(logimpl.NewNop(), nil)
	return node.NewService(store, cache, validator, nil, nodeconfig.New(nil).GetOptions(), logimpl.NewNop(), nil)
}

func incrementRequest(t *testing.T, program zkiface.Program, user string, nonce uint64) Request {
	t.Helper()
	blob, err := counter.Increment().WithNonce(nonce).AsBlob("counter")
	require.NoError(t, err)
	return Request{
		Program:  program,
		Identity: types.NewIdentity(user, "counter"),
		Blobs:    []types.Blob{blob},
	}
}

func digestOf(t *testing.T, c *counter.Counter) types.StateDigest {
	t.Helper()
	d, err := c.Digest()
	require.NoError(t, err)
	return d
}

func TestRegisterAndIncrement(t *testing.T) {
	ctx := context.Background()
	manager, program := sharedProgram(t)
	ledgerNode := newNode(t)

	var (
		blobSent  types.TxHash
		proofSent types.TxHash
	)
	p := New(ledgerNode, manager, newRegistry(t), logimpl.NewNop(), metrics.New()).WithHooks(Hooks{
		OnBlobSent:  func(h types.TxHash) { blobSent = h },
		OnProofSent: func(h types.TxHash) { proofSent = h },
	})

	// 注册空计数器
	_, err := p.Register(ctx, "counter", program, counter.New())
	require.NoError(t, err)
	record, err := ledgerNode.GetContract(ctx, "counter")
	require.NoError(t, err)
	programID, err := program.ID()
	require.NoError(t, err)
	assert.Equal(t, programID, record.ProgramID)
	assert.Equal(t, digestOf(t, counter.New()), record.StateDigest)

	// bob 递增一次
	receipt, err := p.Run(ctx, incrementRequest(t, program, "bob", 1))
	require.NoError(t, err)
	assert.Equal(t, "incremented to 1", receipt.DryRun.Output)
	assert.Equal(t, receipt.DryRun, receipt.Committed)
	assert.Equal(t, digestOf(t, counter.New()), receipt.Committed.InitialState)
	want := counter.FromValues(map[string]uint32{"bob": 1})
	assert.Equal(t, digestOf(t, want), receipt.Committed.NextState)
	assert.Equal(t, receipt.BlobTxHash, receipt.Committed.TxHash)
	assert.Equal(t, receipt.BlobTxHash, blobSent)
	assert.Equal(t, receipt.ProofTxHash, proofSent)

	record, err = ledgerNode.GetContract(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, digestOf(t, want), record.StateDigest)

	// 再递增一次从新状态开始
	receipt, err = p.Run(ctx, incrementRequest(t, program, "bob", 2))
	require.NoError(t, err)
	assert.Equal(t, "incremented to 2", receipt.Committed.Output)
}

// staleClient 总是返回注册时的记录
type staleClient struct {
	ledger.NodeClient
	record *types.ContractRecord
}

func (c *staleClient) GetContract(context.Context, types.ContractName) (*types.ContractRecord, error) {
	cp := *c.record
	return &cp, nil
}

func TestStaleStateRejected(t *testing.T) {
	ctx := context.Background()
	manager, program := sharedProgram(t)
	ledgerNode := newNode(t)
	registry := newRegistry(t)

	p := New(ledgerNode, manager, registry, logimpl.NewNop(), nil)
	_, err := p.Register(ctx, "counter", program, counter.New())
	require.NoError(t, err)
	initial, err := ledgerNode.GetContract(ctx, "counter")
	require.NoError(t, err)

	_, err = p.Run(ctx, incrementRequest(t, program, "bob", 1))
	require.NoError(t, err)
	advanced, err := ledgerNode.GetContract(ctx, "counter")
	require.NoError(t, err)

	stale := New(&staleClient{NodeClient: ledgerNode, record: initial}, manager, registry, logimpl.NewNop(), nil)
	_, err = stale.Run(ctx, incrementRequest(t, program, "alice", 2))
	require.Error(t, err)

	var stageErr *types.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, types.StageSendProof, stageErr.Stage)
	assert.ErrorIs(t, err, types.ErrStateDigestMismatch)
	assert.Equal(t, "consistency", types.ErrorKind(err))

	after, err := ledgerNode.GetContract(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, advanced.StateDigest, after.StateDigest)
}

// brokenClient 模拟节点不可达
type brokenClient struct {
	ledger.NodeClient
}

func (brokenClient) GetContract(context.Context, types.ContractName) (*types.ContractRecord, error) {
	return nil, errors.New("dial tcp 127.0.0.1:4321: connection refused")
}

func TestTransportAndExecutionFailures(t *testing.T) {
	ctx := context.Background()
	manager, program := sharedProgram(t)
	registry := newRegistry(t)

	t.Run("node unreachable", func(t *testing.T) {
		p := New(brokenClient{}, manager, registry, logimpl.NewNop(), nil)
		_, err := p.Run(ctx, incrementRequest(t, program, "bob", 1))
		require.Error(t, err)

		var stageErr *types.StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, types.StageFetchState, stageErr.Stage)
		assert.ErrorIs(t, err, types.ErrTransport)
		assert.NotErrorIs(t, err, types.ErrExecution)
	})

	t.Run("contract rejects action", func(t *testing.T) {
		ledgerNode := newNode(t)
		p := New(ledgerNode, manager, registry, logimpl.NewNop(), nil)
		_, err := p.Register(ctx, "counter", program, counter.New())
		require.NoError(t, err)

		req := incrementRequest(t, program, "bob", 1)
		req.Blobs[0].Data = []byte{0xc2, 0x09, 0x01}
		_, err = p.Run(ctx, req)
		require.Error(t, err)

		var stageErr *types.StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, types.StageDryRun, stageErr.Stage)
		assert.False(t, stageErr.TxHash.IsZero())
		assert.ErrorIs(t, err, types.ErrExecution)
		assert.NotErrorIs(t, err, types.ErrTransport)
	})

	t.Run("unregistered contract", func(t *testing.T) {
		p := New(newNode(t), manager, registry, logimpl.NewNop(), nil)
		_, err := p.Run(ctx, incrementRequest(t, program, "bob", 1))
		assert.ErrorIs(t, err, types.ErrContractNotFound)
		assert.NotErrorIs(t, err, types.ErrTransport)
		assert.Equal(t, "not_found", types.ErrorKind(err))
	})

	t.Run("index out of range", func(t *testing.T) {
		ledgerNode := newNode(t)
		p := New(ledgerNode, manager, registry, logimpl.NewNop(), nil)
		_, err := p.Register(ctx, "counter", program, counter.New())
		require.NoError(t, err)

		req := incrementRequest(t, program, "bob", 1)
		req.Index = 3
		_, err = p.Run(ctx, req)
		assert.ErrorIs(t, err, types.ErrBlobIndexOutOfRange)

		var stageErr *types.StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, types.StageSendBlob, stageErr.Stage)
		assert.True(t, stageErr.TxHash.IsZero())
	})

	t.Run("blob addressed to another contract", func(t *testing.T) {
		ledgerNode := newNode(t)
		p := New(ledgerNode, manager, registry, logimpl.NewNop(), nil)
		_, err := p.Register(ctx, "mycounter", program, counter.New())
		require.NoError(t, err)

		// blob 发给 counter，但流水线针对 mycounter
		req := incrementRequest(t, program, "bob", 1)
		req.Contract = "mycounter"
		_, err = p.Run(ctx, req)
		assert.ErrorIs(t, err, types.ErrWrongContract)

		var stageErr *types.StageError
		require.True(t, errors.As(err, &stageErr))
		assert.Equal(t, types.StageSendBlob, stageErr.Stage)
		assert.True(t, stageErr.TxHash.IsZero(), "blob 交易不应发出")
	})
}

func TestProveCancelled(t *testing.T) {
	manager, program := sharedProgram(t)
	ledgerNode := newNode(t)
	p := New(ledgerNode, manager, newRegistry(t), logimpl.NewNop(), nil)
	_, err := p.Register(context.Background(), "counter", program, counter.New())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	p.WithHooks(Hooks{OnExecuted: func(*types.ProgramOutput) { cancel() }})
	_, err = p.Run(ctx, incrementRequest(t, program, "bob", 1))
	require.Error(t, err)

	var stageErr *types.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, types.StageProve, stageErr.Stage)
	assert.ErrorIs(t, err, context.Canceled)

	record, err := ledgerNode.GetContract(context.Background(), "counter")
	require.NoError(t, err)
	assert.Equal(t, digestOf(t, counter.New()), record.StateDigest)
}

func TestCustomContractName(t *testing.T) {
	ctx := context.Background()
	manager, program := sharedProgram(t)
	ledgerNode := newNode(t)
	p := New(ledgerNode, manager, newRegistry(t), logimpl.NewNop(), nil)

	// 同一个 counter 程序部署为 mycounter
	_, err := p.Register(ctx, "mycounter", program, counter.New())
	require.NoError(t, err)

	blob, err := counter.Increment().WithNonce(1).AsBlob("mycounter")
	require.NoError(t, err)
	receipt, err := p.Run(ctx, Request{
		Program:  program,
		Contract: "mycounter",
		Identity: types.NewIdentity("bob", "mycounter"),
		Blobs:    []types.Blob{blob},
	})
	require.NoError(t, err)
	assert.Equal(t, "incremented to 1", receipt.Committed.Output)

	record, err := ledgerNode.GetContract(ctx, "mycounter")
	require.NoError(t, err)
	assert.Equal(t, digestOf(t, counter.FromValues(map[string]uint32{"bob": 1})), record.StateDigest)

	_, err = ledgerNode.GetContract(ctx, "counter")
	assert.ErrorIs(t, err, types.ErrContractNotFound)
}
