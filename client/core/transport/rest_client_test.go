package transport

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/zkcontract/contracts/counter"
	apihttp "github.com/weisyn/zkcontract/internal/api/http"
	apiconfig "github.com/weisyn/zkcontract/internal/config/api"
	nodeconfig "github.com/weisyn/zkcontract/internal/config/node"
	badgerconfig "github.com/weisyn/zkcontract/internal/config/storage/badger"
	memoryconfig "github.com/weisyn/zkcontract/internal/config/storage/memory"
	eventimpl "github.com/weisyn/zkcontract/internal/core/infrastructure/event"
	logimpl "github.com/weisyn/zkcontract/internal/core/infrastructure/log"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/storage/badger"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/storage/memory"
	"github.com/weisyn/zkcontract/internal/core/node"
	"github.com/weisyn/zkcontract/internal/core/txbuilder"
	"github.com/weisyn/zkcontract/internal/core/zkproof"
	"github.com/weisyn/zkcontract/pkg/types"
)

// newNodeServer 启动一个进程内账本节点的 HTTP 服务
func newNodeServer(t *testing.T, policy nodeconfig.RegistrationPolicy) *httptest.Server {
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

	logger := logimpl.NewNop()
	bus := eventimpl.New(true)
	nodeOptions := nodeconfig.New(nil).GetOptions()
	nodeOptions.RegistrationPolicy = policy
	svc := node.NewService(store, cache, zkproof.NewValidator(logger, nil), bus, nodeOptions, logger, nil)

	options := apiconfig.New(nil).GetOptions()
	options.EnableEvents = true
	server, err := apihttp.New(options, logger, svc, bus, nil)
	require.NoError(t, err)

	ts := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		_ = server.Stop(context.Background())
		ts.Close()
	})
	return ts
}

func registration(t *testing.T) *types.RegisterContractRequest {
	t.Helper()
	req, err := txbuilder.BuildRegistration(zkproof.VerifierID, types.ProgramID{0x01, 0x02}, counter.New(), "counter")
	require.NoError(t, err)
	return req
}

func TestRESTClient(t *testing.T) {
	ctx := context.Background()
	ts := newNodeServer(t, nodeconfig.PolicyReject)
	client := NewRESTClient(ts.URL, 5*time.Second)

	req := registration(t)
	hash, err := client.RegisterContract(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, req.Hash(), hash)

	record, err := client.GetContract(ctx, "counter")
	require.NoError(t, err)
	assert.Equal(t, req.StateDigest, record.StateDigest)
	assert.Equal(t, []byte(req.State), []byte(record.State))

	blob, err := counter.Increment().AsBlob("counter")
	require.NoError(t, err)
	tx := &types.BlobTransaction{Identity: "bob.counter", Blobs: []types.Blob{blob}}
	blobHash, err := client.SendBlobTransaction(ctx, tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Hash(), blobHash)

	stored, err := client.GetBlobTransaction(ctx, blobHash)
	require.NoError(t, err)
	assert.Equal(t, tx.Identity, stored.Identity)

	records, err := client.Contracts(ctx)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestRESTClientErrorKinds(t *testing.T) {
	ctx := context.Background()
	ts := newNodeServer(t, nodeconfig.PolicyReject)
	client := NewRESTClient(ts.URL, 5*time.Second)
	_, err := client.RegisterContract(ctx, registration(t))
	require.NoError(t, err)

	_, err = client.RegisterContract(ctx, registration(t))
	assert.ErrorIs(t, err, types.ErrContractExists)

	_, err = client.GetContract(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrContractNotFound)
	assert.NotErrorIs(t, err, types.ErrTransport)

	_, err = client.SendProofTransaction(ctx, &types.ProofTransaction{ContractName: "counter", Proof: types.ProofData{0x01}})
	assert.ErrorIs(t, err, types.ErrConsistency)

	_, err = client.GetBlobTransaction(ctx, types.TxHash{0x01})
	assert.ErrorIs(t, err, types.ErrTxNotFound)
}

func TestRESTClientTransportFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("node down", func(t *testing.T) {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		_, err := NewRESTClient(url, time.Second).GetContract(ctx, "counter")
		assert.ErrorIs(t, err, types.ErrTransport)
	})

	t.Run("non json error", func(t *testing.T) {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "bad gateway", http.StatusBadGateway)
		}))
		defer ts.Close()

		_, err := NewRESTClient(ts.URL, time.Second).GetContract(ctx, "counter")
		assert.ErrorIs(t, err, types.ErrTransport)
		assert.Contains(t, err.Error(), "502")
	})

	t.Run("cancelled", func(t *testing.T) {
		ts := newNodeServer(t, nodeconfig.PolicyReject)
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := NewRESTClient(ts.URL, time.Second).GetContract(cctx, "counter")
		assert.ErrorIs(t, err, types.ErrTransport)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestEventStream(t *testing.T) {
	ctx := context.Background()
	ts := newNodeServer(t, nodeconfig.PolicySupersede)

	stream, err := DialEvents(ctx, ts.URL, "counter")
	require.NoError(t, err)
	defer stream.Close()

	// 服务端登记连接之前发布的事件不会推送，替换注册直到收到
	client := NewRESTClient(ts.URL, 5*time.Second)
	req := registration(t)
	var ev *node.LedgerEvent
	require.Eventually(t, func() bool {
		if _, err := client.RegisterContract(ctx, req); err != nil {
			return false
		}
		select {
		case ev = <-stream.Events():
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)

	require.NotNil(t, ev)
	assert.Equal(t, node.EventContractRegistered, ev.Type)
	assert.Equal(t, types.ContractName("counter"), ev.Contract)
	assert.Equal(t, req.StateDigest, ev.StateDigest)
}
