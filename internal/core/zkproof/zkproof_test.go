package zkproof

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/test"
	"github.com/ethereum/go-ethereum/rlp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/zkcontract/contracts/counter"
	proverconfig "github.com/weisyn/zkcontract/internal/config/prover"
	"github.com/weisyn/zkcontract/internal/core/codec"
	guestcontract "github.com/weisyn/zkcontract/internal/core/contract"
	logimpl "github.com/weisyn/zkcontract/internal/core/infrastructure/log"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/pkg/types"
)

var (
	sharedOnce    sync.Once
	sharedManager *Manager
	sharedProgram *Program
	sharedErr     error
)

func newTestManager(t *testing.T, options *proverconfig.ProverOptions) *Manager {
	t.Helper()
	registry := guestcontract.NewRegistry()
	require.NoError(t, registry.Register("counter", counter.Decode))
	return NewManager(logimpl.NewNop(), options, registry, metrics.New())
}

// 可信设置较慢，测试间共享一个程序
func setupShared(t *testing.T) (*Manager, *Program) {
	t.Helper()
	sharedOnce.Do(func() {
		sharedManager = newTestManager(t, nil)
		var prog interface{}
		prog, sharedErr = sharedManager.Setup(context.Background(), "counter")
		if sharedErr == nil {
			sharedProgram = prog.(*Program)
		}
	})
	require.NoError(t, sharedErr)
	return sharedManager, sharedProgram
}

func incrementInput(t *testing.T, values map[string]uint32) *types.ContractInput {
	t.Helper()
	state, err := counter.FromValues(values).Encode()
	require.NoError(t, err)
	blob, err := counter.Increment().AsBlob("counter")
	require.NoError(t, err)
	return &types.ContractInput{
		State:    state,
		Identity: "bob.counter",
		TxHash:   types.TxHash{0x11, 0x22},
		Blobs:    []types.Blob{blob},
		Index:    0,
	}
}

// ============================================================================
//                              电路
// ============================================================================

func sampleOutput() *types.ProgramOutput {
	return &types.ProgramOutput{
		InitialState: types.DigestOf([]byte("before")),
		NextState:    types.DigestOf([]byte("after")),
		Identity:     "bob.counter",
		TxHash:       types.TxHash{0xab},
		Index:        2,
		BlobsDigest:  types.DigestOf([]byte("blobs")),
		Success:      true,
		Output:       "incremented to 1",
	}
}

func TestTransitionCircuit(t *testing.T) {
	commitment := types.DigestOf([]byte("input"))

	valid, _, err := fullAssignment(sampleOutput(), commitment)
	require.NoError(t, err)
	require.NoError(t, test.IsSolved(&TransitionCircuit{}, valid, ecc.BN254.ScalarField()))

	t.Run("篡改Seal", func(t *testing.T) {
		bad, _, err := fullAssignment(sampleOutput(), commitment)
		require.NoError(t, err)
		bad.Seal = big.NewInt(42)
		assert.Error(t, test.IsSolved(&TransitionCircuit{}, bad, ecc.BN254.ScalarField()))
	})

	t.Run("篡改公开输入", func(t *testing.T) {
		bad, _, err := fullAssignment(sampleOutput(), commitment)
		require.NoError(t, err)
		bad.TxHash = big.NewInt(7)
		assert.Error(t, test.IsSolved(&TransitionCircuit{}, bad, ecc.BN254.ScalarField()))
	})

	t.Run("Index超出32位", func(t *testing.T) {
		p := publicFieldsOf(sampleOutput())
		p.index.SetUint64(1 << 33)
		c := fieldOf(commitment[:])
		seal, err := computeSeal(p, c)
		require.NoError(t, err)
		bad := publicAssignment(p, seal)
		bad.InputCommitment = toBig(c)
		assert.Error(t, test.IsSolved(&TransitionCircuit{}, bad, ecc.BN254.ScalarField()))
	})
}

func TestTransitionCircuitGroth16(t *testing.T) {
	if testing.Short() {
		t.Skip("groth16 证明较慢")
	}
	assert := test.NewAssert(t)
	valid, _, err := fullAssignment(sampleOutput(), types.DigestOf([]byte("input")))
	require.NoError(t, err)
	assert.CheckCircuit(
		&TransitionCircuit{},
		test.WithValidAssignment(valid),
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16),
	)
}

// ============================================================================
//                              证明与验证
// ============================================================================

func TestProveAndVerify(t *testing.T) {
	m, prog := setupShared(t)
	ctx := context.Background()
	input := incrementInput(t, map[string]uint32{"bob": 2})

	proof, out, err := m.Prove(ctx, prog, input)
	require.NoError(t, err)
	assert.Equal(t, "incremented to 3", out.Output)
	assert.Equal(t, input.TxHash, out.TxHash)
	assert.Equal(t, codec.BlobsDigest(input.Blobs), out.BlobsDigest)

	id, err := prog.ID()
	require.NoError(t, err)
	verified, err := m.Verify(ctx, id, proof)
	require.NoError(t, err)
	assert.Equal(t, out.NextState, verified.NextState)
	assert.Equal(t, out.InitialState, verified.InitialState)
	assert.Equal(t, "success: incremented to 3", verified.Line())

	committed, err := CommittedOutput(proof)
	require.NoError(t, err)
	assert.Equal(t, out.TxHash, committed.TxHash)
}

func TestVerifyRejectsTamperedOutput(t *testing.T) {
	m, prog := setupShared(t)
	ctx := context.Background()
	proof, _, err := m.Prove(ctx, prog, incrementInput(t, nil))
	require.NoError(t, err)
	id, err := prog.ID()
	require.NoError(t, err)

	tamper := func(mutate func(out *types.ProgramOutput)) types.ProofData {
		a, err := decodeArtifact(proof)
		require.NoError(t, err)
		out, err := codec.DecodeOutput(a.Output)
		require.NoError(t, err)
		mutate(out)
		a.Output, err = rlp.EncodeToBytes(out)
		require.NoError(t, err)
		data, err := encodeArtifact(a)
		require.NoError(t, err)
		return data
	}

	cases := map[string]func(out *types.ProgramOutput){
		"tx hash":  func(out *types.ProgramOutput) { out.TxHash = types.TxHash{0x99} },
		"index":    func(out *types.ProgramOutput) { out.Index = 1 },
		"identity": func(out *types.ProgramOutput) { out.Identity = "eve.counter" },
		"next":     func(out *types.ProgramOutput) { out.NextState = types.StateDigest{0x01} },
		"success":  func(out *types.ProgramOutput) { out.Output = "incremented to 100" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := m.Verify(ctx, id, tamper(mutate))
			assert.ErrorIs(t, err, types.ErrInvalidProof)
			assert.ErrorIs(t, err, types.ErrConsistency)
		})
	}

	_, err = m.Verify(ctx, id, types.ProofData("garbage"))
	assert.ErrorIs(t, err, types.ErrInvalidProof)
}

func TestVerifyRejectsOtherProgram(t *testing.T) {
	m, p1 := setupShared(t)
	ctx := context.Background()

	other, err := m.Setup(ctx, "counter")
	require.NoError(t, err)
	p2 := other.(*Program)

	id1, err := p1.ID()
	require.NoError(t, err)
	id2, err := p2.ID()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2, "每次可信设置都应得到新的程序标识")

	proof, _, err := m.Prove(ctx, p1, incrementInput(t, nil))
	require.NoError(t, err)

	_, err = m.Verify(ctx, id2, proof)
	assert.ErrorIs(t, err, types.ErrProgramIDMismatch)

	// 伪造程序标识哈希后仍无法通过 P2 的验证密钥
	a, err := decodeArtifact(proof)
	require.NoError(t, err)
	a.ProgramIDHash = id2.Hash()
	forged, err := encodeArtifact(a)
	require.NoError(t, err)
	_, err = m.Verify(ctx, id2, forged)
	assert.ErrorIs(t, err, types.ErrInvalidProof)
}

func TestProveGuestRejected(t *testing.T) {
	m, prog := setupShared(t)
	input := incrementInput(t, nil)
	input.Index = 4

	_, _, err := m.Prove(context.Background(), prog, input)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrProving)
	assert.ErrorIs(t, err, types.ErrExecution)
	assert.ErrorIs(t, err, types.ErrBlobIndexOutOfRange)
}

func TestProveCancelled(t *testing.T) {
	m, prog := setupShared(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, _, err := m.Prove(ctx, prog, incrementInput(t, nil))
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrProving)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProveResourceExhausted(t *testing.T) {
	_, prog := setupShared(t)
	options := proverconfig.Default()
	options.MinFreeMemoryMB = 256
	m := newTestManager(t, options)
	m.prover.freeMemory = func() uint64 { return 16 << 20 }

	_, _, err := m.Prove(context.Background(), prog, incrementInput(t, nil))
	assert.ErrorIs(t, err, types.ErrResourceExhausted)
	assert.ErrorIs(t, err, types.ErrProving)
}

func TestProveUnknownProgram(t *testing.T) {
	m, _ := setupShared(t)
	_, _, err := m.Prove(context.Background(), nil, incrementInput(t, nil))
	assert.ErrorIs(t, err, ErrUnknownProgram)

	_, err = m.Setup(context.Background(), "missing")
	assert.ErrorIs(t, err, types.ErrContractNotFound)
}

// ============================================================================
//                              程序产物
// ============================================================================

func TestSaveAndLoadProgram(t *testing.T) {
	m, prog := setupShared(t)
	path := filepath.Join(t.TempDir(), "programs", "counter.bin")

	require.False(t, ProgramExists(path))
	require.NoError(t, SaveProgram(path, prog))
	require.True(t, ProgramExists(path))

	loaded, err := LoadProgram(path)
	require.NoError(t, err)
	assert.Equal(t, types.ContractName("counter"), loaded.Guest())

	id, err := prog.ID()
	require.NoError(t, err)
	loadedID, err := loaded.ID()
	require.NoError(t, err)
	assert.Equal(t, id, loadedID)

	// 读回的程序产生的证明可用原程序标识验证
	proof, _, err := m.Prove(context.Background(), loaded, incrementInput(t, nil))
	require.NoError(t, err)
	_, err = m.Verify(context.Background(), id, proof)
	require.NoError(t, err)
}

func TestLoadOrSetup(t *testing.T) {
	m, _ := setupShared(t)
	path := filepath.Join(t.TempDir(), "counter.bin")

	first, created, err := m.LoadOrSetup(context.Background(), "counter", path)
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := m.LoadOrSetup(context.Background(), "counter", path)
	require.NoError(t, err)
	assert.False(t, created)

	id1, _ := first.ID()
	id2, _ := second.ID()
	assert.Equal(t, id1, id2)

	_, _, err = m.LoadOrSetup(context.Background(), "other", path)
	assert.ErrorIs(t, err, types.ErrProgramIDMismatch)
}

func TestLoadProgramCorrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.bin")
	require.NoError(t, os.WriteFile(path, []byte("not a program"), 0o644))

	_, err := LoadProgram(path)
	assert.ErrorIs(t, err, ErrArtifactCorrupted)

	_, err = LoadProgram(filepath.Join(t.TempDir(), "missing.bin"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestVerifierOnlyProgram(t *testing.T) {
	m, prog := setupShared(t)
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "counter.vk")

	require.NoError(t, SaveVerifier(path, prog))
	verifier, err := LoadProgram(path)
	require.NoError(t, err)
	assert.False(t, verifier.CanProve())
	assert.True(t, prog.CanProve())

	id, err := prog.ID()
	require.NoError(t, err)
	verifierID, err := verifier.ID()
	require.NoError(t, err)
	assert.Equal(t, id, verifierID)

	_, _, err = m.Prove(ctx, verifier, incrementInput(t, nil))
	assert.ErrorIs(t, err, ErrNoProvingKey)
	assert.ErrorIs(t, err, types.ErrProving)

	// 完整程序的证明可以用验证产物的标识校验
	proof, _, err := m.Prove(ctx, prog, incrementInput(t, nil))
	require.NoError(t, err)
	_, err = m.Verify(ctx, verifierID, proof)
	require.NoError(t, err)
}

func TestProveForDeployedName(t *testing.T) {
	m, prog := setupShared(t)
	input := incrementInput(t, nil)
	blob, err := counter.Increment().AsBlob("mycounter")
	require.NoError(t, err)
	input.Blobs = []types.Blob{blob}
	input.Identity = "bob.mycounter"

	_, out, err := m.Prove(context.Background(), prog, input)
	require.NoError(t, err)
	assert.Equal(t, "incremented to 1", out.Output)
}

// 绑定电路只约束输出记录与 Seal 的关系，持有证明密钥的一方可以为任意转换出证明。
// 执行正确性的信任根是证明密钥持有者。
func TestProvingKeyHolderIsTrusted(t *testing.T) {
	_, prog := setupShared(t)
	ctx := context.Background()

	before, err := counter.New().Digest()
	require.NoError(t, err)
	after := counter.FromValues(map[string]uint32{"bob": 1000000})
	afterData, err := after.Encode()
	require.NoError(t, err)
	afterDigest, err := after.Digest()
	require.NoError(t, err)

	// 不经过客体程序手工构造的输出记录
	forged := &types.ProgramOutput{
		InitialState:  before,
		NextState:     afterDigest,
		NextStateData: afterData,
		Identity:      "bob.counter",
		TxHash:        types.TxHash{0x33},
		BlobsDigest:   types.DigestOf([]byte("any blobs")),
		Success:       true,
		Output:        "incremented to 1000000",
	}
	assignment, seal, err := fullAssignment(forged, types.DigestOf([]byte("any input")))
	require.NoError(t, err)
	witness, err := frontend.NewWitness(assignment, curveID.ScalarField())
	require.NoError(t, err)
	proof, err := groth16.Prove(prog.ccs, prog.pk, witness)
	require.NoError(t, err)

	var proofBuf bytes.Buffer
	_, err = proof.WriteTo(&proofBuf)
	require.NoError(t, err)
	encodedOut, err := codec.EncodeOutput(forged)
	require.NoError(t, err)
	id, err := prog.ID()
	require.NoError(t, err)
	sealBytes := seal.Bytes()
	data, err := encodeArtifact(&proofArtifact{
		Version:       artifactVersion,
		ProgramIDHash: id.Hash(),
		Output:        encodedOut,
		Seal:          sealBytes[:],
		Proof:         proofBuf.Bytes(),
	})
	require.NoError(t, err)

	out, err := NewValidator(logimpl.NewNop(), nil).Verify(ctx, id, data)
	require.NoError(t, err)
	assert.Equal(t, afterDigest, out.NextState)

	// 没有证明密钥的一方做不到
	_, _, err = newTestManager(t, nil).Prove(ctx, prog.VerifierOnly(), incrementInput(t, nil))
	assert.ErrorIs(t, err, ErrNoProvingKey)
}
