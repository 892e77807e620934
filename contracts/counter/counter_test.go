package counter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/zkcontract/internal/core/codec"
	"github.com/weisyn/zkcontract/pkg/types"
)

func incrementInput(t *testing.T, state *Counter, identity types.Identity) *types.ContractInput {
	t.Helper()
	blob, err := Increment().AsBlob(identity.Contract())
	require.NoError(t, err)
	raw, err := state.Encode()
	require.NoError(t, err)
	return &types.ContractInput{
		State:    raw,
		Identity: identity,
		TxHash:   types.TxHash{0x01},
		Blobs:    []types.Blob{blob},
		Index:    0,
	}
}

func TestIncrement(t *testing.T) {
	initial := New()
	res, err := initial.Execute(incrementInput(t, initial, "bob.counter"))
	require.NoError(t, err)
	assert.Equal(t, "incremented to 1", res.Output)

	next := res.NewState.(*Counter)
	assert.Equal(t, uint32(1), next.Get("bob"))
	assert.Equal(t, uint32(0), initial.Get("bob"), "原状态不应被修改")

	res, err = next.Execute(incrementInput(t, next, "bob.counter"))
	require.NoError(t, err)
	assert.Equal(t, "incremented to 2", res.Output)
	assert.Equal(t, "bob", res.SideEffects[0].Key)
}

func TestExecuteFailuresLeaveStateUntouched(t *testing.T) {
	state := FromValues(map[string]uint32{"bob": 4})
	before, err := state.Digest()
	require.NoError(t, err)

	t.Run("索引越界", func(t *testing.T) {
		in := incrementInput(t, state, "bob.counter")
		in.Index = 5
		_, err := state.Execute(in)
		assert.ErrorIs(t, err, types.ErrBlobIndexOutOfRange)
	})

	t.Run("非法动作", func(t *testing.T) {
		in := incrementInput(t, state, "bob.counter")
		in.Blobs[0].Data = []byte{0xc1, 0x09}
		_, err := state.Execute(in)
		assert.ErrorIs(t, err, types.ErrInvalidAction)
		assert.ErrorIs(t, err, types.ErrExecution)
	})

	t.Run("溢出", func(t *testing.T) {
		full := FromValues(map[string]uint32{"bob": ^uint32(0)})
		_, err := full.Execute(incrementInput(t, full, "bob.counter"))
		assert.ErrorIs(t, err, types.ErrExecution)
	})

	after, err := state.Digest()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestEncodeIsCanonical(t *testing.T) {
	a := FromValues(map[string]uint32{"carol": 3, "alice": 1, "bob": 2})
	b := FromValues(map[string]uint32{"bob": 2, "alice": 1, "carol": 3})

	encA, err := a.Encode()
	require.NoError(t, err)
	encB, err := b.Encode()
	require.NoError(t, err)
	assert.Equal(t, encA, encB)

	decoded, err := DecodeCounter(encA)
	require.NoError(t, err)
	again, err := decoded.Encode()
	require.NoError(t, err)
	assert.Equal(t, encA, again)
	assert.Equal(t, 3, decoded.Len())
}

func TestDecodeRejectsUnsortedKeys(t *testing.T) {
	raw, err := codec.EncodeState(&encoded{Entries: []entry{{"bob", 1}, {"alice", 2}}})
	require.NoError(t, err)

	_, err = Decode(raw)
	assert.ErrorIs(t, err, types.ErrMalformedState)

	raw, err = codec.EncodeState(&encoded{Entries: []entry{{"bob", 1}, {"bob", 2}}})
	require.NoError(t, err)
	_, err = Decode(raw)
	assert.ErrorIs(t, err, types.ErrMalformedState)
}

func TestDigestDistinguishesStates(t *testing.T) {
	d1, err := New().Digest()
	require.NoError(t, err)
	d2, err := FromValues(map[string]uint32{"bob": 1}).Digest()
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)
}
