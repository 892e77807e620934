package zkproof

import (
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	nativemimc "github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"

	"github.com/weisyn/zkcontract/pkg/types"
)

// ============================================================================
//                              状态转换绑定电路
// ============================================================================
//
// 证明对输出记录的每个字段做出承诺：
//   Seal == MiMC(InitialState, NextState, TxHash, Index, Identity, Blobs, Output, InputCommitment)
//
// 32 字节摘要按大端解释后对标量域取模，映射为域元素。
// Index 额外做 32 位范围约束。
//
// 电路不约束客体程序的执行过程本身：持有证明密钥的一方可以为任意输出记录生成
// 有效证明。账本据此只能确认转换绑定到了注册的程序标识、blob 交易和前序状态，
// 执行正确性由证明密钥持有者担保。

// TransitionCircuit 状态转换绑定电路
type TransitionCircuit struct {
	InitialState frontend.Variable `gnark:",public"`
	NextState    frontend.Variable `gnark:",public"`
	TxHash       frontend.Variable `gnark:",public"`
	Index        frontend.Variable `gnark:",public"`
	Identity     frontend.Variable `gnark:",public"`
	Blobs        frontend.Variable `gnark:",public"`
	Output       frontend.Variable `gnark:",public"`
	Seal         frontend.Variable `gnark:",public"`

	// 执行输入的承诺，不公开
	InputCommitment frontend.Variable
}

// Define 定义电路约束
func (c *TransitionCircuit) Define(api frontend.API) error {
	api.ToBinary(c.Index, 32)

	h, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	h.Write(c.InitialState, c.NextState, c.TxHash, c.Index, c.Identity, c.Blobs, c.Output, c.InputCommitment)
	api.AssertIsEqual(h.Sum(), c.Seal)
	return nil
}

// publicFields 输出记录映射后的公开域元素
type publicFields struct {
	initialState fr.Element
	nextState    fr.Element
	txHash       fr.Element
	index        fr.Element
	identity     fr.Element
	blobs        fr.Element
	output       fr.Element
}

func fieldOf(b []byte) fr.Element {
	var e fr.Element
	e.SetBytes(b)
	return e
}

func toBig(e fr.Element) *big.Int {
	return e.BigInt(new(big.Int))
}

// publicFieldsOf 把输出记录映射为电路公开输入
func publicFieldsOf(out *types.ProgramOutput) publicFields {
	var index fr.Element
	index.SetUint64(uint64(out.Index))

	identity := types.DigestOf([]byte(out.Identity))
	// Success 与 Output 一起承诺
	line := types.DigestOf([]byte(out.Line()))

	return publicFields{
		initialState: fieldOf(out.InitialState[:]),
		nextState:    fieldOf(out.NextState[:]),
		txHash:       fieldOf(out.TxHash[:]),
		index:        index,
		identity:     fieldOf(identity[:]),
		blobs:        fieldOf(out.BlobsDigest[:]),
		output:       fieldOf(line[:]),
	}
}

// computeSeal 电路外计算 Seal，与电路内 MiMC 一致
func computeSeal(p publicFields, commitment fr.Element) (fr.Element, error) {
	h := nativemimc.NewMiMC()
	for _, e := range []fr.Element{
		p.initialState, p.nextState, p.txHash, p.index,
		p.identity, p.blobs, p.output, commitment,
	} {
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return fr.Element{}, err
		}
	}
	var seal fr.Element
	seal.SetBytes(h.Sum(nil))
	return seal, nil
}

// fullAssignment 证明用的完整赋值
func fullAssignment(out *types.ProgramOutput, commitment types.StateDigest) (*TransitionCircuit, fr.Element, error) {
	p := publicFieldsOf(out)
	c := fieldOf(commitment[:])
	seal, err := computeSeal(p, c)
	if err != nil {
		return nil, fr.Element{}, err
	}
	assignment := publicAssignment(p, seal)
	assignment.InputCommitment = toBig(c)
	return assignment, seal, nil
}

// publicAssignment 验证用的公开赋值
func publicAssignment(p publicFields, seal fr.Element) *TransitionCircuit {
	return &TransitionCircuit{
		InitialState: toBig(p.initialState),
		NextState:    toBig(p.nextState),
		TxHash:       toBig(p.txHash),
		Index:        toBig(p.index),
		Identity:     toBig(p.identity),
		Blobs:        toBig(p.blobs),
		Output:       toBig(p.output),
		Seal:         toBig(seal),
	}
}
