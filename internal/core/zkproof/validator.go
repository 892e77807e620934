package zkproof

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"

	"github.com/weisyn/zkcontract/internal/core/codec"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Validator 证明验证器
//
// 只依赖注册的程序标识，不需要证明密钥，账本节点单独使用它。
type Validator struct {
	logger  log.Logger
	metrics *metrics.Metrics
}

// NewValidator 创建验证器
func NewValidator(logger log.Logger, m *metrics.Metrics) *Validator {
	return &Validator{logger: logger, metrics: m}
}

// Verify 以 programID 校验证明，成功时返回证明承诺的输出记录
func (v *Validator) Verify(ctx context.Context, programID types.ProgramID, proof types.ProofData) (*types.ProgramOutput, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	startTime := time.Now()

	out, err := v.verify(programID, proof)
	v.metrics.ObserveVerify(err == nil)
	if err != nil {
		v.logger.Debugf("证明验证失败: %v", err)
		return nil, err
	}
	v.logger.Debugf("证明验证成功: tx=%s 耗时=%v", out.TxHash, time.Since(startTime))
	return out, nil
}

func (v *Validator) verify(programID types.ProgramID, proof types.ProofData) (*types.ProgramOutput, error) {
	// 1. 解析产物
	a, err := decodeArtifact(proof)
	if err != nil {
		return nil, err
	}

	// 2. 程序标识必须是注册的那个
	if a.ProgramIDHash != programID.Hash() {
		return nil, fmt.Errorf("%w: proof for %s, registered %s", types.ErrProgramIDMismatch, a.ProgramIDHash, programID.Hash())
	}
	vk, err := readVerifyingKey(programID)
	if err != nil {
		return nil, WrapInvalidProofError("registered program id is not a verifying key", err)
	}

	// 3. 输出记录
	out, err := codec.DecodeOutput(a.Output)
	if err != nil {
		return nil, WrapInvalidProofError("decode output", err)
	}
	if len(a.Seal) != fr.Bytes {
		return nil, WrapInvalidProofError(fmt.Sprintf("seal length %d", len(a.Seal)), nil)
	}
	var seal fr.Element
	if err := seal.SetBytesCanonical(a.Seal); err != nil {
		return nil, WrapInvalidProofError("seal", err)
	}

	// 4. 公开输入
	quietGnark()
	publicWitness, err := frontend.NewWitness(publicAssignment(publicFieldsOf(out), seal), curveID.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return nil, WrapInvalidProofError("public witness", err)
	}

	// 5. Groth16 校验
	groth16Proof := groth16.NewProof(curveID)
	if _, err := groth16Proof.ReadFrom(bytes.NewReader(a.Proof)); err != nil {
		return nil, WrapInvalidProofError("decode groth16 proof", err)
	}
	if err := groth16.Verify(groth16Proof, vk, publicWitness); err != nil {
		return nil, WrapInvalidProofError("groth16 verify", err)
	}
	return out, nil
}
