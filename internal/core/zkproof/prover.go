package zkproof

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/frontend"
	"github.com/pbnjay/memory"

	proverconfig "github.com/weisyn/zkcontract/internal/config/prover"
	"github.com/weisyn/zkcontract/internal/core/codec"
	guestcontract "github.com/weisyn/zkcontract/internal/core/contract"
	"github.com/weisyn/zkcontract/internal/core/guest"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	zkiface "github.com/weisyn/zkcontract/pkg/interfaces/zkproof"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Prover 证明生成器
//
// 🎯 在密封环境中运行客体程序，再对其输出记录生成 Groth16 证明。
// 并发证明数由信号量限制，等待和证明过程中都响应 ctx 取消。
type Prover struct {
	logger   log.Logger
	options  *proverconfig.ProverOptions
	registry *guestcontract.Registry
	metrics  *metrics.Metrics

	slots      chan struct{}
	freeMemory func() uint64
}

// NewProver 创建证明生成器
func NewProver(logger log.Logger, options *proverconfig.ProverOptions, registry *guestcontract.Registry, m *metrics.Metrics) *Prover {
	if options == nil {
		options = proverconfig.Default()
	}
	n := options.MaxConcurrentProofs
	if n <= 0 {
		n = 1
	}
	return &Prover{
		logger:     logger,
		options:    options,
		registry:   registry,
		metrics:    m,
		slots:      make(chan struct{}, n),
		freeMemory: memory.FreeMemory,
	}
}

// Prove 执行客体程序并生成证明
func (p *Prover) Prove(ctx context.Context, program zkiface.Program, input *types.ContractInput) (types.ProofData, *types.ProgramOutput, error) {
	prog, ok := program.(*Program)
	if !ok || prog == nil {
		return nil, nil, fmt.Errorf("%w: %T", ErrUnknownProgram, program)
	}
	if !prog.CanProve() {
		return nil, nil, fmt.Errorf("%w: guest=%s", ErrNoProvingKey, prog.guest)
	}
	if err := p.checkMemory(); err != nil {
		return nil, nil, err
	}

	decoder, err := p.registry.Lookup(prog.guest)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrProving, err)
	}
	// 同一客体程序可以部署为不同的账本合约名，执行时以 blob 指向的合约名为准
	blob, err := input.Blob()
	if err != nil {
		return nil, nil, WrapGuestRejectedError(prog.guest, err)
	}
	out, err := guest.RunSealed(guest.Program{Contract: blob.ContractName, Decode: decoder}, input)
	if err != nil {
		return nil, nil, WrapGuestRejectedError(prog.guest, err)
	}

	commitment, err := codec.InputCommitment(input)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrProving, err)
	}
	assignment, seal, err := fullAssignment(out, commitment)
	if err != nil {
		return nil, nil, WrapProofGenerationFailedError(prog.guest, err)
	}
	fullWitness, err := frontend.NewWitness(assignment, curveID.ScalarField())
	if err != nil {
		return nil, nil, WrapProofGenerationFailedError(prog.guest, err)
	}

	if p.options.ProofTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.options.ProofTimeout)
		defer cancel()
	}

	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("%w: %w", types.ErrProving, err)
	}
	// 等待证明槽位
	select {
	case p.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, nil, fmt.Errorf("%w: waiting for proof slot: %w", types.ErrProving, ctx.Err())
	}

	started := time.Now()
	p.logger.Debugf("开始生成证明: guest=%s tx=%s index=%d", prog.guest, input.TxHash, input.Index)

	type proveResult struct {
		proof groth16.Proof
		err   error
	}
	done := make(chan proveResult, 1)
	// 取消后协程继续占用槽位，直到证明真正结束
	go func() {
		defer func() { <-p.slots }()
		quietGnark()
		proof, err := groth16.Prove(prog.ccs, prog.pk, fullWitness)
		done <- proveResult{proof: proof, err: err}
	}()

	var res proveResult
	select {
	case res = <-done:
	case <-ctx.Done():
		p.logger.Warnf("证明被取消: guest=%s tx=%s: %v", prog.guest, input.TxHash, ctx.Err())
		return nil, nil, fmt.Errorf("%w: %w", types.ErrProving, ctx.Err())
	}
	if res.err != nil {
		return nil, nil, WrapProofGenerationFailedError(prog.guest, res.err)
	}

	var proofBuf bytes.Buffer
	if _, err := res.proof.WriteTo(&proofBuf); err != nil {
		return nil, nil, WrapProofGenerationFailedError(prog.guest, err)
	}
	id, err := prog.ID()
	if err != nil {
		return nil, nil, err
	}
	encodedOut, err := codec.EncodeOutput(out)
	if err != nil {
		return nil, nil, err
	}
	sealBytes := seal.Bytes()
	data, err := encodeArtifact(&proofArtifact{
		Version:       artifactVersion,
		ProgramIDHash: id.Hash(),
		Output:        encodedOut,
		Seal:          sealBytes[:],
		Proof:         proofBuf.Bytes(),
	})
	if err != nil {
		return nil, nil, err
	}

	p.metrics.ObserveProof(started)
	p.logger.Infof("证明生成完成: guest=%s 耗时=%v 大小=%d字节", prog.guest, time.Since(started), len(data))
	return data, out, nil
}

// checkMemory 空闲内存低于阈值时快速失败
func (p *Prover) checkMemory() error {
	if p.options.MinFreeMemoryMB == 0 || p.freeMemory == nil {
		return nil
	}
	free := p.freeMemory()
	// 0 表示平台不支持查询
	if free == 0 {
		return nil
	}
	need := p.options.MinFreeMemoryMB << 20
	if free < need {
		return fmt.Errorf("%w: free=%dMB, need=%dMB", types.ErrResourceExhausted, free>>20, p.options.MinFreeMemoryMB)
	}
	return nil
}
