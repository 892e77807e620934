// Package pipeline 客户端证明流水线
//
// 🔄 一次动作的完整生命周期：
//
//	fetch_state → send_blob → dry_run → prove → send_proof
//
// blob 交易哈希是整条流水线的锚点：执行输入、证明承诺与证明交易都绑定到它。
// 任一阶段失败都以 *types.StageError 返回，携带阶段名、合约名与已知的交易哈希。
package pipeline

import (
	"context"
	"fmt"
	"time"

	guestcontract "github.com/weisyn/zkcontract/internal/core/contract"
	"github.com/weisyn/zkcontract/internal/core/guest"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/internal/core/txbuilder"
	"github.com/weisyn/zkcontract/internal/core/zkproof"
	"github.com/weisyn/zkcontract/pkg/interfaces/contract"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/zkcontract/pkg/interfaces/ledger"
	zkiface "github.com/weisyn/zkcontract/pkg/interfaces/zkproof"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Request 一次动作请求
type Request struct {
	// Program 完成可信设置的客体程序
	Program zkiface.Program
	// Contract 账本上的合约名，为空时取 Program.Guest()
	Contract types.ContractName
	// Identity 发起者身份
	Identity types.Identity
	// Blobs 动作列表，Index 指向本合约要执行的那个
	Blobs []types.Blob
	Index types.BlobIndex
	// PrivateInput 只进入证明环境，不上链
	PrivateInput []byte
}

// Receipt 流水线执行结果
type Receipt struct {
	BlobTxHash  types.TxHash
	ProofTxHash types.TxHash
	// DryRun 本地预执行的输出
	DryRun *types.ProgramOutput
	// Committed 证明承诺的输出
	Committed *types.ProgramOutput
}

// Hooks 阶段回调，供命令行输出进度，均可为 nil
type Hooks struct {
	OnBlobSent  func(hash types.TxHash)
	OnExecuted  func(out *types.ProgramOutput)
	OnProofSent func(hash types.TxHash)
}

// Pipeline 客户端流水线
type Pipeline struct {
	client   ledger.NodeClient
	backend  zkiface.Backend
	registry *guestcontract.Registry
	logger   log.Logger
	metrics  *metrics.Metrics
	hooks    Hooks
}

// New 创建流水线
func New(client ledger.NodeClient, backend zkiface.Backend, registry *guestcontract.Registry, logger log.Logger, m *metrics.Metrics) *Pipeline {
	return &Pipeline{
		client:   client,
		backend:  backend,
		registry: registry,
		logger:   logger,
		metrics:  m,
	}
}

// WithHooks 设置阶段回调
func (p *Pipeline) WithHooks(hooks Hooks) *Pipeline {
	p.hooks = hooks
	return p
}

// ============================================================================
//                              合约注册
// ============================================================================

// Register 以 initial 为初始状态在账本上注册合约
func (p *Pipeline) Register(ctx context.Context, name types.ContractName, program zkiface.Program, initial contract.Contract) (types.TxHash, error) {
	started := time.Now()
	fail := func(err error) (types.TxHash, error) {
		return types.TxHash{}, p.stageError(types.StageRegister, name, types.TxHash{}, err, started)
	}

	programID, err := program.ID()
	if err != nil {
		return fail(err)
	}
	req, err := txbuilder.BuildRegistration(zkproof.VerifierID, programID, initial, name)
	if err != nil {
		return fail(err)
	}
	hash, err := p.client.RegisterContract(ctx, req)
	if err != nil {
		return fail(remoteError(err))
	}

	p.observe(types.StageRegister, name, started)
	p.logger.Infof("✅ 合约已注册: name=%s program=%s digest=%s tx=%s", name, programID.Hash(), req.StateDigest, hash)
	return hash, nil
}

// ============================================================================
//                              动作流水线
// ============================================================================

// Run 执行一次完整的动作流水线
func (p *Pipeline) Run(ctx context.Context, req Request) (*Receipt, error) {
	if req.Program == nil {
		return nil, fmt.Errorf("%w: no program", types.ErrInvalidTransaction)
	}
	name := req.Contract
	if name == "" {
		name = req.Program.Guest()
	}
	decode, err := p.registry.Lookup(req.Program.Guest())
	if err != nil {
		return nil, err
	}
	receipt := &Receipt{}

	// 1. 读取当前状态
	started := time.Now()
	record, state, err := p.fetchState(ctx, name, decode)
	if err != nil {
		return nil, p.stageError(types.StageFetchState, name, types.TxHash{}, err, started)
	}
	p.observe(types.StageFetchState, name, started)

	// 2. 提交 blob 交易
	started = time.Now()
	if err := checkTarget(name, req.Blobs, req.Index); err != nil {
		return nil, p.stageError(types.StageSendBlob, name, types.TxHash{}, err, started)
	}
	blobTx, err := txbuilder.BuildBlobTransaction(req.Identity, req.Blobs)
	if err != nil {
		return nil, p.stageError(types.StageSendBlob, name, types.TxHash{}, err, started)
	}
	receipt.BlobTxHash, err = p.client.SendBlobTransaction(ctx, blobTx)
	if err != nil {
		return nil, p.stageError(types.StageSendBlob, name, types.TxHash{}, remoteError(err), started)
	}
	p.observe(types.StageSendBlob, name, started)
	p.logger.Infof("✅ Blob tx sent. Tx hash: %s", receipt.BlobTxHash)
	if p.hooks.OnBlobSent != nil {
		p.hooks.OnBlobSent(receipt.BlobTxHash)
	}

	// 3. 本地预执行
	started = time.Now()
	input, err := txbuilder.BuildContractInput(state, req.Identity, receipt.BlobTxHash, blobTx.Blobs, req.Index, req.PrivateInput)
	if err != nil {
		return nil, p.stageError(types.StageDryRun, name, receipt.BlobTxHash, err, started)
	}
	receipt.DryRun, err = guest.Execute(guest.Program{Contract: name, Decode: decode}, input)
	if err != nil {
		return nil, p.stageError(types.StageDryRun, name, receipt.BlobTxHash, err, started)
	}
	p.observe(types.StageDryRun, name, started)
	p.logger.Infof("🚀 Executed: %s", receipt.DryRun.Line())
	if p.hooks.OnExecuted != nil {
		p.hooks.OnExecuted(receipt.DryRun)
	}

	// 4. 生成证明
	started = time.Now()
	proof, committed, err := p.backend.Prove(ctx, req.Program, input)
	if err != nil {
		return nil, p.stageError(types.StageProve, name, receipt.BlobTxHash, err, started)
	}
	receipt.Committed = committed
	p.observe(types.StageProve, name, started)
	p.logger.Debugf("证明已生成: size=%d 耗时=%v", len(proof), time.Since(started))

	// 5. 提交证明交易
	started = time.Now()
	proofTx, err := txbuilder.BuildProofTransaction(proof, committed, name, record.StateDigest)
	if err != nil {
		return nil, p.stageError(types.StageSendProof, name, receipt.BlobTxHash, err, started)
	}
	receipt.ProofTxHash, err = p.client.SendProofTransaction(ctx, proofTx)
	if err != nil {
		return nil, p.stageError(types.StageSendProof, name, receipt.BlobTxHash, remoteError(err), started)
	}
	p.observe(types.StageSendProof, name, started)
	p.logger.Infof("✅ Proof tx sent. Tx hash: %s", receipt.ProofTxHash)
	if p.hooks.OnProofSent != nil {
		p.hooks.OnProofSent(receipt.ProofTxHash)
	}
	return receipt, nil
}

// fetchState 读取注册记录并解码状态，状态字节必须与记录的摘要一致
func (p *Pipeline) fetchState(ctx context.Context, name types.ContractName, decode contract.Decoder) (*types.ContractRecord, contract.Contract, error) {
	record, err := p.client.GetContract(ctx, name)
	if err != nil {
		return nil, nil, remoteError(err)
	}
	state, err := decode(record.State)
	if err != nil {
		return nil, nil, err
	}
	digest, err := state.Digest()
	if err != nil {
		return nil, nil, err
	}
	if digest != record.StateDigest {
		return nil, nil, fmt.Errorf("%w: ledger state bytes do not match recorded digest", types.ErrStateDigestMismatch)
	}
	return record, state, nil
}

// checkTarget 发送 blob 之前确认 Index 指向发给本合约的 blob，避免留下无法结算的交易
func checkTarget(name types.ContractName, blobs []types.Blob, index types.BlobIndex) error {
	if int(index) >= len(blobs) {
		return fmt.Errorf("%w: index=%d, blobs=%d", types.ErrBlobIndexOutOfRange, index, len(blobs))
	}
	if blobs[index].ContractName != name {
		return fmt.Errorf("%w: blob for %s, ledger contract %s", types.ErrWrongContract, blobs[index].ContractName, name)
	}
	return nil
}

// remoteError 把节点调用的错误归类
//
// 节点明确归类的错误保持原样，其余都视为传输失败。
func remoteError(err error) error {
	if types.ErrorKind(err) != "" {
		return err
	}
	return fmt.Errorf("%w: %w", types.ErrTransport, err)
}

func (p *Pipeline) stageError(stage types.Stage, name types.ContractName, hash types.TxHash, err error, started time.Time) error {
	kind := types.ErrorKind(err)
	if kind == "" {
		kind = "unknown"
	}
	p.metrics.ObserveStage(string(stage), string(name), kind, started)
	p.logger.Errorf("❌ 阶段失败: stage=%s contract=%s err=%v", stage, name, err)
	return &types.StageError{Stage: stage, Contract: name, TxHash: hash, Err: err}
}

func (p *Pipeline) observe(stage types.Stage, name types.ContractName, started time.Time) {
	p.metrics.ObserveStage(string(stage), string(name), "", started)
}
