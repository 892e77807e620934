package zkproof

import (
	"context"
	"fmt"

	proverconfig "github.com/weisyn/zkcontract/internal/config/prover"
	guestcontract "github.com/weisyn/zkcontract/internal/core/contract"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	zkiface "github.com/weisyn/zkcontract/pkg/interfaces/zkproof"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Manager 零知识证明管理器
//
// 🎯 薄实现：可信设置自己做，证明委托给 Prover，验证委托给 Validator。
type Manager struct {
	logger    log.Logger
	options   *proverconfig.ProverOptions
	registry  *guestcontract.Registry
	prover    *Prover
	validator *Validator
}

var _ zkiface.Backend = (*Manager)(nil)

// NewManager 创建零知识证明管理器
func NewManager(logger log.Logger, options *proverconfig.ProverOptions, registry *guestcontract.Registry, m *metrics.Metrics) *Manager {
	if options == nil {
		options = proverconfig.Default()
	}
	return &Manager{
		logger:    logger,
		options:   options,
		registry:  registry,
		prover:    NewProver(logger, options, registry, m),
		validator: NewValidator(logger, m),
	}
}

// Setup 为 guest 做可信设置，每次调用都得到新的程序标识
func (m *Manager) Setup(ctx context.Context, guest types.ContractName) (zkiface.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := m.registry.Lookup(guest); err != nil {
		return nil, fmt.Errorf("%w: %w", types.ErrProving, err)
	}
	m.logger.Infof("计算合约验证密钥: guest=%s scheme=%s curve=%s", guest, m.options.ProvingScheme, m.options.Curve)
	p, err := newProgram(guest)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// LoadOrSetup 读取 path 上的程序产物，不存在时做可信设置并写入 path
//
// 返回的 bool 表示是否新建了程序。
func (m *Manager) LoadOrSetup(ctx context.Context, guest types.ContractName, path string) (*Program, bool, error) {
	if ProgramExists(path) {
		p, err := LoadProgram(path)
		if err != nil {
			return nil, false, err
		}
		if p.guest != guest {
			return nil, false, fmt.Errorf("%w: artifact %s is for guest %s, want %s", types.ErrProgramIDMismatch, path, p.guest, guest)
		}
		m.logger.Infof("已加载程序产物: %s", path)
		return p, false, nil
	}

	prog, err := m.Setup(ctx, guest)
	if err != nil {
		return nil, false, err
	}
	p := prog.(*Program)
	if err := SaveProgram(path, p); err != nil {
		return nil, false, err
	}
	m.logger.Infof("程序产物已写入: %s", path)
	return p, true, nil
}

// Prove 见 Prover.Prove
func (m *Manager) Prove(ctx context.Context, program zkiface.Program, input *types.ContractInput) (types.ProofData, *types.ProgramOutput, error) {
	return m.prover.Prove(ctx, program, input)
}

// Verify 见 Validator.Verify
func (m *Manager) Verify(ctx context.Context, programID types.ProgramID, proof types.ProofData) (*types.ProgramOutput, error) {
	return m.validator.Verify(ctx, programID, proof)
}
