package guest

import (
	"fmt"

	"github.com/weisyn/zkcontract/internal/core/codec"
	"github.com/weisyn/zkcontract/pkg/interfaces/contract"
	"github.com/weisyn/zkcontract/pkg/types"
)

// Program 在执行环境中运行的客体程序
type Program struct {
	// Contract 程序服务的合约名，只接受发给它的 blob
	Contract types.ContractName
	// Decode 状态解码器
	Decode contract.Decoder
}

// Execute 执行一次状态转换并构造输出记录
//
// 任何失败都返回错误，不产生输出记录。
func Execute(program Program, input *types.ContractInput) (*types.ProgramOutput, error) {
	if program.Decode == nil {
		return nil, fmt.Errorf("%w: guest %s has no decoder", types.ErrExecution, program.Contract)
	}
	blob, err := input.Blob()
	if err != nil {
		return nil, err
	}
	if blob.ContractName != program.Contract {
		return nil, fmt.Errorf("%w: blob for %s, program for %s", types.ErrWrongContract, blob.ContractName, program.Contract)
	}

	state, err := program.Decode(input.State)
	if err != nil {
		return nil, err
	}
	initial, err := state.Digest()
	if err != nil {
		return nil, err
	}

	res, err := state.Execute(input)
	if err != nil {
		return nil, err
	}
	if res == nil || res.NewState == nil {
		return nil, fmt.Errorf("%w: contract returned no state", types.ErrExecution)
	}

	nextData, err := res.NewState.Encode()
	if err != nil {
		return nil, err
	}
	next, err := res.NewState.Digest()
	if err != nil {
		return nil, err
	}
	// 摘要必须就是规范编码的摘要，账本据此校验 NextStateData
	if next != codec.Digest(nextData) {
		return nil, fmt.Errorf("%w: digest does not match encoded state", types.ErrCodec)
	}

	return &types.ProgramOutput{
		InitialState:  initial,
		NextState:     next,
		NextStateData: nextData,
		Identity:      input.Identity,
		TxHash:        input.TxHash,
		Index:         input.Index,
		BlobsDigest:   codec.BlobsDigest(input.Blobs),
		Success:       true,
		Output:        res.Output,
	}, nil
}

// Run 客体入口：读取输入、执行、提交编码后的输出记录
func Run(env Env, program Program) error {
	raw, err := env.Read()
	if err != nil {
		return err
	}
	input, err := codec.DecodeInput(raw)
	if err != nil {
		return err
	}
	out, err := Execute(program, input)
	if err != nil {
		return err
	}
	enc, err := codec.EncodeOutput(out)
	if err != nil {
		return err
	}
	return env.Commit(enc)
}

// RunSealed 在新的密封环境中运行并返回输出记录
func RunSealed(program Program, input *types.ContractInput) (*types.ProgramOutput, error) {
	raw, err := codec.EncodeInput(input)
	if err != nil {
		return nil, err
	}
	env := NewSealedEnv(raw)
	if err := Run(env, program); err != nil {
		return nil, err
	}
	committed, ok := env.Committed()
	if !ok {
		return nil, fmt.Errorf("%w: guest committed nothing", types.ErrExecution)
	}
	return codec.DecodeOutput(committed)
}
