package main

import (
	"fmt"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/zkcontract/contracts/counter"
	"github.com/weisyn/zkcontract/internal/core/pipeline"
	"github.com/weisyn/zkcontract/internal/core/zkproof"
	"github.com/weisyn/zkcontract/pkg/types"
)

// incrementCmd 递增计数
var incrementCmd = &cobra.Command{
	Use:   "increment",
	Short: "递增 --username 的计数并提交证明",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := cmdEnv.artifactPath(globalFlags)
		if !zkproof.ProgramExists(path) {
			return fmt.Errorf("程序产物 %s 不存在，请先执行 register-contract", path)
		}
		program, err := zkproof.LoadProgram(path)
		if err != nil {
			return err
		}
		if !program.CanProve() {
			return fmt.Errorf("程序产物 %s 只含验证密钥，不能生成证明", path)
		}

		contractName := types.ContractName(globalFlags.ContractName)
		// nonce 区分同一用户的重复递增，否则两次递增的 blob 交易哈希相同
		blob, err := counter.Increment().WithNonce(uint64(time.Now().UnixNano())).AsBlob(contractName)
		if err != nil {
			return err
		}

		var spinner *pterm.SpinnerPrinter
		stopSpinner := func() {
			if spinner != nil {
				_ = spinner.Stop()
				spinner = nil
			}
		}
		p := cmdEnv.pipeline.WithHooks(pipeline.Hooks{
			OnBlobSent: func(hash types.TxHash) {
				pterm.Println("✅ Blob tx sent. Tx hash:", hash.Hex())
			},
			OnExecuted: func(out *types.ProgramOutput) {
				pterm.Println("🚀 Executed:", out.Line())
				spinner, _ = pterm.DefaultSpinner.Start("生成证明...")
			},
			OnProofSent: func(hash types.TxHash) {
				stopSpinner()
				pterm.Println("✅ Proof tx sent. Tx hash:", hash.Hex())
			},
		})

		receipt, err := p.Run(ctx, pipeline.Request{
			Program:  program,
			Contract: contractName,
			Identity: types.NewIdentity(globalFlags.Username, contractName),
			Blobs:    []types.Blob{blob},
		})
		stopSpinner()
		if err != nil {
			return err
		}
		pterm.Success.Println("结算完成:", receipt.Committed.NextState.Hex())
		return nil
	},
}
