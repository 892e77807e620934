package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/zkcontract/contracts/counter"
	"github.com/weisyn/zkcontract/pkg/types"
)

// stateCmd 查询合约状态
var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "查询账本上的合约记录与 --username 的计数",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		record, err := cmdEnv.client.GetContract(cmd.Context(), types.ContractName(globalFlags.ContractName))
		if err != nil {
			return err
		}
		state, err := counter.DecodeCounter(record.State)
		if err != nil {
			return err
		}

		pterm.DefaultSection.Println("合约", record.Name)
		return pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
			{"字段", "值"},
			{"verifier", record.Verifier},
			{"program", record.ProgramID.Hash().Hex()},
			{"state_digest", record.StateDigest.Hex()},
			{"users", fmt.Sprintf("%d", state.Len())},
			{globalFlags.Username, fmt.Sprintf("%d", state.Get(globalFlags.Username))},
		}).Render()
	},
}
