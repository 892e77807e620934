package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/zkcontract/client/core/transport"
	"github.com/weisyn/zkcontract/internal/core/node"
	"github.com/weisyn/zkcontract/pkg/types"
)

var watchAll bool

// watchCmd 订阅节点事件
var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "订阅节点的注册与结算事件，Ctrl+C 退出",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		contract := types.ContractName(globalFlags.ContractName)
		if watchAll {
			contract = ""
		}
		stream, err := transport.DialEvents(cmd.Context(), cmdEnv.client.BaseURL(), contract)
		if err != nil {
			return err
		}
		defer stream.Close()

		signals := make(chan os.Signal, 1)
		signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(signals)

		pterm.Info.Println("已订阅节点事件")
		for {
			select {
			case ev, ok := <-stream.Events():
				if !ok {
					return <-stream.Err()
				}
				printEvent(ev)
			case <-signals:
				return nil
			}
		}
	},
}

func init() {
	watchCmd.Flags().BoolVar(&watchAll, "all", false, "接收所有合约的事件")
}

func printEvent(ev *node.LedgerEvent) {
	ts := ev.Timestamp.Format("15:04:05")
	switch ev.Type {
	case node.EventContractRegistered:
		pterm.Info.Printfln("%s 📝 %s 已注册 digest=%s", ts, ev.Contract, ev.StateDigest.Hex())
	case node.EventProofSettled:
		pterm.Success.Printfln("%s %s 结算 tx=%s %s", ts, ev.Contract, ev.TxHash.Hex(), ev.Output)
	case node.EventProofRejected:
		pterm.Warning.Printfln("%s %s 拒绝 tx=%s [%s] %s", ts, ev.Contract, ev.TxHash.Hex(), ev.Kind, ev.Error)
	}
}
