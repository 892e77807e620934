package main

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/zkcontract/contracts/counter"
	"github.com/weisyn/zkcontract/pkg/types"
)

// registerCmd 注册合约
var registerCmd = &cobra.Command{
	Use:   "register-contract",
	Short: "注册计数器合约，初始状态为空",
	Long: `读取 --artifact 指向的程序产物并以空计数器注册合约。

产物不存在时先做可信设置并写入该路径，之后的证明都要使用同一个产物。
注册只需要验证密钥，--artifact 也可以指向 export-verifier 导出的验证产物。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		path := cmdEnv.artifactPath(globalFlags)

		spinner, _ := pterm.DefaultSpinner.Start("加载程序产物 ", path)
		program, created, err := cmdEnv.manager.LoadOrSetup(ctx, guestName, path)
		if err != nil {
			_ = spinner.Stop()
			return err
		}
		if created {
			spinner.Success("可信设置完成，产物已写入 ", path)
		} else {
			spinner.Success("已加载程序产物 ", path)
		}

		hash, err := cmdEnv.pipeline.Register(ctx, types.ContractName(globalFlags.ContractName), program, counter.New())
		if err != nil {
			return err
		}
		pterm.Println("✅ Register contract tx sent. Tx hash:", hash.Hex())
		return nil
	},
}
