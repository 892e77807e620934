package main

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/weisyn/zkcontract/internal/core/zkproof"
)

var exportOut string

// exportCmd 导出只含验证密钥的程序产物
var exportCmd = &cobra.Command{
	Use:   "export-verifier",
	Short: "导出只含验证密钥的程序产物",
	Long: `把 --artifact 指向的程序产物去掉证明密钥后写入 --out。

验证产物可以用于 register-contract 和核对程序标识，不能生成证明。
证明密钥持有者可以为任意状态转换生成被接受的证明，完整产物只应留在受信任的证明方。`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cmdEnv.artifactPath(globalFlags)
		if !zkproof.ProgramExists(path) {
			return fmt.Errorf("程序产物 %s 不存在，请先执行 register-contract", path)
		}
		program, err := zkproof.LoadProgram(path)
		if err != nil {
			return err
		}
		out := exportOut
		if out == "" {
			out = path + ".vk"
		}
		if err := zkproof.SaveVerifier(out, program); err != nil {
			return err
		}
		id, err := program.ID()
		if err != nil {
			return err
		}
		pterm.Success.Println("验证产物已写入", out, "program", id.Hash().Hex())
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "", "输出路径 (默认 <artifact>.vk)")
}
