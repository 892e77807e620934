package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/weisyn/zkcontract/client/core/transport"
	"github.com/weisyn/zkcontract/contracts/counter"
	"github.com/weisyn/zkcontract/internal/app/version"
	config "github.com/weisyn/zkcontract/internal/config"
	logconfig "github.com/weisyn/zkcontract/internal/config/log"
	guestcontract "github.com/weisyn/zkcontract/internal/core/contract"
	logimpl "github.com/weisyn/zkcontract/internal/core/infrastructure/log"
	"github.com/weisyn/zkcontract/internal/core/infrastructure/metrics"
	"github.com/weisyn/zkcontract/internal/core/pipeline"
	"github.com/weisyn/zkcontract/internal/core/zkproof"
	configiface "github.com/weisyn/zkcontract/pkg/interfaces/config"
	"github.com/weisyn/zkcontract/pkg/interfaces/infrastructure/log"
	"github.com/weisyn/zkcontract/pkg/types"
)

// guestName 本命令行驱动的客体程序
const guestName types.ContractName = "counter"

// GlobalFlags 全局标志
type GlobalFlags struct {
	Username     string // 发起者用户名
	Host         string // 节点地址
	ContractName string // 账本上的合约名
	Artifact     string // 程序产物路径
	ConfigPath   string // 配置文件路径
	Verbose      bool   // 详细日志
}

var globalFlags GlobalFlags

// env 命令运行环境，在 PersistentPreRunE 中组装
type env struct {
	provider configiface.Provider
	logger   log.Logger
	client   *transport.RESTClient
	manager  *zkproof.Manager
	pipeline *pipeline.Pipeline
	metrics  *metrics.Metrics
}

var cmdEnv *env

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "counter",
	Short: "可证明计数器合约的命令行客户端",
	Long: `counter - 驱动可证明计数器合约

每次递增都会先把动作作为 blob 交易发给账本节点，
在本地执行合约并生成零知识证明，再提交证明交易结算。`,
	Version:       version.GetVersion(),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			pterm.DisableStyling()
		}
		e, err := newEnv(globalFlags)
		if err != nil {
			return err
		}
		cmdEnv = e
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cmdEnv != nil {
			_ = cmdEnv.logger.Sync()
		}
	},
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(describeError(err))
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&globalFlags.Username, "username", "bob", "发起者用户名，身份为 <username>.<contract-name>")
	flags.StringVar(&globalFlags.Host, "host", "", "账本节点地址 (默认取配置 client.host，即 http://localhost:4321)")
	flags.StringVar(&globalFlags.ContractName, "contract-name", "counter", "账本上的合约名")
	flags.StringVar(&globalFlags.Artifact, "artifact", "", "程序产物路径 (默认 <prover.artifact_dir>/<contract-name>.program)")
	flags.StringVar(&globalFlags.ConfigPath, "config", "", "配置文件路径")
	flags.BoolVarP(&globalFlags.Verbose, "verbose", "v", false, "输出流水线日志")

	rootCmd.AddCommand(registerCmd)
	rootCmd.AddCommand(incrementCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(exportCmd)
}

// newEnv 按配置与命令行标志组装客户端、证明器和流水线
func newEnv(flags GlobalFlags) (*env, error) {
	appConfig, err := config.LoadAppConfig(flags.ConfigPath)
	if err != nil {
		return nil, err
	}
	// 命令行默认只输出结果行
	if appConfig.Log == nil {
		appConfig.Log = &types.UserLogConfig{}
	}
	if appConfig.Log.Level == nil {
		level := "warn"
		if flags.Verbose {
			level = "info"
		}
		appConfig.Log.Level = &level
	}
	provider := config.NewProvider(appConfig)

	baseLogger, err := logimpl.New(logconfig.New(appConfig.Log))
	if err != nil {
		return nil, fmt.Errorf("创建日志记录器失败: %w", err)
	}

	clientOptions := provider.GetClient()
	host := flags.Host
	if host == "" {
		host = clientOptions.Host
	}

	registry := guestcontract.NewRegistry()
	if err := registry.Register(guestName, counter.Decode); err != nil {
		return nil, err
	}

	m := metrics.New()
	manager := zkproof.NewManager(logimpl.NewModuleLogger(baseLogger, "prover"), provider.GetProver(), registry, m)
	client := transport.NewRESTClient(host, clientOptions.Timeout)
	return &env{
		provider: provider,
		logger:   baseLogger,
		client:   client,
		manager:  manager,
		pipeline: pipeline.New(client, manager, registry, logimpl.NewModuleLogger(baseLogger, "pipeline"), m),
		metrics:  m,
	}, nil
}

// artifactPath 程序产物路径
func (e *env) artifactPath(flags GlobalFlags) string {
	if flags.Artifact != "" {
		return flags.Artifact
	}
	return filepath.Join(e.provider.GetProver().ArtifactDir, flags.ContractName+".program")
}

// describeError 带上阶段上下文
func describeError(err error) string {
	var stageErr *types.StageError
	if errors.As(err, &stageErr) {
		msg := fmt.Sprintf("%s 阶段失败: %v", stageErr.Stage, stageErr.Err)
		if !stageErr.TxHash.IsZero() {
			msg += fmt.Sprintf(" (tx %s)", stageErr.TxHash.Hex())
		}
		if kind := types.ErrorKind(err); kind != "" {
			msg += fmt.Sprintf(" [%s]", kind)
		}
		return msg
	}
	return err.Error()
}
