// zkc-node 账本节点
//
// 保存合约注册记录与 blob 交易，验证证明并结算状态转换，
// 通过 HTTP API 对外提供服务。
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/weisyn/zkcontract/configs"
	"github.com/weisyn/zkcontract/internal/app"
	"github.com/weisyn/zkcontract/internal/app/version"
	config "github.com/weisyn/zkcontract/internal/config"
	"github.com/weisyn/zkcontract/pkg/types"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "\n❌ [PANIC] 程序发生严重错误: %v\n", r)
			os.Exit(1)
		}
	}()

	var (
		configPath  string
		dataDir     string
		port        int
		showVersion bool
	)
	flag.StringVar(&configPath, "config", "", "配置文件路径（不指定时使用内嵌的 configs/node.json）")
	flag.StringVar(&dataDir, "data-dir", "", "数据目录（覆盖配置文件中的 data_dir）")
	flag.IntVar(&port, "port", 0, "HTTP端口（覆盖配置文件中的 api.port）")
	flag.BoolVar(&showVersion, "version", false, "显示版本信息")
	flag.Parse()

	if showVersion {
		fmt.Println(version.GetFullVersion())
		return
	}

	var (
		appConfig *types.AppConfig
		err       error
	)
	if configPath == "" {
		appConfig, err = config.ParseAppConfig(configs.GetNodeConfig())
	} else {
		appConfig, err = config.LoadAppConfig(configPath)
	}
	if err != nil {
		fmt.Printf("❌ 加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if dataDir != "" {
		appConfig.DataDir = &dataDir
	}
	if port != 0 {
		if appConfig.API == nil {
			appConfig.API = &types.UserAPIConfig{}
		}
		appConfig.API.Port = &port
	}

	provider := config.NewProvider(appConfig)
	fmt.Printf("🚀 正在启动 zkc-node %s\n", version.GetVersion())
	fmt.Printf("   监听地址: %s\n", provider.GetAPI().Address())
	fmt.Printf("   重复注册策略: %s\n", provider.GetNode().RegistrationPolicy)

	application, err := app.Start(app.WithAppConfig(appConfig))
	if err != nil {
		fmt.Printf("❌ 启动失败: %v\n", err)
		os.Exit(1)
	}
	application.Wait()
}
