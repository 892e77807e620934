// Package app 账本节点应用的装配与启动
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	config "github.com/weisyn/zkcontract/internal/config"
	"github.com/weisyn/zkcontract/internal/core/node"
	"github.com/weisyn/zkcontract/pkg/types"
)

// App 账本节点应用的对外接口
type App interface {
	// Stop 停止应用
	Stop() error

	// Wait 阻塞直到收到退出信号，然后停止应用
	Wait()

	// Service 进程内账本服务
	Service() *node.Service
}

// internalApp 应用的内部实现
type internalApp struct {
	bootstrap *Bootstrap
}

// Stop 停止应用
// 给数据库留足同步和关闭的时间
func (a *internalApp) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()
	return a.bootstrap.StopApp(ctx)
}

// Wait 等待应用收到退出信号
func (a *internalApp) Wait() {
	fmt.Println("🔄 节点正在运行，按 Ctrl+C 停止...")
	sig := WaitForSignal()
	fmt.Printf("\n🛑 收到信号 %v，正在优雅退出...\n", sig)
	if err := a.Stop(); err != nil {
		fmt.Printf("⚠️ 停止应用时出错: %v\n", err)
	}
}

// Service 进程内账本服务
func (a *internalApp) Service() *node.Service {
	return a.bootstrap.service
}

// Start 加载配置、装配模块并启动节点
func Start(appOptions ...Option) (App, error) {
	opts := newOptions(appOptions...)
	if opts.appConfig == nil {
		appConfig, err := config.LoadAppConfig(configFilePath(opts.configFilePath))
		if err != nil {
			return nil, err
		}
		opts.appConfig = appConfig
	}
	if err := createDataDirectories(opts.appConfig); err != nil {
		return nil, err
	}

	bootstrap := NewBootstrap(opts)
	if err := bootstrap.CreateFxApp(); err != nil {
		return nil, fmt.Errorf("创建应用失败: %w", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := bootstrap.StartApp(startupCtx); err != nil {
		return nil, err
	}
	return &internalApp{bootstrap: bootstrap}, nil
}

// configFilePath 环境变量 ZKC_CONFIG_PATH 优先于命令行给出的路径
func configFilePath(path string) string {
	if envPath := os.Getenv("ZKC_CONFIG_PATH"); envPath != "" {
		return envPath
	}
	return path
}

// createDataDirectories 根据配置创建数据目录和日志目录
func createDataDirectories(appConfig *types.AppConfig) error {
	var directories []string
	if appConfig.DataDir != nil {
		directories = append(directories, *appConfig.DataDir)
	}
	if appConfig.Storage != nil && appConfig.Storage.DataRoot != nil {
		directories = append(directories, *appConfig.Storage.DataRoot)
	}
	if appConfig.Log != nil && appConfig.Log.FilePath != nil {
		directories = append(directories, filepath.Dir(*appConfig.Log.FilePath))
	}

	for _, dir := range directories {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("创建目录 %s 失败: %w", dir, err)
		}
	}
	return nil
}

// WaitForSignal 等待退出信号
func WaitForSignal() os.Signal {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	return <-signals
}
