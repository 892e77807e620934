package api

import (
	"go.uber.org/fx"

	"github.com/weisyn/zkcontract/internal/api/http"
)

// Module 返回API模块
// 依赖的账本服务、事件总线与指标由其他模块提供
func Module() fx.Option {
	return fx.Module("api",
		http.Module(),

		// 显式引用，确保HTTP服务器被构造并挂上生命周期
		fx.Invoke(func(*http.Server) {}),
	)
}
