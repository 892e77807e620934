package zkproof

import (
	"io"
	"sync"

	gnarklogger "github.com/consensys/gnark/logger"
	"github.com/rs/zerolog"
)

var quietOnce sync.Once

// quietGnark 关闭 gnark 的 zerolog 调试输出
//
// gnark 编译/证明时会输出大量日志，污染节点日志。
// 全局 logger 在并发证明间共享，只设置一次，不再恢复。
func quietGnark() {
	quietOnce.Do(func() {
		gnarklogger.Set(zerolog.New(io.Discard).Level(zerolog.Disabled))
	})
}
