package log

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logconfig "github.com/weisyn/zkcontract/internal/config/log"
)

// captureStdout 捕获标准输出
func captureStdout(t *testing.T, f func()) string {
	t.Helper()
	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	f()

	require.NoError(t, w.Close())
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// TestConsoleLog 控制台输出包含级别与消息
func TestConsoleLog(t *testing.T) {
	output := captureStdout(t, func() {
		logger, err := New(logconfig.New(&logconfig.LogOptions{Level: InfoLevel, ToConsole: true}))
		require.NoError(t, err)
		logger.Info("测试控制台日志")
		logger.Debug("不应出现的调试日志")
		_ = logger.Sync()
	})

	assert.Contains(t, output, "测试控制台日志")
	assert.Contains(t, output, "INFO")
	assert.NotContains(t, output, "不应出现的调试日志")
}

// TestFileLog 文件输出为 JSON，并带上结构化字段
func TestFileLog(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "node.log")

	logger, err := New(logconfig.New(&logconfig.LogOptions{
		Level:      DebugLevel,
		FilePath:   logPath,
		ToConsole:  false,
		MaxSize:    1,
		MaxBackups: 1,
		MaxAge:     1,
	}))
	require.NoError(t, err)

	NewModuleLogger(logger, "pipeline").With("stage", "prove").Warnf("证明耗时 %dms", 12)
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"module":"pipeline"`)
	assert.Contains(t, string(content), `"stage":"prove"`)
	assert.Contains(t, string(content), "证明耗时 12ms")
	assert.Contains(t, string(content), `"level":"warn"`)
}

// TestSetLogger 设置和切换全局日志记录器
func TestSetLogger(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	logger1 := NewNop()
	logger2 := NewNop()

	SetLogger(logger1)
	assert.Same(t, logger1, GetLogger())

	SetLogger(logger2)
	assert.Same(t, logger2, GetLogger())

	// nil 不会覆盖当前记录器
	SetLogger(nil)
	assert.Same(t, logger2, GetLogger())
}

// TestResetDefault 重置为默认配置
func TestResetDefault(t *testing.T) {
	original := GetLogger()
	defer SetLogger(original)

	custom := NewNop()
	SetLogger(custom)
	ResetDefault()

	assert.NotSame(t, custom, GetLogger())
}

// TestNewModuleLoggerNil 基础 logger 为空时返回空
func TestNewModuleLoggerNil(t *testing.T) {
	assert.Nil(t, NewModuleLogger(nil, "api"))
	assert.NotNil(t, NewModuleZapLogger(NewNop().GetZapLogger(), "api"))
}
