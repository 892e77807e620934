package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/zkcontract/configs"
	nodeconfig "github.com/weisyn/zkcontract/internal/config/node"
	"github.com/weisyn/zkcontract/pkg/types"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

// TestProviderDefaults 未配置时使用默认值
func TestProviderDefaults(t *testing.T) {
	provider := NewProvider(nil)

	assert.Equal(t, "info", provider.GetLog().Level)
	assert.Equal(t, "./data/badger", provider.GetBadger().Path)
	assert.Equal(t, nodeconfig.PolicyReject, provider.GetNode().RegistrationPolicy)
	assert.Equal(t, 4321, provider.GetAPI().Port)
	assert.Equal(t, "http://localhost:4321", provider.GetClient().Host)
	assert.Equal(t, 4, provider.GetProver().MaxConcurrentProofs)
	assert.Equal(t, 5*time.Minute, provider.GetProver().ProofTimeout)
}

// TestProviderOverrides 用户配置覆盖默认值
func TestProviderOverrides(t *testing.T) {
	provider := NewProvider(&types.AppConfig{
		DataDir: strPtr("/tmp/zk"),
		Log:     &types.UserLogConfig{Level: strPtr("debug")},
		Node:    &types.UserNodeConfig{RegistrationPolicy: strPtr("supersede")},
		API:     &types.UserAPIConfig{Port: intPtr(8080)},
		Prover:  &types.UserProverConfig{ProofTimeout: strPtr("30s")},
		Client:  &types.UserClientConfig{Host: strPtr("http://node:4321")},
	})

	assert.Equal(t, "debug", provider.GetLog().Level)
	assert.Equal(t, filepath.Join("/tmp/zk", "badger"), provider.GetBadger().Path)
	assert.Equal(t, nodeconfig.PolicySupersede, provider.GetNode().RegistrationPolicy)
	assert.Equal(t, "0.0.0.0:8080", provider.GetAPI().Address())
	assert.Equal(t, 30*time.Second, provider.GetProver().ProofTimeout)
	assert.Equal(t, "http://node:4321", provider.GetClient().Host)
}

// TestLoadAppConfig 从文件加载并校验
func TestLoadAppConfig(t *testing.T) {
	dir := t.TempDir()

	t.Run("合法配置", func(t *testing.T) {
		path := filepath.Join(dir, "ok.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"node":{"registration_policy":"supersede"},"api":{"port":9000}}`), 0600))

		cfg, err := LoadAppConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "supersede", *cfg.Node.RegistrationPolicy)
		assert.Equal(t, 9000, *cfg.API.Port)
	})

	t.Run("非法策略", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte(`{"node":{"registration_policy":"overwrite"}}`), 0600))

		_, err := LoadAppConfig(path)
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "node.registration_policy", verr.Field)
	})

	t.Run("空路径使用默认配置", func(t *testing.T) {
		cfg, err := LoadAppConfig("")
		require.NoError(t, err)
		assert.Nil(t, cfg.Node)
	})
}

// TestEmbeddedNodeConfig 内嵌配置可以通过校验
func TestEmbeddedNodeConfig(t *testing.T) {
	cfg, err := ParseAppConfig(configs.GetNodeConfig())
	require.NoError(t, err)

	provider := NewProvider(cfg)
	assert.Equal(t, filepath.Join("data", "badger"), provider.GetBadger().Path)
	assert.Equal(t, nodeconfig.PolicyReject, provider.GetNode().RegistrationPolicy)
	assert.Equal(t, "0.0.0.0:4321", provider.GetAPI().Address())
	assert.Equal(t, "./data/programs", provider.GetProver().ArtifactDir)
}
