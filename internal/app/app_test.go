package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weisyn/zkcontract/contracts/counter"
	"github.com/weisyn/zkcontract/internal/core/txbuilder"
	"github.com/weisyn/zkcontract/internal/core/zkproof"
	"github.com/weisyn/zkcontract/pkg/types"
)

func ptr[T any](v T) *T { return &v }

func TestStartInMemoryNode(t *testing.T) {
	cfg := &types.AppConfig{
		Log:     &types.UserLogConfig{Level: ptr("error")},
		Storage: &types.UserStorageConfig{InMemory: ptr(true)},
		API:     &types.UserAPIConfig{Host: ptr("127.0.0.1"), Port: ptr(0)},
	}
	application, err := Start(WithAppConfig(cfg))
	require.NoError(t, err)
	defer func() { require.NoError(t, application.Stop()) }()

	svc := application.Service()
	require.NotNil(t, svc)

	req, err := txbuilder.BuildRegistration(zkproof.VerifierID, types.ProgramID{0x01}, counter.New(), "counter")
	require.NoError(t, err)
	_, err = svc.RegisterContract(context.Background(), req)
	require.NoError(t, err)

	record, err := svc.GetContract(context.Background(), "counter")
	require.NoError(t, err)
	assert.Equal(t, req.StateDigest, record.StateDigest)
}

func TestStartWithoutAPI(t *testing.T) {
	cfg := &types.AppConfig{
		Log:     &types.UserLogConfig{Level: ptr("error")},
		Storage: &types.UserStorageConfig{InMemory: ptr(true)},
	}
	application, err := Start(WithAppConfig(cfg), WithoutAPI())
	require.NoError(t, err)
	require.NoError(t, application.Stop())
}

func TestStartMissingConfigFile(t *testing.T) {
	_, err := Start(WithConfigFile(filepath.Join(t.TempDir(), "missing.json")))
	assert.Error(t, err)
}

func TestCreateDataDirectories(t *testing.T) {
	root := t.TempDir()
	cfg := &types.AppConfig{
		DataDir: ptr(filepath.Join(root, "data")),
		Log:     &types.UserLogConfig{FilePath: ptr(filepath.Join(root, "logs", "node.log"))},
	}
	require.NoError(t, createDataDirectories(cfg))
	assert.DirExists(t, filepath.Join(root, "data"))
	assert.DirExists(t, filepath.Join(root, "logs"))
}
