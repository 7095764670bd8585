package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `token: "test-token"
name: "测试墙"
wall:
  quorum: 3
  normal_limit: 5
`

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(sampleConfig), 0644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })

	require.NoError(t, LoadConfig())

	assert.Equal(t, "test-token", Cfg.Token)
	assert.Equal(t, "测试墙", Cfg.Name)
	// 显式配置覆盖默认值
	assert.Equal(t, 3, Cfg.Wall.Quorum)
	assert.Equal(t, 5, Cfg.Wall.NormalLimit)
	// 其余维持默认
	assert.Equal(t, 4, Cfg.Wall.BatchSize)
	assert.Equal(t, 9, Cfg.Wall.QueuePreview)
	assert.Equal(t, 1, Cfg.Wall.AnonymousLimit)
	assert.Equal(t, 8413, Cfg.Server.Port)
}
