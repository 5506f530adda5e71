package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mymonad/aura/internal/zkproof"
	"github.com/mymonad/aura/pkg/aura"
)

const testOwner = "4vJ9JU1bJJE96FWSJKvHsmmFADCg4gpZQff4P3bkLKi"

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "node.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestExpandPath_TildeExpansion(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		input    string
		expected string
	}{
		{"~/Documents", filepath.Join(home, "Documents")},
		{"/absolute/path", "/absolute/path"},
		{"relative/path", "relative/path"},
		{"~", home},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, ExpandPath(tt.input), tt.input)
	}
}

func TestDefaultPaths(t *testing.T) {
	paths := DefaultPaths()

	assert.Contains(t, paths.ConfigDir, filepath.Join(".config", "aura"))
	assert.Contains(t, paths.DataDir, filepath.Join(".local", "share", "aura"))
	assert.Equal(t, filepath.Join(paths.DataDir, "node.sock"), paths.NodeSocket)
	assert.Equal(t, filepath.Join(paths.DataDir, "keys"), paths.KeysDir)
}

func TestEnsureDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	paths := Paths{
		ConfigDir: filepath.Join(tmpDir, "config", "aura"),
		DataDir:   filepath.Join(tmpDir, "data", "aura"),
	}

	require.NoError(t, paths.EnsureDirectories())

	for _, dir := range []string{paths.ConfigDir, paths.DataDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
	}
}

func TestDefaultNodeConfig_NeedsOwner(t *testing.T) {
	cfg := DefaultNodeConfig()
	assert.ErrorIs(t, cfg.Validate(), aura.ErrInvalidOwner)

	cfg.Ledger.Owner = testOwner
	require.NoError(t, cfg.Validate())
}

func TestLoadNodeConfig(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[ledger]
owner = "`+testOwner+`"
reveal_aura = 200
intent_ttl = "72h"

[zk]
backend = "accept"
proof_timeout = "3s"

[rpc]
socket = "~/aura-test.sock"

[audit]
driver = ""

[logging]
level = "debug"
`)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	lc, err := cfg.LedgerConfig()
	require.NoError(t, err)
	assert.Equal(t, uint64(200), lc.RevealAura)
	assert.Equal(t, uint64(100), lc.RegistrationAura, "unset values keep defaults")
	assert.Equal(t, 72*time.Hour, lc.IntentTTL)

	zk := cfg.ZKConfig()
	assert.Equal(t, zkproof.BackendAccept, zk.Backend)
	assert.Equal(t, 3*time.Second, zk.ProofTimeout)

	home, _ := os.UserHomeDir()
	assert.Equal(t, filepath.Join(home, "aura-test.sock"), cfg.RPC.Socket)
	assert.Equal(t, "", cfg.Audit.Driver)
}

func TestLoadNodeConfig_EnvOverlay(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, `
[amqp]
url = "amqp://from-file"
`)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("AURA_OWNER="+testOwner+"\nAURA_GRAPH_PASSWORD=from-dotenv\n"), 0600))
	t.Setenv(EnvAMQPURL, "amqp://from-env")
	t.Setenv(EnvOwner, "")
	t.Setenv(EnvGraphPassword, "")
	os.Unsetenv(EnvOwner)
	os.Unsetenv(EnvGraphPassword)

	cfg, err := LoadNodeConfig(path)
	require.NoError(t, err)

	assert.Equal(t, testOwner, cfg.Ledger.Owner)
	assert.Equal(t, "from-dotenv", cfg.Graph.Password)
	assert.Equal(t, "amqp://from-env", cfg.AMQP.URL)
}

func TestLoadNodeConfig_Errors(t *testing.T) {
	_, err := LoadNodeConfig(filepath.Join(t.TempDir(), "missing.toml"))
	require.Error(t, err)

	path := writeConfig(t, t.TempDir(), "[ledger\nowner=")
	_, err = LoadNodeConfig(path)
	require.Error(t, err)

	path = writeConfig(t, t.TempDir(), "[zk]\nproof_timeout = \"soon\"\n")
	_, err = LoadNodeConfig(path)
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() NodeConfig {
		cfg := DefaultNodeConfig()
		cfg.Ledger.Owner = testOwner
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*NodeConfig)
	}{
		{"bad owner", func(c *NodeConfig) { c.Ledger.Owner = "0OIl" }},
		{"negative ttl", func(c *NodeConfig) { c.Ledger.IntentTTL = Duration(-time.Second) }},
		{"unknown backend", func(c *NodeConfig) { c.ZK.Backend = "groth16" }},
		{"no socket", func(c *NodeConfig) { c.RPC.Socket = "" }},
		{"no skew", func(c *NodeConfig) { c.RPC.MaxClockSkew = 0 }},
		{"no listen", func(c *NodeConfig) { c.HTTP.Listen = "" }},
		{"unknown driver", func(c *NodeConfig) { c.Audit.Driver = "mysql" }},
		{"no dsn", func(c *NodeConfig) { c.Audit.DSN = "" }},
		{"no exchange", func(c *NodeConfig) { c.AMQP.URL = "amqp://x"; c.AMQP.Exchange = "" }},
		{"no schedule", func(c *NodeConfig) { c.Sweeper.Schedule = "" }},
		{"bad level", func(c *NodeConfig) { c.Logging.Level = "loud" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestWatcher_ReloadsLevel(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[ledger]\nowner = \""+testOwner+"\"\n[logging]\nlevel = \"info\"\n")

	var level slog.LevelVar
	w, err := NewWatcher(path, &level, nil)
	require.NoError(t, err)
	defer w.Close()

	reloaded := make(chan *NodeConfig, 4)
	w.OnReload(func(cfg *NodeConfig) { reloaded <- cfg })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	writeConfig(t, dir, "[ledger]\nowner = \""+testOwner+"\"\n[logging]\nlevel = \"debug\"\n")

	select {
	case cfg := <-reloaded:
		assert.Equal(t, "debug", cfg.Logging.Level)
	case <-time.After(2 * time.Second):
		t.Fatal("config was not reloaded")
	}
	assert.Equal(t, slog.LevelDebug, level.Level())
}

func TestWatcher_IgnoresInvalidChange(t *testing.T) {
	dir := t.TempDir()
	path := writeConfig(t, dir, "[ledger]\nowner = \""+testOwner+"\"\n")

	var level slog.LevelVar
	w, err := NewWatcher(path, &level, nil)
	require.NoError(t, err)
	defer w.Close()

	reloaded := make(chan *NodeConfig, 4)
	w.OnReload(func(cfg *NodeConfig) { reloaded <- cfg })
	go w.Start(context.Background())

	writeConfig(t, dir, "[logging]\nlevel = \"loud\"\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0600))

	select {
	case <-reloaded:
		t.Fatal("invalid config must not be applied")
	case <-time.After(200 * time.Millisecond):
	}
	assert.Equal(t, slog.LevelInfo, level.Level())
}
