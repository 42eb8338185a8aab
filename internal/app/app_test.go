package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/m3rciful/supportbot/core/bootstrap"
	coreconfig "github.com/m3rciful/supportbot/core/config"
	tg "github.com/m3rciful/supportbot/core/telegram"
	"github.com/m3rciful/supportbot/internal/dialogue"
	"github.com/m3rciful/supportbot/internal/storage/memory"
	"github.com/m3rciful/supportbot/internal/users"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadYAMLDefaults(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  token: "123:abc"
  admin_id: 7
database:
  name: support
  user: bot
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, int64(7), cfg.Telegram.AdminID)
	assert.Equal(t, coreconfig.RunModeLongpoll, cfg.Telegram.RunMode)
	assert.Equal(t, StoragePostgres, cfg.Storage.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, ComputeGRPC, cfg.Compute.Driver)
	assert.Equal(t, defaultComputeAddr, cfg.Compute.Addr)
	assert.Equal(t, defaultSystemPrompt, cfg.Compute.SystemPrompt)
	require.NotNil(t, cfg.Compute.Temperature)
	assert.InDelta(t, 0.7, *cfg.Compute.Temperature, 1e-6)
	require.NotNil(t, cfg.Compute.TopP)
	assert.InDelta(t, 0.9, *cfg.Compute.TopP, 1e-6)
	assert.Zero(t, cfg.Compute.TimeoutSeconds)
	assert.Equal(t, string(dialogue.Serialized), cfg.Dialogue.Concurrency)
	assert.Same(t, &cfg.Config, cfg.CoreConfig())
}

func TestLoadTOMLWithEnv(t *testing.T) {
	path := writeFile(t, "config.toml", `
[telegram]
token = "from-file"

[storage]
driver = "dynamodb"
table = "support"

[compute]
driver = "http"
model = "small"
api_key_param = "/bot/compute"

[dialogue]
concurrency = "Unsynchronized"
`)
	t.Setenv("BOT_TOKEN", "from-env")
	t.Setenv("AWS_REGION", "eu-west-1")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.Telegram.Token)
	assert.Equal(t, StorageDynamoDB, cfg.Storage.Driver)
	assert.Equal(t, "eu-west-1", cfg.Storage.Region)
	assert.Equal(t, ComputeHTTP, cfg.Compute.Driver)
	assert.Equal(t, "/bot/compute", cfg.Compute.APIKeyParam)
	assert.Equal(t, string(dialogue.Unsynchronized), cfg.Dialogue.Concurrency)
}

func TestLoadKeepsExplicitZeroes(t *testing.T) {
	path := writeFile(t, "config.yaml", `
telegram:
  token: "t"
storage:
  driver: memory
compute:
  temperature: 0
  top_p: 0.5
  timeout_seconds: 0
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotNil(t, cfg.Compute.Temperature)
	assert.Zero(t, *cfg.Compute.Temperature)
	assert.InDelta(t, 0.5, *cfg.Compute.TopP, 1e-6)
	assert.Zero(t, cfg.Compute.TimeoutSeconds)
}

func TestNormalizeRejects(t *testing.T) {
	base := func() Config {
		var c Config
		c.Telegram.Token = "t"
		c.Storage.Driver = StorageMemory
		return c
	}
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"postgres without name", func(c *Config) { c.Storage.Driver = StoragePostgres }},
		{"dynamodb without table", func(c *Config) { c.Storage.Driver = StorageDynamoDB }},
		{"unknown storage", func(c *Config) { c.Storage.Driver = "sqlite" }},
		{"http without model", func(c *Config) { c.Compute.Driver = ComputeHTTP; c.Compute.APIKey = "k" }},
		{"http without key", func(c *Config) { c.Compute.Driver = ComputeHTTP; c.Compute.Model = "m" }},
		{"unknown compute", func(c *Config) { c.Compute.Driver = "smtp" }},
		{"unknown concurrency", func(c *Config) { c.Dialogue.Concurrency = "parallel" }},
		{"negative timeout", func(c *Config) { c.Compute.TimeoutSeconds = -1 }},
		{"negative temperature", func(c *Config) { c.Compute.Temperature = ptr(float32(-0.1)) }},
		{"top_p above one", func(c *Config) { c.Compute.TopP = ptr(float32(1.5)) }},
		{"missing token", func(c *Config) { c.Telegram.Token = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			assert.Error(t, c.Normalize())
		})
	}
}

func memoryConfig(t *testing.T, concurrency string) *Config {
	t.Helper()
	var c Config
	c.Telegram.Token = "t"
	c.Telegram.AdminID = 5
	c.Storage.Driver = StorageMemory
	c.Compute.Driver = ComputeHTTP
	c.Compute.Model = "m"
	c.Compute.APIKey = "k"
	c.Dialogue.Concurrency = concurrency
	require.NoError(t, c.Normalize())
	return &c
}

func noLogger() Options {
	return Options{Bootstrap: bootstrap.Options{LoggerInit: func(*coreconfig.Config) error { return nil }}}
}

func TestBootstrapMemory(t *testing.T) {
	a, err := Bootstrap(context.Background(), memoryConfig(t, ""), noLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NotNil(t, a.chats)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)

	var names []string
	for _, mw := range opts.Middlewares {
		names = append(names, mw.Name)
	}
	assert.Contains(t, names, "serialize")

	var endpoints []any
	for _, r := range opts.Routes {
		endpoints = append(endpoints, r.Endpoint)
	}
	assert.Subset(t, endpoints, []any{"/accept", "/faq", "/help", "/h", "/send_message", "/start"})
	assert.Len(t, opts.Routes, 8)

	require.NoError(t, opts.OnStop(context.Background(), tg.Runtime{}))
}

func TestBootstrapUnsynchronized(t *testing.T) {
	a, err := Bootstrap(context.Background(), memoryConfig(t, "unsynchronized"), noLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	assert.Nil(t, a.chats)

	opts, err := a.TelegramRunOptions()
	require.NoError(t, err)
	for _, mw := range opts.Middlewares {
		assert.NotEqual(t, "serialize", mw.Name)
	}
}

func TestBootstrapGRPCDialsLazily(t *testing.T) {
	cfg := memoryConfig(t, "")
	cfg.Compute = ComputeConfig{}
	require.NoError(t, cfg.Normalize())

	a, err := Bootstrap(context.Background(), cfg, noLogger())
	require.NoError(t, err)
	assert.Len(t, a.closers, 2)
	assert.NoError(t, a.Close())
}

func TestAdminSeeder(t *testing.T) {
	ctx := context.Background()
	s := memory.NewUsers()

	require.NoError(t, adminSeeder(s, 0).Seed(ctx))
	_, err := s.Role(ctx, 0)
	assert.ErrorIs(t, err, users.ErrNotFound)

	_, err = s.Register(ctx, users.User{TelegramID: 9, Role: users.RoleDefault})
	require.NoError(t, err)
	require.NoError(t, adminSeeder(s, 9).Seed(ctx))
	role, err := s.Role(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, users.RoleAdmin, role)

	require.NoError(t, adminSeeder(s, 10).Seed(ctx))
	ok, err := users.IsAdmin(ctx, s, 10)
	require.NoError(t, err)
	assert.True(t, ok)
}
