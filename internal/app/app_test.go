package app

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"biasmeter/internal/bias/invoker"
	"biasmeter/internal/bias/invoker/backends"
	"biasmeter/internal/bias/lexicon"
	"biasmeter/internal/bias/models"
	"biasmeter/internal/bias/service"
	"biasmeter/internal/platform/config"
)

type fixedClient struct{ reply string }

func (c fixedClient) Complete(context.Context, backends.Request) (string, error) {
	return c.reply, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuildDefaults(t *testing.T) {
	c, err := Build(context.Background(), config.Default(), discard(), prometheus.NewRegistry(), WithoutRedis())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, lexicon.SourceSeed, c.Lexicon.Stats().DomainSource)
	assert.Equal(t, "memory", c.Cache.Name())
	assert.Equal(t, "gpt-4o-mini", c.Invoker.DefaultBackend())

	result, err := c.Service.Analyze(context.Background(), service.Request{Text: "Nothing to see here.", Mode: models.ModeLexicon})
	require.NoError(t, err)
	assert.InDelta(t, 100.0, result.Left+result.Right, 1e-9)
}

func TestBuildWithExtraBackendAndCredentials(t *testing.T) {
	t.Setenv("TEST_APP_CUSTOM_KEY", "secret")

	cfg := config.Default()
	cfg.Cache.Enabled = false
	cfg.Invoker.DefaultBackend = "house-model"
	cfg.Invoker.Backends = []config.Backend{{
		ID:            "house-model",
		Family:        "openai",
		Model:         "gpt-4.1-mini",
		CredentialRef: "TEST_APP_CUSTOM_KEY",
	}}

	var builtFor string
	c, err := Build(context.Background(), cfg, discard(), nil,
		WithClientFactory(func(_ context.Context, spec invoker.BackendSpec, apiKey string) (backends.Client, error) {
			builtFor = spec.ID + ":" + apiKey
			return fixedClient{reply: `{"score": 0.2, "explanation": "Mild conservative tilt."}`}, nil
		}),
	)
	require.NoError(t, err)
	assert.Nil(t, c.Cache)

	result, err := c.Service.Analyze(context.Background(), service.Request{Text: "Some text", Mode: models.ModeModel})
	require.NoError(t, err)
	assert.Equal(t, "house-model:secret", builtFor)
	assert.InDelta(t, 40.0, result.Left, 1e-9)
}

func TestBuildExtraBackendTakesFamilyDefault(t *testing.T) {
	cfg := config.Default()
	cfg.Cache.Enabled = false
	cfg.Invoker.Backends = []config.Backend{{
		ID:            "gpt-5",
		Family:        "openai",
		Model:         "gpt-5",
		FamilyDefault: true,
	}}

	c, err := Build(context.Background(), cfg, discard(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	defaults := make(map[string]bool)
	for _, st := range c.Invoker.Backends() {
		defaults[st.ID] = st.FamilyDefault
	}
	assert.True(t, defaults["gpt-5"])
	assert.False(t, defaults["gpt-4o-mini"])
	assert.True(t, defaults["claude-haiku"])
}

func TestBuildRejectsBadBackendConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Invoker.Backends = []config.Backend{{ID: "x", Family: "mistral", Model: "m"}}
	_, err := Build(context.Background(), cfg, discard(), nil)
	require.Error(t, err)

	cfg = config.Default()
	cfg.Invoker.FamilyOrder = []string{"openai", "cohere"}
	_, err = Build(context.Background(), cfg, discard(), nil)
	require.Error(t, err)

	cfg = config.Default()
	cfg.Invoker.DefaultBackend = "nope"
	_, err = Build(context.Background(), cfg, discard(), nil)
	require.ErrorIs(t, err, invoker.ErrUnknownBackend)
}

func TestBuildUsesLexiconFiles(t *testing.T) {
	dir := t.TempDir()
	domain := filepath.Join(dir, "domain.tsv")
	require.NoError(t, os.WriteFile(domain, []byte("woke\t-0.9\n"), 0o600))

	cfg := config.Default()
	cfg.Lexicon.DomainPath = domain
	c, err := Build(context.Background(), cfg, discard(), nil, WithoutRedis())
	require.NoError(t, err)

	stats := c.Lexicon.Stats()
	assert.Equal(t, lexicon.SourceFile, stats.DomainSource)
	assert.Equal(t, 1, stats.DomainTerms)
}
