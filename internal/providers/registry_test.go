package providers

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

const sampleDoc = `describe:
  provider: grok
  providers:
    grok:
      url: https://api.x.ai/v1/chat/completions
      key: xai-key
      model: grok-2-vision
      kind: vision
    openrouter:
      url: https://openrouter.ai/api/v1/chat/completions
      key: or-key
      model: gpt-4o
imagegen:
  provider: openrouter
  providers:
    openrouter:
      url: https://openrouter.ai/api/v1/chat/completions
      key: or-key
      model: gemini-flash-image
`

func writeDoc(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestRegistry_ResolveActiveProvider(t *testing.T) {
	registry, err := NewRegistry(writeDoc(t, sampleDoc), logger.Get())
	require.NoError(t, err)

	cfg, err := registry.Resolve("describe")
	require.NoError(t, err)

	assert.Equal(t, "https://api.x.ai/v1/chat/completions", cfg.URL)
	assert.Equal(t, "grok-2-vision", cfg.Model)
	assert.Equal(t, KindVision, cfg.Kind)
}

func TestRegistry_KindDefaultsToChat(t *testing.T) {
	registry, err := NewRegistry(writeDoc(t, sampleDoc), logger.Get())
	require.NoError(t, err)

	cfg, err := registry.Resolve("imagegen")
	require.NoError(t, err)
	assert.Equal(t, KindChat, cfg.Kind)
}

func TestRegistry_ResolveFailures(t *testing.T) {
	tests := []struct {
		name       string
		doc        string
		capability string
	}{
		{
			name:       "unknown capability",
			doc:        sampleDoc,
			capability: "nonexistent",
		},
		{
			name: "no active provider set",
			doc: `describe:
  providers:
    grok:
      url: https://api.x.ai/v1
      key: k
      model: m
`,
			capability: "describe",
		},
		{
			name: "active provider not configured",
			doc: `describe:
  provider: missing
  providers:
    grok:
      url: https://api.x.ai/v1
      key: k
      model: m
`,
			capability: "describe",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry, err := NewRegistry(writeDoc(t, tt.doc), logger.Get())
			require.NoError(t, err)

			_, err = registry.Resolve(tt.capability)
			require.Error(t, err)
			assert.True(t, errors.Is(err, errors.ErrConfig))
		})
	}
}

func TestRegistry_ReloadSwapsDocument(t *testing.T) {
	path := writeDoc(t, sampleDoc)
	registry, err := NewRegistry(path, logger.Get())
	require.NoError(t, err)

	updated := `describe:
  provider: openrouter
  providers:
    openrouter:
      url: https://openrouter.ai/api/v1/chat/completions
      key: or-key
      model: claude-sonnet
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))
	require.NoError(t, registry.Reload())

	cfg, err := registry.Resolve("describe")
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet", cfg.Model)

	_, err = registry.Resolve("imagegen")
	assert.Error(t, err)
}

func TestRegistry_ReloadFailureKeepsPreviousDocument(t *testing.T) {
	path := writeDoc(t, sampleDoc)
	registry, err := NewRegistry(path, logger.Get())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("{not yaml: ["), 0o644))
	err = registry.Reload()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConfig))

	cfg, err := registry.Resolve("describe")
	require.NoError(t, err)
	assert.Equal(t, "grok-2-vision", cfg.Model)
}

func TestRegistry_CapabilitiesSorted(t *testing.T) {
	registry, err := NewRegistry(writeDoc(t, sampleDoc), logger.Get())
	require.NoError(t, err)

	infos := registry.Capabilities()
	require.Len(t, infos, 2)
	assert.Equal(t, "describe", infos[0].Name)
	assert.Equal(t, "grok", infos[0].Active)
	assert.Equal(t, "grok-2-vision", infos[0].Model)
	assert.Equal(t, "imagegen", infos[1].Name)
}
