package providers

import (
	"os"
	"sort"
	"strings"
	"sync/atomic"

	"gopkg.in/yaml.v3"

	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Kind selects the wire shape a provider speaks
type Kind string

const (
	// KindChat is the OpenAI-compatible chat-completions shape
	KindChat Kind = "chat"

	// KindVision is a chat-completions variant that never returns generation IDs
	KindVision Kind = "vision"

	// KindGemini is the generateContent shape with file references
	KindGemini Kind = "gemini"
)

// ProviderConfig is one resolved provider endpoint.
// Immutable once resolved; resolution happens fresh on every call.
type ProviderConfig struct {
	URL   string `yaml:"url"`
	Key   string `yaml:"key"`
	Model string `yaml:"model"`
	Kind  Kind   `yaml:"kind"`
}

// Capability maps a logical operation name to a set of providers
// with one of them selected as active.
type Capability struct {
	Active    string                    `yaml:"provider"`
	Providers map[string]ProviderConfig `yaml:"providers"`
}

type document map[string]Capability

// Registry holds the live capability -> provider document.
// Reload swaps the whole document atomically: readers either see the
// old snapshot or the new one, never a mix.
type Registry struct {
	path    string
	current atomic.Value // document
	log     *logger.Logger
}

// NewRegistry loads the providers document from path
func NewRegistry(path string, log *logger.Logger) (*Registry, error) {
	r := &Registry{
		path: path,
		log:  log.With("component", "provider_registry"),
	}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the document from disk and swaps it in atomically.
// On parse failure the previous document stays active.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return errors.Wrapf(errors.ErrConfig, "read providers file %s: %v", r.path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return errors.Wrapf(errors.ErrConfig, "parse providers file %s: %v", r.path, err)
	}

	for name, c := range doc {
		for key, p := range c.Providers {
			if p.Kind == "" {
				p.Kind = KindChat
				c.Providers[key] = p
			}
		}
		doc[name] = c
	}

	r.current.Store(doc)
	r.log.Infow("Providers configuration loaded", "capabilities", len(doc))
	return nil
}

// Resolve maps a capability name to its active provider configuration.
// It always reads the latest loaded document.
func (r *Registry) Resolve(capability string) (ProviderConfig, error) {
	doc, _ := r.current.Load().(document)

	c, ok := doc[capability]
	if !ok {
		return ProviderConfig{}, errors.Wrapf(errors.ErrConfig, "unknown capability %q", capability)
	}

	if c.Active == "" {
		return ProviderConfig{}, errors.Wrapf(errors.ErrConfig, "capability %q has no active provider", capability)
	}

	cfg, ok := c.Providers[c.Active]
	if !ok {
		return ProviderConfig{}, errors.Wrapf(errors.ErrConfig,
			"capability %q: active provider %q not configured (available: %s)",
			capability, c.Active, strings.Join(c.providerKeys(), ", "))
	}

	return cfg, nil
}

// Capabilities returns capability names with their active provider and model,
// sorted by name. Used by the reload command to report current routing.
func (r *Registry) Capabilities() []CapabilityInfo {
	doc, _ := r.current.Load().(document)

	infos := make([]CapabilityInfo, 0, len(doc))
	for name, c := range doc {
		info := CapabilityInfo{Name: name, Active: c.Active}
		if cfg, ok := c.Providers[c.Active]; ok {
			info.Model = cfg.Model
		}
		infos = append(infos, info)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}

// CapabilityInfo describes one capability's current routing
type CapabilityInfo struct {
	Name   string
	Active string
	Model  string
}

func (c Capability) providerKeys() []string {
	keys := make([]string, 0, len(c.Providers))
	for k := range c.Providers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
