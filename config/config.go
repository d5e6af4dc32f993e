// Package config loads engine.Options from a YAML file, the way the teacher
// pack's llmfactory.LoadConfig and gogentic's yaml encoder combine
// gopkg.in/yaml.v3 with go-playground/validator/v10 for struct-tag
// validation after unmarshal.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mcpcore/engine/engine"
	"github.com/mcpcore/engine/mcp"
	"github.com/mcpcore/engine/mcpmethod"
)

// File is the on-disk shape of an engine configuration file.
type File struct {
	// StrictLifecycle enforces initialize-before-use (spec §4.5, §8
	// property 7).
	StrictLifecycle bool `yaml:"strict_lifecycle"`

	// DebouncedMethods lists the notification methods to coalesce. Empty
	// means the conventional list-changed set (spec §4.5, §8 property 4).
	DebouncedMethods []string `yaml:"debounced_methods"`

	// DefaultRequestTimeout bounds an outbound request with no explicit
	// RequestOptions.Timeout.
	DefaultRequestTimeout time.Duration `yaml:"default_request_timeout" validate:"omitempty,gt=0"`

	// MinLogLevel is the lowest notifications/message severity a Context
	// will actually emit.
	MinLogLevel string `yaml:"min_log_level" validate:"omitempty,oneof=debug info notice warning error critical alert emergency"`

	// Capabilities gates which list-changed/resource-updated notifications
	// a Context may send (spec §4.6, §8 property 6).
	Capabilities *CapabilitiesFile `yaml:"capabilities"`

	// Transport selects which transport.Transport a cmd/mcpengine build
	// wires up; the engine package itself is transport-agnostic.
	Transport string `yaml:"transport" validate:"omitempty,oneof=stdio sse"`

	// SSEAddr is the listen address when Transport is "sse".
	SSEAddr string `yaml:"sse_addr" validate:"required_if=Transport sse"`
}

// CapabilitiesFile mirrors mcp.ServerCapabilities for YAML loading.
type CapabilitiesFile struct {
	Tools     *ListChangedFile    `yaml:"tools"`
	Prompts   *ListChangedFile    `yaml:"prompts"`
	Resources *ResourcesFile      `yaml:"resources"`
	Logging   bool                `yaml:"logging"`
}

type ListChangedFile struct {
	ListChanged bool `yaml:"list_changed"`
}

type ResourcesFile struct {
	Subscribe   bool `yaml:"subscribe"`
	ListChanged bool `yaml:"list_changed"`
}

// Load reads path, unmarshals it as YAML, validates it against its
// `validate` tags, and converts it to engine.Options. A missing path is not
// an error: it returns the zero-value defaults (lenient lifecycle, no
// debounce, no declared capabilities), matching llmfactory.LoadConfig's
// "empty file path returns defaults" behavior.
func Load(path string) (*engine.Options, error) {
	if path == "" {
		return &engine.Options{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read file")
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "config: parse yaml")
	}

	if err := validator.New().Struct(&f); err != nil {
		return nil, errors.Wrap(err, "config: validate")
	}

	return f.toOptions(), nil
}

func (f *File) toOptions() *engine.Options {
	opts := &engine.Options{
		StrictLifecycle:       f.StrictLifecycle,
		MinLogLevel:           mcp.LoggingLevel(f.MinLogLevel),
		DefaultRequestTimeout: f.DefaultRequestTimeout,
	}
	if opts.MinLogLevel == "" {
		opts.MinLogLevel = mcp.LogInfo
	}

	if len(f.DebouncedMethods) > 0 {
		opts.DebouncedMethods = engine.DebouncedMethodSet(f.DebouncedMethods...)
	} else {
		opts.DebouncedMethods = engine.DebouncedMethodSet(mcpmethod.ListChangedMethods...)
	}

	if f.Capabilities != nil {
		caps := &mcp.ServerCapabilities{}
		if f.Capabilities.Tools != nil {
			caps.Tools = &mcp.ListChangedCapability{ListChanged: f.Capabilities.Tools.ListChanged}
		}
		if f.Capabilities.Prompts != nil {
			caps.Prompts = &mcp.ListChangedCapability{ListChanged: f.Capabilities.Prompts.ListChanged}
		}
		if f.Capabilities.Resources != nil {
			caps.Resources = &mcp.ResourcesCapability{
				Subscribe:   f.Capabilities.Resources.Subscribe,
				ListChanged: f.Capabilities.Resources.ListChanged,
			}
		}
		if f.Capabilities.Logging {
			caps.Logging = map[string]any{}
		}
		opts.CapabilitiesDeclared = caps
	}

	return opts
}
