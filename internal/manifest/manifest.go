package manifest

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"git.home.luguber.info/inful/blogbuilder/internal/site"
	"github.com/google/uuid"
)

// Build status values.
const (
	StatusSuccess  = "success"
	StatusWarning  = "warning"
	StatusFailed   = "failed"
	StatusCanceled = "canceled"
)

// BuildManifest represents a complete record of a build's inputs, plan, and outputs.
type BuildManifest struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Inputs    Inputs          `json:"inputs"`
	Plan      Plan            `json:"plan"`
	Documents []DocumentEntry `json:"documents"`
	Failures  []FailureEntry  `json:"failures,omitempty"`
	Outputs   Outputs         `json:"outputs"`
	Status    string          `json:"status"`
	Duration  int64           `json:"duration_ms"`
}

// Inputs captures all inputs to the build.
type Inputs struct {
	Source     string `json:"source"`
	ConfigPath string `json:"config_path,omitempty"`
	ConfigHash string `json:"config_hash"`
}

// Plan captures the settings the build ran with.
type Plan struct {
	Theme     string   `json:"theme,omitempty"`
	Plugins   []string `json:"plugins,omitempty"`
	Markdown  string   `json:"markdown,omitempty"`
	Permalink string   `json:"permalink,omitempty"`
	Drafts    bool     `json:"drafts,omitempty"`
	Strict    bool     `json:"strict,omitempty"`
}

// DocumentEntry records one written document.
type DocumentEntry struct {
	Path        string `json:"path"`
	Kind        string `json:"kind"`
	Layout      string `json:"layout"`
	Rule        int    `json:"rule"`
	Output      string `json:"output"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// FailureEntry records one document that could not be processed.
type FailureEntry struct {
	Path     string `json:"path"`
	Category string `json:"category"`
	Error    string `json:"error"`
}

// Outputs captures all outputs from the build.
type Outputs struct {
	Destination string `json:"destination"`
	ContentHash string `json:"content_hash,omitempty"`
}

// New starts a manifest for a build of cfg. The ID is a random UUID and the
// timestamp is taken from now.
func New(cfg *site.Config, now time.Time) (*BuildManifest, error) {
	configHash, err := ConfigHash(cfg)
	if err != nil {
		return nil, err
	}
	m := &BuildManifest{
		ID:        uuid.NewString(),
		Timestamp: now.UTC(),
		Inputs:    Inputs{ConfigHash: configHash},
	}
	if cfg != nil {
		m.Plan = Plan{
			Theme:     cfg.Theme,
			Plugins:   slices.Clone(cfg.Plugins),
			Markdown:  cfg.Markdown,
			Permalink: cfg.Permalink,
		}
	}
	return m, nil
}

// ConfigHash hashes the whole parsed configuration document. Two documents
// that load to equal configs hash the same.
func ConfigHash(cfg *site.Config) (string, error) {
	var raw any
	if cfg != nil {
		raw = cfg.Raw.ToAny()
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("marshal config for hash: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}

// ContentHash combines the document fingerprints into one hash, independent
// of the order the documents were recorded in.
func (m *BuildManifest) ContentHash() string {
	lines := make([]string, 0, len(m.Documents))
	for _, d := range m.Documents {
		lines = append(lines, d.Path+"\x00"+d.Output+"\x00"+d.Fingerprint)
	}
	slices.Sort(lines)
	hash := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return fmt.Sprintf("%x", hash)
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return data, nil
}

// WriteFile writes the JSON manifest to path.
func (m *BuildManifest) WriteFile(path string) error {
	data, err := m.ToJSON()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Hash computes a deterministic hash of the manifest's inputs and plan.
// Builds with the same hash read the same configuration with the same settings.
func (m *BuildManifest) Hash() (string, error) {
	hashInput := struct {
		Source     string `json:"source"`
		ConfigHash string `json:"config_hash"`
		Plan       Plan   `json:"plan"`
	}{
		Source:     m.Inputs.Source,
		ConfigHash: m.Inputs.ConfigHash,
		Plan:       m.Plan,
	}

	data, err := json.Marshal(hashInput)
	if err != nil {
		return "", fmt.Errorf("marshal for hash: %w", err)
	}

	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}
