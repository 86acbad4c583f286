package fakeprod

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

// Mock registry errors surfaced to the REST layer.
var (
	ErrMockNotFound = errors.New("mock not found")
	ErrLabelExists  = errors.New("label exists")
)

// MockMapping describes one registered file-backed mock: where its payload
// lives under mock_data/ and how to serve it.
type MockMapping struct {
	Path        string            `json:"path"`
	Type        string            `json:"type"`
	Status      int               `json:"status"`
	Headers     map[string]string `json:"headers"`
	ContentType string            `json:"content_type,omitempty"`
}

// MockRegistry persists mock mappings to mocks.json inside root and payload
// files to root/mock_data. Labels are served at /mocks/{label}.
type MockRegistry struct {
	mu   sync.Mutex
	root string
}

// NewMockRegistry creates a registry rooted at the given data folder.
func NewMockRegistry(root string) *MockRegistry {
	return &MockRegistry{root: root}
}

func (m *MockRegistry) mappingsFile() string {
	return filepath.Join(m.root, "mocks.json")
}

func (m *MockRegistry) dataDir() string {
	return filepath.Join(m.root, "mock_data")
}

// load reads the mappings file. A missing or malformed file yields an empty
// map so the server stays operational.
func (m *MockRegistry) load() map[string]MockMapping {
	data, err := os.ReadFile(m.mappingsFile())
	if err != nil {
		return map[string]MockMapping{}
	}
	var mappings map[string]MockMapping
	if err := json.Unmarshal(data, &mappings); err != nil || mappings == nil {
		return map[string]MockMapping{}
	}
	return mappings
}

func (m *MockRegistry) save(mappings map[string]MockMapping) error {
	data, err := json.MarshalIndent(mappings, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return errors.Wrap(err, "create data folder")
	}
	return os.WriteFile(m.mappingsFile(), data, 0o644)
}

// List returns all registered mappings by label.
func (m *MockRegistry) List() map[string]MockMapping {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.load()
}

// Register stores content under mock_data/ and records the mapping. JSON
// mocks are validated before anything is written. Registering an existing
// label fails with ErrLabelExists unless overwrite is set.
func (m *MockRegistry) Register(label, filename string, content []byte, meta MockMapping, overwrite bool) (MockMapping, error) {
	if label == "" {
		return MockMapping{}, errors.New("label required")
	}
	if meta.Type == "" {
		meta.Type = "json"
	}
	if meta.Status == 0 {
		meta.Status = 200
	}
	if meta.Headers == nil {
		meta.Headers = map[string]string{}
	}
	if meta.Type == "json" {
		if !json.Valid(content) {
			return MockMapping{}, errors.New("content is not valid JSON")
		}
	}
	if filename == "" {
		filename = label + ".bin"
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	mappings := m.load()
	if _, ok := mappings[label]; ok && !overwrite {
		return MockMapping{}, ErrLabelExists
	}

	if err := os.MkdirAll(m.dataDir(), 0o755); err != nil {
		return MockMapping{}, errors.Wrap(err, "create mock_data folder")
	}
	destName := label + "__" + filepath.Base(filename)
	destPath := filepath.Join(m.dataDir(), destName)
	if err := os.WriteFile(destPath, content, 0o644); err != nil {
		return MockMapping{}, errors.Wrap(err, "write mock file")
	}

	meta.Path = filepath.Join("mock_data", destName)
	mappings[label] = meta
	if err := m.save(mappings); err != nil {
		return MockMapping{}, errors.Wrap(err, "save mappings")
	}
	return meta, nil
}

// Resolve returns the mapping for label and the absolute path of its payload.
// The path must resolve inside mock_data/; anything else is treated as not
// found to rule out traversal through a tampered mappings file.
func (m *MockRegistry) Resolve(label string) (MockMapping, string, error) {
	m.mu.Lock()
	mappings := m.load()
	m.mu.Unlock()

	meta, ok := mappings[label]
	if !ok || meta.Path == "" {
		return MockMapping{}, "", ErrMockNotFound
	}

	abs, err := filepath.Abs(filepath.Join(m.root, meta.Path))
	if err != nil {
		return MockMapping{}, "", ErrMockNotFound
	}
	dataDir, err := filepath.Abs(m.dataDir())
	if err != nil {
		return MockMapping{}, "", ErrMockNotFound
	}
	if !strings.HasPrefix(abs, dataDir+string(filepath.Separator)) {
		return MockMapping{}, "", ErrMockNotFound
	}
	return meta, abs, nil
}

// Delete removes the mapping and best-effort removes its payload file.
func (m *MockRegistry) Delete(label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	mappings := m.load()
	meta, ok := mappings[label]
	if !ok {
		return ErrMockNotFound
	}
	delete(mappings, label)
	if err := m.save(mappings); err != nil {
		return errors.Wrap(err, "save mappings")
	}

	if meta.Path != "" {
		abs, err := filepath.Abs(filepath.Join(m.root, meta.Path))
		dataDir, derr := filepath.Abs(m.dataDir())
		if err == nil && derr == nil && strings.HasPrefix(abs, dataDir+string(filepath.Separator)) {
			os.Remove(abs)
		}
	}
	return nil
}
