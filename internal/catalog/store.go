package catalog

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// Store loads service documents from a backing source.
type Store interface {
	// Load returns every service document in the source.
	Load(ctx context.Context) ([]Service, error)

	// String names the source for logging.
	String() string
}

// LoadJSON decodes a JSON array of service documents.
func LoadJSON(r io.Reader) ([]Service, error) {
	var services []Service
	if err := json.NewDecoder(r).Decode(&services); err != nil {
		return nil, fmt.Errorf("failed to parse catalog JSON: %w", err)
	}
	return services, nil
}

// LoadYAML decodes a YAML sequence of service documents.
func LoadYAML(r io.Reader) ([]Service, error) {
	var services []Service
	if err := yaml.NewDecoder(r).Decode(&services); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to parse catalog YAML: %w", err)
	}
	return services, nil
}

// FileStore reads a catalog from a .json, .yaml or .yml file.
type FileStore struct {
	Path string
}

// Load implements Store.
func (s FileStore) Load(_ context.Context) ([]Service, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(s.Path)) {
	case ".json":
		return LoadJSON(f)
	case ".yaml", ".yml":
		return LoadYAML(f)
	default:
		return nil, fmt.Errorf("unsupported catalog file extension %q (want .json, .yaml or .yml)", filepath.Ext(s.Path))
	}
}

func (s FileStore) String() string {
	return "file:" + s.Path
}

// rawSampleCatalog is the development catalog shipped with the binary.
//
//go:embed data/sample_catalog.json
var rawSampleCatalog []byte

var (
	sampleOnce     sync.Once
	sampleServices []Service
	sampleErr      error
)

// EmbeddedStore serves the sample catalog compiled into the binary.
// The embedded JSON is parsed exactly once per process.
type EmbeddedStore struct{}

// Load implements Store.
func (EmbeddedStore) Load(_ context.Context) ([]Service, error) {
	sampleOnce.Do(func() {
		sampleServices, sampleErr = LoadJSON(bytes.NewReader(rawSampleCatalog))
	})
	if sampleErr != nil {
		return nil, sampleErr
	}
	// Callers get their own slice header; documents are treated as read-only.
	out := make([]Service, len(sampleServices))
	copy(out, sampleServices)
	return out, nil
}

func (EmbeddedStore) String() string {
	return "embedded"
}
