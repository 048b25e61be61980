package entropy

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Source is one live stream manifest plus the headers sent with every request to it.
type Source struct {
	URL     string            `yaml:"source" json:"source"`
	Headers map[string]string `yaml:"headers,omitempty" json:"headers,omitempty"`
}

// SourceLoader yields the configured sources.
type SourceLoader interface {
	Load() ([]Source, error)
}

// Catalog merges source description files. The files are read once, on the
// first call to Load, and the result (including a failure) is kept for the
// life of the process.
type Catalog struct {
	paths  []string
	logger *logging.Logger

	once    sync.Once
	sources []Source
	err     error
}

// NewCatalog prepares a catalog over the given files. Nothing is read yet.
func NewCatalog(paths []string, logger *logging.Logger) *Catalog {
	return &Catalog{
		paths:  append([]string(nil), paths...),
		logger: logger,
	}
}

// NewStaticCatalog returns an already loaded catalog.
func NewStaticCatalog(sources ...Source) *Catalog {
	c := &Catalog{}
	c.once.Do(func() {
		c.sources = append([]Source(nil), sources...)
		if len(c.sources) == 0 {
			c.err = ErrEmptyCatalog
		}
	})
	return c
}

// Load returns the merged sources, reading the files on first use.
func (c *Catalog) Load() ([]Source, error) {
	c.once.Do(c.load)
	return c.sources, c.err
}

// Paths returns the source files this catalog reads.
func (c *Catalog) Paths() []string {
	return append([]string(nil), c.paths...)
}

func (c *Catalog) load() {
	var sources []Source

	for _, path := range c.paths {
		parsed, err := ReadSourceFile(path)
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("Couldn't load source file, skipping",
					zap.String("path", path),
					zap.Error(err))
			}
			continue
		}

		if c.logger != nil {
			c.logger.Info("Loaded source file",
				zap.String("path", path),
				zap.Int("sources", len(parsed)))
		}
		sources = append(sources, parsed...)
	}

	c.sources = sources
	if len(sources) == 0 {
		c.err = ErrEmptyCatalog
	}
}

// ReadSourceFile reads and parses one source description file.
func ReadSourceFile(path string) ([]Source, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- source files are operator-provided
	if err != nil {
		return nil, fmt.Errorf("read source file: %w", err)
	}

	sources, err := ParseSources(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return sources, nil
}

// ParseSources decodes a sequence of source records. JSON input is accepted
// since it is valid YAML.
func ParseSources(data []byte) ([]Source, error) {
	var sources []Source
	if err := yaml.Unmarshal(data, &sources); err != nil {
		return nil, err
	}

	for i, source := range sources {
		if strings.TrimSpace(source.URL) == "" {
			return nil, fmt.Errorf("record %d: %w", i, errMissingSourceURL)
		}
		sources[i].URL = strings.TrimSpace(source.URL)
	}
	return sources, nil
}

var errMissingSourceURL = errors.New("source url is required")
