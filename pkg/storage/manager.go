package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ZUGAZ/likes-to-go/pkg/export"
)

// DefaultPattern names one export per day
const DefaultPattern = "likes-to-go-{date}.json"

// Manager writes export files into an output directory
type Manager struct {
	outputDir string
	pattern   string
	overwrite bool
	now       func() time.Time

	mu sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces the clock used to expand {date} and {timestamp}
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithOverwrite lets Save replace an existing file instead of picking a
// suffixed name
func WithOverwrite(overwrite bool) Option {
	return func(m *Manager) { m.overwrite = overwrite }
}

// NewManager creates a new storage manager
func NewManager(outputDir, pattern string, opts ...Option) (*Manager, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	if pattern == "" {
		pattern = DefaultPattern
	}

	m := &Manager{
		outputDir: outputDir,
		pattern:   pattern,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// FileName expands the pattern for the given time
func FileName(pattern string, at time.Time) string {
	at = at.UTC()
	r := strings.NewReplacer(
		"{date}", at.Format("2006-01-02"),
		"{timestamp}", at.Format("20060102T150405Z"),
	)
	return r.Replace(pattern)
}

// Save writes the payload and returns the path it landed at
func (m *Manager) Save(ctx context.Context, p export.Payload) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	data, err := p.Marshal()
	if err != nil {
		return "", fmt.Errorf("failed to encode export: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	filename := m.pickName(FileName(m.pattern, m.now()))

	// Create temporary file first
	tempFile := filename + ".tmp"
	if err := os.WriteFile(tempFile, data, 0644); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to write temporary file: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempFile, filename); err != nil {
		os.Remove(tempFile)
		return "", fmt.Errorf("failed to rename temporary file: %w", err)
	}

	return filename, nil
}

// pickName returns a free path for name, appending -1, -2... before the
// extension when the file already exists
func (m *Manager) pickName(name string) string {
	path := filepath.Join(m.outputDir, name)
	if m.overwrite {
		return path
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}

	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(m.outputDir, stem+"-"+strconv.Itoa(i)+ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// Exports lists the JSON files in the output directory, newest name first
func (m *Manager) Exports() ([]string, error) {
	entries, err := os.ReadDir(m.outputDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && filepath.Ext(entry.Name()) == ".json" {
			files = append(files, filepath.Join(m.outputDir, entry.Name()))
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(files)))
	return files, nil
}

// Load reads an export file back
func Load(path string) (export.Payload, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return export.Payload{}, fmt.Errorf("failed to read export: %w", err)
	}
	p, err := export.Decode(data)
	if err != nil {
		return export.Payload{}, fmt.Errorf("failed to decode export %s: %w", path, err)
	}
	return p, nil
}

// GetOutputDir returns the output directory path
func (m *Manager) GetOutputDir() string {
	return m.outputDir
}
