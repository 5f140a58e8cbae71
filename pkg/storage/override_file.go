package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/felixgeelhaar/fortify/retry"
	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/budgetcast/pkg/domain/override"
)

// overrideRecord is the on-disk form. Active is a pointer so files written
// before the flag existed load as active.
type overrideRecord struct {
	HoursPerSprint float64   `yaml:"hours_per_sprint"`
	Reason         string    `yaml:"reason"`
	UpdatedAt      time.Time `yaml:"updated_at"`
	UpdatedBy      string    `yaml:"updated_by"`
	Active         *bool     `yaml:"active,omitempty"`
}

type overrideFile struct {
	Overrides map[string]overrideRecord `yaml:"overrides"`
}

func (r overrideRecord) toDomain() *override.Override {
	active := true
	if r.Active != nil {
		active = *r.Active
	}
	return &override.Override{
		HoursPerSprint: r.HoursPerSprint,
		Reason:         r.Reason,
		UpdatedAt:      r.UpdatedAt,
		UpdatedBy:      r.UpdatedBy,
		Active:         active,
	}
}

// FileOverrideStore keeps all overrides in one YAML file keyed by Key.String.
type FileOverrideStore struct {
	mu          sync.Mutex
	path        string
	retryConfig retry.Config
}

func NewFileOverrideStore(path string) *FileOverrideStore {
	return &FileOverrideStore{path: path, retryConfig: defaultRetry()}
}

// Path returns the backing file.
func (s *FileOverrideStore) Path() string {
	return s.path
}

func (s *FileOverrideStore) Load(ctx context.Context, key override.Key) (*override.Override, error) {
	f, err := s.read(ctx)
	if err != nil {
		return nil, err
	}
	rec, ok := f.Overrides[key.String()]
	if !ok {
		return nil, nil
	}
	return rec.toDomain(), nil
}

func (s *FileOverrideStore) Save(ctx context.Context, key override.Key, o override.Override) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := o.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := s.read(ctx)
	if err != nil {
		return err
	}
	active := o.Active
	f.Overrides[key.String()] = overrideRecord{
		HoursPerSprint: o.HoursPerSprint,
		Reason:         o.Reason,
		UpdatedAt:      o.UpdatedAt.UTC(),
		UpdatedBy:      o.UpdatedBy,
		Active:         &active,
	}

	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("failed to marshal overrides: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create override directory: %w", err)
	}
	// G306: Use 0600 for files
	return os.WriteFile(s.path, data, 0600)
}

// Check verifies the file is absent or parseable.
func (s *FileOverrideStore) Check(ctx context.Context) error {
	_, err := s.read(ctx)
	return err
}

func (s *FileOverrideStore) read(ctx context.Context) (*overrideFile, error) {
	retryer := retry.New[*overrideFile](s.retryConfig)

	return retryer.Do(ctx, func(ctx context.Context) (*overrideFile, error) {
		f := &overrideFile{Overrides: make(map[string]overrideRecord)}

		// #nosec G304 -- Path comes from workspace configuration
		data, err := os.ReadFile(s.path)
		if errors.Is(err, os.ErrNotExist) {
			return f, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read overrides file: %w", err)
		}

		if err := yaml.Unmarshal(data, f); err != nil {
			return nil, fmt.Errorf("failed to unmarshal overrides: %w", err)
		}
		if f.Overrides == nil {
			f.Overrides = make(map[string]overrideRecord)
		}
		return f, nil
	})
}
