// Package artifacts persists fitted clustering models next to the training
// data they were fitted on. A model file <name>.gob is always paired with
// <name>_data.csv; the data file is written first so a listed model is always
// queryable.
package artifacts

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/survey-o-meter/internal/analysis"
	"github.com/ZanzyTHEbar/survey-o-meter/internal/dataset"
)

const (
	// Kind tags every model envelope; anything else is rejected on load.
	Kind = "kmeans"
	// Version is the current envelope layout.
	Version = 1

	modelExt        = ".gob"
	dataSuffix      = "_data.csv"
	timestampLayout = "20060102T150405.000000000"
)

var (
	ErrNotFound        = errors.New("model artifact not found")
	ErrInvalidArtifact = errors.New("invalid model artifact")
	ErrInvalidName     = errors.New("invalid model artifact name")
)

type envelope struct {
	Kind      string
	Version   int
	CreatedAt time.Time
	Model     analysis.Model
}

// Artifact is a loaded model with its training data.
type Artifact struct {
	Name      string
	CreatedAt time.Time
	Model     *analysis.Model
	Data      *dataset.Table
}

// Info is the public summary of an artifact.
type Info struct {
	Name      string      `json:"name"`
	NClusters int         `json:"n_clusters"`
	Inertia   float64     `json:"inertia"`
	Centers   [][]float64 `json:"centers"`
	Features  []string    `json:"features"`
	Rows      int         `json:"rows"`
	CreatedAt time.Time   `json:"created_at"`
}

// Store is a directory of model artifacts. Safe for concurrent use.
type Store struct {
	dir string
	now func() time.Time

	mu   sync.Mutex
	last time.Time
}

// NewStore opens (creating if needed) the artifact directory.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create model directory: %w", err)
	}
	return &Store{dir: dir, now: time.Now}, nil
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

// DataName returns the training data file paired with a model name.
func DataName(name string) string {
	return strings.TrimSuffix(name, modelExt) + dataSuffix
}

// Save writes data and then model under a fresh kmeans_<base>_<timestamp>
// name and returns the model file name.
func (s *Store) Save(base string, model *analysis.Model, data *dataset.Table) (string, error) {
	name, created := s.reserve(base)
	dataPath := filepath.Join(s.dir, DataName(name))

	if err := dataset.WriteFile(dataPath, data); err != nil {
		return "", fmt.Errorf("failed to write training data: %w", err)
	}

	env := envelope{Kind: Kind, Version: Version, CreatedAt: created, Model: *model}
	if err := s.writeModel(name, env); err != nil {
		os.Remove(dataPath)
		return "", err
	}
	return name, nil
}

// reserve picks a name no earlier save in this process used and no file on
// disk already has. Timestamps advance by a nanosecond on collision.
func (s *Store) reserve(base string) (string, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ts := s.now().UTC()
	if !ts.After(s.last) {
		ts = s.last.Add(time.Nanosecond)
	}
	for {
		name := fmt.Sprintf("%s_%s_%s%s", Kind, base, ts.Format(timestampLayout), modelExt)
		if !exists(filepath.Join(s.dir, name)) && !exists(filepath.Join(s.dir, DataName(name))) {
			s.last = ts
			return name, ts
		}
		ts = ts.Add(time.Nanosecond)
	}
}

func (s *Store) writeModel(name string, env envelope) error {
	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp model file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if err := gob.NewEncoder(tmp).Encode(env); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to encode model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp model file: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(s.dir, name)); err != nil {
		return fmt.Errorf("failed to move model into place: %w", err)
	}
	return nil
}

// List returns the names of every complete artifact, newest first.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read model directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, modelExt) || strings.Contains(name, ".tmp-") {
			continue
		}
		if !exists(filepath.Join(s.dir, DataName(name))) {
			continue
		}
		names = append(names, name)
	}

	sort.SliceStable(names, func(i, j int) bool {
		ti, tj := timestampOf(names[i]), timestampOf(names[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return names[i] < names[j]
	})
	return names, nil
}

// Load reads a model and its training data. A model whose data file is
// missing is reported as not found.
func (s *Store) Load(name string) (*Artifact, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}

	env, err := s.readModel(name)
	if err != nil {
		return nil, err
	}

	data, err := dataset.ReadFile(filepath.Join(s.dir, DataName(name)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s has no training data", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to read training data for %s: %w", name, err)
	}

	return &Artifact{Name: name, CreatedAt: env.CreatedAt, Model: &env.Model, Data: data}, nil
}

// Info summarizes an artifact.
func (s *Store) Info(name string) (*Info, error) {
	a, err := s.Load(name)
	if err != nil {
		return nil, err
	}
	return &Info{
		Name:      a.Name,
		NClusters: a.Model.K,
		Inertia:   a.Model.Inertia,
		Centers:   a.Model.Centers,
		Features:  a.Model.Features,
		Rows:      a.Data.Len(),
		CreatedAt: a.CreatedAt,
	}, nil
}

func (s *Store) readModel(name string) (*envelope, error) {
	file, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
		}
		return nil, fmt.Errorf("failed to open model %s: %w", name, err)
	}
	defer file.Close()

	var env envelope
	if err := gob.NewDecoder(file).Decode(&env); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidArtifact, name, err)
	}
	if env.Kind != Kind || env.Version != Version {
		return nil, fmt.Errorf("%w: %s has kind %q version %d", ErrInvalidArtifact, name, env.Kind, env.Version)
	}
	if env.Model.K <= 0 || len(env.Model.Centers) != env.Model.K {
		return nil, fmt.Errorf("%w: %s has %d centers for k=%d", ErrInvalidArtifact, name, len(env.Model.Centers), env.Model.K)
	}
	return &env, nil
}

func validateName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) ||
		!strings.HasSuffix(name, modelExt) || strings.Contains(name, ".tmp-") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// timestampOf extracts the save time embedded in a model name; unknown
// layouts sort last.
func timestampOf(name string) time.Time {
	stem := strings.TrimSuffix(name, modelExt)
	i := strings.LastIndex(stem, "_")
	if i < 0 {
		return time.Time{}
	}
	ts, err := time.Parse(timestampLayout, stem[i+1:])
	if err != nil {
		return time.Time{}
	}
	return ts
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
