// Package storage persists task collections under a namespace key and
// exposes the best-effort load/save contract the repository relies on.
package storage

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	jsonschema "github.com/santhosh-tekuri/jsonschema/v5"

	"todovoice/internal/task"
)

// ErrNotFound is returned by a Backend when nothing is stored under a key.
var ErrNotFound = errors.New("no value stored for key")

// Backend is a key/value medium holding one serialized collection per key.
type Backend interface {
	Read(key string) ([]byte, error)
	Write(key string, value []byte) error
	Delete(key string) error
	Close() error
}

//go:embed tasks.schema.json
var schemaSource string

var taskSchema = jsonschema.MustCompileString("tasks.schema.json", schemaSource)

// Store loads and saves the whole task collection stored under one key.
// Failures never reach the caller: a failed load yields an empty
// collection and a failed save is only logged.
type Store struct {
	backend Backend
	key     string
	logger  *log.Logger
}

func NewStore(backend Backend, key string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{backend: backend, key: key, logger: logger.With("key", key)}
}

func (s *Store) Key() string { return s.key }

func (s *Store) LoadAll() []task.Task {
	tasks, err := s.load()
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			s.logger.Warn("reading tasks failed, starting empty", "err", err)
		}
		return []task.Task{}
	}
	return tasks
}

func (s *Store) SaveAll(tasks []task.Task) {
	if err := s.save(tasks); err != nil {
		s.logger.Error("saving tasks failed", "err", err, "count", len(tasks))
	}
}

// Purge removes the whole collection stored under the key.
func (s *Store) Purge() error {
	if err := s.backend.Delete(s.key); err != nil {
		return fmt.Errorf("purge %s: %w", s.key, err)
	}
	s.logger.Info("purged tasks")
	return nil
}

func (s *Store) load() ([]task.Task, error) {
	data, err := s.backend.Read(s.key)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

func (s *Store) save(tasks []task.Task) error {
	if tasks == nil {
		tasks = []task.Task{}
	}
	data, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode tasks: %w", err)
	}
	return s.backend.Write(s.key, data)
}

// Decode validates a serialized collection against the task schema and
// the record invariants before decoding it.
func Decode(data []byte) ([]task.Task, error) {
	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse tasks: %w", err)
	}
	if err := taskSchema.Validate(doc); err != nil {
		return nil, fmt.Errorf("validate tasks: %w", err)
	}
	var tasks []task.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	seen := make(map[int64]struct{}, len(tasks))
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if _, dup := seen[t.ID]; dup {
			return nil, fmt.Errorf("duplicate task id %d", t.ID)
		}
		seen[t.ID] = struct{}{}
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	return tasks, nil
}
