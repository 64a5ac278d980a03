package storage

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/eugenenazirov/bpmctl/internal/process"
)

var (
	// ErrInvalidProcesses indicates the provided templates violate validation rules.
	ErrInvalidProcesses = errors.New("processes must have positive unique ids and non-empty names")
	// ErrProcessNotFound is returned when no template has the requested id.
	ErrProcessNotFound = errors.New("process not found")
)

// Storage provides access to the business-process templates served by the mock server.
type Storage interface {
	List() ([]process.Process, error)
	Get(id int) (process.Process, error)
	Replace(processes []process.Process) error
}

// MemoryStorage keeps process templates in-memory and guards access with a RWMutex.
type MemoryStorage struct {
	mu        sync.RWMutex
	processes []process.Process
}

// NewMemoryStorage initialises storage with the built-in sample templates.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		processes: process.Sample(),
	}
}

// List returns a defensive copy of the templates ordered by id.
func (s *MemoryStorage) List() ([]process.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return process.CloneAll(s.processes), nil
}

// Get returns a copy of the template with the given id.
func (s *MemoryStorage) Get(id int) (process.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.processes {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return process.Process{}, fmt.Errorf("process %d: %w", id, ErrProcessNotFound)
}

// Replace validates, sorts, and stores the provided templates.
func (s *MemoryStorage) Replace(processes []process.Process) error {
	normalized, err := normalizeProcesses(processes)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.processes = normalized
	s.mu.Unlock()

	return nil
}

func normalizeProcesses(processes []process.Process) ([]process.Process, error) {
	seen := make(map[int]struct{}, len(processes))
	for _, p := range processes {
		if p.ID <= 0 || strings.TrimSpace(p.Name) == "" {
			return nil, ErrInvalidProcesses
		}
		if _, dup := seen[p.ID]; dup {
			return nil, ErrInvalidProcesses
		}
		seen[p.ID] = struct{}{}
	}

	out := process.CloneAll(processes)
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
