package mcp

import (
	"context"
	"fmt"

	"github.com/eugenenazirov/bpmctl/internal/process"
)

// Mock is an offline Source serving fixed templates.
type Mock struct {
	processes []process.Process
}

// NewMock returns a Mock serving the built-in sample templates.
func NewMock() *Mock {
	return &Mock{processes: process.Sample()}
}

// NewMockWith returns a Mock serving a copy of processes.
func NewMockWith(processes []process.Process) *Mock {
	return &Mock{processes: process.CloneAll(processes)}
}

// ListProcesses returns a copy of every template.
func (m *Mock) ListProcesses(ctx context.Context) ([]process.Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return process.CloneAll(m.processes), nil
}

// GetProcess returns the template with the given id.
func (m *Mock) GetProcess(ctx context.Context, id int) (process.Process, error) {
	if err := ctx.Err(); err != nil {
		return process.Process{}, err
	}
	for _, p := range m.processes {
		if p.ID == id {
			return p.Clone(), nil
		}
	}
	return process.Process{}, fmt.Errorf("process %d: %w", id, ErrProcessNotFound)
}

var (
	_ Source = (*Client)(nil)
	_ Source = (*Mock)(nil)
)
