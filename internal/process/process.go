// Package process holds the business-process template records served by the
// MCP endpoint of the BPM app: processes, their tasks and document types.
package process

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// DefaultOutputFile is where fetched process templates are saved by default.
const DefaultOutputFile = "mcp_processes_info.json"

// Process is a business-process template.
type Process struct {
	ID            int            `json:"id"`
	Name          string         `json:"name"`
	Description   string         `json:"description"`
	Tasks         []Task         `json:"tasks"`
	DocumentTypes []DocumentType `json:"document_types"`
}

// Task is a single stage of a business process.
type Task struct {
	ID          int    `json:"id"`
	Name        string `json:"name"`
	Order       int    `json:"order"`
	Description string `json:"description"`
}

// DocumentType describes a document (entity type) used by a process.
type DocumentType struct {
	ID     int     `json:"id"`
	Name   string  `json:"name"`
	Fields []Field `json:"fields"`
}

// Field is a single field of a document type.
type Field struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Required bool   `json:"required"`
}

// Summary aggregates counts over a set of processes.
type Summary struct {
	Processes     int
	Tasks         int
	DocumentTypes int
}

// Summarize counts processes, tasks and document types.
func Summarize(processes []Process) Summary {
	s := Summary{Processes: len(processes)}
	for _, p := range processes {
		s.Tasks += len(p.Tasks)
		s.DocumentTypes += len(p.DocumentTypes)
	}
	return s
}

// Clone returns a deep copy of p.
func (p Process) Clone() Process {
	out := p
	out.Tasks = append([]Task(nil), p.Tasks...)
	out.DocumentTypes = make([]DocumentType, len(p.DocumentTypes))
	for i, dt := range p.DocumentTypes {
		dt.Fields = append([]Field(nil), dt.Fields...)
		out.DocumentTypes[i] = dt
	}
	if p.DocumentTypes == nil {
		out.DocumentTypes = nil
	}
	return out
}

// CloneAll deep-copies a slice of processes.
func CloneAll(src []Process) []Process {
	out := make([]Process, len(src))
	for i, p := range src {
		out[i] = p.Clone()
	}
	return out
}

// Encode renders processes as indented JSON. Non-ASCII text is written as is.
func Encode(processes []Process) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(processes); err != nil {
		return nil, fmt.Errorf("encode processes: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveJSON writes processes to path as indented UTF-8 JSON.
func SaveJSON(path string, processes []Process) error {
	data, err := Encode(processes)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
