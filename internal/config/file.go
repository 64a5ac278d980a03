package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
)

// DefaultMCPURL is used when the config file does not set pdm.url.
const DefaultMCPURL = "http://localhost:8001/mcp"

var (
	// ErrNotFound reports that the config file does not exist.
	ErrNotFound = errors.New("config file not found")
	// ErrMalformed reports that the config file is not valid JSON.
	ErrMalformed = errors.New("config file is malformed")
)

// File is the parsed content of config.json.
type File struct {
	PDM            *Section          `json:"pdm"`
	Database       DatabaseSection   `json:"database"`
	RequestTimeout string            `json:"request_timeout"`
	MockServer     MockServerSection `json:"mock_server"`

	path    string
	pdmKeys map[string]struct{}
}

// Section is the "pdm" object holding the MCP server connection.
type Section struct {
	URL     *string           `json:"url"`
	Headers map[string]string `json:"headers"`
}

// DatabaseSection points at the BPM app database.
type DatabaseSection struct {
	Path string `json:"path"`
}

// MockServerSection configures `bpmctl serve-mock`.
type MockServerSection struct {
	Port                 string        `json:"port"`
	Token                string        `json:"token"`
	ShutdownGracePeriod  string        `json:"shutdown_grace_period"`
	EnableRequestLogging *bool         `json:"enable_request_logging"`
	RateLimit            jsonRateLimit `json:"rate_limit"`
}

type jsonRateLimit struct {
	RPS   *float64 `json:"rps"`
	Burst *int     `json:"burst"`
}

// LoadFile reads and parses the JSON config file at path.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s not found: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w: %v", path, ErrMalformed, err)
	}

	var raw struct {
		PDM map[string]json.RawMessage `json:"pdm"`
	}
	if err := json.Unmarshal(data, &raw); err == nil {
		f.pdmKeys = make(map[string]struct{}, len(raw.PDM))
		for key := range raw.PDM {
			f.pdmKeys[key] = struct{}{}
		}
	}

	f.path = path
	return &f, nil
}

// Path returns the location the file was loaded from.
func (f *File) Path() string {
	return f.path
}

// MCP returns the pdm section, or an empty one when the file has none.
func (f *File) MCP() Section {
	if f == nil || f.PDM == nil {
		return Section{}
	}
	return *f.PDM
}

// URL returns pdm.url, falling back to DefaultMCPURL when the key is absent.
func (f *File) URL() string {
	section := f.MCP()
	if section.URL == nil {
		return DefaultMCPURL
	}
	return *section.URL
}

// Headers returns a copy of pdm.headers, or an empty map.
func (f *File) Headers() map[string]string {
	return cloneHeaders(f.MCP().Headers)
}

// HasField reports whether the raw pdm object contains key.
func (f *File) HasField(key string) bool {
	if f == nil {
		return false
	}
	_, ok := f.pdmKeys[key]
	return ok
}

func cloneHeaders(src map[string]string) map[string]string {
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// SortedHeaderKeys returns header names in a stable order for printing.
func SortedHeaderKeys(headers map[string]string) []string {
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
