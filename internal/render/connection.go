package render

import (
	"errors"

	"github.com/eugenenazirov/bpmctl/internal/config"
	"github.com/eugenenazirov/bpmctl/internal/mcp"
	"github.com/eugenenazirov/bpmctl/internal/process"
)

// ConnectionStart announces a connection test.
func (p *Printer) ConnectionStart(url string, headers map[string]string) {
	p.Line("Testing connection to MCP server: %s", url)
	masked := config.MaskHeaders(headers)
	if len(masked) == 0 {
		p.Line("Headers in use: (none)")
		return
	}
	p.Line("Headers in use:")
	for _, key := range config.SortedHeaderKeys(masked) {
		p.Line("  %s: %s", key, masked[key])
	}
}

// ConnectionResult prints the outcome of a connection test.
func (p *Printer) ConnectionResult(res mcp.PingResult, err error) {
	var statusErr *mcp.StatusError
	switch {
	case err == nil:
		p.Line("Status code: %d", res.StatusCode)
		p.OK("Connected to MCP server successfully!")
		p.Line("Response: %s...", res.Preview)
	case errors.As(err, &statusErr):
		p.Line("Status code: %d", statusErr.StatusCode)
		p.Fail("Connection failed. Status code: %d", statusErr.StatusCode)
		p.Line("Response: %s", statusErr.Body)
	default:
		p.Fail("Connection error: %v", err)
	}
}

// FetchStart announces a fetch of the process list.
func (p *Printer) FetchStart(url string, mock bool) {
	p.Line("Fetching business processes from: %s", url)
	if mock {
		p.Line("Mock mode: serving built-in sample data, no request is sent")
		return
	}
	p.Line("Using authorization headers from the configuration")
}

// FetchResult reports the outcome of a fetch. A nil error with processes
// prints the count; an error prints the failure.
func (p *Printer) FetchResult(processes []process.Process, err error) {
	var statusErr *mcp.StatusError
	switch {
	case err == nil:
		p.OK("Received %d business processes", len(processes))
	case errors.As(err, &statusErr):
		p.Fail("Failed to fetch business processes. Status code: %d", statusErr.StatusCode)
	default:
		p.Fail("Error while fetching business processes: %v", err)
	}
}

// ProcessNames prints a numbered list of process names.
func (p *Printer) ProcessNames(processes []process.Process) {
	p.Blank()
	p.Line("Business processes:")
	for i, proc := range processes {
		name := proc.Name
		if name == "" {
			name = "Unknown process"
		}
		p.Line("%d. %s", i+1, name)
	}
}
