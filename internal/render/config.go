package render

import (
	"strings"

	"github.com/eugenenazirov/bpmctl/internal/config"
)

// Config prints the resolved MCP connection settings with masked credentials.
func (p *Printer) Config(url string, headers map[string]string) {
	p.Line("MCP server configuration:")
	p.Line("URL: %s", url)
	p.Line("Headers:")
	if len(headers) == 0 {
		p.Line("  (none)")
		return
	}
	for _, key := range config.SortedHeaderKeys(headers) {
		p.Line("  %s: %s", key, config.MaskHeader(key, headers[key]))
	}
}

// ConfigCheck prints the outcome of the configuration self-test.
func (p *Printer) ConfigCheck(report config.CheckReport) {
	p.Banner("Testing MCP server configuration", NarrowRule)

	p.Tagged("OK", "Configuration loaded from %s", report.Path)
	p.Blank()
	p.Tagged("OK", "MCP server URL: %s", report.URL)
	p.Tagged("OK", "Authorization headers:")
	for _, key := range config.SortedHeaderKeys(report.Headers) {
		p.Line("  %s: %s", key, config.MaskHeader(key, report.Headers[key]))
	}

	if len(report.MissingFields) > 0 {
		p.Blank()
		p.Tagged("ERROR", "Missing required fields: %s", strings.Join(report.MissingFields, ", "))
		return
	}
	if report.MissingAuthorization {
		p.Blank()
		p.Tagged("ERROR", "Missing authorization header")
		return
	}

	p.Blank()
	p.Rule(NarrowRule)
	p.Tagged("SUCCESS", "All configuration checks passed!")
	p.Rule(NarrowRule)
	p.Blank()
	p.Line("Configuration is ready to use.")
}

// ConfigError prints a failure to load the configuration.
func (p *Printer) ConfigError(err error) {
	p.Blank()
	p.Tagged("ERROR", "Error loading configuration: %v", err)
}
