package render

import (
	"strings"

	"github.com/eugenenazirov/bpmctl/internal/process"
)

// Processes prints every template with its tasks and document types.
func (p *Printer) Processes(processes []process.Process) {
	if len(processes) == 0 {
		p.Line("No business processes available.")
		return
	}

	p.Section("AVAILABLE BUSINESS PROCESS TEMPLATES", WideRule)

	for i, proc := range processes {
		p.Blank()
		p.Line("%d. %s", i+1, proc.Name)
		p.Line("   ID: %d", proc.ID)
		p.Line("   Description: %s", proc.Description)

		p.Blank()
		p.Line("   Tasks (%d):", len(proc.Tasks))
		for _, task := range proc.Tasks {
			p.Line("     - %s (ID: %d, Order: %d)", task.Name, task.ID, task.Order)
			p.Line("       %s", task.Description)
		}

		p.Blank()
		p.Line("   Document types (%d):", len(proc.DocumentTypes))
		for _, dt := range proc.DocumentTypes {
			p.Line("     - %s (ID: %d)", dt.Name, dt.ID)
			p.Line("       Fields: %s", formatFields(dt.Fields))
		}
	}
}

// Process prints a single template.
func (p *Printer) Process(proc process.Process) {
	p.Processes([]process.Process{proc})
}

func formatFields(fields []process.Field) string {
	parts := make([]string, len(fields))
	for i, f := range fields {
		parts[i] = f.Name + " (" + f.Type + ")"
	}
	return strings.Join(parts, ", ")
}

// Summary prints totals over the fetched templates.
func (p *Printer) Summary(s process.Summary) {
	p.Section("BUSINESS PROCESS TEMPLATE SUMMARY", WideRule)
	p.Line("Business processes available: %d", s.Processes)
	p.Line("Total tasks: %d", s.Tasks)
	p.Line("Total document types: %d", s.DocumentTypes)
}

// Saved reports where templates were written.
func (p *Printer) Saved(path string) {
	p.Blank()
	p.Line("Business process information saved to: %s", path)
}

// UsageExample prints a snippet showing how to use the client from Go code.
func (p *Printer) UsageExample() {
	p.Section("USING THIS DATA IN YOUR CODE", WideRule)
	p.Line("%s", usageExample)
}

const usageExample = `
cfg, err := config.Load(nil)
if err != nil {
    return err
}
client := mcp.NewClient(cfg.MCPURL, cfg.Headers, mcp.WithTimeout(cfg.RequestTimeout))

p, err := client.GetProcess(ctx, 1)
if err != nil {
    return err
}
fmt.Printf("Found process: %s\n", p.Name)
fmt.Printf("Tasks: %d\n", len(p.Tasks))`

// FetchHints prints troubleshooting steps after a failed fetch.
func (p *Printer) FetchHints() {
	p.Line("Could not fetch business process information.")
	p.Line("Check that:")
	p.Line("1. The MCP server is running and reachable")
	p.Line("2. The configuration in config.json is correct")
	p.Line("3. The authorization token is valid")
}
