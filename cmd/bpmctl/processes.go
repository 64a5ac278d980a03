package main

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/eugenenazirov/bpmctl/internal/config"
	"github.com/eugenenazirov/bpmctl/internal/mcp"
	"github.com/eugenenazirov/bpmctl/internal/process"
	"github.com/eugenenazirov/bpmctl/internal/render"
)

const defaultOutFile = process.DefaultOutputFile

func (c *cli) configShow(logger *zap.Logger) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return exitFailure
	}
	logger.Debug("configuration resolved", zap.Bool("file", cfg.File != nil))

	c.printer.Config(cfg.MCPURL, cfg.Headers)
	if cfg.File != nil {
		c.printer.Line("Config file: %s", cfg.File.Path())
	} else {
		c.printer.Line("Config file: (none, defaults in use)")
	}
	c.printer.Line("Database: %s", cfg.DatabasePath)
	c.printer.Line("Request timeout: %s", cfg.RequestTimeout)
	return exitOK
}

func (c *cli) configCheck() int {
	path, err := config.ResolvePath(c.overrides())
	if err != nil {
		c.printer.ConfigError(err)
		return exitFailure
	}

	f, err := config.LoadFile(path)
	if err != nil {
		c.printer.ConfigError(err)
		return exitFailure
	}

	report := config.Check(f)
	c.printer.ConfigCheck(report)
	if !report.OK() {
		return exitFailure
	}
	return exitOK
}

func (c *cli) client(cfg config.Config, logger *zap.Logger) *mcp.Client {
	return mcp.NewClient(cfg.MCPURL, cfg.Headers,
		mcp.WithTimeout(cfg.RequestTimeout),
		mcp.WithLogger(logger),
	)
}

// source returns the process source for the --mock flag along with the live
// client, which is still used to build display URLs in mock mode.
func (c *cli) source(cfg config.Config, logger *zap.Logger) (mcp.Source, *mcp.Client) {
	client := c.client(cfg, logger)
	if c.mock {
		return mcp.NewMock(), client
	}
	return client, client
}

func (c *cli) ping(ctx context.Context, logger *zap.Logger) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return exitFailure
	}

	p := c.printer
	p.Banner("Testing connection to MCP server", render.NarrowRule)

	client := c.client(cfg, logger)
	p.ConnectionStart(client.URL(), cfg.Headers)
	res, err := client.Ping(ctx)
	p.ConnectionResult(res, err)

	code := exitOK
	if err != nil {
		code = exitFailure
	} else {
		p.Section("Fetching data from MCP server", render.NarrowRule)
		p.Line("Fetching business processes: %s", client.ProcessesURL())
		processes, err := client.ListProcesses(ctx)
		p.FetchResult(processes, err)
		switch {
		case err != nil:
			logger.Warn("listing processes failed", zap.Error(err))
			code = exitFailure
		case len(processes) > 0:
			p.ProcessNames(processes)
		}
	}

	p.Section("Connection test complete", render.NarrowRule)
	return code
}

func (c *cli) processesList(ctx context.Context, logger *zap.Logger) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return exitFailure
	}

	p := c.printer
	p.Banner("FETCHING BUSINESS PROCESS INFORMATION FROM MCP", render.WideRule)

	src, client := c.source(cfg, logger)
	p.FetchStart(client.ProcessesURL(), c.mock)

	processes, err := src.ListProcesses(ctx)
	if err != nil {
		logger.Warn("listing processes failed", zap.Error(err))
		p.FetchResult(nil, err)
		p.Blank()
		p.FetchHints()
		return exitFailure
	}
	p.Processes(processes)
	if len(processes) == 0 {
		return exitOK
	}

	if !c.noSave {
		if err := process.SaveJSON(c.outFile, processes); err != nil {
			return c.fail(logger, "failed to save business processes", err)
		}
		p.Saved(c.outFile)
	}

	p.Summary(process.Summarize(processes))
	p.UsageExample()
	return exitOK
}

func (c *cli) processesGet(ctx context.Context, logger *zap.Logger) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return exitFailure
	}

	src, client := c.source(cfg, logger)
	c.printer.FetchStart(client.ProcessURL(c.processID), c.mock)

	proc, err := src.GetProcess(ctx, c.processID)
	if err != nil {
		var statusErr *mcp.StatusError
		switch {
		case errors.Is(err, mcp.ErrProcessNotFound):
			c.printer.Fail("Business process with ID %d not found", c.processID)
		case errors.As(err, &statusErr):
			c.printer.Fail("Failed to fetch business process. Status code: %d", statusErr.StatusCode)
		default:
			c.printer.Fail("Error while fetching business process: %v", err)
		}
		return exitFailure
	}

	c.printer.Process(proc)
	return exitOK
}
