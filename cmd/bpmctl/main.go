package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/bpmctl/internal/application"
	"github.com/eugenenazirov/bpmctl/internal/bpmdb"
	"github.com/eugenenazirov/bpmctl/internal/config"
	"github.com/eugenenazirov/bpmctl/internal/logging"
	"github.com/eugenenazirov/bpmctl/internal/render"
)

const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
)

var (
	signalNotify = signal.Notify
	newLogger    = logging.NewForCLI
	openStore    = func(ctx context.Context, path string) (*bpmdb.Store, error) {
		return bpmdb.Open(ctx, path)
	}
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cli holds parsed flags and the output streams of one invocation.
type cli struct {
	stdout  io.Writer
	stderr  io.Writer
	printer *render.Printer

	configFile string
	envFile    string
	mcpURL     string
	dbPath     string
	timeout    time.Duration
	verbose    bool

	mock      bool
	outFile   string
	noSave    bool
	processID int
	planFile  string
	adminName string
	port      string
	token     string
}

func run(args []string, stdout, stderr io.Writer) int {
	c := &cli{
		stdout:  stdout,
		stderr:  stderr,
		printer: render.NewPrinter(stdout),
	}

	app := c.application()
	exited, code := false, exitOK
	app.Terminate(func(status int) {
		exited, code = true, status
	})

	command, err := app.Parse(args)
	if exited {
		return code
	}
	if err != nil {
		app.Errorf("%v, try --help", err)
		return exitUsage
	}

	logger, err := newLogger(c.verbose)
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logger: %v\n", err)
		return exitFailure
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	switch command {
	case "config show":
		return c.configShow(logger)
	case "config check":
		return c.configCheck()
	case "ping":
		return c.ping(ctx, logger)
	case "processes list":
		return c.processesList(ctx, logger)
	case "processes get":
		return c.processesGet(ctx, logger)
	case "seed init":
		return c.seedInit(ctx, logger)
	case "seed users":
		return c.seedUsers(ctx, logger)
	case "seed responsibles":
		return c.seedResponsibles(ctx, logger)
	case "seed process":
		return c.seedProcess(ctx, logger)
	case "serve-mock":
		return c.serveMock(logger)
	}

	app.Errorf("unknown command %q", command)
	return exitUsage
}

func (c *cli) application() *kingpin.Application {
	app := kingpin.New("bpmctl", "Demo and admin tooling for the BPM app: MCP config, process templates and database seeding")
	app.UsageWriter(c.stdout)
	app.ErrorWriter(c.stderr)

	app.Flag("config", "Path to the JSON configuration file").StringVar(&c.configFile)
	app.Flag("env-file", "Path to a .env file").StringVar(&c.envFile)
	app.Flag("url", "MCP server URL").StringVar(&c.mcpURL)
	app.Flag("db", "Path to the BPM app SQLite database").StringVar(&c.dbPath)
	app.Flag("timeout", "MCP request timeout").DurationVar(&c.timeout)
	app.Flag("verbose", "Human-readable debug logging").Short('v').BoolVar(&c.verbose)

	cfgCmd := app.Command("config", "Inspect the MCP configuration")
	cfgCmd.Command("show", "Print the resolved MCP URL and headers")
	cfgCmd.Command("check", "Validate the configuration file")

	app.Command("ping", "Test the connection to the MCP server")

	procCmd := app.Command("processes", "Business process templates")
	list := procCmd.Command("list", "List business process templates")
	list.Flag("mock", "Use built-in sample data instead of the network").BoolVar(&c.mock)
	list.Flag("out", "File the templates are saved to").Default(defaultOutFile).StringVar(&c.outFile)
	list.Flag("no-save", "Do not save the templates to a file").BoolVar(&c.noSave)
	get := procCmd.Command("get", "Show one business process template")
	get.Flag("mock", "Use built-in sample data instead of the network").BoolVar(&c.mock)
	get.Arg("id", "Business process ID").Required().IntVar(&c.processID)

	seedCmd := app.Command("seed", "Seed the BPM app database")
	initCmd := seedCmd.Command("init", "Create the schema and import the sample process")
	initCmd.Flag("admin", "Username of the superuser created first").Default("admin").StringVar(&c.adminName)
	planHelp := "YAML seeding plan (built-in plan when omitted)"
	seedCmd.Command("users", "Create users and groups").
		Flag("plan", planHelp).StringVar(&c.planFile)
	seedCmd.Command("responsibles", "Assign responsible users and groups to tasks").
		Flag("plan", planHelp).StringVar(&c.planFile)
	seedCmd.Command("process", "Attach document types and start conditions to the process").
		Flag("plan", planHelp).StringVar(&c.planFile)

	serve := app.Command("serve-mock", "Run a mock MCP server with the sample processes")
	serve.Flag("port", "HTTP port of the mock server").StringVar(&c.port)
	serve.Flag("token", "Bearer token required by the mock server").StringVar(&c.token)

	return app
}

func (c *cli) overrides() *config.CLIOverrides {
	return &config.CLIOverrides{
		ConfigFile:     c.configFile,
		EnvFile:        c.envFile,
		MCPURL:         &c.mcpURL,
		DatabasePath:   &c.dbPath,
		RequestTimeout: &c.timeout,
		Port:           &c.port,
		Token:          &c.token,
	}
}

func (c *cli) loadConfig() (config.Config, bool) {
	cfg, err := config.Load(c.overrides())
	if err != nil {
		c.printer.ConfigError(err)
		return config.Config{}, false
	}
	return cfg, true
}

// fail reports err on stderr and returns the failure exit code.
func (c *cli) fail(logger *zap.Logger, msg string, err error) int {
	logger.Debug(msg, zap.Error(err))
	render.NewPrinter(c.stderr).Tagged("ERROR", "%s: %v", msg, err)
	return exitFailure
}

func (c *cli) serveMock(logger *zap.Logger) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return exitFailure
	}

	app, err := application.New(cfg, logger)
	if err != nil {
		return c.fail(logger, "failed to initialize mock server", err)
	}
	if err := app.Start(); err != nil {
		return c.fail(logger, "failed to start mock server", err)
	}

	shutdown(app.Server(), cfg.MockServer.ShutdownGracePeriod, logger)
	return exitOK
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
