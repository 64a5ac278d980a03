package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/eugenenazirov/bpmctl/internal/config"
	"github.com/eugenenazirov/bpmctl/internal/process"
	"github.com/eugenenazirov/bpmctl/internal/seed"
)

// errNoDatabase is returned when a seeding step targets a missing database.
var errNoDatabase = errors.New("database not found, run `bpmctl seed init` first")

func (c *cli) seedInit(ctx context.Context, logger *zap.Logger) int {
	cfg, ok := c.loadConfig()
	if !ok {
		return exitFailure
	}

	store, err := openStore(ctx, cfg.DatabasePath)
	if err != nil {
		return c.fail(logger, "failed to open database", err)
	}
	defer store.Close()

	p := c.printer
	if err := store.EnsureSchema(ctx); err != nil {
		return c.fail(logger, "failed to create schema", err)
	}
	p.OK("Schema ready in %s", store.Path())

	admin, created, err := store.EnsureAdmin(ctx, c.adminName)
	if err != nil {
		return c.fail(logger, "failed to create superuser", err)
	}
	if created {
		p.OK("Created superuser: %s (ID: %d)", admin.Username, admin.ID)
	} else {
		p.Skip("Superuser already exists: %s (ID: %d)", admin.Username, admin.ID)
	}

	for _, proc := range process.Sample() {
		if err := store.ImportTemplate(ctx, proc); err != nil {
			return c.fail(logger, "failed to import business process", err)
		}
		p.OK("Imported business process '%s' (ID: %d, %d tasks, %d document types)",
			proc.Name, proc.ID, len(proc.Tasks), len(proc.DocumentTypes))
	}

	logger.Info("database initialized", zap.String("path", store.Path()))
	return exitOK
}

// openSeeder loads the plan and opens the existing database.
func (c *cli) openSeeder(ctx context.Context, logger *zap.Logger) (*seed.Seeder, seed.Plan, func(), error) {
	plan, err := c.plan()
	if err != nil {
		return nil, seed.Plan{}, nil, err
	}

	cfg, err := config.Load(c.overrides())
	if err != nil {
		return nil, seed.Plan{}, nil, err
	}

	if _, err := os.Stat(cfg.DatabasePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, seed.Plan{}, nil, fmt.Errorf("%s: %w", cfg.DatabasePath, errNoDatabase)
		}
		return nil, seed.Plan{}, nil, err
	}

	store, err := openStore(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, seed.Plan{}, nil, err
	}
	closeFn := func() {
		if err := store.Close(); err != nil {
			logger.Warn("closing database failed", zap.Error(err))
		}
	}
	return seed.NewSeeder(store, c.printer, logger), plan, closeFn, nil
}

func (c *cli) plan() (seed.Plan, error) {
	if c.planFile == "" {
		return seed.DefaultPlan()
	}
	return seed.LoadPlan(c.planFile)
}

func (c *cli) seedUsers(ctx context.Context, logger *zap.Logger) int {
	seeder, plan, closeFn, err := c.openSeeder(ctx, logger)
	if err != nil {
		return c.fail(logger, "failed to prepare seeding", err)
	}
	defer closeFn()

	if _, err := seeder.CreateUsersAndGroups(ctx, plan); err != nil {
		return c.fail(logger, "failed to create users and groups", err)
	}
	c.printer.Blank()
	c.printer.OK("Done! Responsibles can now be assigned with `bpmctl seed responsibles`.")
	return exitOK
}

func (c *cli) seedResponsibles(ctx context.Context, logger *zap.Logger) int {
	seeder, plan, closeFn, err := c.openSeeder(ctx, logger)
	if err != nil {
		return c.fail(logger, "failed to prepare seeding", err)
	}
	defer closeFn()

	if _, err := seeder.AssignResponsibles(ctx, plan); err != nil {
		return c.fail(logger, "failed to assign responsibles", err)
	}
	c.printer.Blank()
	c.printer.OK("Done!")
	return exitOK
}

func (c *cli) seedProcess(ctx context.Context, logger *zap.Logger) int {
	seeder, plan, closeFn, err := c.openSeeder(ctx, logger)
	if err != nil {
		return c.fail(logger, "failed to prepare seeding", err)
	}
	defer closeFn()

	if _, err := seeder.SetupProcess(ctx, plan); err != nil {
		if errors.Is(err, seed.ErrProcessMissing) {
			return exitFailure
		}
		return c.fail(logger, "failed to set up business process", err)
	}
	return exitOK
}
