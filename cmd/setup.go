package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/dodeck/internal/repositories"
	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// SetupDatabase initializes the database and runs migrations.
func (r *Runner) SetupDatabase(ctx context.Context, cmd *cli.Command) error {
	r.logger.Info("initializing database", "path", r.config.Database.Path)

	db, err := r.database(ctx)
	if err != nil {
		return fmt.Errorf("failed to set up database: %w", err)
	}

	version, err := shared.CurrentVersion(ctx, db)
	if err != nil {
		return err
	}
	r.logger.Infof("setup complete for database: %v", r.config.Database.Path)
	return r.writePlain("✓ Database ready at %s (schema version %d)\n", r.config.Database.Path, version)
}

// SetupConfig writes the example configuration file.
func (r *Runner) SetupConfig(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("output")
	if path == "" {
		path = cmd.String("config")
	}
	if path == "" {
		path = "config.toml"
	}

	if err := shared.CreateConfigFile(path); err != nil {
		return err
	}
	r.logger.Info("config file created", "path", path)

	r.writePlain("✓ Config written to %s\n", path)
	r.writePlainln("Next steps:")
	r.writePlain("1. Set auth.domain, auth.client_id and auth.audience from your identity provider\n")
	r.writePlain("2. Run 'dodeck auth login' to sign in\n")
	return nil
}

// SetupSeed imports a TOML fixture of decks and dos into the service database.
func (r *Runner) SetupSeed(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("file")
	if path == "" {
		return fmt.Errorf("%w: fixture file", shared.ErrMissingArgument)
	}

	fixture, err := repositories.LoadFixture(path)
	if err != nil {
		return err
	}

	db, err := r.database(ctx)
	if err != nil {
		return err
	}

	decks, dos, err := repositories.NewDeckRepository(db).Import(ctx, fixture)
	if err != nil {
		return err
	}

	r.logger.Info("seeded database", "file", path, "decks", decks, "dos", dos)
	return r.writePlain("✓ Imported %d decks and %d dos from %s\n", decks, dos, path)
}
