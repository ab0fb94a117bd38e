package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/dodeck/internal/repositories"
	"github.com/desertthunder/dodeck/internal/services"
	"github.com/desertthunder/dodeck/internal/session"
	"github.com/desertthunder/dodeck/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The database, session and deck client are built on first use so that commands like
// setup config work without a complete configuration.
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer
	openURL    shared.URLOpener
	db         *sql.DB
	session    *session.Provider
	api        *services.APIService
	decks      *services.DeckClient
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	OpenURL    shared.URLOpener
	DB         *sql.DB
	Session    *session.Provider
	API        *services.APIService
	Decks      *services.DeckClient
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}
	if opts.OpenURL == nil {
		opts.OpenURL = shared.OpenBrowser
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		openURL:    opts.OpenURL,
		db:         opts.DB,
		session:    opts.Session,
		api:        opts.API,
		decks:      opts.Decks,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, decksCommand, dosCommand, apiCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// loadConfig reads the --config file when present and applies environment overrides.
func (r *Runner) loadConfig(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if _, err := os.Stat(path); err == nil {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
	} else {
		r.logger.Debug("config file not found, using defaults", "path", path)
	}

	r.config.ApplyEnv()
	shared.SetLogLevel(r.logger, r.config.LogLevel)
	return ctx, nil
}

// SetLogger replaces the logger used by the runner and anything it builds afterwards.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

// Close releases the database connection if one was opened.
func (r *Runner) Close() error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

func (r *Runner) database(ctx context.Context) (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}
	db, err := shared.OpenDatabase(ctx, r.config.Database)
	if err != nil {
		return nil, err
	}
	r.db = db
	return db, nil
}

// provider builds the session provider and restores any stored credential.
func (r *Runner) provider(ctx context.Context) (*session.Provider, error) {
	if r.session != nil {
		return r.session, nil
	}
	if err := r.config.ValidateClient(); err != nil {
		return nil, err
	}

	var repo *repositories.CredentialRepository
	if r.config.Auth.CredentialStore == "" || r.config.Auth.CredentialStore == "database" {
		db, err := r.database(ctx)
		if err != nil {
			return nil, err
		}
		repo = repositories.NewCredentialRepository(db)
	}
	store, err := session.NewStore(r.config.Auth.CredentialStore, repo)
	if err != nil {
		return nil, err
	}

	p := session.NewProvider(session.Options{
		Auth:         r.config.Auth,
		CallbackAddr: r.config.Server.Addr(),
		Store:        store,
		Logger:       r.logger,
		OpenURL:      r.openURL,
		Prompt: func(authURL string) {
			r.writePlain("Open this URL in your browser to sign in:\n\n%s\n\n", authURL)
		},
	})
	if _, err := p.Restore(ctx); err != nil {
		r.logger.Warn("failed to restore stored credential", "error", err)
	}
	r.session = p
	return p, nil
}

func (r *Runner) apiService(ctx context.Context) (*services.APIService, error) {
	if r.api != nil {
		return r.api, nil
	}
	p, err := r.provider(ctx)
	if err != nil {
		return nil, err
	}
	r.api = services.NewAPIService(r.config.API.BaseURL, r.httpClient, p, r.config.API.Timeout())
	return r.api, nil
}

func (r *Runner) deckClient(ctx context.Context) (*services.DeckClient, error) {
	if r.decks != nil {
		return r.decks, nil
	}
	api, err := r.apiService(ctx)
	if err != nil {
		return nil, err
	}
	r.decks = services.NewDeckClient(api, r.logger)
	return r.decks, nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writeBytes(b []byte) error {
	if _, err := r.output.Write(b); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
