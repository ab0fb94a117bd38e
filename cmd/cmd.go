// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

// setupCommand handles setup operations for the database, config and seed data.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "config",
				Usage: "Write an example config.toml",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Where to write the file (defaults to --config)",
					},
				},
				Action: r.SetupConfig,
			},
			{
				Name:  "seed",
				Usage: "Load decks and dos from a TOML fixture into the service database",
				Arguments: []cli.Argument{
					&cli.StringArg{Name: "file"},
				},
				Action: r.SetupSeed,
			},
		},
	}
}

// authCommand handles the DoDeck session
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the DoDeck session",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in (or sign up) in the browser",
				Action: r.AuthLogin,
			},
			{
				Name:  "logout",
				Usage: "Sign out and forget the stored credential",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "browser",
						Usage: "Also open the identity provider logout page",
					},
				},
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the signed-in user and check the deck service",
				Action: r.AuthStatus,
			},
			{
				Name:   "token",
				Usage:  "Print a valid access token, refreshing it if needed",
				Action: r.AuthToken,
			},
		},
	}
}

// decksCommand handles deck reads
func decksCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "decks",
		Usage: "Read your decks",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List decks, optionally filtered by a name prefix",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Deck name prefix",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, csv or md",
						Value:   "txt",
					},
				},
				Action: r.DecksList,
			},
			{
				Name:  "show",
				Usage: "Show a deck with its dos",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "id",
						Usage:    "Deck ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Output format: txt, csv or md",
						Value:   "txt",
					},
				},
				Action: r.DecksShow,
			},
			{
				Name:  "export",
				Usage: "Export every deck with its dos to files",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "format",
						Aliases: []string{"f"},
						Usage:   "Export format: json, csv, md or txt",
						Value:   "json",
					},
					&cli.StringFlag{
						Name:    "dir",
						Aliases: []string{"o"},
						Usage:   "Output directory (default: dodeck_export_{epoch})",
					},
					&cli.StringFlag{
						Name:    "search",
						Aliases: []string{"s"},
						Usage:   "Only export decks whose name starts with this",
					},
					&cli.IntFlag{
						Name:  "workers",
						Usage: "Concurrent file writers",
						Value: 4,
					},
					&cli.FloatFlag{
						Name:  "rate",
						Usage: "Dos requests per second",
						Value: 5,
					},
				},
				Action: r.DecksExport,
			},
		},
	}
}

// dosCommand handles do reads
func dosCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dos",
		Usage: "Read the dos of a deck",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List the dos of a deck",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "deck",
						Aliases:  []string{"d"},
						Usage:    "Deck ID",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.DosList,
			},
		},
	}
}

// apiCommand handles direct calls to the deck service
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the deck service",
		Commands: []*cli.Command{
			{
				Name:  "get",
				Usage: "Authorized GET, prints the response body",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "path",
					},
				},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON output",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// tuiCommand returns the top-level TUI command.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive deck browser",
		Action:  r.TUI,
	}
}

// serveCommand runs the deck service.
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the read-only deck service",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (overrides service.addr)",
			},
		},
		Action: r.Serve,
	}
}
