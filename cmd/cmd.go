// submodule cmd contains command definitions
package main

import "github.com/urfave/cli/v3"

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
		&cli.BoolFlag{
			Name:  "no-color",
			Usage: "Disable colored output",
		},
	}
}

func jsonFlags() []cli.Flag {
	return []cli.Flag{
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Output raw JSON",
		},
		&cli.BoolFlag{
			Name:  "pretty",
			Usage: "Pretty-print JSON output",
			Value: true,
		},
	}
}

func bandFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "band",
		Aliases:  []string{"b"},
		Usage:    "Band ID",
		Required: true,
	}
}

// setupCommand writes a config file and prepares the local database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:   "setup",
		Usage:  "Create config.toml and initialize the local database",
		Action: r.Setup,
	}
}

// authCommand handles session operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the band API session",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in with email and password, or import an existing token pair",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "email",
						Aliases: []string{"e"},
						Usage:   "Account email",
						Sources: cli.EnvVars("SETLIST_EMAIL"),
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password",
						Sources: cli.EnvVars("SETLIST_PASSWORD"),
					},
					&cli.StringFlag{
						Name:  "access-token",
						Usage: "Import this access token instead of signing in",
					},
					&cli.StringFlag{
						Name:  "refresh-token",
						Usage: "Refresh token to store with --access-token",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Clear the stored session",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the stored session and its expiry",
				Flags:  jsonFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:   "refresh",
				Usage:  "Exchange the refresh token for a new pair now",
				Action: r.AuthRefresh,
			},
			{
				Name:   "whoami",
				Usage:  "Show the signed-in user",
				Flags:  jsonFlags(),
				Action: r.AuthWhoami,
			},
			{
				Name:  "forgot-password",
				Usage: "Email a password reset link",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "email",
						Aliases:  []string{"e"},
						Usage:    "Account email",
						Sources:  cli.EnvVars("SETLIST_EMAIL"),
						Required: true,
					},
				},
				Action: r.AuthForgotPassword,
			},
			{
				Name:  "reset-password",
				Usage: "Set a new password with the token from the reset email",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "token",
						Aliases:  []string{"t"},
						Usage:    "Reset token",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "password",
						Aliases:  []string{"p"},
						Usage:    "New password",
						Sources:  cli.EnvVars("SETLIST_PASSWORD"),
						Required: true,
					},
				},
				Action: r.AuthResetPassword,
			},
			{
				Name:  "verify-email",
				Usage: "Confirm an email address with the token from the verification email",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "token",
					},
				},
				Action: r.AuthVerifyEmail,
			},
		},
	}
}

// apiCommand handles direct API calls through the gateway
func apiCommand(r *Runner) *cli.Command {
	method := func(name, usage string, withBody bool) *cli.Command {
		flags := []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
		}
		if withBody {
			flags = append(flags,
				&cli.StringFlag{
					Name:    "data",
					Aliases: []string{"d"},
					Usage:   "JSON body to send",
				},
				&cli.StringFlag{
					Name:  "data-file",
					Usage: "Read the JSON body from a file",
				},
			)
		}
		return &cli.Command{
			Name:  name,
			Usage: usage,
			Arguments: []cli.Argument{
				&cli.StringArg{
					Name: "path",
				},
			},
			Flags:  flags,
			Action: r.APIRequest,
		}
	}

	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated calls to the band API",
		Commands: []*cli.Command{
			method("get", "GET a path and print the response", false),
			method("post", "POST a JSON body", true),
			method("put", "PUT a JSON body", true),
			method("patch", "PATCH a JSON body", true),
			method("delete", "DELETE a path", false),
		},
	}
}

// bandsCommand lists and shows bands
func bandsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "bands",
		Usage: "Bands you belong to",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List your bands",
				Flags:  jsonFlags(),
				Action: r.BandsList,
			},
			{
				Name:  "show",
				Usage: "Show a band and its members",
				Arguments: []cli.Argument{
					&cli.StringArg{
						Name: "id",
					},
				},
				Flags:  jsonFlags(),
				Action: r.BandsShow,
			},
		},
	}
}

func eventsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "events",
		Usage: "Band events",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List a band's events",
				Flags:  append(jsonFlags(), bandFlag()),
				Action: r.EventsList,
			},
		},
	}
}

func songsCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "songs",
		Usage: "Band songs",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List a band's songs",
				Flags:  append(jsonFlags(), bandFlag()),
				Action: r.SongsList,
			},
		},
	}
}

// feedCommand reads and reacts to the social feed
func feedCommand(r *Runner) *cli.Command {
	postArg := []cli.Argument{
		&cli.StringArg{
			Name: "post",
		},
	}

	return &cli.Command{
		Name:  "feed",
		Usage: "Social feed",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "Show a page of the feed",
				Flags: append(jsonFlags(), &cli.IntFlag{
					Name:  "page",
					Usage: "Page number",
					Value: 1,
				}),
				Action: r.FeedList,
			},
			{
				Name:      "comments",
				Usage:     "Show the comments on a post",
				Arguments: postArg,
				Flags:     jsonFlags(),
				Action:    r.FeedComments,
			},
			{
				Name:      "comment",
				Usage:     "Comment on a post",
				Arguments: postArg,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "message",
						Aliases:  []string{"m"},
						Usage:    "Comment text",
						Required: true,
					},
				},
				Action: r.FeedComment,
			},
			{
				Name:      "bless",
				Usage:     "Bless a post",
				Arguments: postArg,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "undo",
						Usage: "Remove your blessing instead",
					},
				},
				Action: r.FeedBless,
			},
		},
	}
}

// exportCommand runs the bulk band export
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export bands with their events and songs",
		Flags: []cli.Flag{
			&cli.StringSliceFlag{
				Name:     "band",
				Aliases:  []string{"b"},
				Usage:    "Band ID to export (repeatable)",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "Output format (json, csv, markdown, txt)",
				Value:   "json",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: setlist_export_<unix time>)",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent band exports (max 10)",
				Value: 5,
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Bands started per second",
				Value: 5,
			},
			&cli.BoolFlag{
				Name:  "lyrics",
				Usage: "Include lyrics (markdown only)",
			},
		},
		Action: r.Export,
	}
}

// dumpCommand fetches the signed-in user's profile, bands and feed in one go
func dumpCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "dump",
		Usage: "Snapshot of profile, bands and feed for debugging",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "pretty",
				Usage: "Pretty-print output",
				Value: true,
			},
			&cli.StringFlag{
				Name:  "save",
				Usage: "Also write the snapshot to this file",
			},
		},
		Action: r.Dump,
	}
}

// proxyCommand serves the local auth proxy
func proxyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "proxy",
		Usage: "Serve an authenticated proxy to the band API on localhost",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Listen host (overrides server.host)",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Listen port (overrides server.port)",
			},
		},
		Action: r.Proxy,
	}
}
