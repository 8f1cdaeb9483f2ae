package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/setlist/internal/gateway"
	"github.com/desertthunder/setlist/internal/services"
	"github.com/desertthunder/setlist/internal/session"
	"github.com/desertthunder/setlist/internal/shared"
	"github.com/desertthunder/setlist/internal/storage"
	"github.com/desertthunder/setlist/internal/tasks"
	"github.com/desertthunder/setlist/internal/ui"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// The session, gateway and services are wired on first use by [Runner.connect]
// so `setup` works before a config file exists.
type Runner struct {
	config      *shared.Config
	configPath  string
	storage     storage.KV
	sessions    *session.Manager
	client      *gateway.Client
	svc         *services.Services
	db          *sql.DB
	httpClient  *http.Client
	logger      *log.Logger
	output      io.Writer
	paint       ui.Painter
	openBrowser func(string) error
	closers     []func() error
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config      *shared.Config
	ConfigPath  string
	Storage     storage.KV // overrides session.storage when set
	HTTPClient  *http.Client
	Logger      *log.Logger
	Output      io.Writer
	Painter     ui.Painter
	OpenBrowser func(string) error
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
	if opts.Painter == nil {
		opts.Painter = ui.Default()
	}
	if opts.OpenBrowser == nil {
		opts.OpenBrowser = shared.OpenBrowser
	}

	return &Runner{
		config:      opts.Config,
		configPath:  opts.ConfigPath,
		storage:     opts.Storage,
		httpClient:  opts.HTTPClient,
		logger:      opts.Logger,
		output:      opts.Output,
		paint:       opts.Painter,
		openBrowser: opts.OpenBrowser,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, apiCommand, bandsCommand, eventsCommand, songsCommand,
		feedCommand, exportCommand, dumpCommand, proxyCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// configure loads the config file named by --config, overlays the
// environment and applies the global flags. Runs before every command.
func (r *Runner) configure(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if err := shared.LoadEnv(); err != nil {
		r.logger.Warn("failed to load .env", "error", err)
	}

	if path := cmd.String("config"); path != "" {
		r.configPath = path
		if _, err := os.Stat(path); err == nil {
			config, err := shared.LoadConfig(path)
			if err != nil {
				return ctx, err
			}
			r.config = config
		} else if cmd.IsSet("config") {
			return ctx, fmt.Errorf("%w: %s", shared.ErrMissingConfig, path)
		}
	}

	if err := r.config.ApplyEnv(); err != nil {
		return ctx, err
	}
	if level := cmd.String("log-level"); level != "" {
		r.config.Log.Level = level
	}
	shared.ConfigureLogger(r.logger, r.config.Log.Level)

	if cmd.Bool("no-color") {
		r.paint = ui.Plain()
	}
	return ctx, nil
}

// connect wires the session manager, gateway and services once per run.
func (r *Runner) connect(ctx context.Context) error {
	if r.svc != nil {
		return nil
	}
	if err := r.config.Validate(); err != nil {
		return err
	}

	kv, err := r.openStorage(ctx)
	if err != nil {
		return err
	}

	manager, err := session.NewManager(session.ManagerOpts{
		Storage:    kv,
		HTTPClient: r.httpClient,
		BaseURL:    r.config.API.BaseURL,
		Policy:     session.PolicyFromConfig(r.config.Session),
		Logger:     r.logger,
	})
	if err != nil {
		return err
	}
	if err := manager.Start(ctx); err != nil {
		manager.Close()
		return fmt.Errorf("failed to restore session: %w", err)
	}
	r.closers = append(r.closers, func() error { manager.Close(); return nil })

	opts := gateway.OptionsFromConfig(r.config.API, manager)
	opts.HTTPClient = r.httpClient
	opts.OnUnauthorized = r.onUnauthorized
	opts.Logger = r.logger
	client, err := gateway.New(opts)
	if err != nil {
		return err
	}

	r.sessions = manager
	r.client = client
	r.svc = services.New(client, manager)
	return nil
}

// exporter builds a [tasks.Exporter] that records runs in the database when
// one can be opened.
func (r *Runner) exporter() *tasks.Exporter {
	var runs tasks.RunRecorder
	if repo, err := r.exportRuns(); err != nil {
		r.logger.Warn("export history disabled", "error", err)
	} else {
		runs = repo
	}
	return tasks.NewExporter(tasks.ServiceSource(r.svc), r.svc.API, runs, r.logger)
}

// onUnauthorized runs after the gateway cleared the session on a 401.
func (r *Runner) onUnauthorized(ctx context.Context) {
	r.logger.Warn("session expired, run `setlist auth login` to sign in again")
	if !r.config.API.OpenBrowser || r.config.API.LoginURL == "" {
		return
	}
	if err := r.openBrowser(r.config.API.LoginURL); err != nil {
		r.logger.Warn("failed to open login page", "error", err)
	}
}

// close releases everything [Runner.connect] opened. Runs after every command.
func (r *Runner) close(ctx context.Context, cmd *cli.Command) error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i]())
	}
	r.closers = nil
	r.sessions, r.client, r.svc, r.db = nil, nil, nil, nil
	return errors.Join(errs...)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

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

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", r.paint.Title(title))
	r.writePlain("═══════════════════════════════════════\n")
}
