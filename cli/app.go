// Package cli implements the shellfs command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-colorable"
	"github.com/pkg/errors"

	"github.com/shellfs/shellfs/internal/metrics"
	"github.com/shellfs/shellfs/logging"
	"github.com/shellfs/shellfs/shell"
	"github.com/shellfs/shellfs/shellfs"
)

var log = logging.Module("shellfs/cli")

//nolint:gochecknoglobals
var (
	defaultColor = color.New()
	warningColor = color.New(color.FgYellow)
	errorColor   = color.New(color.FgHiRed)
	noteColor    = color.New(color.FgHiCyan)
	dirColor     = color.New(color.FgHiBlue, color.Bold)
	linkColor    = color.New(color.FgHiCyan)
	specialColor = color.New(color.FgYellow)
)

const defaultEnvNamePrefix = "SHELLFS_"

type textOutput struct {
	svc appServices
}

func (o *textOutput) setup(svc appServices) {
	o.svc = svc
}

func (o *textOutput) stdout() io.Writer {
	return o.svc.stdout()
}

func (o *textOutput) stderr() io.Writer {
	return o.svc.Stderr()
}

func (o *textOutput) printStdout(msg string, args ...any) {
	fmt.Fprintf(o.stdout(), msg, args...) //nolint:errcheck
}

func (o *textOutput) printStderr(msg string, args ...any) {
	fmt.Fprintf(o.stderr(), msg, args...) //nolint:errcheck
}

// appServices are the methods of *App that command handles are allowed to call.
type appServices interface {
	EnvName(s string) string
	Stderr() io.Writer

	stdout() io.Writer
	noSessionAction(act func(ctx context.Context) error) func(ctx *kingpin.ParseContext) error
	sessionAction(act func(ctx context.Context, s *shellfs.Session) error) func(ctx *kingpin.ParseContext) error
	metricsRegistry() *metrics.Registry
}

type commandParent interface {
	Command(name, help string) *kingpin.CmdClause
}

// connectFunc establishes the shell transport.
type connectFunc func(ctx context.Context, opts *shell.Options, mr *metrics.Registry) (*shell.Conn, error)

// App contains per-invocation flags and state of shellfs CLI.
type App struct {
	connection    connectionFlags
	observability observabilityFlags

	list  commandList
	stat  commandStat
	probe commandProbe
	quote commandQuote
	cat   commandCat
	pull  commandPull

	envNamePrefix string
	mr            *metrics.Registry
	connect       connectFunc

	// testability hooks
	loggerFactory logging.LoggerFactory
	stdoutWriter  io.Writer
	stderrWriter  io.Writer
	rootctx       context.Context //nolint:containedctx
	exitWithError func(err error)
}

// NewApp creates a new instance of App.
func NewApp() *App {
	return &App{
		envNamePrefix: defaultEnvNamePrefix,
		connect:       shell.Connect,

		exitWithError: func(err error) {
			if err != nil {
				os.Exit(1)
			}

			os.Exit(0)
		},
		stdoutWriter: colorable.NewColorableStdout(),
		stderrWriter: colorable.NewColorableStderr(),
		rootctx:      context.Background(),
	}
}

// Attach attaches the CLI parser to the application.
func (c *App) Attach(app *kingpin.Application) {
	c.setup(app)
}

func (c *App) setup(app *kingpin.Application) {
	c.mr = metrics.NewRegistry()

	c.connection.setup(c, app)
	c.observability.setup(c, app)

	c.list.setup(c, app)
	c.stat.setup(c, app)
	c.probe.setup(c, app)
	c.quote.setup(c, app)
	c.cat.setup(c, app)
	c.pull.setup(c, app)
}

// EnvName returns the name of the environment variable with the application prefix.
func (c *App) EnvName(s string) string {
	return c.envNamePrefix + s
}

// SetLoggerFactory sets the logger factory to be used by the app.
func (c *App) SetLoggerFactory(loggerForModule logging.LoggerFactory) {
	c.loggerFactory = loggerForModule
}

// Stderr returns the stderr writer.
func (c *App) Stderr() io.Writer {
	return c.stderrWriter
}

func (c *App) stdout() io.Writer {
	return c.stdoutWriter
}

func (c *App) metricsRegistry() *metrics.Registry {
	return c.mr
}

func (c *App) rootContext() context.Context {
	ctx := c.rootctx

	if c.loggerFactory != nil {
		ctx = logging.WithLogger(ctx, c.loggerFactory)
	}

	return ctx
}

func (c *App) runAppWithContext(command *kingpin.CmdClause, cb func(ctx context.Context) error) error {
	ctx, stop := signal.NotifyContext(c.rootContext(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if command != nil {
		log(ctx).Debugf("running %v", command.FullCommand())
	}

	if err := c.observability.startMetrics(ctx); err != nil {
		return errors.Wrap(err, "unable to start metrics")
	}

	defer c.observability.stopMetrics(ctx)

	return cb(ctx)
}

func (c *App) baseActionWithContext(act func(ctx context.Context) error) func(ctx *kingpin.ParseContext) error {
	return func(kpc *kingpin.ParseContext) error {
		if err := c.runAppWithContext(kpc.SelectedCommand, act); err != nil {
			errorColor.Fprintf(c.Stderr(), "ERROR: %v\n", err) //nolint:errcheck
			c.exitWithError(err)
		}

		return nil
	}
}

func (c *App) noSessionAction(act func(ctx context.Context) error) func(ctx *kingpin.ParseContext) error {
	return c.baseActionWithContext(act)
}

func (c *App) sessionAction(act func(ctx context.Context, s *shellfs.Session) error) func(ctx *kingpin.ParseContext) error {
	return c.baseActionWithContext(func(ctx context.Context) error {
		return c.withSession(ctx, act)
	})
}

func (c *App) withSession(ctx context.Context, act func(ctx context.Context, s *shellfs.Session) error) error {
	opts, sessionOpts, err := c.connection.options()
	if err != nil {
		return err
	}

	conn, err := c.connect(ctx, opts, c.mr)
	if err != nil {
		return errors.Wrap(err, "unable to connect")
	}

	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log(ctx).Warnf("error closing connection: %v", cerr)
		}
	}()

	s, err := shellfs.NewSession(ctx, conn.Runner, conn.Opener, sessionOpts, c.mr)
	if err != nil {
		return err //nolint:wrapcheck
	}

	return act(ctx, s)
}
