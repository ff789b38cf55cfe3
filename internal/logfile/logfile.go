// Package logfile manages console and file logging of the shellfs CLI.
package logfile

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/shellfs/shellfs/cli"
	"github.com/shellfs/shellfs/internal/clock"
	"github.com/shellfs/shellfs/logging"
)

const logsDirMode = 0o700

//nolint:gochecknoglobals
var logLevels = []string{"debug", "info", "warning", "error"}

const (
	logFileNamePrefix = "shellfs-"
	logFileNameSuffix = ".log"
	latestLogSymlink  = "latest.log"

	fileTimestampLayout    = "2006-01-02T15:04:05.000000Z07:00"
	consoleTimestampLayout = "15:04:05.000"
)

var log = logging.Module("shellfs/logfile")

type loggingFlags struct {
	logFile              string
	logFileMaxSizeMB     int
	logFileMaxBackups    int
	logDir               string
	logDirMaxFiles       int
	logDirMaxAge         time.Duration
	logLevel             string
	fileLogLevel         string
	fileLogLocalTimezone bool
	jsonLogFile          bool
	jsonLogConsole       bool
	forceColor           bool
	disableColor         bool
	consoleLogTimestamps bool

	cliApp *cli.App
}

func (c *loggingFlags) setup(cliApp *cli.App, app *kingpin.Application) {
	app.Flag("log-file", "Override log file.").StringVar(&c.logFile)
	app.Flag("log-file-max-size-mb", "Rotate the log file given with --log-file after it reaches this size").Hidden().Default("100").IntVar(&c.logFileMaxSizeMB)
	app.Flag("log-file-max-backups", "Number of rotated log files to keep").Hidden().Default("3").IntVar(&c.logFileMaxBackups)
	app.Flag("log-dir", "Directory where log files should be written.").Envar(cliApp.EnvName("LOG_DIR")).Default(defaultLogDir()).StringVar(&c.logDir)
	app.Flag("log-dir-max-files", "Maximum number of log files to retain").Envar(cliApp.EnvName("LOG_DIR_MAX_FILES")).Default("100").Hidden().IntVar(&c.logDirMaxFiles)
	app.Flag("log-dir-max-age", "Maximum age of log files to retain").Envar(cliApp.EnvName("LOG_DIR_MAX_AGE")).Hidden().Default("720h").DurationVar(&c.logDirMaxAge)
	app.Flag("log-level", "Console log level").Default("info").EnumVar(&c.logLevel, logLevels...)
	app.Flag("json-log-console", "JSON log file").Hidden().BoolVar(&c.jsonLogConsole)
	app.Flag("json-log-file", "JSON log file").Hidden().BoolVar(&c.jsonLogFile)
	app.Flag("file-log-level", "File log level").Default("debug").EnumVar(&c.fileLogLevel, logLevels...)
	app.Flag("file-log-local-tz", "When logging to a file, use local timezone").Hidden().Envar(cliApp.EnvName("FILE_LOG_LOCAL_TZ")).BoolVar(&c.fileLogLocalTimezone)
	app.Flag("force-color", "Force color output").Hidden().Envar(cliApp.EnvName("FORCE_COLOR")).BoolVar(&c.forceColor)
	app.Flag("disable-color", "Disable color output").Hidden().Envar(cliApp.EnvName("DISABLE_COLOR")).BoolVar(&c.disableColor)
	app.Flag("console-timestamps", "Log timestamps to stderr.").Hidden().Default("false").Envar(cliApp.EnvName("CONSOLE_TIMESTAMPS")).BoolVar(&c.consoleLogTimestamps)

	app.PreAction(c.initialize)
	c.cliApp = cliApp
}

// Attach attaches logging flags to the provided application.
func Attach(cliApp *cli.App, app *kingpin.Application) {
	lf := &loggingFlags{}
	lf.setup(cliApp, app)
}

func defaultLogDir() string {
	d, err := os.UserCacheDir()
	if err != nil {
		return ""
	}

	return filepath.Join(d, "shellfs", "logs")
}

// initialize is invoked as part of command execution to create log file just before it's needed.
func (c *loggingFlags) initialize(ctx *kingpin.ParseContext) error {
	now := clock.Now()
	if c.fileLogLocalTimezone {
		now = now.Local()
	} else {
		now = now.UTC()
	}

	suffix := "unknown"
	if c := ctx.SelectedCommand; c != nil {
		suffix = strings.ReplaceAll(c.FullCommand(), " ", "-")
	}

	cores := []zapcore.Core{c.setupConsoleCore()}

	if c.logDir != "" || c.logFile != "" {
		cores = append(cores, c.setupLogFileCore(now, suffix))
	}

	rootLogger := zap.New(zapcore.NewTee(cores...), zap.WithClock(zapClock{}))

	c.cliApp.SetLoggerFactory(func(module string) logging.Logger {
		return rootLogger.Named(module).Sugar()
	})

	if c.forceColor {
		color.NoColor = false
	}

	if c.disableColor {
		color.NoColor = true
	}

	return nil
}

func (c *loggingFlags) setupConsoleCore() zapcore.Core {
	ec := &zapcore.EncoderConfig{
		LevelKey:         "l",
		MessageKey:       "m",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.RFC3339NanoTimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " ",
	}

	if c.consoleLogTimestamps {
		ec.TimeKey = "t"

		if c.jsonLogConsole {
			ec.EncodeTime = zapcore.RFC3339NanoTimeEncoder
		} else {
			// always log local timestamps to the console, not UTC
			ec.EncodeTime = timezoneAdjust(zapcore.TimeEncoderOfLayout(consoleTimestampLayout), true)
		}
	}

	if c.jsonLogConsole {
		ec.EncodeLevel = zapcore.CapitalLevelEncoder

		ec.NameKey = "n"
		ec.EncodeName = zapcore.FullNameEncoder
	} else {
		ec.EncodeLevel = func(l zapcore.Level, pae zapcore.PrimitiveArrayEncoder) {
			if l == zap.InfoLevel {
				// info log does not have a prefix.
				return
			}

			if !c.consoleColor() {
				zapcore.CapitalLevelEncoder(l, pae)
			} else {
				zapcore.CapitalColorLevelEncoder(l, pae)
			}
		}
	}

	return zapcore.NewCore(
		jsonOrConsoleEncoder(ec, c.jsonLogConsole),
		zapcore.AddSync(c.cliApp.Stderr()),
		logLevelFromFlag(c.logLevel),
	)
}

// consoleColor returns true when level prefixes on the console should be colored.
func (c *loggingFlags) consoleColor() bool {
	if c.forceColor {
		return true
	}

	if c.disableColor {
		return false
	}

	f, ok := c.cliApp.Stderr().(interface{ Fd() uintptr })

	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (c *loggingFlags) setupLogFileCore(now time.Time, suffix string) zapcore.Core {
	return zapcore.NewCore(
		jsonOrConsoleEncoder(&zapcore.EncoderConfig{
			TimeKey:          "t",
			MessageKey:       "m",
			NameKey:          "n",
			LevelKey:         "l",
			EncodeName:       zapcore.FullNameEncoder,
			EncodeLevel:      zapcore.CapitalLevelEncoder,
			EncodeTime:       timezoneAdjust(zapcore.TimeEncoderOfLayout(fileTimestampLayout), c.fileLogLocalTimezone),
			EncodeDuration:   zapcore.StringDurationEncoder,
			ConsoleSeparator: " ",
		}, c.jsonLogFile),
		c.logFileWriter(now, suffix),
		logLevelFromFlag(c.fileLogLevel),
	)
}

func (c *loggingFlags) logFileWriter(now time.Time, suffix string) zapcore.WriteSyncer {
	if c.logFile != "" {
		logFileName, err := filepath.Abs(c.logFile)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Unable to resolve logs path", err)

			logFileName = c.logFile
		}

		return zapcore.AddSync(&lumberjack.Logger{
			Filename:   logFileName,
			MaxSize:    c.logFileMaxSizeMB,
			MaxBackups: c.logFileMaxBackups,
		})
	}

	logFileName := filepath.Join(c.logDir, fmt.Sprintf("%v%v-%v-%v%v",
		logFileNamePrefix, now.Format("20060102-150405"), os.Getpid(), suffix, logFileNameSuffix))

	logDir := filepath.Dir(logFileName)

	if err := os.MkdirAll(logDir, logsDirMode); err != nil {
		fmt.Fprintln(os.Stderr, "Unable to create logs directory:", err)
	}

	if c.logDirMaxFiles > 0 || c.logDirMaxAge > 0 {
		go sweepLogDir(context.TODO(), logDir, c.logDirMaxFiles, c.logDirMaxAge)
	}

	return &onDemandFile{
		logDir:          logDir,
		logFileBaseName: filepath.Base(logFileName),
		symlinkName:     latestLogSymlink,
	}
}

func jsonOrConsoleEncoder(ec *zapcore.EncoderConfig, isJSON bool) zapcore.Encoder {
	if isJSON {
		return zapcore.NewJSONEncoder(*ec)
	}

	return zapcore.NewConsoleEncoder(*ec)
}

// timezoneAdjust converts timestamps to local time or UTC before encoding.
func timezoneAdjust(inner zapcore.TimeEncoder, isLocal bool) zapcore.TimeEncoder {
	if isLocal {
		return func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
			inner(t.Local(), pae)
		}
	}

	return func(t time.Time, pae zapcore.PrimitiveArrayEncoder) {
		inner(t.UTC(), pae)
	}
}

// zapClock makes zap use the overridable clock.
type zapClock struct{}

func (zapClock) Now() time.Time {
	return clock.Now()
}

func (zapClock) NewTicker(d time.Duration) *time.Ticker {
	return time.NewTicker(d)
}

func sweepLogDir(ctx context.Context, dirname string, maxCount int, maxAge time.Duration) {
	var timeCutoff time.Time
	if maxAge > 0 {
		timeCutoff = clock.Now().Add(-maxAge)
	}

	if maxCount == 0 {
		maxCount = math.MaxInt32
	}

	entries, err := os.ReadDir(dirname)
	if err != nil {
		log(ctx).Errorf("unable to read log directory: %v", err)
		return
	}

	fileInfos := make([]os.FileInfo, 0, len(entries))

	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), logFileNamePrefix) || !strings.HasSuffix(e.Name(), logFileNameSuffix) {
			continue
		}

		info, err2 := e.Info()
		if os.IsNotExist(err2) {
			// deleted since it was listed
			continue
		}

		if err2 != nil {
			log(ctx).Errorf("unable to read file info: %v", err2)
			return
		}

		fileInfos = append(fileInfos, info)
	}

	sort.Slice(fileInfos, func(i, j int) bool {
		return fileInfos[i].ModTime().After(fileInfos[j].ModTime())
	})

	for cnt, fi := range fileInfos {
		if cnt >= maxCount || fi.ModTime().Before(timeCutoff) {
			if err = os.Remove(filepath.Join(dirname, fi.Name())); err != nil && !os.IsNotExist(err) {
				log(ctx).Errorf("unable to remove log file: %v", err)
			}
		}
	}
}

func logLevelFromFlag(levelString string) zapcore.LevelEnabler {
	switch levelString {
	case "debug":
		return zap.DebugLevel
	case "info":
		return zap.InfoLevel
	case "warning":
		return zap.WarnLevel
	case "error":
		return zap.ErrorLevel
	default:
		return zap.FatalLevel
	}
}

// onDemandFile creates the log file on first write.
type onDemandFile struct {
	logDir          string
	logFileBaseName string
	symlinkName     string

	mu   sync.Mutex
	f    *os.File
	once sync.Once
}

func (w *onDemandFile) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return nil
	}

	//nolint:wrapcheck
	return w.f.Sync()
}

func (w *onDemandFile) Write(b []byte) (int, error) {
	w.once.Do(func() {
		lf := filepath.Join(w.logDir, w.logFileBaseName)

		f, err := os.Create(lf) //nolint:gosec
		if err != nil {
			fmt.Fprintf(os.Stderr, "unable to open log file: %v\n", err)
			return
		}

		w.mu.Lock()
		w.f = f
		w.mu.Unlock()

		if w.symlinkName != "" {
			symlink := filepath.Join(w.logDir, w.symlinkName)
			_ = os.Remove(symlink)                     // best-effort remove
			_ = os.Symlink(w.logFileBaseName, symlink) // best-effort symlink
		}
	})

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.f == nil {
		return len(b), nil
	}

	//nolint:wrapcheck
	return w.f.Write(b)
}
