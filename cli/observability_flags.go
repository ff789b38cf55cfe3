package cli

import (
	"context"
	"net/http"
	"net/http/pprof"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/common/expfmt"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/exp/maps"

	"github.com/shellfs/shellfs/internal/clock"
)

const (
	metricsDirMode        = 0o700
	metricsReadTimeout    = 10 * time.Second
	metricsServerShutdown = 5 * time.Second
)

//nolint:gochecknoglobals
var pushFormats = map[string]expfmt.Format{
	"text":          expfmt.FmtText,
	"proto-delim":   expfmt.FmtProtoDelim,
	"open-metrics":  expfmt.FmtOpenMetrics_1_0_0,
	"proto-compact": expfmt.FmtProtoCompact,
}

// pushFlags configure periodic delivery of the command's metrics to a Prometheus push gateway,
// which is how short-lived commands against a device get their counters recorded.
type pushFlags struct {
	addr      string
	job       string
	interval  time.Duration
	groupings []string
	format    string

	cancel context.CancelFunc
	done   chan struct{}
}

func (c *pushFlags) setup(svc appServices, app *kingpin.Application) {
	formats := maps.Keys(pushFormats)
	slices.Sort(formats)

	app.Flag("metrics-push-addr", "Address of Prometheus push gateway").Envar(svc.EnvName("METRICS_PUSH_ADDR")).Hidden().StringVar(&c.addr)
	app.Flag("metrics-push-interval", "Frequency of metrics push").Envar(svc.EnvName("METRICS_PUSH_INTERVAL")).Hidden().Default("5s").DurationVar(&c.interval)
	app.Flag("metrics-push-job", "Push gateway job name").Envar(svc.EnvName("METRICS_PUSH_JOB")).Hidden().Default("shellfs").StringVar(&c.job)
	app.Flag("metrics-push-grouping", "Push gateway grouping as name:value, e.g. host:device1").Envar(svc.EnvName("METRICS_PUSH_GROUPING")).Hidden().StringsVar(&c.groupings)
	app.Flag("metrics-push-format", "Push gateway exposition format").Envar(svc.EnvName("METRICS_PUSH_FORMAT")).Hidden().EnumVar(&c.format, formats...)
}

func (c *pushFlags) pusher() (*push.Pusher, error) {
	p := push.New(c.addr, c.job).Gatherer(prometheus.DefaultGatherer)

	for _, g := range c.groupings {
		name, value, ok := strings.Cut(g, ":")
		if !ok || name == "" {
			return nil, errors.Errorf("invalid grouping %q: grouping must be name:value", g)
		}

		p = p.Grouping(name, value)
	}

	if f, ok := pushFormats[c.format]; ok {
		p = p.Format(f)
	}

	return p, nil
}

// start pushes once right away and then on every interval until stop is called.
func (c *pushFlags) start(ctx context.Context) error {
	if c.addr == "" {
		return nil
	}

	p, err := c.pusher()
	if err != nil {
		return err
	}

	log(ctx).Infof("pushing metrics to %v every %v", c.addr, c.interval)

	pushMetrics(ctx, "initial", p)

	// the final push happens after the command context is done, so the loop gets its own.
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	c.cancel = cancel
	c.done = make(chan struct{})

	go func() {
		defer close(c.done)

		t := time.NewTicker(c.interval)
		defer t.Stop()

		for {
			select {
			case <-t.C:
				pushMetrics(loopCtx, "periodic", p)

			case <-loopCtx.Done():
				pushMetrics(context.WithoutCancel(loopCtx), "final", p)
				return
			}
		}
	}()

	return nil
}

func (c *pushFlags) stop() {
	if c.cancel == nil {
		return
	}

	c.cancel()
	<-c.done
}

func pushMetrics(ctx context.Context, kind string, p *push.Pusher) {
	if err := p.PushContext(ctx); err != nil {
		log(ctx).Debugw("unable to push metrics", "kind", kind, "err", err)
	}
}

type observabilityFlags struct {
	listenAddr  string
	enablePProf bool
	metricsDir  string
	otlpTrace   bool

	push pushFlags

	metricsFile   string
	server        *http.Server
	traceProvider *trace.TracerProvider
}

func (c *observabilityFlags) setup(svc appServices, app *kingpin.Application) {
	app.Flag("metrics-listen-addr", "Serve Prometheus metrics on host:port while the command runs").Envar(svc.EnvName("METRICS_LISTEN_ADDR")).StringVar(&c.listenAddr)
	app.Flag("enable-pprof", "Serve pprof handlers next to metrics").Hidden().BoolVar(&c.enablePProf)
	app.Flag("metrics-directory", "Directory where a metrics file is written for each command run").Envar(svc.EnvName("METRICS_DIRECTORY")).Hidden().StringVar(&c.metricsDir)
	app.Flag("otlp-trace", "Export listing and copy spans to an OTLP collector over gRPC").Envar(svc.EnvName("ENABLE_OTLP_TRACE")).Hidden().BoolVar(&c.otlpTrace)

	c.push.setup(svc, app)

	app.PreAction(c.chooseMetricsFile)
}

// chooseMetricsFile names the metrics file after the start time and the selected command.
func (c *observabilityFlags) chooseMetricsFile(kpc *kingpin.ParseContext) error {
	if c.metricsDir == "" {
		return nil
	}

	command := "shellfs"
	if kpc.SelectedCommand != nil {
		command = strings.ReplaceAll(kpc.SelectedCommand.FullCommand(), " ", "-")
	}

	c.metricsFile = filepath.Join(filepath.Clean(c.metricsDir), clock.Now().Format("20060102-150405-")+command+".prom")

	return nil
}

func (c *observabilityFlags) startMetrics(ctx context.Context) error {
	if c.metricsDir != "" {
		if err := os.MkdirAll(c.metricsDir, metricsDirMode); err != nil {
			return errors.Wrapf(err, "unable to create metrics directory %v", c.metricsDir)
		}
	}

	c.startServer(ctx)

	if err := c.push.start(ctx); err != nil {
		return err
	}

	return c.startTracing(ctx)
}

func (c *observabilityFlags) startServer(ctx context.Context) {
	if c.listenAddr == "" {
		return
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler())

	if c.enablePProf {
		r.HandleFunc("/debug/pprof/", pprof.Index)
		r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		r.HandleFunc("/debug/pprof/profile", pprof.Profile)
		r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		r.HandleFunc("/debug/pprof/trace", pprof.Trace)
		r.HandleFunc("/debug/pprof/{profile}", pprof.Index)
	}

	c.server = &http.Server{
		Addr:              c.listenAddr,
		Handler:           r,
		ReadHeaderTimeout: metricsReadTimeout,
	}

	log(ctx).Infof("serving metrics on %v", c.listenAddr)

	go func() {
		if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log(ctx).Warnf("metrics server failed: %v", err)
		}
	}()
}

func (c *observabilityFlags) startTracing(ctx context.Context) error {
	if !c.otlpTrace {
		return nil
	}

	exp, err := otlptracegrpc.New(ctx)
	if err != nil {
		return errors.Wrap(err, "unable to create OTLP trace exporter")
	}

	c.traceProvider = trace.NewTracerProvider(
		trace.WithBatcher(exp),
		trace.WithResource(resource.NewSchemaless(attribute.String("service.name", "shellfs"))),
	)

	otel.SetTracerProvider(c.traceProvider)

	return nil
}

func (c *observabilityFlags) stopMetrics(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)

	c.push.stop()

	if c.server != nil {
		sctx, cancel := context.WithTimeout(ctx, metricsServerShutdown)
		defer cancel()

		if err := c.server.Shutdown(sctx); err != nil {
			log(ctx).Debugf("unable to stop metrics server: %v", err)
		}
	}

	if c.traceProvider != nil {
		if err := c.traceProvider.Shutdown(ctx); err != nil {
			log(ctx).Warnf("unable to flush traces: %v", err)
		}
	}

	if c.metricsFile != "" {
		if err := prometheus.WriteToTextfile(c.metricsFile, prometheus.DefaultGatherer); err != nil {
			log(ctx).Warnf("unable to write metrics file %v: %v", c.metricsFile, err)
		}
	}
}
