package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	flag "github.com/spf13/pflag"
	"stopmatcher.onebusaway.org/internal/app"
	"stopmatcher.onebusaway.org/internal/appconf"
	"stopmatcher.onebusaway.org/internal/importer"
	"stopmatcher.onebusaway.org/internal/logging"
	"stopmatcher.onebusaway.org/internal/matching"
	"stopmatcher.onebusaway.org/internal/reconcile"
	"stopmatcher.onebusaway.org/stopdb"
)

const usage = `usage: stopmatcher [global flags] <command> [flags]

commands:
  import-feed    import the feed catalog (fptf or gtfs)
  import-source  import the source catalog (geojson or gtfs)
  match          match stored source stops against stored feed stops
  run            import the configured catalogs and match
  explain        show the candidate scores for one source stop
`

var errUsage = errors.New("invalid usage")

type globalFlags struct {
	fs *flag.FlagSet

	configPath   string
	envFile      string
	logLevel     string
	env          string
	dataPath     string
	logFormat    string
	feedPath     string
	feedFormat   string
	sourcePath   string
	sourceFormat string
	selfOnly     bool
	candidateK   int
	expectations string
	geojsonOut   string
	metricsPath  string
}

func newGlobalFlags(stderr io.Writer) *globalFlags {
	g := &globalFlags{fs: flag.NewFlagSet("stopmatcher", flag.ContinueOnError)}
	fs := g.fs
	fs.SetOutput(stderr)
	fs.SetInterspersed(false)
	fs.Usage = func() {
		_, _ = fmt.Fprint(stderr, usage, "\nglobal flags:\n")
		fs.PrintDefaults()
	}

	fs.StringVarP(&g.configPath, "config", "c", "", "JSON or YAML configuration file")
	fs.StringVar(&g.envFile, "env-file", ".env", "dotenv file with STOPMATCHER_* overrides")
	fs.StringVar(&g.logLevel, "log-level", "info", "log level (debug|info|warn|error)")
	fs.StringVar(&g.env, "env", "development", "Environment (development|test|production)")
	fs.StringVar(&g.dataPath, "data-path", "./stops.db", "Path to the SQLite stop database")
	fs.StringVar(&g.logFormat, "log-format", "text", "log format (text|json)")
	fs.StringVar(&g.feedPath, "feed", "", "feed catalog file")
	fs.StringVar(&g.feedFormat, "feed-format", "fptf", "feed catalog format (fptf|gtfs)")
	fs.StringVar(&g.sourcePath, "source", "", "source catalog file")
	fs.StringVar(&g.sourceFormat, "source-format", "geojson", "source catalog format (geojson|gtfs)")
	fs.BoolVar(&g.selfOnly, "self-consistency-only", false, "emit feed self-consistency ratings instead of matches")
	fs.IntVarP(&g.candidateK, "candidate-k", "k", matching.DefaultCandidateK, "feed candidates considered per source stop")
	fs.StringVar(&g.expectations, "expectations", "", "YAML file with expected matches")
	fs.StringVar(&g.geojsonOut, "geojson-output", "", "write matches as GeoJSON to this file")
	fs.StringVar(&g.metricsPath, "metrics-path", "", "write Prometheus metrics to this file after matching")
	return g
}

// fileConfig resolves the configuration file, dotenv overrides and explicit
// flags, in increasing order of precedence.
func (g *globalFlags) fileConfig() (*appconf.FileConfig, error) {
	config := appconf.DefaultFileConfig()
	if g.configPath != "" {
		loaded, err := appconf.LoadFromFile(g.configPath)
		if err != nil {
			return nil, err
		}
		config = loaded
	}

	overrides, err := appconf.LoadEnvOverrides(g.envFile)
	if err != nil {
		return nil, err
	}

	set := func(name, key, value string) {
		if g.fs.Changed(name) {
			overrides[appconf.EnvPrefix+key] = value
		}
	}
	set("env", "ENV", g.env)
	set("data-path", "DATA_PATH", g.dataPath)
	set("log-format", "LOG_FORMAT", g.logFormat)
	set("feed", "FEED_PATH", g.feedPath)
	set("feed-format", "FEED_FORMAT", g.feedFormat)
	set("source", "SOURCE_PATH", g.sourcePath)
	set("source-format", "SOURCE_FORMAT", g.sourceFormat)
	set("self-consistency-only", "SELF_CONSISTENCY_ONLY", fmt.Sprint(g.selfOnly))
	set("candidate-k", "CANDIDATE_K", fmt.Sprint(g.candidateK))

	if err := config.ApplyOverrides(overrides); err != nil {
		return nil, err
	}
	if g.fs.Changed("expectations") {
		config.ExpectationsPath = g.expectations
	}
	if g.fs.Changed("geojson-output") {
		config.GeoJSONOutput = g.geojsonOut
	}
	if g.fs.Changed("metrics-path") {
		config.MetricsPath = g.metricsPath
	}
	return config, nil
}

// ParseLogLevel converts a flag value into a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

func newLogger(format string, level slog.Level, w io.Writer) *slog.Logger {
	if format == "json" {
		return logging.NewStructuredLogger(w, level)
	}
	return logging.NewTextLogger(w, level)
}

// BuildApplication creates the Application with its store and metrics registry.
func BuildApplication(cfg appconf.Config, mcfg matching.Config, logger *slog.Logger) (*app.Application, error) {
	if err := mcfg.Validate(); err != nil {
		return nil, err
	}

	store, err := stopdb.NewClient(stopdb.NewConfig(cfg.DataPath, cfg.Env, cfg.Verbose))
	if err != nil {
		return nil, fmt.Errorf("failed to open stop database: %w", err)
	}

	registry := prometheus.NewRegistry()
	return &app.Application{
		Config:         cfg,
		MatchingConfig: mcfg,
		Logger:         logger,
		Store:          store,
		Registry:       registry,
		Metrics:        matching.NewMetrics(registry),
	}, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	g := newGlobalFlags(stderr)
	if err := g.fs.Parse(args); err != nil {
		return err
	}
	rest := g.fs.Args()
	if len(rest) == 0 {
		g.fs.Usage()
		return errUsage
	}
	command, cmdArgs := rest[0], rest[1:]

	level, err := ParseLogLevel(g.logLevel)
	if err != nil {
		return err
	}
	fileCfg, err := g.fileConfig()
	if err != nil {
		return err
	}
	cfg := fileCfg.ToAppConfig()
	logger := newLogger(cfg.LogFormat, level, stderr)

	application, err := BuildApplication(cfg, fileCfg.ToMatchingConfig(), logger)
	if err != nil {
		return err
	}
	defer logging.SafeCloseWithLogging(application, logger, "application")

	ctx = logging.WithLogger(ctx, logger)
	runner := reconcile.NewRunner(application)

	switch command {
	case "import-feed":
		return runImport(ctx, runner, stdout, stopdb.PopulationFeed, cfg.FeedPath, cfg.FeedFormat, cmdArgs, stderr)
	case "import-source":
		return runImport(ctx, runner, stdout, stopdb.PopulationSource, cfg.SourcePath, cfg.SourceFormat, cmdArgs, stderr)
	case "match":
		report, err := runner.Match(ctx)
		if err != nil {
			return err
		}
		printReport(stdout, report)
		return nil
	case "run":
		report, err := runner.Run(ctx)
		if err != nil {
			return err
		}
		printReport(stdout, report)
		return nil
	case "explain":
		return runExplain(ctx, runner, stdout, cmdArgs, stderr)
	default:
		g.fs.Usage()
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}

func runImport(ctx context.Context, runner *reconcile.Runner, stdout io.Writer, pop stopdb.Population, defaultPath, defaultFormat string, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("import-"+string(pop), flag.ContinueOnError)
	fs.SetOutput(stderr)
	path := fs.StringP("path", "f", defaultPath, "catalog file to import")
	format := fs.String("format", defaultFormat, "catalog format (fptf|gtfs|geojson)")
	useStopCode := fs.Bool("use-stop-code", false, "use GTFS stop_code instead of stop_id as reference code")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *path == "" {
		return fmt.Errorf("%w: no %s catalog path given", errUsage, pop)
	}

	n, err := runner.Import(ctx, pop, *path, importer.Format(*format), importer.Options{UseStopCode: *useStopCode})
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(stdout, "imported %d %s stops from %s\n", n, pop, *path)
	return err
}

func runExplain(ctx context.Context, runner *reconcile.Runner, stdout io.Writer, args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("explain", flag.ContinueOnError)
	fs.SetOutput(stderr)
	sourceID := fs.StringP("source-id", "s", "", "source stop to explain")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *sourceID == "" {
		return fmt.Errorf("%w: --source-id is required", errUsage)
	}

	explanations, err := runner.Explain(ctx, *sourceID)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "CANDIDATE\tNAME\tDIST_M\tNAME_SIM\tMODE\tLINES\tOVERRIDE\tRATING\tSELF\tCOMBINED")
	for _, e := range explanations {
		b := e.Breakdown
		override := b.Override.String()
		if b.Identity {
			override = "identity"
		}
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%.1f\t%.3f\t%.2f\t%.2f\t%s\t%.3f\t%.3f\t%.3f\n",
			e.Candidate.ID, e.Candidate.Name, b.DistanceMeters, b.NameSimilarity,
			b.ModeCompatibility, b.LineOverlap, override, b.Rating, e.Candidate.SelfRating, e.Combined)
	}
	return tw.Flush()
}

func printReport(w io.Writer, report *reconcile.Report) {
	if report.SelfConsistencyOnly {
		_, _ = fmt.Fprintf(w, "run %s: %d feed stops self-rated", report.RunID, report.SelfRated)
	} else {
		_, _ = fmt.Fprintf(w, "run %s: %d matched, %d unmatched", report.RunID, report.Matched, report.Unmatched)
	}
	if n := len(report.Discrepancies); n > 0 {
		msgs := make([]string, n)
		for i, d := range report.Discrepancies {
			msgs[i] = d.String()
		}
		_, _ = fmt.Fprintf(w, ", %d discrepancies:\n  %s", n, strings.Join(msgs, "\n  "))
	}
	_, _ = fmt.Fprintln(w)
}
