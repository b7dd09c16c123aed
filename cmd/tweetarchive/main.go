package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tweetarchive/internal/analytics"
	"tweetarchive/internal/api"
	"tweetarchive/internal/capture"
	"tweetarchive/internal/cmdlog"
	"tweetarchive/internal/config"
	"tweetarchive/internal/ingest"
	"tweetarchive/internal/logging"
	"tweetarchive/internal/metrics"
	"tweetarchive/internal/source"
	"tweetarchive/internal/store"
	"tweetarchive/internal/store/gormstore"
	"tweetarchive/internal/store/sqlitestore"
	"tweetarchive/internal/theme"
	"tweetarchive/internal/tweet"
)

const defaultConfig = "./tweetarchive.yaml"

func main() {
	cmd := ""
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}
	var run func([]string) error
	switch cmd {
	case "init":
		run = cmdInit
	case "migrate":
		run = cmdMigrate
	case "ingest":
		run = cmdIngest
	case "range":
		run = cmdRange
	case "bounds":
		run = cmdBounds
	case "count":
		run = cmdCount
	case "serve":
		run = cmdServe
	default:
		printHelp()
		return
	}
	if err := cmdlog.Run(cmd, func() error { return run(os.Args[2:]) }); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func printHelp() {
	theme.PrintBanner()
	fmt.Println("Usage: tweetarchive <command> [options]")
	fmt.Println("Commands:")
	fmt.Println("  init        Create a config file at ./tweetarchive.yaml")
	fmt.Println("  migrate     Create the tweets table and indices")
	fmt.Println("  ingest      Build and store records from the configured source")
	fmt.Println("  range       Print records created in [start, end)")
	fmt.Println("  bounds      Print earliest and latest created_at")
	fmt.Println("  count       Print the (approximate) record count")
	fmt.Println("  serve       Serve the read helpers over HTTP")
}

// env is what every database-backed command needs.
type env struct {
	cfg      config.Config
	ts       tweet.TimeSettings
	store    store.Store
	strategy store.CountStrategy
}

func setup(fs *flag.FlagSet, args []string) (*env, error) {
	cfgPath := fs.String("config", defaultConfig, "config path")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		return nil, err
	}
	logging.SetDefault(logging.New(os.Stdout, cfg.Debug))
	metrics.StartServer(cfg.Metrics.Addr)

	ts, err := cfg.Time.TimeSettings()
	if err != nil {
		return nil, err
	}
	s, strategy, err := openStore(cfg, ts)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, ts: ts, store: s, strategy: strategy}, nil
}

// openStore picks the backend for the configured dialect. SQLite runs on
// the pure Go driver; Postgres and MySQL go through gorm with capture
// columns.
func openStore(cfg config.Config, ts tweet.TimeSettings) (store.Store, store.CountStrategy, error) {
	dialect, err := cfg.Database.Dialect()
	if err != nil {
		return nil, 0, err
	}
	strategy := store.StrategyFor(dialect)
	if dialect == config.DialectSQLite {
		db, err := sqlitestore.Open(cfg.Database.DSN, cfg.Database.Table, ts)
		if err != nil {
			return nil, 0, err
		}
		return db, strategy, nil
	}
	db, err := gormstore.Open(cfg.Database, ts, cfg.Debug)
	if err != nil {
		return nil, 0, err
	}
	s, err := gormstore.New[capture.Tweet](db, strategy)
	if err != nil {
		return nil, 0, err
	}
	return s, strategy, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func cmdInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("path", defaultConfig, "path to write config")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := config.Save(*path, config.Default()); err != nil {
		return err
	}
	abs, _ := filepath.Abs(*path)
	theme.PrintBanner()
	fmt.Println("Config written to:", abs)
	return nil
}

func cmdMigrate(args []string) error {
	e, err := setup(flag.NewFlagSet("migrate", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	defer e.store.Close()
	return e.store.Migrate(context.Background())
}

func openSource(cfg config.IngestConfig) (source.Source, error) {
	switch cfg.Source {
	case "amqp":
		return source.DialAMQP(cfg.AMQP)
	case "nats":
		return source.ConnectNATS(cfg.NATS)
	default:
		return source.OpenFile(cfg.Path)
	}
}

func cmdIngest(args []string) error {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	path := fs.String("file", "", "read JSON lines from this file instead of the configured source")
	e, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer e.store.Close()
	if *path != "" {
		e.cfg.Ingest.Source, e.cfg.Ingest.Path = "file", *path
	}

	src, err := openSource(e.cfg.Ingest)
	if err != nil {
		return err
	}
	defer src.Close()

	ctx, cancel := signalContext()
	defer cancel()
	p := ingest.New(tweet.NewBuilder(e.ts), e.store, e.cfg.Ingest)
	stats, err := p.Run(ctx, src)
	fmt.Printf("received=%d saved=%d rejected=%d duplicates=%d\n",
		stats.Received, stats.Saved, stats.Rejected, stats.Duplicates)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func cmdRange(args []string) error {
	fs := flag.NewFlagSet("range", flag.ExitOnError)
	startS := fs.String("start", "", "inclusive lower bound (RFC3339)")
	endS := fs.String("end", "", "exclusive upper bound (RFC3339)")
	hourly := fs.Bool("hourly", false, "print per-hour volume instead of records")
	e, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer e.store.Close()
	start, err := time.Parse(time.RFC3339, *startS)
	if err != nil {
		return fmt.Errorf("start: %w", err)
	}
	end, err := time.Parse(time.RFC3339, *endS)
	if err != nil {
		return fmt.Errorf("end: %w", err)
	}
	recs, err := e.store.CreatedInRange(context.Background(), start, end)
	if err != nil {
		return err
	}
	if *hourly {
		return printJSON(analytics.HourlyVolume(recs, e.ts.Location))
	}
	return printJSON(recs)
}

func cmdBounds(args []string) error {
	e, err := setup(flag.NewFlagSet("bounds", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	defer e.store.Close()
	ctx := context.Background()
	earliest, err := e.store.EarliestCreatedAt(ctx)
	if err != nil {
		return err
	}
	latest, err := e.store.LatestCreatedAt(ctx)
	if err != nil {
		return err
	}
	return printJSON(map[string]*time.Time{"earliest_created_at": earliest, "latest_created_at": latest})
}

func cmdCount(args []string) error {
	e, err := setup(flag.NewFlagSet("count", flag.ExitOnError), args)
	if err != nil {
		return err
	}
	defer e.store.Close()
	n, err := e.store.CountApprox(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("%d (%s)\n", n, e.strategy)
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address (defaults to api.addr)")
	e, err := setup(fs, args)
	if err != nil {
		return err
	}
	defer e.store.Close()
	if *addr == "" {
		*addr = e.cfg.API.Addr
	}

	srv := &http.Server{Addr: *addr, Handler: api.NewRouter(e.store, e.strategy, e.ts.Location)}
	ctx, cancel := signalContext()
	defer cancel()
	go func() {
		<-ctx.Done()
		shutdown, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		_ = srv.Shutdown(shutdown)
	}()
	logging.Info("api_listen", map[string]any{"addr": *addr})
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
