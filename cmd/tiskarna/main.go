package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/erazemk/tiskarna/internal/api"
	"github.com/erazemk/tiskarna/internal/db"
	"github.com/erazemk/tiskarna/internal/events"
	"github.com/erazemk/tiskarna/internal/idempotency"
	"github.com/erazemk/tiskarna/internal/metrics"
	"github.com/erazemk/tiskarna/internal/snapshot"
	"github.com/erazemk/tiskarna/internal/store"
	"github.com/erazemk/tiskarna/internal/tracing"
)

// config holds settings shared by every subcommand.
type config struct {
	dbPath      string
	addr        string
	adminEmail  string
	logPath     string
	redisURL    string
	kafkaBroker string
	kafkaTopic  string
	otlpURL     string
}

// envOr returns the environment variable key, or def when it is unset.
func envOr(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func newFlagSet(name string, cfg *config) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	dbDefault := envOr("TISKARNA_DB", "tiskarna.sqlite3")
	fs.StringVar(&cfg.dbPath, "db", dbDefault, "")
	fs.StringVar(&cfg.dbPath, "d", dbDefault, "")

	logDefault := envOr("TISKARNA_LOG", "")
	fs.StringVar(&cfg.logPath, "log", logDefault, "")
	fs.StringVar(&cfg.logPath, "l", logDefault, "")

	return fs
}

const usage = `Usage: tiskarna [command] [flags]

Commands:
  serve                   run the HTTP server (default)
  export -o <path>        write orders, inventory and users to a JSON file
  import -i <path>        replace orders and inventory from a JSON file

Flags:
  -d, -db <path>          SQLite database path (default: tiskarna.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -e, -email <address>    admin e-mail on first run (default: admin@tiskarna.local)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Environment (also read from .env):
  TISKARNA_DB, TISKARNA_ADDR, TISKARNA_ADMIN_EMAIL, TISKARNA_LOG,
  TISKARNA_REDIS (redis://host:6379/0), TISKARNA_KAFKA_BROKERS (comma separated),
  TISKARNA_KAFKA_TOPIC, OTEL_EXPORTER_OTLP_ENDPOINT
`

func main() {
	// A missing .env file is fine; real environment variables take precedence.
	_ = godotenv.Load()

	args := os.Args[1:]
	command := "serve"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		command, args = args[0], args[1:]
	}

	var err error
	switch command {
	case "serve":
		err = cmdServe(args)
	case "export":
		err = cmdExport(args)
	case "import":
		err = cmdImport(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", command)
		fmt.Fprint(os.Stdout, usage)
		os.Exit(1)
	}

	if errors.Is(err, flag.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		slog.Error(command+" failed", "error", err)
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	fs.Usage = func() { fmt.Fprint(os.Stdout, usage) }
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(os.Stderr, "unexpected argument: %s\n", fs.Arg(0))
		fs.Usage()
		return fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return nil
}

func cmdServe(args []string) error {
	cfg := config{
		redisURL:    envOr("TISKARNA_REDIS", ""),
		kafkaBroker: envOr("TISKARNA_KAFKA_BROKERS", ""),
		kafkaTopic:  envOr("TISKARNA_KAFKA_TOPIC", "tiskarna.orders"),
		otlpURL:     tracing.EndpointFromEnv(),
	}
	fs := newFlagSet("serve", &cfg)

	addrDefault := envOr("TISKARNA_ADDR", ":8080")
	fs.StringVar(&cfg.addr, "addr", addrDefault, "")
	fs.StringVar(&cfg.addr, "a", addrDefault, "")

	emailDefault := envOr("TISKARNA_ADMIN_EMAIL", "admin@tiskarna.local")
	fs.StringVar(&cfg.adminEmail, "email", emailDefault, "")
	fs.StringVar(&cfg.adminEmail, "e", emailDefault, "")

	if err := parseFlags(fs, args); err != nil {
		return err
	}

	closeLog, err := setupLogger(cfg.logPath)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	// Check if DB exists, auto-init if not.
	if _, err := os.Stat(cfg.dbPath); os.IsNotExist(err) {
		database, password, err := initDatabase(cfg.dbPath, cfg.adminEmail)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()

		printInitResult(cfg.dbPath, cfg.adminEmail, password)
		fmt.Println()
	}

	database, err := db.Open(cfg.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := db.EnsureSchema(database); err != nil {
		return fmt.Errorf("ensuring database schema: %w", err)
	}

	ctx := context.Background()

	initializedAt, err := store.GetSetting(ctx, database, store.SettingInitializedAt)
	if err != nil {
		return err
	}
	slog.Info("database ready", "path", cfg.dbPath, "initialized", initializedAt)

	// Load JWT secret from database (auto-generated on first run).
	jwtSecret, err := store.GetJWTSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("getting JWT secret: %w", err)
	}

	shutdownTracing, err := tracing.Init(ctx, "tiskarna", cfg.otlpURL)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	if shutdownTracing != nil {
		slog.Info("tracing enabled", "endpoint", cfg.otlpURL)
		defer shutdownTracing(context.Background())
	}

	opts := api.Options{
		Events:      events.LogPublisher{},
		Idempotency: idempotency.NewMemoryStore(),
	}

	if cfg.redisURL != "" {
		client, err := connectRedis(ctx, cfg.redisURL)
		if err != nil {
			slog.Warn("redis unavailable, keeping idempotency keys in memory", "error", err)
		} else {
			defer client.Close()
			opts.Idempotency = idempotency.NewRedisStore(client)
			slog.Info("idempotency keys stored in redis")
		}
	}

	if cfg.kafkaBroker != "" {
		publisher := events.NewKafkaPublisher(strings.Split(cfg.kafkaBroker, ","), cfg.kafkaTopic)
		defer publisher.Close()
		opts.Events = publisher
		slog.Info("publishing order events to kafka", "brokers", cfg.kafkaBroker, "topic", cfg.kafkaTopic)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/", api.NewRouter(database, jwtSecret, opts))
	mux.Handle("GET /metrics", metrics.Handler())
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Check(r.Context(), database); err != nil {
			slog.Error("health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok\n"))
	})

	handler := tracing.Middleware(metrics.Middleware(api.LoggingMiddleware(mux)))

	server := &http.Server{
		Addr:              cfg.addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-quit
		slog.Info("shutdown signal received", "signal", sig.String())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("server stopped, closing database")
	return nil
}

// connectRedis opens a client for url and checks that the server answers.
func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}
	return client, nil
}

func cmdExport(args []string) error {
	var cfg config
	var out string
	fs := newFlagSet("export", &cfg)
	fs.StringVar(&out, "out", "", "")
	fs.StringVar(&out, "o", "", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if out == "" {
		return fmt.Errorf("output path required (-o)")
	}

	closeLog, err := setupLogger(cfg.logPath)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	database, err := openExisting(cfg.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	snap, err := snapshot.Export(context.Background(), database)
	if err != nil {
		return err
	}
	if err := snapshot.WriteFile(out, snap); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}

	slog.Info("snapshot exported", "path", out,
		"orders", len(snap.Orders), "items", len(snap.Inventory), "users", len(snap.Users))
	return nil
}

func cmdImport(args []string) error {
	var cfg config
	var in string
	fs := newFlagSet("import", &cfg)
	fs.StringVar(&in, "in", "", "")
	fs.StringVar(&in, "i", "", "")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if in == "" {
		return fmt.Errorf("input path required (-i)")
	}

	closeLog, err := setupLogger(cfg.logPath)
	if err != nil {
		return err
	}
	if closeLog != nil {
		defer closeLog()
	}

	snap, err := snapshot.ReadFile(in)
	if err != nil {
		return fmt.Errorf("reading snapshot: %w", err)
	}

	database, err := openExisting(cfg.dbPath)
	if err != nil {
		return err
	}
	defer database.Close()

	if err := snapshot.Import(context.Background(), database, snap); err != nil {
		return err
	}

	slog.Warn("snapshot imported, orders and inventory replaced", "path", in,
		"orders", len(snap.Orders), "items", len(snap.Inventory))
	return nil
}

// openExisting opens a database that must already exist.
func openExisting(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("database %s: %w", path, err)
	}
	database, err := db.Open(path)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(database); err != nil {
		database.Close()
		return nil, fmt.Errorf("ensuring database schema: %w", err)
	}
	return database, nil
}
