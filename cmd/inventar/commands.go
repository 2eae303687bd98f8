package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/erazemk/inventar/internal/api"
	"github.com/erazemk/inventar/internal/auth"
	"github.com/erazemk/inventar/internal/blob"
	"github.com/erazemk/inventar/internal/db"
	"github.com/erazemk/inventar/internal/importer"
	"github.com/erazemk/inventar/internal/inventory"
	"github.com/erazemk/inventar/internal/metrics"
	"github.com/erazemk/inventar/internal/model"
	"github.com/erazemk/inventar/internal/notify"
	"github.com/erazemk/inventar/internal/store"
)

const initHelp = `Usage: inventar init [flags]

Creates the database and an admin account with a generated password.

Flags:
  -c, -config <path>      YAML config file
  -d, -db <path>          SQLite database path (default: inventar.sqlite3)
  -e, -email <address>    admin email (default: admin@localhost)
  -n, -name <name>        admin display name (default: Admin)
  -l, -log <path>         log file path
`

const serveHelp = `Usage: inventar serve [flags]

Flags:
  -c, -config <path>      YAML config file
  -d, -db <path>          SQLite database path (default: inventar.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -e, -email <address>    admin email if the database is created (default: admin@localhost)
  -n, -name <name>        admin display name if the database is created (default: Admin)
  -l, -log <path>         log file path
`

const importHelp = `Usage: inventar import [flags] <file.json|->

Loads a JSON export in one transaction. Use - to read standard input.

Flags:
  -c, -config <path>      YAML config file
  -d, -db <path>          SQLite database path (default: inventar.sqlite3)
  -l, -log <path>         log file path
`

const exportHelp = `Usage: inventar export [flags]

Flags:
  -c, -config <path>      YAML config file
  -d, -db <path>          SQLite database path (default: inventar.sqlite3)
  -o, -output <path>      write to a file instead of standard output
  -l, -log <path>         log file path
`

func cmdInit(args []string) error {
	flags := newFlagSet("init", initHelp)
	flags.stringKey("email", "e", "admin.email")
	flags.stringKey("name", "n", "admin.name")
	if err := flags.parse(args); err != nil {
		return err
	}
	cfg, _, closeLog, err := flags.load()
	if err != nil {
		return err
	}
	defer closeLog()

	if _, err := os.Stat(cfg.DB); err == nil {
		return fmt.Errorf("database file %s already exists", cfg.DB)
	}

	database, password, err := initDatabase(context.Background(), cfg.DB, cfg.Admin.Email, cfg.Admin.Name)
	if err != nil {
		return err
	}
	database.Close()

	printInitResult(cfg.DB, cfg.Admin.Email, password)
	return nil
}

func cmdServe(args []string) error {
	flags := newFlagSet("serve", serveHelp)
	flags.stringKey("addr", "a", "addr")
	flags.stringKey("email", "e", "admin.email")
	flags.stringKey("name", "n", "admin.name")
	if err := flags.parse(args); err != nil {
		return err
	}
	if flags.fs.NArg() > 0 {
		return fmt.Errorf("unexpected argument: %s", flags.fs.Arg(0))
	}
	cfg, log, closeLog, err := flags.load()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create the database on first run.
	if _, err := os.Stat(cfg.DB); errors.Is(err, os.ErrNotExist) {
		database, password, err := initDatabase(ctx, cfg.DB, cfg.Admin.Email, cfg.Admin.Name)
		if err != nil {
			return fmt.Errorf("initializing database: %w", err)
		}
		database.Close()
		printInitResult(cfg.DB, cfg.Admin.Email, password)
		fmt.Println()
	}

	database, err := openDatabase(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()
	log.Info().Str("path", cfg.DB).Msg("database ready")

	secret, err := store.GetSessionSecret(ctx, database)
	if err != nil {
		return fmt.Errorf("loading session secret: %w", err)
	}
	if n, err := store.PurgeRevokedTokens(ctx, database, time.Now()); err != nil {
		return err
	} else if n > 0 {
		log.Debug().Int64("count", n).Msg("purged expired session revocations")
	}

	blobs, err := blob.Open(ctx, cfg.BlobConfig())
	if err != nil {
		return fmt.Errorf("opening file storage: %w", err)
	}
	log.Info().Str("driver", string(blobs.Driver())).Msg("file storage ready")

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc, notes := newServices(database, log, m, blobs)
	if err := notes.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("initial notification refresh failed")
	}

	handler := api.NewRouter(api.Config{
		DB:            database,
		Inventory:     svc,
		Notify:        notes,
		Blobs:         blobs,
		Metrics:       m,
		Gatherer:      reg,
		Log:           log,
		SessionSecret: secret,
		RateLimit:     cfg.HTTP.RateLimit,
		RateBurst:     cfg.HTTP.RateBurst,
	})

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		log.Info().Msg("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("server forced to shutdown")
		}
	}()

	log.Info().Str("addr", cfg.Addr).Msg("server started")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: %w", err)
	}

	log.Info().Msg("server stopped, closing database")
	return nil
}

func cmdImport(args []string) error {
	flags := newFlagSet("import", importHelp)
	if err := flags.parse(args); err != nil {
		return err
	}
	if flags.fs.NArg() != 1 {
		flags.fs.Usage()
		return errors.New("expected one input file")
	}
	cfg, log, closeLog, err := flags.load()
	if err != nil {
		return err
	}
	defer closeLog()

	var in io.Reader = os.Stdin
	if name := flags.fs.Arg(0); name != "-" {
		f, err := os.Open(name)
		if err != nil {
			return fmt.Errorf("opening export: %w", err)
		}
		defer f.Close()
		in = f
	}

	database, err := openDatabase(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	ctx := context.Background()
	res, err := importer.Import(ctx, database, in, log)
	if err != nil {
		return fmt.Errorf("importing: %w", err)
	}

	// Imported stock and loans may already call for notifications.
	notes := notify.NewService(database, log, nil)
	if err := notes.Refresh(ctx); err != nil {
		log.Error().Err(err).Msg("refreshing notifications after import")
	}

	fmt.Printf("Imported %d categories, %d locations, %d users, %d items, %d loans, %d movements.\n",
		res.Categories, res.Locations, res.Users, res.Items, res.Loans, res.Movements)
	return nil
}

func cmdExport(args []string) error {
	flags := newFlagSet("export", exportHelp)
	var output string
	flags.fs.StringVar(&output, "output", "", "")
	flags.fs.StringVar(&output, "o", "", "")
	if err := flags.parse(args); err != nil {
		return err
	}
	cfg, log, closeLog, err := flags.load()
	if err != nil {
		return err
	}
	defer closeLog()

	if _, err := os.Stat(cfg.DB); err != nil {
		return fmt.Errorf("database %s: %w", cfg.DB, err)
	}
	database, err := openDatabase(cfg.DB)
	if err != nil {
		return err
	}
	defer database.Close()

	var out io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer f.Close()
		out = f
	}

	if err := importer.Write(context.Background(), database, out, time.Now()); err != nil {
		return err
	}
	if output != "" {
		log.Info().Str("file", output).Msg("export written")
	}
	return nil
}

// newServices wires the core service to notification reconciliation.
func newServices(database *sql.DB, log zerolog.Logger, m *metrics.Metrics, blobs blob.Store) (*inventory.Service, *notify.Service) {
	svc := inventory.NewService(database,
		inventory.WithLogger(log.With().Str("component", "inventory").Logger()),
		inventory.WithMetrics(m),
		inventory.WithBlobStore(blobs),
	)
	notes := notify.NewService(database, log.With().Str("component", "notify").Logger(), m)
	svc.OnChange(notes.RefreshQuietly)
	return svc, notes
}

// openDatabase opens the database and brings its schema up to date.
func openDatabase(path string) (*sql.DB, error) {
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

// initDatabase creates a new database, ensures the schema, and creates the
// admin user with a generated password.
func initDatabase(ctx context.Context, path, email, name string) (*sql.DB, string, error) {
	database, err := openDatabase(path)
	if err != nil {
		return nil, "", err
	}
	fail := func(err error) (*sql.DB, string, error) {
		database.Close()
		os.Remove(path)
		return nil, "", err
	}

	password, err := generatePassword(16)
	if err != nil {
		return fail(fmt.Errorf("generating password: %w", err))
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return fail(err)
	}
	if _, err := store.CreateUser(ctx, database, model.User{
		Name:         name,
		Email:        email,
		Role:         model.RoleAdmin,
		PasswordHash: hash,
	}); err != nil {
		return fail(fmt.Errorf("creating admin user: %w", err))
	}
	return database, password, nil
}

// printInitResult prints the database initialization result to stdout.
func printInitResult(dbPath, email, password string) {
	fmt.Printf("Database created: %s\n", dbPath)
	fmt.Println("Schema initialized.")
	fmt.Println()
	fmt.Println("Admin account created:")
	fmt.Printf("  Email:    %s\n", email)
	fmt.Printf("  Password: %s\n", password)
	fmt.Println()
	fmt.Println("Save this password, it cannot be recovered.")
	fmt.Println("The admin can change it after signing in.")
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
