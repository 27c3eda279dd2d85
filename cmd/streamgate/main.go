package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/streamgate/streamgate/internal/auth"
	"github.com/streamgate/streamgate/internal/cache"
	"github.com/streamgate/streamgate/internal/config"
	"github.com/streamgate/streamgate/internal/server"
	"github.com/streamgate/streamgate/internal/service"
	"github.com/streamgate/streamgate/internal/store"
)

func main() {
	configPath := flag.String("config", "", "Optional config file path (YAML); else use environment variables")
	flag.Parse()

	var cfg *config.Config
	var err error
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	admin, err := auth.New(cfg.AdminAuth, cfg.AdminToken, cfg.AdminUser, cfg.AdminPass)
	if err != nil {
		fmt.Fprintf(os.Stderr, "admin auth: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()

	// A store that cannot be opened at boot is fatal by design: the service
	// refuses to run without a readable registry and catalog.
	var appStore store.Store
	if cfg.DatabaseURL != "" {
		absMigrations, err := filepath.Abs("migrations")
		if err != nil {
			absMigrations = "migrations"
		}
		if _, err := os.Stat(absMigrations); err != nil {
			if exe, e := os.Executable(); e == nil {
				absMigrations = filepath.Join(filepath.Dir(exe), "migrations")
			}
		}
		if err := store.RunMigrations(cfg.DatabaseURL, "file://"+absMigrations); err != nil {
			fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
			os.Exit(1)
		}

		pg, err := store.NewPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "db: %v\n", err)
			os.Exit(1)
		}
		defer pg.Close()
		appStore = pg
		fmt.Fprintln(os.Stderr, "storage: postgres")
	} else {
		fs, err := store.NewFile(cfg.DataDir)
		if err != nil {
			fmt.Fprintf(os.Stderr, "store: %v\n", err)
			os.Exit(1)
		}
		appStore = fs
		fmt.Fprintf(os.Stderr, "storage: json documents in %s\n", cfg.DataDir)
	}

	// Connect to Redis if REDIS_URL is configured.
	var rds *cache.Redis
	if cfg.RedisURL != "" {
		rds, err = cache.New(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "redis: %v\n", err)
			os.Exit(1)
		}
		defer rds.Close()

		if err := rds.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "redis ping: %v\n", err)
			os.Exit(1)
		}

		appStore = store.NewCachedStore(appStore, rds)
		fmt.Fprintln(os.Stderr, "redis connected (caching and async imports enabled)")
	} else {
		fmt.Fprintln(os.Stderr, "redis disabled (REDIS_URL not set)")
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start the background catalog import worker when Redis is available.
	if rds != nil {
		go runImportWorker(ctx, rds, appStore, cfg)
	}

	srv := server.New(appStore, cfg, admin, rds)
	if err := srv.ListenAndServe(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

// runImportWorker continuously dequeues catalog import jobs from Redis and
// processes them. It stops when ctx is cancelled (graceful shutdown).
func runImportWorker(ctx context.Context, rds *cache.Redis, s store.Store, cfg *config.Config) {
	log.Println("import worker started")
	for {
		select {
		case <-ctx.Done():
			log.Println("import worker stopping")
			return
		default:
		}

		job, err := cache.Dequeue(ctx, rds, cache.ImportQueue, 5*time.Second)
		if err != nil {
			log.Printf("import worker: dequeue error: %v", err)
			time.Sleep(2 * time.Second)
			continue
		}
		if job == nil {
			continue // timeout, loop back to check ctx
		}

		log.Printf("import worker: processing job code=%s url=%s", job.Code, job.URL)

		userAgent := job.UserAgent
		if userAgent == "" {
			userAgent = cfg.UserAgent
		}
		count, err := service.Import(ctx, s, job.URL, job.Country, job.Code, userAgent, cfg.Timeout)
		if err != nil {
			log.Printf("import worker: import %s: %v", job.Code, err)
			continue
		}
		log.Printf("import worker: imported %d channels into %s", count, job.Code)
	}
}
