package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/quartzdata/ordermart/pkg/logger"
	"github.com/quartzdata/ordermart/pkg/mart"
	"github.com/quartzdata/ordermart/pkg/metrics"
	"github.com/quartzdata/ordermart/pkg/quality"
	"github.com/quartzdata/ordermart/pkg/source"
	"github.com/quartzdata/ordermart/pkg/store/memory"
	"github.com/quartzdata/ordermart/pkg/store/postgres"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	verboseFlag := flag.Bool("verbose", false, "enable verbose (debug) logging")
	dryRunFlag := flag.Bool("dry-run", false, "merge into an in-memory store and discard the result")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to serve prometheus metrics on (empty disables)")

	inputFlag := flag.String("input", "", "path to the orders .xlsx workbook (or set ORDERS_INPUT env var)")
	s3BucketFlag := flag.String("s3-bucket", "", "S3 bucket holding order workbooks; takes precedence over --input (or set ORDERS_S3_BUCKET env var)")
	s3RegionFlag := flag.String("s3-region", "us-east-1", "AWS region for the orders bucket (or set ORDERS_S3_REGION env var)")
	s3EndpointFlag := flag.String("s3-endpoint", "", "custom S3 endpoint URL (for MinIO testing)")

	postgresDSNFlag := flag.String("postgres-dsn", "", "postgres connection string (or set DATABASE_URL env var)")
	migrationsEnableFlag := flag.Bool("migrations-enable", false, "run star-schema migrations before merging")

	flag.Parse()

	// Load .env file. godotenv does not override existing env vars, so
	// process env and explicit exports take precedence.
	_ = godotenv.Load()

	// Override flags with environment variables if set
	if envInput := os.Getenv("ORDERS_INPUT"); envInput != "" && *inputFlag == "" {
		*inputFlag = envInput
	}
	if envBucket := os.Getenv("ORDERS_S3_BUCKET"); envBucket != "" && *s3BucketFlag == "" {
		*s3BucketFlag = envBucket
	}
	if envRegion := os.Getenv("ORDERS_S3_REGION"); envRegion != "" {
		*s3RegionFlag = envRegion
	}
	if envDSN := os.Getenv("DATABASE_URL"); envDSN != "" && *postgresDSNFlag == "" {
		*postgresDSNFlag = envDSN
	}

	log := logger.New(*verboseFlag)

	log.Info("ordermart starting",
		"version", version,
		"commit", commit,
		"dry_run", *dryRunFlag,
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sig := <-sigCh
		log.Info("received signal", "signal", sig.String())
		cancel()
	}()

	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("failed to serve prometheus metrics", "error", err)
			}
		}()
	}

	// Pick the staging source: S3 when a bucket is configured, local file
	// otherwise.
	var src source.Source
	switch {
	case *s3BucketFlag != "":
		s3src, err := source.NewS3Source(ctx, source.S3SourceConfig{
			Bucket:      *s3BucketFlag,
			Region:      *s3RegionFlag,
			EndpointURL: *s3EndpointFlag,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 source: %w", err)
		}
		src = s3src
	case *inputFlag != "":
		src = source.NewFileSource(*inputFlag)
	default:
		return fmt.Errorf("either --input or --s3-bucket is required")
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Warn("failed to close source", "error", err)
		}
	}()

	batch, err := src.FetchLatest(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch staging batch: %w", err)
	}
	log.Info("staging batch fetched", "name", batch.Name, "rows", len(batch.Rows))

	// Quality gate runs before any store is touched: a bad batch never
	// reaches the merge engine.
	if err := quality.Gate(ctx, batch.Rows); err != nil {
		return err
	}
	log.Info("data-quality checks passed")

	var store mart.Store
	if *dryRunFlag {
		store = memory.New()
	} else {
		if *postgresDSNFlag == "" {
			return fmt.Errorf("postgres-dsn is required (or use --dry-run)")
		}
		if *migrationsEnableFlag {
			if err := postgres.RunMigrations(ctx, log, postgres.MigrationConfig{DSN: *postgresDSNFlag}); err != nil {
				return err
			}
		}
		pool, err := pgxpool.New(ctx, *postgresDSNFlag)
		if err != nil {
			return fmt.Errorf("failed to create postgres pool: %w", err)
		}
		defer pool.Close()

		store, err = postgres.New(postgres.Config{
			Logger: log,
			Pool:   pool,
		})
		if err != nil {
			return fmt.Errorf("failed to create postgres store: %w", err)
		}
	}

	merger, err := mart.New(mart.Config{
		Logger: log,
		Clock:  clockwork.NewRealClock(),
		Store:  store,
	})
	if err != nil {
		return fmt.Errorf("failed to create merger: %w", err)
	}

	res, err := merger.Run(ctx, batch.Rows)
	if err != nil {
		metrics.RunFailures.Inc()
		return err
	}
	metrics.RecordRun(res)

	log.Info("ingestion finished",
		"run_id", res.RunID,
		"facts_inserted", res.FactsInserted,
		"facts_existing", res.FactsExisting,
		"facts_skipped", res.FactsSkipped,
	)
	return nil
}
