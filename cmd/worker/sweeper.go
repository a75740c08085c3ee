package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jmehdipour/event-stream/internal/config"
	"github.com/jmehdipour/event-stream/internal/db"
	"github.com/jmehdipour/event-stream/internal/logger"
	"github.com/jmehdipour/event-stream/internal/metrics"
	"github.com/jmehdipour/event-stream/internal/repository"
	"github.com/jmehdipour/event-stream/internal/worker"
)

// sweeperCmd runs a dedicated retention sweeper outside the server process.
// The serve command embeds one too; running both just duplicates idempotent
// batch work.
var sweeperCmd = &cobra.Command{
	Use:   "sweeper",
	Short: "Run the event retention sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		metrics.MustRegister(prometheus.DefaultRegisterer)

		dbx, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer dbx.Close()

		var archive repository.LogArchive
		if cfg.ClickHouse.DSN != "" {
			chDB, err := db.NewClickHouseConnection(db.ClickHouseOpts{
				DSN:         cfg.ClickHouse.DSN,
				PingTimeout: cfg.ClickHouse.PingTimeout,
			})
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer func() { _ = chDB.Close() }()
			archive = repository.NewCHLogArchive(chDB)
		}

		eventsRepo := repository.NewEventsRepository(dbx)
		sw := worker.NewSweeper(cfg.Sweeper, eventsRepo, archive, logger.Log)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		log.Printf(">> sweeper started interval=%s retention_days=%d",
			sw.Interval, sw.RetentionDays)

		return sw.Run(ctx)
	},
}
