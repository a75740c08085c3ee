package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/event-stream/internal/broadcast"
	"github.com/jmehdipour/event-stream/internal/config"
	"github.com/jmehdipour/event-stream/internal/db"
	httpSrv "github.com/jmehdipour/event-stream/internal/http"
	"github.com/jmehdipour/event-stream/internal/logger"
	"github.com/jmehdipour/event-stream/internal/repository"
	"github.com/jmehdipour/event-stream/internal/stream"
	"github.com/jmehdipour/event-stream/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server with an embedded retention sweeper",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		logger.Init(cfg.Log.Level)
		defer logger.Sync()

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		redisClient, err := db.NewRedisClient(db.RedisOpts{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			DialTimeout: cfg.Redis.DialTimeout,
		})
		if err != nil {
			return fmt.Errorf("redis connect: %w", err)
		}
		defer func() { _ = redisClient.Close() }()

		eventsRepo := repository.NewEventsRepository(mysqlDB)

		// broadcast: Redis pub/sub always, Kafka firehose when configured
		var bc broadcast.Broadcaster = broadcast.NewRedisBroadcaster(redisClient, cfg.Redis.Channel)
		if len(cfg.Kafka.Brokers) > 0 {
			fh := broadcast.NewFirehose(cfg.Kafka.Brokers, cfg.Kafka.Topic)
			defer func() { _ = fh.Close() }()
			bc = broadcast.Multi{bc, fh}
		}

		hooks := stream.NewHooks()
		st := stream.New(eventsRepo, bc, hooks, logger.Log)

		// optional log archive for the sweeper
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

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		// one sweeper per process, uncoordinated on purpose
		sweeper := worker.NewSweeper(cfg.Sweeper, eventsRepo, archive, logger.Log)
		sweepDone := make(chan struct{})
		go func() {
			defer close(sweepDone)
			_ = sweeper.Run(ctx)
		}()

		server := httpSrv.NewServer(cfg, st, redisClient)

		errCh := make(chan error, 1)
		go func() {
			log.Printf("starting http on %s", cfg.HTTP.Addr)
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		select {
		case <-ctx.Done():
			log.Printf("signal received, shutting down...")
		case err := <-errCh:
			if err != nil {
				log.Printf("http server exited: %v", err)
			}
		}
		stop()

		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shCtx)

		// let the sweeper finish its in-flight batch
		select {
		case <-sweepDone:
		case <-shCtx.Done():
		}

		return nil
	},
}
