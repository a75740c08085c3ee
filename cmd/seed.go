package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmehdipour/event-stream/internal/config"
	"github.com/jmehdipour/event-stream/internal/db"
	"github.com/jmehdipour/event-stream/internal/model"
	"github.com/jmehdipour/event-stream/internal/repository"
	"github.com/jmehdipour/event-stream/internal/util"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		log.Println(">> Seeding demo events...")

		repo := repository.NewEventsRepository(sqlDB)
		if err := seedEvents(cmd.Context(), repo); err != nil {
			return err
		}

		log.Println(">> Seed completed ✅")
		return nil
	},
}

// seedEvents inserts deterministic demo events. Fixed hashes plus the reuse
// upsert make repeated runs idempotent.
func seedEvents(ctx context.Context, repo repository.EventsRepository) error {
	sender := "seed"
	demo := []struct {
		hash        string
		topic       string
		status      model.EventStatus
		description string
		summary     model.JSONMap
	}{
		{
			hash:        "seed-project-created",
			topic:       "entity.project.created",
			status:      model.StatusFinished,
			description: "Demo project created",
			summary:     model.JSONMap{"projectName": "demo"},
		},
		{
			hash:        "seed-sync-pending",
			topic:       "sync.pull",
			status:      model.StatusPending,
			description: "Demo pending sync job",
			summary:     model.JSONMap{},
		},
		{
			hash:        "seed-log-info",
			topic:       "log.info",
			status:      model.StatusFinished,
			description: "Demo log entry",
			summary:     model.JSONMap{},
		},
	}

	for _, d := range demo {
		id := util.NewID()
		progress := 0.0
		if d.status == model.StatusFinished {
			progress = 100
		}
		now := time.Now().UTC()
		ev := model.Event{
			ID:          id,
			Hash:        d.hash,
			Sender:      &sender,
			Topic:       d.topic,
			Status:      d.status,
			Description: d.description,
			Summary:     d.summary,
			Payload:     model.JSONMap{},
			Progress:    progress,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.Insert(ctx, ev, true); err != nil {
			return fmt.Errorf("insert event %q: %w", d.hash, err)
		}
	}
	return nil
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
