// syncctl is the operator escape hatch: inspect the pending-operation
// queue, clear it, or export challenge standings to a spreadsheet.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"stridesync/internal/config"
	"stridesync/internal/logging"
	"stridesync/internal/queue"
	"stridesync/internal/repository"
	"stridesync/internal/store"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "syncctl: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: syncctl <pending|clear|export> [flags]")
	}

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, closer, err := logging.New(cfg.Logging, cfg.App)
	if err != nil {
		return err
	}
	if closer != nil {
		defer closer.Close()
	}

	ctx := context.Background()

	switch args[0] {
	case "pending":
		q, err := loadQueue(ctx, cfg, logger)
		if err != nil {
			return err
		}
		printPending(q)
		return nil
	case "clear":
		q, err := loadQueue(ctx, cfg, logger)
		if err != nil {
			return err
		}
		if err := q.Clear(ctx); err != nil {
			return err
		}
		fmt.Println("pending queue cleared")
		return nil
	case "export":
		fs := flag.NewFlagSet("export", flag.ContinueOnError)
		challengeID := fs.String("challenge", "", "challenge ID to export")
		out := fs.String("out", "standings.xlsx", "output file")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *challengeID == "" {
			return fmt.Errorf("export: -challenge is required")
		}
		return exportStandings(ctx, cfg, logger, *challengeID, *out)
	default:
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func loadQueue(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*queue.Queue, error) {
	if cfg.Redis.Address == "" {
		return nil, fmt.Errorf("redis is not configured; no durable queue to inspect")
	}
	client := repository.NewRedisClient(repository.RedisConfig{
		Address:  cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})
	return queue.Load(ctx, repository.NewRedisBlobStore(client), logger)
}

func printPending(q *queue.Queue) {
	ops := q.All()
	if len(ops) == 0 {
		fmt.Println("no pending operations")
		return
	}
	fmt.Printf("%-38s %-20s %-10s %s\n", "ENTITY", "OPERATION", "ATTEMPTS", "LAST ERROR")
	for _, op := range ops {
		lastErr := ""
		if op.LastError != nil {
			lastErr = *op.LastError
		}
		fmt.Printf("%-38s %-20s %-10d %s\n", op.EntityID, op.Type, op.AttemptCount, lastErr)
	}
	fmt.Printf("\n%d pending operation(s)\n", len(ops))
}

func exportStandings(ctx context.Context, cfg *config.Config, logger *zerolog.Logger, challengeID, out string) error {
	local, err := store.Open(cfg.Database.Path, logger)
	if err != nil {
		return err
	}
	defer local.Close()

	challenge, err := local.GetChallenge(ctx, challengeID)
	if err != nil {
		return err
	}
	if challenge == nil {
		return fmt.Errorf("challenge %s not found", challengeID)
	}

	standings, err := local.Standings(ctx, challengeID)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Standings"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return err
	}

	headers := []string{"Rank", "Participant", "Completed Days", "Current Streak", "Longest Streak", "Total Workouts", "Last Synced"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}

	for row, p := range standings {
		lastSynced := ""
		if p.LastSyncedAt != nil {
			lastSynced = p.LastSyncedAt.Format("2006-01-02 15:04")
		}
		values := []interface{}{row + 1, p.DisplayName, p.CompletedDays, p.CurrentStreak, p.LongestStreak, p.TotalWorkouts, lastSynced}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}

	if err := f.SaveAs(out); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	fmt.Printf("exported %d participant(s) of %q to %s\n", len(standings), challenge.Name, out)
	return nil
}
