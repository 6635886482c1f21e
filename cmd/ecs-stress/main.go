package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/rs/zerolog"

	"github.com/plus3/entitystore/ecs"
)

func main() {
	cfg, err := loadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "ecs-stress: %v\n", err)
		os.Exit(2)
	}

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(cfg.Level()).
		With().Timestamp().Logger()

	if err := run(cfg, logger); err != nil {
		logger.Fatal().Err(err).Msg("stress test failed")
	}
}

// setup builds and populates the store and registers every system.
func setup(cfg Config, logger zerolog.Logger) (*ecs.Store, *ecs.Scheduler, error) {
	// 1. Setup registry, store and scheduler
	rng := rand.New(rand.NewSource(cfg.Seed))
	store := ecs.NewStore(newRegistry(),
		ecs.WithLogger(logger),
		ecs.WithInitialCapacity(cfg.Entities),
	)
	sp := &spawner{rng: rng, indexedRatio: cfg.IndexedRatio, relations: cfg.Relations}

	// 2. Populate the store with initial entities
	logger.Info().Int("entities", cfg.Entities).Msg("Populating store...")
	ids, err := sp.populate(store, cfg.Entities)
	if err != nil {
		return nil, nil, err
	}
	logger.Info().Msg("Population complete.")

	scheduler := ecs.NewScheduler(store)
	wake := &WakeSystem{rng: rng}
	hunt := &HuntSystem{}
	scheduler.Register(&MovementSystem{})
	scheduler.Register(&DecaySystem{})
	scheduler.Register(&PromotionSystem{rng: rng})
	scheduler.Register(wake)
	scheduler.Register(hunt)
	scheduler.Register(&RespawnSystem{Target: cfg.Entities, spawner: sp, pool: ids})
	ecs.WithTag[Dormant](&wake.Sleepers)
	ecs.Without[Velocity](&hunt.Hunters)

	return store, scheduler, nil
}

func run(cfg Config, logger zerolog.Logger) error {
	logger.Info().Msg("Starting ECS stress test...")

	store, scheduler, err := setup(cfg, logger)
	if err != nil {
		return err
	}

	// 3. Run the simulation loop
	report := &Report{
		Duration:       cfg.RunDuration(),
		Entities:       cfg.Entities,
		IndexedRatio:   cfg.IndexedRatio,
		Relations:      cfg.Relations,
		Systems:        scheduler.GetStats().SystemCount,
		GCPauseMetrics: cfg.GCPauseMetrics,
	}

	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info().Dur("duration", cfg.RunDuration()).Msg("Running simulation...")
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RunDuration())
	defer cancel()

	startTime := time.Now()
	lastFrameTime := time.Now()

Loop:
	for {
		select {
		case <-ctx.Done():
			break Loop
		default:
			deltaTime := time.Since(lastFrameTime)
			lastFrameTime = time.Now()

			updateStart := time.Now()
			if err := scheduler.Once(deltaTime.Seconds()); err != nil {
				report.FrameErrors++
				logger.Debug().Err(err).Msg("frame commands failed")
			}
			report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
			report.TotalUpdates++
		}
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.Store = store.CollectStats()
	report.Scheduler = scheduler.GetStats()

	logger.Info().Int64("updates", report.TotalUpdates).Msg("Simulation finished.")

	// 4. Generate report to console
	if cfg.ReportFormat == "json" {
		if err := report.WriteJSON(os.Stdout); err != nil {
			return err
		}
	} else {
		fmt.Println("\n\n--- Stress Test Report ---")
		if err := report.Generate(os.Stdout); err != nil {
			return err
		}
		fmt.Println("--- End of Report ---")
	}

	logger.Info().Msg("Stress test complete.")
	return nil
}
