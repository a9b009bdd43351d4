// Command wireworld-server runs a multi-client, real-time Wireworld
// simulation: it loads an optional initial world, starts the tick engine,
// and serves sessions over WebSocket until interrupted.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"wireworld/broadcast"
	"wireworld/cellgrid"
	"wireworld/config"
	"wireworld/engine"
	"wireworld/fileloader"
	"wireworld/server"
)

func main() {
	cmd := config.NewCommand(run)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg config.Config) error {
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	grid, err := loadInitialGrid(cfg.WorldFile)
	if err != nil {
		return fmt.Errorf("loading initial world: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	edits := engine.NewEditQueue(1024)
	bus := broadcast.New[*cellgrid.Snapshot](cfg.BusCapacity)
	eng := engine.New(grid, edits, bus, cfg.TickInterval, sugar)

	go eng.Run(ctx)

	srv := server.New(
		server.Config{
			Addr:             cfg.Addr,
			StaticDir:        cfg.StaticDir,
			Codec:            cfg.Codec,
			StreamStartGrace: cfg.StreamStartGrace,
			DefaultViewportW: cfg.DefaultViewportW,
			DefaultViewportH: cfg.DefaultViewportH,
		},
		edits,
		bus,
		eng,
		sugar,
	)

	sugar.Infow("wireworld-server starting", "addr", cfg.Addr, "codec", cfg.Codec)
	return srv.Serve(ctx)
}

func loadInitialGrid(path string) (*cellgrid.CellGrid, error) {
	if path == "" {
		return cellgrid.New(), nil
	}
	return fileloader.LoadFile(path)
}
