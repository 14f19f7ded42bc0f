package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/strangeindustries/scrumpoker/broadcast"
	"github.com/strangeindustries/scrumpoker/config"
	"github.com/strangeindustries/scrumpoker/logger"
	"github.com/strangeindustries/scrumpoker/monitor"
	"github.com/strangeindustries/scrumpoker/room"
	"github.com/strangeindustries/scrumpoker/rpc"
	"github.com/strangeindustries/scrumpoker/server"
	"github.com/strangeindustries/scrumpoker/session"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		logger.Log.Errorf("scrumpoker: %v", err)
		logger.Sync()
		os.Exit(1)
	}
}

func run(args []string) error {
	flags := pflag.NewFlagSet("scrumpoker", pflag.ContinueOnError)
	configPath := flags.String("config", ".", "directory containing config.yaml")
	config.AddFlags(flags)
	if err := flags.Parse(args); err != nil {
		return err
	}

	// POKER_* variables may come from a local .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath, flags)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	mon := monitor.NewMonitor(cfg.Monitor.Namespace)
	sessionManager := session.NewManager()
	broadcaster := broadcast.NewRoomBroadcaster(sessionManager)
	roomManager := room.NewRoomManager(
		room.WithMaxParticipants(cfg.Room.MaxParticipants),
		room.WithSink(broadcaster),
	)

	pokerServer := server.NewPokerServer(cfg.Server, roomManager, sessionManager, mon)

	rpcServer, err := rpc.NewServer(cfg.Server.RPCAddress)
	if err != nil {
		return fmt.Errorf("create rpc server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errs := make(chan error, 2)
	go func() { errs <- pokerServer.Start() }()
	go func() { errs <- rpcServer.Start() }()

	var runErr error
	select {
	case <-ctx.Done():
		logger.Log.Info("Shutdown signal received.")
	case runErr = <-errs:
		if runErr != nil {
			runErr = fmt.Errorf("serve: %w", runErr)
		}
	}

	rpcServer.Drain()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := pokerServer.Shutdown(shutdownCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("shutdown: %w", err))
	}
	rpcServer.Stop()

	logger.Log.Info("Server stopped.")
	return runErr
}
