package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"multiwallet/pkg/config"
	"multiwallet/pkg/logger"
	"multiwallet/pkg/server"
	"multiwallet/pkg/tui"
	"multiwallet/pkg/wallet"
	"multiwallet/pkg/watcher"

	"github.com/spf13/cobra"
)

// Version should be set during build
var Version = "dev"

func main() {
	var (
		configFlag  string
		serverMode  bool
		port        int
		logFile     string
		logLevel    string
		showVersion bool
		jsonOutput  bool
	)

	rootCmd := &cobra.Command{
		Use:   "multiwallet [config]",
		Short: "Ethereum and Solana account list for the terminal",
		Long: `multiwallet lists the paired Ethereum and Solana accounts of a wallet,
switches the active account and shows balances. With --server it runs
headless and serves the same data over HTTP and websocket.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("multiwallet version %s\n", Version)
				return nil
			}
			logger.Init(logLevel)
			return run(configArg(configFlag, args), serverMode, port, logFile, logLevel)
		},
	}

	checkCmd := &cobra.Command{
		Use:   "check [config]",
		Short: "Validate the configuration and test every RPC endpoint",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(logLevel)
			return runCheck(cmd.Context(), configArg(configFlag, args), jsonOutput)
		},
	}
	checkCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output check results as JSON")

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Path to configuration file (default: ~/"+config.ConfigFileName+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.Flags().BoolVar(&serverMode, "server", false, "Run in headless server mode")
	rootCmd.Flags().IntVarP(&port, "port", "p", 8080, "Port for API server")
	rootCmd.Flags().StringVar(&logFile, "log-file", "", "Log file used while the TUI runs (default: ~/.multiwallet/logs)")
	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Print version and exit")

	restoreCmd := &cobra.Command{
		Use:   "restore [config]",
		Short: "Restore the configuration from its most recent backup",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger.Init(logLevel)
			path, err := config.GetConfigPath(configArg(configFlag, args))
			if err != nil {
				return fmt.Errorf("error determining config path: %w", err)
			}
			if err := config.RestoreLastBackup(path); err != nil {
				return fmt.Errorf("restore %s: %w", path, err)
			}
			logger.Config.Info().Str("config", path).Msg("Configuration restored from backup")
			return nil
		},
	}

	rootCmd.AddCommand(checkCmd, restoreCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.Logger.Error().Err(err).Msg("multiwallet failed")
		os.Exit(1)
	}
}

func configArg(flagValue string, args []string) string {
	if flagValue == "" && len(args) > 0 {
		return args[0]
	}
	return flagValue
}

func loadConfig(cfgInput string) (config.Config, string, error) {
	path, err := config.GetConfigPath(cfgInput)
	if err != nil {
		return config.Config{}, "", fmt.Errorf("error determining config path: %w", err)
	}
	cfg, err := config.LoadConfigFromFile(path)
	if err != nil {
		return config.Config{}, path, fmt.Errorf("error loading config from %s: %w", path, err)
	}
	return cfg, path, nil
}

// newStore builds the wallet store from cfg and saves every change back to
// path.
func newStore(cfg config.Config, path string) *wallet.Store {
	var mu sync.Mutex
	store := wallet.NewStore(cfg.State())
	store.SetPersister(func(s wallet.State) error {
		mu.Lock()
		defer mu.Unlock()
		cfg.ApplyState(s)
		return config.SaveConfig(cfg, path)
	})
	return store
}

// services are the long running parts shared by the TUI and server modes.
type services struct {
	store   *wallet.Store
	watcher *watcher.Watcher
	logPath string
	closers []func()
}

// close releases everything in reverse start order, so the watcher stops
// before the log file it writes to is closed.
func (s *services) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// startServices switches logging to a file when the TUI will own the
// terminal, then starts the store and the balance watcher.
func startServices(ctx context.Context, cfg config.Config, path string, serverMode bool, logFile, logLevel string) (*services, error) {
	svc := &services{}
	if !serverMode {
		logPath, err := logger.InitFileOnly(logFile, logLevel)
		if err != nil {
			return nil, err
		}
		svc.logPath = logPath
		svc.closers = append(svc.closers, logger.Close)
	}

	svc.store = newStore(cfg, path)
	svc.watcher = watcher.NewWatcher(cfg, svc.store)
	svc.watcher.Start(ctx)
	svc.closers = append(svc.closers, svc.watcher.Stop)
	return svc, nil
}

func run(cfgInput string, serverMode bool, port int, logFile, logLevel string) error {
	cfg, path, err := loadConfig(cfgInput)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", path, err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, err := startServices(ctx, cfg, path, serverMode, logFile, logLevel)
	if err != nil {
		return err
	}
	defer svc.close()

	srv := server.NewServer(svc.store, svc.watcher)

	if serverMode {
		logger.Logger.Info().Str("config", path).Int("port", port).Msg("Running in server mode")
		errCh := make(chan error, 1)
		go func() { errCh <- srv.Start(port) }()
		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
			return nil
		}
	}

	logger.Logger.Info().Str("config", path).Str("log", svc.logPath).Msg("Starting TUI")

	go func() {
		if err := srv.Start(port); err != nil {
			logger.Server.Error().Err(err).Msg("Server error")
		}
	}()

	storeEvents := svc.store.Subscribe()
	defer svc.store.Unsubscribe(storeEvents)

	return tui.Start(tui.Options{
		Selectors:      svc.store,
		Dispatch:       svc.store.Dispatch,
		StoreEvents:    storeEvents,
		Balances:       svc.watcher,
		RecoveryPhrase: config.LoadRecoveryPhrase(path),
		Config:         cfg.GlobalConfig,
	}, Version)
}
