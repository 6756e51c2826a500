package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ezorch/ezorch/pkg/auth"
	"github.com/ezorch/ezorch/pkg/client"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	BuildTime   string
	BuildCommit string
	Version     = "0.1.0"
	configPath  string
	showVersion bool
	adminAddr   string
)

func main() {
	rootCmd := newRootCommand()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ezorch",
		Short: "ezorch - declarative process and IPVS load-balancer supervisor",
		Long:  "A single-node supervisor that launches declared processes, probes their health, and steers an IPVS loopback load balancer to match.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if showVersion {
				fmt.Printf("Version: %s\nBuild commit: %s\nBuild time: %s\n", Version, BuildCommit, BuildTime)
				return nil
			}
			return cmd.Help()
		},
	}

	rootCmd.Flags().BoolVarP(&showVersion, "version", "v", false, "Show version information")
	rootCmd.AddCommand(newOnceCommand())
	rootCmd.AddCommand(newStartCommand())
	rootCmd.AddCommand(newPingCommand())
	rootCmd.AddCommand(newGetTargetCommand())
	rootCmd.AddCommand(newSetTargetCommand())
	rootCmd.AddCommand(newStatusCommand())

	return rootCmd
}

func newOnceCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single housekeeping pass and exit",
		RunE:  runOnce,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to runtime config file")
	return cmd
}

func newStartCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the supervisor in daemon mode with signal handling",
		RunE:  startDaemon,
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to runtime config file")
	return cmd
}

// startDaemon runs housekeeping on a ticker and the admin API concurrently
// until interrupted.
func startDaemon(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	logger.Info("starting ezorch", zap.String("version", Version))

	a, err := newApp(configPath, logger)
	if err != nil {
		logger.Fatal("failed to initialize supervisor", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-signalChan
		logger.Info("received signal", zap.String("signal", sig.String()))
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.adminAPI.ListenAndServeTLS(a.adminAddr())
	}()

	ticker := time.NewTicker(a.housekeepingInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errCh:
			return fmt.Errorf("admin API server stopped: %w", err)
		case <-ticker.C:
			if err := a.reconciler.RunOnce(); err != nil {
				logger.Error("housekeeping pass failed", zap.Error(err))
			}
		}
	}
}

// runOnce performs a single housekeeping pass and exits.
func runOnce(cmd *cobra.Command, args []string) error {
	logger := newLogger()
	defer logger.Sync()

	a, err := newApp(configPath, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize supervisor: %w", err)
	}

	return a.reconciler.RunOnce()
}

func newClient() (*client.Client, error) {
	logger := zap.NewNop()
	authConfig, err := auth.LoadOrGenerate(auth.DefaultPath, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load auth config: %w", err)
	}
	return client.New(adminAddr, authConfig)
}

func newPingCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the supervisor's admin API is reachable",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			if err := c.Ping(); err != nil {
				return err
			}
			fmt.Println("pong")
			return nil
		},
	}
	cmd.Flags().StringVar(&adminAddr, "addr", "127.0.0.1:9443", "Admin API address")
	return cmd
}

func newGetTargetCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get-target",
		Short: "Print the currently accepted target",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			text, err := c.GetTarget()
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminAddr, "addr", "127.0.0.1:9443", "Admin API address")
	return cmd
}

func newSetTargetCommand() *cobra.Command {
	var filePath string
	cmd := &cobra.Command{
		Use:   "set-target",
		Short: "Submit a new target file",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(filePath)
			if err != nil {
				return fmt.Errorf("failed to read target file: %w", err)
			}
			c, err := newClient()
			if err != nil {
				return err
			}
			message, err := c.SetTarget(string(raw))
			if err != nil {
				return err
			}
			fmt.Println(message)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminAddr, "addr", "127.0.0.1:9443", "Admin API address")
	cmd.Flags().StringVarP(&filePath, "file", "f", "hjz-target.yaml", "Path to the target file to submit")
	return cmd
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print the supervisor's current process and event status",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient()
			if err != nil {
				return err
			}
			resp, err := c.Status()
			if err != nil {
				return err
			}
			fmt.Print(resp.Status)
			return nil
		},
	}
	cmd.Flags().StringVar(&adminAddr, "addr", "127.0.0.1:9443", "Admin API address")
	return cmd
}

// newLogger creates a production zap logger with console encoding for readability.
func newLogger() *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	loggerConfig := zap.Config{
		Level:            zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding:         "console",
		EncoderConfig:    encoderConfig,
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	logger, err := loggerConfig.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to create logger: %v", err))
	}
	return logger
}
