package cmd

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/overdrive-recruitment/recruit-pilot/internal/httpserver"
	"github.com/overdrive-recruitment/recruit-pilot/internal/logger"
	"github.com/overdrive-recruitment/recruit-pilot/internal/outreach"
	"github.com/overdrive-recruitment/recruit-pilot/internal/scheduler"
)

const (
	defaultServerPort     = 8080
	serverShutdownTimeout = 10 * time.Second
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the funnel on a schedule with health and manual-trigger endpoints",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}
	if config == nil {
		zl.Fatal("config is required")
	}

	zl.Info("starting the recruit-pilot service", zap.String("version", version))

	outputDir := config.OutputDir
	if outputDir == "" {
		outputDir = defaultOutputDir
	}

	funnel, cleanup, err := buildFunnel(ctx, config, outreach.NewFilePublisher(outputDir), zl)
	if err != nil {
		zl.Fatal("building the funnel", zap.Error(err))
	}
	defer cleanup()

	schedCfg := &scheduler.Config{}
	port := defaultServerPort
	if config.Server != nil {
		schedCfg.Spec = config.Server.Schedule
		schedCfg.RunOnStart = config.Server.RunOnStart
		if config.Server.Port > 0 {
			port = config.Server.Port
		}
	}

	sched, err := scheduler.New(schedCfg, scheduler.RunnerFunc(func(ctx context.Context) error {
		_, err := funnel.Run(ctx)
		return err
	}), zl)
	if err != nil {
		zl.Fatal("building the scheduler", zap.Error(err))
	}

	if err := sched.Start(ctx); err != nil {
		zl.Fatal("starting the scheduler", zap.Error(err))
	}
	defer sched.Stop()

	server := httpserver.New(port, sched, zl)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start()
	}()

	select {
	case <-ctx.Done():
		zl.Info("shutting down on signal")
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("http server failed", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), serverShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Warn("http server shutdown", zap.Error(err))
	}
}
