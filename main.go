package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"fyne.io/fyne/v2/app"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fmuoria/resume-screening-dashboard/internal/agent"
	"github.com/fmuoria/resume-screening-dashboard/internal/api"
	"github.com/fmuoria/resume-screening-dashboard/internal/config"
	"github.com/fmuoria/resume-screening-dashboard/internal/gui"
	"github.com/fmuoria/resume-screening-dashboard/internal/logger"
	"github.com/fmuoria/resume-screening-dashboard/internal/mockranker"
	"github.com/fmuoria/resume-screening-dashboard/internal/ranking"
)

const shutdownTimeout = 10 * time.Second

func main() {
	var (
		guiMode    = flag.Bool("gui", false, "Run the desktop dashboard instead of the HTTP API")
		configPath = flag.String("config", "", "Path to config.yaml (default: user config directory)")
		port       = flag.Int("port", 0, "Port for the HTTP API (overrides server.port)")
		mockRanker = flag.Bool("mock-ranker", false, "Serve canned rankings locally and rank against them")
		mockAddr   = flag.String("mock-addr", "127.0.0.1:8000", "Listen address for --mock-ranker")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}

	log, err := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *mockRanker {
		addr, err := startMockRanker(ctx, *mockAddr, log)
		if err != nil {
			log.Fatal("Failed to start mock ranker", zap.Error(err))
		}
		cfg.Ranking.BaseURL = "http://" + addr
	}

	newRanker := func(rc config.RankingConfig) agent.Ranker {
		return ranking.NewClient(ranking.Config{
			BaseURL: rc.BaseURL,
			Path:    rc.Path,
			Timeout: rc.Timeout,
		}, log)
	}

	dashboard := agent.NewDashboard(newRanker(cfg.Ranking), agent.Options{
		MinJobDescriptionChars: cfg.Dashboard.MinJobDescriptionChars,
		MaxComparison:          cfg.Dashboard.MaxComparison,
		MaxFileSize:            cfg.Dashboard.MaxFileSize,
	}, log)

	log.Info("Ranking service configured", zap.String("url", cfg.RankURL()), zap.Duration("timeout", cfg.Ranking.Timeout))

	if *guiMode {
		gui.NewApp(app.NewWithID("io.github.fmuoria.resume-screening"), cfg, dashboard, newRanker, log).Run()
		return
	}

	if err := runServer(ctx, cfg, dashboard, log); err != nil {
		log.Fatal("Server failed", zap.Error(err))
	}
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Load()
	}
	return config.LoadFrom(path)
}

// runServer serves the dashboard API until ctx is cancelled
func runServer(ctx context.Context, cfg *config.Config, dashboard *agent.Dashboard, log *zap.Logger) error {
	if cfg.Logging.Format == "json" {
		gin.SetMode(gin.ReleaseMode)
	}

	server := api.NewServer(dashboard, log)
	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: server.Router(cfg.Server.MaxBodyBytes),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Starting resume screening dashboard", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	dashboard.Cancel()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// startMockRanker serves the canned ranking endpoint on addr and returns the
// address it is listening on.
func startMockRanker(ctx context.Context, addr string, log *zap.Logger) (string, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return "", fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &http.Server{Handler: mockranker.NewRouter(mockranker.New(log.Named("mockranker")))}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Mock ranker stopped", zap.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("Mock ranker listening", zap.String("addr", ln.Addr().String()))
	return ln.Addr().String(), nil
}
