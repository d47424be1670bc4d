package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/abdulachik/etrimage/internal/app"
	"github.com/abdulachik/etrimage/internal/config"
	"github.com/abdulachik/etrimage/internal/web"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI",
	Long: `Serve the single-page generator: paste a paragraph, tune the style and
temperatures, review the image and rate it.`,
	RunE: runServe,
}

var serveAddr string

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides LISTEN_ADDR)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if serveAddr != "" {
		cfg.ListenAddr = serveAddr
	}

	if err := cfg.ValidateForServe(); err != nil {
		return fmt.Errorf("validate config: %w", err)
	}

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("create app: %w", err)
	}
	defer a.Close()

	srv, err := web.New(web.Config{
		Pipeline:         a.Pipeline,
		Metrics:          a.Metrics,
		Health:           a.Health,
		Unavailable:      a.Unavailable,
		SystemPrompt:     a.SystemPrompt,
		TextTemperature:  cfg.TextTemperature,
		ImageTemperature: cfg.ImageTemperature,
		SessionTTL:       cfg.SessionTTL,
		GenerateInterval: cfg.GenerateInterval,
		GenerateBurst:    cfg.GenerateBurst,
	})
	if err != nil {
		return fmt.Errorf("create web server: %w", err)
	}

	slog.Info("starting etrimage web UI",
		"addr", cfg.ListenAddr,
		"image_dir", cfg.ImageDir,
		"generation_enabled", a.Unavailable == nil,
	)

	if err := srv.Run(ctx, cfg.ListenAddr); err != nil {
		return fmt.Errorf("web server: %w", err)
	}

	slog.Info("shutting down...")
	return nil
}
