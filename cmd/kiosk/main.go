// Package main runs the check-in kiosk: a terminal front end that generates codes,
// scans frames from a capture directory and records attendance through the API.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/qr-attendance/backend/config"
	"github.com/qr-attendance/backend/internal/apiclient"
	"github.com/qr-attendance/backend/internal/kiosk"
	"github.com/qr-attendance/backend/internal/qrcode"
	"github.com/qr-attendance/backend/internal/scanner"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	apiURL := flag.String("api", cfg.Kiosk.APIURL, "attendance API base URL")
	frames := flag.String("frames", cfg.Kiosk.FramesDir, "directory the camera capture writes frames to")
	outDir := flag.String("out", ".", "directory for saved QR images")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	logger := newLogger(*verbose)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	term := kiosk.NewTerminal(os.Stdout)
	client := apiclient.New(*apiURL, &http.Client{})
	loop := scanner.New(
		scanner.DirCamera{Dir: *frames, Logger: logger},
		qrcode.NewCodec(cfg.QR.Size, cfg.QR.Margin),
		term,
		scanner.Options{FPS: cfg.Kiosk.FPS},
		logger.With(zap.String("component", "scanner")),
	)

	app := kiosk.NewApp(client, loop, term, *outDir, logger)
	app.Init(ctx)
	term.Printf("type \"help\" for commands")
	if err := app.Run(ctx, os.Stdin); err != nil && ctx.Err() == nil {
		logger.Error("kiosk", zap.Error(err))
	}
	loop.Wait()
}

// newLogger logs to stderr so it does not interleave with the kiosk output on stdout.
func newLogger(verbose bool) *zap.Logger {
	config := zap.NewDevelopmentConfig()
	config.OutputPaths = []string{"stderr"}
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if !verbose {
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	logger, _ := config.Build()
	return logger
}
