package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"thirdcoast.systems/mediagrab/cmd/web/internal/web"
	"thirdcoast.systems/mediagrab/internal/config"
	"thirdcoast.systems/mediagrab/internal/media"
	"thirdcoast.systems/mediagrab/internal/staging"
	"thirdcoast.systems/mediagrab/internal/toolchain"
	"thirdcoast.systems/mediagrab/pkg/ytdlp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting web service")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	loc := toolchain.Locate(ctx, toolchain.Options{
		Override:   conf.FFmpegLocation,
		SearchRoot: conf.ToolchainSearchRoot,
	})
	ff := loc.Toolchain()
	if v, err := ff.Version(ctx); err != nil {
		msg, attrs := loc.Diagnose(err)
		slog.Warn(msg, attrs...)
	} else {
		slog.Info("ffmpeg available", "version", v, "dir", loc.Dir)
	}

	stage := staging.NewManager(conf.StagingDir)
	if err := stage.EnsureDirectory(); err != nil {
		slog.Error("failed to create staging dir", "dir", conf.StagingDir, "error", err)
		os.Exit(1)
	}
	if n := stage.Purge(); n > 0 {
		slog.Info("cleared stale staging entries", "dir", conf.StagingDir, "removed", n)
	}

	client := ytdlp.New()
	client.Path = conf.YtdlpPath
	client.LogCallback = func(stream string, line string) {
		slog.Debug("yt-dlp", "stream", stream, "line", line)
	}

	if conf.YtdlpAutoUpdate {
		updateCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		if err := client.Update(updateCtx); err != nil {
			slog.Warn("yt-dlp self-update failed", "error", ytdlp.Message(err))
		}
		cancel()
	}

	if v, err := client.Version(ctx); err != nil {
		slog.Warn("yt-dlp not usable", "path", client.PathOrDefault(), "error", ytdlp.Message(err))
	} else {
		slog.Info("yt-dlp available", "path", client.PathOrDefault(), "version", v)
	}

	svc := media.NewService(client, stage, media.Options{
		FFmpegLocation: loc.Dir,
		MaxFilesize:    conf.MaxFilesizeBytes,
		Prober:         ff,
	})

	e, err := web.NewWebserver(ctx, svc, web.Options{
		BodyLimit: conf.WebServerBodyLimit,
		RateLimit: conf.WebServerRateLimit,
	})
	if err != nil {
		slog.Error("failed to create webserver", "error", err)
		os.Exit(1)
	}

	addr := ":" + strconv.Itoa(conf.WebServerPort)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening", "addr", addr)
	if err := e.Start(addr); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		// Echo returns an error on Shutdown; treat it as normal if context is done.
		if ctx.Err() != nil {
			return
		}
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
