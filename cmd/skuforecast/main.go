package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sartorproj/skuforecast/config"
	"github.com/sartorproj/skuforecast/export"
	"github.com/sartorproj/skuforecast/logger"
	"github.com/sartorproj/skuforecast/metrics"
	"github.com/sartorproj/skuforecast/pipeline"
	"github.com/sartorproj/skuforecast/recorder"
	"github.com/sartorproj/skuforecast/scheduler"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run wires the collaborators and returns the process exit code, so deferred
// cleanups complete before the process exits.
func run(args []string) int {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	fs := flag.NewFlagSet("skuforecast", flag.ContinueOnError)
	configPath := fs.String("config", "config.yaml", "Path to configuration file")
	once := fs.Bool("once", false, "Run a single forecast and exit, ignoring schedule.cron")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Error("Invalid configuration")
		return 1
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := pipeline.New(cfg)
	mainLog := log.WithComponent("main")

	if cfg.Storage.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Storage.SQLitePath)
		if err != nil {
			mainLog.WithError(err).Warn("init sqlite recorder failed, using noop")
		} else {
			p.Recorder = sr
			defer sr.Close()
		}
	}

	if cfg.Metrics.CloudWatch.Enabled {
		cw, err := metrics.NewCloudWatch(ctx, cfg.Metrics.CloudWatch.Region, cfg.Metrics.CloudWatch.Namespace)
		if err != nil {
			mainLog.WithError(err).Warn("CloudWatch metrics disabled")
		} else {
			p.Publisher = cw
		}
	}

	if cfg.Storage.S3.Enabled {
		s3cfg := cfg.Storage.S3
		up, err := export.NewS3Uploader(ctx, export.S3Options{
			Bucket:          s3cfg.Bucket,
			Region:          s3cfg.Region,
			Prefix:          s3cfg.Prefix,
			Endpoint:        s3cfg.Endpoint,
			PathStyle:       s3cfg.PathStyle,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
		})
		if err != nil {
			mainLog.WithError(err).Error("failed to create S3 uploader")
			return 1
		}
		p.Uploader = up
	}

	mainLog.WithFields(logger.Fields{
		"source":  cfg.Source.Path,
		"targets": len(cfg.Targets),
		"horizon": cfg.Forecast.Horizon,
		"order":   cfg.Forecast.Order.String(),
	}).Info("starting skuforecast")

	if *once || cfg.Schedule.Cron == "" {
		if _, err := p.Run(ctx); err != nil {
			return 1
		}
		return 0
	}

	sched := scheduler.New(func(jobCtx context.Context) error {
		_, err := p.Run(jobCtx)
		return err
	})
	if err := sched.Register(cfg.Schedule.Cron); err != nil {
		mainLog.WithError(err).Error("failed to register schedule")
		return 1
	}
	sched.Start()

	<-ctx.Done()
	mainLog.Info("shutdown signal received")
	sched.Stop()
	return 0
}
