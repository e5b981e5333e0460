// Package pipeline runs one end-to-end forecast: load, assemble, export,
// record and publish metrics.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/sartorproj/skuforecast/assembler"
	"github.com/sartorproj/skuforecast/config"
	"github.com/sartorproj/skuforecast/export"
	"github.com/sartorproj/skuforecast/forecaster"
	"github.com/sartorproj/skuforecast/loader"
	"github.com/sartorproj/skuforecast/logger"
	"github.com/sartorproj/skuforecast/metrics"
	"github.com/sartorproj/skuforecast/recorder"
)

// Uploader stores an exported file remotely.
type Uploader interface {
	Key(runAt time.Time, ext string) string
	Upload(ctx context.Context, key string, data []byte, contentType string) error
}

// Pipeline holds the collaborators of a forecast run. Recorder, Publisher
// and Uploader may be nil.
type Pipeline struct {
	cfg   *config.Config
	cache *loader.Cache
	asm   *assembler.Assembler

	Recorder  recorder.Recorder
	Publisher metrics.Publisher
	Uploader  Uploader

	log *logger.Entry
}

// New builds a pipeline from a validated configuration.
func New(cfg *config.Config) *Pipeline {
	fc := forecaster.New(forecaster.Options{
		Order:          cfg.Forecast.Order,
		FallbackOrders: cfg.Forecast.FallbackOrders,
		MinHistory:     cfg.Forecast.MinHistory,
		FitTimeout:     cfg.Forecast.FitTimeout,
	})
	return &Pipeline{
		cfg:       cfg,
		cache:     loader.NewCache(),
		asm:       assembler.New(fc, assembler.Options{Anchor: cfg.Anchor(), Workers: cfg.Forecast.Workers}),
		Recorder:  recorder.NewNoopRecorder(),
		Publisher: metrics.NoopPublisher{},
		log:       logger.GetLogger().WithComponent("pipeline"),
	}
}

// Run executes the pipeline once. The returned run describes the outcome
// even when err is non-nil.
func (p *Pipeline) Run(ctx context.Context) (*recorder.Run, error) {
	run := &recorder.Run{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Source:    p.cfg.Source.Path,
		Horizon:   p.cfg.Forecast.Horizon,
		Order:     p.cfg.Forecast.Order.String(),
	}

	run.Err = p.execute(ctx, run)
	run.Duration = time.Since(run.StartedAt)

	if p.Recorder != nil {
		if err := p.Recorder.RecordRun(run); err != nil {
			p.log.WithError(err).Warn("failed to record forecast run")
		}
	}
	if p.Publisher != nil {
		stats := metrics.RunStats{
			Status:   run.Status(),
			Targets:  len(p.cfg.Targets),
			Records:  len(run.Records),
			Failures: len(run.Failures),
			Duration: run.Duration,
		}
		if err := p.Publisher.PublishRun(ctx, stats); err != nil {
			p.log.WithError(err).Warn("failed to publish run metrics")
		}
	}

	entry := p.log.WithFields(logger.Fields{
		"run_id":   run.ID,
		"status":   run.Status(),
		"records":  len(run.Records),
		"failures": len(run.Failures),
	})
	if run.Err != nil {
		entry.WithError(run.Err).Error("forecast run failed")
		return run, run.Err
	}
	logger.LogDuration(entry, "forecast_run", run.Duration, nil)
	return run, nil
}

func (p *Pipeline) execute(ctx context.Context, run *recorder.Run) error {
	bySKU, err := p.cache.LoadFile(p.cfg.Source.Path)
	if err != nil {
		return fmt.Errorf("load %s: %w", p.cfg.Source.Path, err)
	}

	if p.cfg.Forecast.Partial {
		out, err := p.asm.AssemblePartial(ctx, bySKU, p.cfg.Targets, p.cfg.Forecast.Horizon)
		if err != nil {
			return err
		}
		run.Records = out.Records
		for _, f := range out.Failures {
			run.Failures = append(run.Failures, recorder.NewFailure(f.SKU, f.Err))
		}
	} else {
		records, err := p.asm.Assemble(ctx, bySKU, p.cfg.Targets, p.cfg.Forecast.Horizon)
		if err != nil {
			return err
		}
		run.Records = records
	}

	return p.export(ctx, run)
}

func (p *Pipeline) export(ctx context.Context, run *recorder.Run) error {
	out := p.cfg.Output
	if out.JSONPath != "" {
		if err := export.WriteFile(out.JSONPath, func(w io.Writer) error { return export.WriteJSON(w, run.Records) }); err != nil {
			return err
		}
	}
	if out.CSVPath != "" {
		if err := export.WriteFile(out.CSVPath, func(w io.Writer) error { return export.WriteCSV(w, run.Records) }); err != nil {
			return err
		}
	}
	if out.ParquetPath == "" {
		return nil
	}

	data, err := export.Parquet(run.Records, out.Compression)
	if err != nil {
		return err
	}
	if err := export.WriteFile(out.ParquetPath, func(w io.Writer) error {
		_, err := io.Copy(w, bytes.NewReader(data))
		return err
	}); err != nil {
		return err
	}

	if p.Uploader != nil {
		key := p.Uploader.Key(run.StartedAt, "parquet")
		if err := p.Uploader.Upload(ctx, key, data, "application/octet-stream"); err != nil {
			return err
		}
	}
	return nil
}
