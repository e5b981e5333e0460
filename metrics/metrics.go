// Package metrics publishes per-run forecasting statistics.
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/sartorproj/skuforecast/logger"
)

// RunStats summarizes one pipeline run.
type RunStats struct {
	Status   string // ok, partial or failed
	Targets  int
	Records  int
	Failures int
	Duration time.Duration
}

// Publisher sends run statistics somewhere.
type Publisher interface {
	PublishRun(ctx context.Context, stats RunStats) error
}

// NoopPublisher drops everything.
type NoopPublisher struct{}

func (NoopPublisher) PublishRun(context.Context, RunStats) error { return nil }

type putMetricDataAPI interface {
	PutMetricData(ctx context.Context, in *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch publishes run statistics as CloudWatch metrics.
type CloudWatch struct {
	client    putMetricDataAPI
	namespace string
	log       *logger.Entry
}

// NewCloudWatch creates a publisher from the default AWS configuration chain.
// An empty region falls back to AWS_REGION.
func NewCloudWatch(ctx context.Context, region, namespace string) (*CloudWatch, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	cw := newCloudWatch(cloudwatch.NewFromConfig(cfg), namespace)
	cw.log.WithFields(logger.Fields{
		"region":    cfg.Region,
		"namespace": cw.namespace,
	}).Info("initialized CloudWatch client")
	return cw, nil
}

func newCloudWatch(client putMetricDataAPI, namespace string) *CloudWatch {
	if namespace == "" {
		namespace = "SKUForecast"
	}
	return &CloudWatch{
		client:    client,
		namespace: namespace,
		log:       logger.GetLogger().WithComponent("cloudwatch"),
	}
}

// PublishRun sends one datum per statistic, all dimensioned by run status.
func (c *CloudWatch) PublishRun(ctx context.Context, stats RunStats) error {
	dims := []cwtypes.Dimension{{Name: aws.String("status"), Value: aws.String(stats.Status)}}
	now := time.Now()
	datum := func(name string, value float64, unit cwtypes.StandardUnit) cwtypes.MetricDatum {
		return cwtypes.MetricDatum{
			MetricName: aws.String(name),
			Dimensions: dims,
			Timestamp:  aws.Time(now),
			Unit:       unit,
			Value:      aws.Float64(value),
		}
	}

	data := []cwtypes.MetricDatum{
		datum("ForecastRuns", 1, cwtypes.StandardUnitCount),
		datum("TargetSKUs", float64(stats.Targets), cwtypes.StandardUnitCount),
		datum("ForecastRecords", float64(stats.Records), cwtypes.StandardUnitCount),
		datum("SKUFailures", float64(stats.Failures), cwtypes.StandardUnitCount),
		datum("RunDuration", float64(stats.Duration.Milliseconds()), cwtypes.StandardUnitMilliseconds),
	}

	if _, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: data,
	}); err != nil {
		return fmt.Errorf("put metric data: %w", err)
	}

	c.log.WithField("metrics", len(data)).Debug("published metrics to CloudWatch")
	return nil
}
