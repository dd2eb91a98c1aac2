package metrics

import (
	"time"

	"github.com/hirepipe/interviewflow/backend/metrics"
)

type noopMetricsClient struct{}

var _ metrics.Client = (*noopMetricsClient)(nil)

func NewNoopMetricsClient() metrics.Client {
	return &noopMetricsClient{}
}

func (nmc *noopMetricsClient) Counter(name string, tags metrics.Tags, value float64) {
}

func (nmc *noopMetricsClient) Distribution(name string, tags metrics.Tags, value float64) {
}

func (nmc *noopMetricsClient) Timing(name string, tags metrics.Tags, duration time.Duration) {
}

func (nmc *noopMetricsClient) WithTags(tags metrics.Tags) metrics.Client {
	return nmc
}
