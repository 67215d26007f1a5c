package metrics

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// Push sends everything gathered by g to a Prometheus Pushgateway under job.
// Batch commands (simulator, archiver, alerter) exit before a scrape would
// happen, so they push on completion instead.
func Push(ctx context.Context, gatewayURL, job string, g prometheus.Gatherer) error {
	if gatewayURL == "" {
		return nil
	}

	if err := push.New(gatewayURL, job).Gatherer(g).PushContext(ctx); err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", gatewayURL, err)
	}
	return nil
}
