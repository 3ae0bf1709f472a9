package metrics

import (
	"fmt"
	"time"

	"github.com/penglongli/gin-metrics/ginmetrics"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "metrics")

const (
	receivedEventsMetricsName   = "notifier_received_events_count"
	deliveriesMetricsName       = "notifier_deliveries_count"
	deliveryDurationMetricsName = "notifier_delivery_duration_seconds"
)

var initialized bool

// Init registers the notifier metrics on the gin-metrics monitor.
func Init() error {
	metrics := []*ginmetrics.Metric{
		{
			Type:        ginmetrics.Counter,
			Name:        receivedEventsMetricsName,
			Description: "Events received from the node by topic",
			Labels:      []string{"topic"},
		},
		{
			Type:        ginmetrics.Counter,
			Name:        deliveriesMetricsName,
			Description: "Notification deliveries by platform and status",
			Labels:      []string{"platform", "status"},
		},
		{
			Type:        ginmetrics.Histogram,
			Name:        deliveryDurationMetricsName,
			Description: "Outbound notification request duration",
			Labels:      []string{"platform"},
			Buckets:     []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
	}
	for _, m := range metrics {
		if err := ginmetrics.GetMonitor().AddMetric(m); err != nil {
			log.Error(fmt.Sprintf("Error adding metric: %s", err))
			return err
		}
	}
	initialized = true
	return nil
}

// EventReceivedInc increments the received events counter for a topic.
func EventReceivedInc(topic string) {
	inc(receivedEventsMetricsName, []string{topic})
}

// DeliveryInc increments the deliveries counter.
func DeliveryInc(platform, status string) {
	inc(deliveriesMetricsName, []string{platform, status})
}

// ObserveDeliveryDuration records how long one outbound request took.
func ObserveDeliveryDuration(platform string, d time.Duration) {
	if !initialized {
		return
	}
	err := ginmetrics.GetMonitor().GetMetric(deliveryDurationMetricsName).Observe([]string{platform}, d.Seconds())
	if err != nil {
		log.Error(fmt.Sprintf("Error observing metric: %s", err))
	}
}

func inc(name string, labels []string) {
	if !initialized {
		return
	}
	if err := ginmetrics.GetMonitor().GetMetric(name).Inc(labels); err != nil {
		log.Error(fmt.Sprintf("Error incrementing metric: %s", err))
	}
}
