package dispatcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/google/uuid"
	"github.com/safwentrabelsi/delegate-notifier/config"
	"github.com/safwentrabelsi/delegate-notifier/metrics"
	"github.com/safwentrabelsi/delegate-notifier/platform"
	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "dispatcher")

var (
	// ErrDelivery wraps transport failures and non-2xx responses.
	ErrDelivery = errors.New("delivery failed")
	// ErrMissingCredentials is returned for pushover targets without token or user.
	ErrMissingCredentials = errors.New("pushover notifications need user and token params")
)

type HttpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DeliveryLog records the outcome of each delivery attempt.
type DeliveryLog interface {
	SaveDelivery(ctx context.Context, d types.Delivery) error
}

// Notification is one rendered message for one subscriber.
type Notification struct {
	Subscriber    *types.Subscriber
	Message       string
	TransactionID string
}

type Dispatcher struct {
	client          HttpClient
	deliveries      DeliveryLog
	retryAttempts   uint
	voteGracePeriod time.Duration
}

// NewDispatcher creates a dispatcher. deliveries may be nil to disable the delivery log.
func NewDispatcher(cfg *config.NotifierConfig, deliveries DeliveryLog) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{
			Timeout: time.Duration(cfg.GetDeliveryTimeout()) * time.Second,
		},
		deliveries:      deliveries,
		retryAttempts:   uint(cfg.GetRetryAttempts()),
		voteGracePeriod: cfg.GetVoteGracePeriod(),
	}
}

// Dispatch sends every notification of a batch concurrently and returns once all of them are done.
// A failing delivery is logged and never affects its siblings.
func (d *Dispatcher) Dispatch(ctx context.Context, topic types.Topic, batch []Notification) {
	var wg sync.WaitGroup
	for _, n := range batch {
		body, err := BuildPayload(n.Subscriber, n.Message)
		if err != nil {
			log.WithError(err).WithField("platform", n.Subscriber.Platform()).Error("Unable to setup notification")
			d.record(ctx, topic, n, types.DeliverySkipped, err)
			continue
		}

		wg.Add(1)
		go func(n Notification, body map[string]interface{}) {
			defer wg.Done()
			d.deliver(ctx, topic, n, body)
		}(n, body)
	}

	// vote attributes may not be visible downstream right away
	if topic == types.TopicVoteCast && d.voteGracePeriod > 0 {
		select {
		case <-time.After(d.voteGracePeriod):
		case <-ctx.Done():
		}
	}
	wg.Wait()
}

// BuildPayload clones the subscriber's payload template and sets its message field.
func BuildPayload(s *types.Subscriber, message string) (map[string]interface{}, error) {
	body := make(map[string]interface{}, len(s.Payload)+1)
	for k, v := range s.Payload {
		body[k] = v
	}
	body[s.MessageField] = message

	if s.Platform() == platform.Pushover {
		if isBlank(body["token"]) || isBlank(body["user"]) {
			return nil, ErrMissingCredentials
		}
	}
	return body, nil
}

func isBlank(v interface{}) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

func (d *Dispatcher) deliver(ctx context.Context, topic types.Topic, n Notification, body map[string]interface{}) {
	kind := n.Subscriber.Platform()
	start := time.Now()
	err := d.post(ctx, n.Subscriber.Endpoint, body)
	metrics.ObserveDeliveryDuration(kind.String(), time.Since(start))

	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{
			"platform": kind,
			"tx":       n.TransactionID,
		}).Error("Failed to deliver notification")
		d.record(ctx, topic, n, types.DeliveryFailed, err)
		return
	}
	log.WithFields(logrus.Fields{"platform": kind, "tx": n.TransactionID}).Debug("Notification delivered")
	d.record(ctx, topic, n, types.DeliverySent, nil)
}

func (d *Dispatcher) post(ctx context.Context, endpoint string, body map[string]interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	return retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := d.client.Do(req)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrDelivery, redact(err))
			}
			if resp.Body != nil {
				_, _ = io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return fmt.Errorf("%w: non-2xx status code: %d", ErrDelivery, resp.StatusCode)
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(max(d.retryAttempts, 1)),
		retry.LastErrorOnly(true),
		retry.OnRetry(func(n uint, err error) {
			log.WithError(err).Warnf("Delivery attempt %d failed, retrying...", n+1)
		}),
	)
}

func (d *Dispatcher) record(ctx context.Context, topic types.Topic, n Notification, status string, deliveryErr error) {
	kind := n.Subscriber.Platform().String()
	metrics.DeliveryInc(kind, status)
	if d.deliveries == nil {
		return
	}

	entry := types.Delivery{
		ID:            uuid.NewString(),
		CreatedAt:     time.Now().UTC(),
		Topic:         topic,
		EndpointHost:  endpointHost(n.Subscriber.Endpoint),
		Platform:      kind,
		TransactionID: n.TransactionID,
		Status:        status,
	}
	if deliveryErr != nil {
		entry.Error = deliveryErr.Error()
	}
	if err := d.deliveries.SaveDelivery(ctx, entry); err != nil {
		log.WithError(err).Warn("Failed to save delivery")
	}
}

// redact strips the request URL from transport errors.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}

// endpointHost drops path and query, webhook URLs carry their secret there.
func endpointHost(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil || u.Host == "" {
		return "invalid"
	}
	return u.Host
}
