package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/penglongli/gin-metrics/ginmetrics"
	"github.com/safwentrabelsi/delegate-notifier/config"
	"github.com/safwentrabelsi/delegate-notifier/metrics"
	"github.com/safwentrabelsi/delegate-notifier/store"
	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "api")

const (
	defaultLimit    = 50
	shutdownTimeout = 5 * time.Second
)

// EventRequest is the body the node's webhook plugin posts for every event.
type EventRequest struct {
	Event string          `json:"event" binding:"required"`
	Data  json.RawMessage `json:"data" binding:"required"`
}

type NotificationsQueryParams struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

type APIServer struct {
	cfg    *config.ServerConfig
	store  store.Storer
	events chan<- *types.Event
}

// NewAPIServer creates the server. store may be nil when the delivery log is disabled.
func NewAPIServer(cfg *config.ServerConfig, store store.Storer, events chan<- *types.Event) *APIServer {
	return &APIServer{
		cfg:    cfg,
		store:  store,
		events: events,
	}
}

// Run serves the API and the metrics endpoint until ctx is cancelled.
func (s *APIServer) Run(ctx context.Context) error {
	router := gin.Default()
	metricRouter := gin.New()
	m := ginmetrics.GetMonitor()
	m.UseWithoutExposingEndpoint(router)
	m.SetMetricPath("/metrics")
	m.Expose(metricRouter)
	s.registerRoutes(router)

	metricsServer := &http.Server{Addr: fmt.Sprintf(":%d", s.cfg.GetMetricsPort()), Handler: metricRouter}
	apiServer := &http.Server{Addr: s.cfg.GetListenAddress(), Handler: router}

	go func() {
		log.Infof("Metrics server started at url http://%s:%d/metrics", s.cfg.GetHost(), s.cfg.GetMetricsPort())
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("Metrics server stopped: %v", err)
		}
	}()

	errs := make(chan error, 1)
	go func() {
		log.Infof("API server listening on %s", s.cfg.GetListenAddress())
		errs <- apiServer.ListenAndServe()
	}()

	select {
	case err := <-errs:
		_ = metricsServer.Close()
		return fmt.Errorf("API server stopped: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("API server shutdown: %w", err)
	}
	log.Info("API server stopped")
	return nil
}

func (s *APIServer) registerRoutes(router gin.IRouter) {
	router.POST("/events", s.handlePostEvent)
	router.GET("/notifications", ValidateTopicParam(), s.handleGetNotifications)
}

func (s *APIServer) handlePostEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event body", "details": err.Error()})
		return
	}

	topic, ok := types.ParseTopic(req.Event)
	if !ok {
		log.Debugf("Ignoring %s event", req.Event)
		c.JSON(http.StatusAccepted, gin.H{"status": "ignored"})
		return
	}

	ev, err := decodeEvent(topic, req.Data)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid event data", "details": err.Error()})
		return
	}
	metrics.EventReceivedInc(string(topic))

	select {
	case s.events <- ev:
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
	default:
		log.Warnf("Event queue full, rejecting %s event", topic)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event queue is full"})
	}
}

func decodeEvent(topic types.Topic, data json.RawMessage) (*types.Event, error) {
	ev := &types.Event{Topic: topic, ReceivedAt: time.Now()}
	switch topic {
	case types.TopicVoteCast, types.TopicVoteWithdrawn:
		var vote types.VoteEvent
		if err := json.Unmarshal(data, &vote); err != nil {
			return nil, err
		}
		if vote.Delegate == "" {
			return nil, errors.New("vote event without delegate")
		}
		ev.Vote = &vote
	case types.TopicTransactionApplied:
		var tx types.Transaction
		if err := json.Unmarshal(data, &tx); err != nil {
			return nil, err
		}
		ev.Transaction = &tx
	}
	return ev, nil
}

func (s *APIServer) handleGetNotifications(c *gin.Context) {
	if s.store == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "delivery log is disabled"})
		return
	}

	var params NotificationsQueryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameter", "details": err.Error()})
		return
	}
	if params.Limit == 0 {
		params.Limit = defaultLimit
	}

	deliveries, err := s.store.GetDeliveries(c.Request.Context(), types.Topic(c.GetString(topicKey)), params.Limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": deliveries})
}
