package router

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/safwentrabelsi/delegate-notifier/config"
	"github.com/safwentrabelsi/delegate-notifier/dispatcher"
	"github.com/safwentrabelsi/delegate-notifier/messages"
	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/sirupsen/logrus"
)

var log = logrus.WithField("module", "router")

// ErrUnknownEvent is logged for configured event names that map to no topic.
var ErrUnknownEvent = errors.New("not a valid event")

type binding struct {
	topic types.Topic
	kind  messages.EventKind
}

// configured event name -> topics it listens to
var eventBindings = map[string][]binding{
	"voting": {
		{topic: types.TopicVoteCast, kind: messages.Vote},
		{topic: types.TopicVoteWithdrawn, kind: messages.Unvote},
	},
	"balancechange": {
		{topic: types.TopicTransactionApplied, kind: messages.BalanceChange},
	},
}

// Subscription ties a subscriber to the template kind used for one topic.
type Subscription struct {
	Subscriber *types.Subscriber
	Kind       messages.EventKind
}

// Index maps topics to their subscriptions. It is read-only once built.
type Index struct {
	explorerTx string
	topics     map[types.Topic][]Subscription
}

// BuildIndex creates the topic index from the configured webhooks. Unknown event names are logged
// and skipped, they never fail the build.
func BuildIndex(explorerTx string, webhooks []*config.WebhookConfig) *Index {
	index := &Index{
		explorerTx: explorerTx,
		topics:     make(map[types.Topic][]Subscription),
	}

	for _, w := range webhooks {
		subscriber := &types.Subscriber{
			Endpoint:     w.GetEndpoint(),
			MessageField: w.GetMessageField(),
			Payload:      w.GetPayload(),
			Delegates:    types.NewDelegateSet(w.GetDelegates()),
		}
		seen := make(map[string]bool)
		for _, event := range w.GetEvents() {
			bindings, ok := eventBindings[event]
			if !ok {
				log.WithError(fmt.Errorf("%w: %q", ErrUnknownEvent, event)).
					Warnf("Check events of webhook %s in your notifier configuration", subscriber.Platform())
				continue
			}
			if seen[event] {
				continue
			}
			seen[event] = true
			for _, b := range bindings {
				index.topics[b.topic] = append(index.topics[b.topic], Subscription{Subscriber: subscriber, Kind: b.kind})
			}
		}
	}
	return index
}

// Subscriptions returns the subscriptions registered for a topic in configuration order.
func (i *Index) Subscriptions(topic types.Topic) []Subscription {
	return i.topics[topic]
}

// Analyzer computes notification records for one subscriber's tracked delegates.
type Analyzer interface {
	Vote(ctx context.Context, ev *types.VoteEvent, tracked types.DelegateSet) ([]types.VoteRecord, error)
	Unvote(ctx context.Context, ev *types.VoteEvent, tracked types.DelegateSet) ([]types.VoteRecord, error)
	Transaction(ctx context.Context, tx *types.Transaction, tracked types.DelegateSet) ([]types.BalanceChangeRecord, error)
}

// Dispatcher delivers one event's batch of rendered notifications.
type Dispatcher interface {
	Dispatch(ctx context.Context, topic types.Topic, batch []dispatcher.Notification)
}

type Router struct {
	index      atomic.Pointer[Index]
	analyzer   Analyzer
	dispatcher Dispatcher
}

func NewRouter(index *Index, analyzer Analyzer, dispatcher Dispatcher) *Router {
	r := &Router{
		analyzer:   analyzer,
		dispatcher: dispatcher,
	}
	r.index.Store(index)
	return r
}

// Reload swaps in a freshly built index. Events already being handled keep the previous one.
func (r *Router) Reload(index *Index) {
	r.index.Store(index)
	log.Info("Subscription index reloaded")
}

// OnEvent fans an event out to its subscribers and waits for the resulting deliveries.
func (r *Router) OnEvent(ctx context.Context, ev *types.Event) {
	index := r.index.Load()
	subscriptions := index.Subscriptions(ev.Topic)
	if len(subscriptions) == 0 {
		return
	}

	var batch []dispatcher.Notification
	for _, sub := range subscriptions {
		records, err := r.analyze(ctx, ev, sub)
		if err != nil {
			log.WithError(err).WithField("topic", ev.Topic).Error("Failed to analyze event")
			continue
		}
		kind := sub.Subscriber.Platform()
		for _, record := range records {
			msg, err := messages.Render(kind, sub.Kind, record, index.explorerTx)
			if err != nil {
				log.WithError(err).WithField("topic", ev.Topic).Error("Failed to render message")
				continue
			}
			batch = append(batch, dispatcher.Notification{
				Subscriber:    sub.Subscriber,
				Message:       msg,
				TransactionID: record.TxID(),
			})
		}
	}

	if len(batch) == 0 {
		return
	}
	log.WithField("age", time.Since(ev.ReceivedAt).String()).Debugf("Dispatching %d notifications for %s", len(batch), ev.Topic)
	r.dispatcher.Dispatch(ctx, ev.Topic, batch)
	log.WithField("elapsed", time.Since(ev.ReceivedAt).String()).Debugf("Handled %s event", ev.Topic)
}

func (r *Router) analyze(ctx context.Context, ev *types.Event, sub Subscription) ([]types.Record, error) {
	switch sub.Kind {
	case messages.Vote, messages.Unvote:
		if ev.Vote == nil {
			return nil, fmt.Errorf("%s event without vote payload", ev.Topic)
		}
		analyze := r.analyzer.Vote
		if sub.Kind == messages.Unvote {
			analyze = r.analyzer.Unvote
		}
		records, err := analyze(ctx, ev.Vote, sub.Subscriber.Delegates)
		if err != nil {
			return nil, err
		}
		out := make([]types.Record, 0, len(records))
		for _, rec := range records {
			out = append(out, rec)
		}
		return out, nil
	case messages.BalanceChange:
		if ev.Transaction == nil {
			return nil, fmt.Errorf("%s event without transaction payload", ev.Topic)
		}
		records, err := r.analyzer.Transaction(ctx, ev.Transaction, sub.Subscriber.Delegates)
		if err != nil {
			return nil, err
		}
		out := make([]types.Record, 0, len(records))
		for _, rec := range records {
			out = append(out, rec)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported event kind %s", sub.Kind)
	}
}
