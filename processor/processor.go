package processor

import (
	"context"
	"sync"

	"github.com/safwentrabelsi/delegate-notifier/types"
	"github.com/sirupsen/logrus"
)

type Processor interface {
	Run(ctx context.Context)
}

// EventHandler handles a single event occurrence to completion.
type EventHandler interface {
	OnEvent(ctx context.Context, ev *types.Event)
}

type processor struct {
	handler     EventHandler
	dataChannel <-chan *types.Event
}

var log = logrus.WithField("module", "processor")

func NewProcessor(handler EventHandler, dataChannel <-chan *types.Event) Processor {
	return &processor{
		handler:     handler,
		dataChannel: dataChannel,
	}
}

// Run hands every received event to the handler in its own goroutine, so a slow batch only delays
// itself. It returns after cancellation once in-flight events are done.
func (p *processor) Run(ctx context.Context) {
	log.Info("Starting Processor")
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case <-ctx.Done():
			log.Info("Processor stopping due to context cancellation")
			return
		case ev, ok := <-p.dataChannel:
			if !ok {
				log.Info("Event channel closed, stopping Processor")
				return
			}
			if ev == nil {
				continue
			}
			log.Debugf("Received %s event", ev.Topic)
			wg.Add(1)
			go func(ev *types.Event) {
				defer wg.Done()
				p.handler.OnEvent(ctx, ev)
			}(ev)
		}
	}
}
