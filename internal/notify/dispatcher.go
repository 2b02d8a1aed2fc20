package notify

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	submitTimeout = 250 * time.Millisecond
	sendTimeout   = 15 * time.Second
	retryBackoff  = time.Second
)

var ErrBadRecipient = errors.New("notify: missing or invalid recipient")

// Dispatcher queues messages and delivers them from a worker so callers
// never wait on the provider.
type Dispatcher struct {
	queue  Queue
	sender Sender
	log    *zap.SugaredLogger
}

func NewDispatcher(q Queue, s Sender, log *zap.SugaredLogger) *Dispatcher {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Dispatcher{queue: q, sender: s, log: log}
}

// Submit enqueues msg for the worker. A full or unreachable queue drops the
// message with a warning.
func (d *Dispatcher) Submit(msg Message) {
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := d.queue.Enqueue(ctx, msg); err != nil {
		d.log.Warnw("notify: enqueue failed, message dropped", "kind", msg.Kind, "err", err)
	}
}

// Run delivers queued messages until ctx is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		msg, err := d.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.log.Warnw("notify: dequeue failed", "err", err)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff):
			}
			continue
		}
		if err := d.Send(ctx, msg); err != nil {
			d.log.Warnw("notify: delivery failed", "kind", msg.Kind, "to", msg.To, "err", err)
			continue
		}
		d.log.Infow("notify: delivered", "kind", msg.Kind, "to", msg.To)
	}
}

// Send delivers msg synchronously.
func (d *Dispatcher) Send(ctx context.Context, msg Message) error {
	to, err := recipient(msg.To)
	if err != nil {
		return err
	}
	msg.To = to

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()
	return d.sender.Send(ctx, msg)
}

func recipient(to string) (string, error) {
	to = strings.TrimSpace(to)
	if to == "" {
		return "", ErrBadRecipient
	}
	addr, err := mail.ParseAddress(to)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrBadRecipient, to)
	}
	return addr.Address, nil
}
