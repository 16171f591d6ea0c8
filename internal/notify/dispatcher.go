// Package notify persists notifications and pushes them to their
// recipients.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/emilythestrangee/stackit/backend/internal/metrics"
	"github.com/emilythestrangee/stackit/backend/internal/models"
	"github.com/emilythestrangee/stackit/backend/internal/realtime"
)

// Store is the persistence the dispatcher needs.
type Store interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	GetUser(ctx context.Context, id string) (*models.User, error)
}

// Pusher delivers an event to a user connected to this instance.
type Pusher interface {
	SendToUser(userID string, ev realtime.Event) bool
}

// Relay reaches users connected to other instances.
type Relay interface {
	Online(ctx context.Context, userID string) (bool, error)
	Publish(ctx context.Context, userID string, ev realtime.Event) error
}

type Dispatcher struct {
	store  Store
	pusher Pusher
	relay  Relay
	sms    SMSSender
	log    zerolog.Logger
}

type Option func(*Dispatcher)

func WithRelay(r Relay) Option {
	return func(d *Dispatcher) { d.relay = r }
}

func WithSMS(s SMSSender) Option {
	return func(d *Dispatcher) { d.sms = s }
}

func NewDispatcher(store Store, pusher Pusher, log zerolog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		store:  store,
		pusher: pusher,
		log:    log.With().Str("component", "notify").Logger(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch stores n and then tries to deliver it live. Only the store write
// can fail the call; delivery problems are logged and counted.
//
// Delivery order: a connection on this instance, then the relay if the
// recipient is online elsewhere, then SMS if the recipient has a phone.
func (d *Dispatcher) Dispatch(ctx context.Context, n *models.Notification) error {
	if err := d.store.CreateNotification(ctx, n); err != nil {
		metrics.Notifications.WithLabelValues(string(n.Type), metrics.DeliveryFailed).Inc()
		return fmt.Errorf("store notification: %w", err)
	}

	delivery := d.deliver(ctx, n)
	metrics.Notifications.WithLabelValues(string(n.Type), delivery).Inc()
	d.log.Debug().
		Str("recipient", n.RecipientID).
		Str("type", string(n.Type)).
		Str("delivery", delivery).
		Msg("notification dispatched")
	return nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *models.Notification) string {
	ev := realtime.Event{Name: realtime.EventNotification, Data: n.View()}

	if d.pusher != nil && d.pusher.SendToUser(n.RecipientID, ev) {
		return metrics.DeliveryPushed
	}

	if d.relay != nil {
		online, err := d.relay.Online(ctx, n.RecipientID)
		if err != nil {
			d.log.Warn().Err(err).Str("recipient", n.RecipientID).Msg("presence lookup failed")
		}
		if online {
			if err := d.relay.Publish(ctx, n.RecipientID, ev); err != nil {
				d.log.Warn().Err(err).Str("recipient", n.RecipientID).Msg("relay publish failed")
			} else {
				return metrics.DeliveryRelayed
			}
		}
	}

	if d.sms != nil {
		recipient, err := d.store.GetUser(ctx, n.RecipientID)
		if err != nil {
			d.log.Warn().Err(err).Str("recipient", n.RecipientID).Msg("recipient lookup for sms failed")
			return metrics.DeliveryStored
		}
		if recipient.Phone == "" {
			return metrics.DeliveryStored
		}
		if err := d.sms.Send(ctx, recipient.Phone, smsBody(n)); err != nil {
			d.log.Warn().Err(err).Str("recipient", n.RecipientID).Msg("sms delivery failed")
			return metrics.DeliveryStored
		}
		return metrics.DeliverySMS
	}

	return metrics.DeliveryStored
}

func smsBody(n *models.Notification) string {
	return fmt.Sprintf("StackIt: %s (%s)", n.Content, n.Link)
}
