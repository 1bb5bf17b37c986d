package events

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"
)

// Publisher publishes listing events to NATS JetStream. This service
// only publishes; consumers live elsewhere.
type Publisher struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	config *Config
	log    *logrus.Entry
}

// NewPublisher connects to NATS, ensures the listing stream exists and
// returns a publisher.
func NewPublisher(config *Config, log *logrus.Logger) (*Publisher, error) {
	entry := log.WithField("component", "events")

	opts := []nats.Option{
		nats.Name(config.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			if err != nil {
				entry.WithError(err).Warn("NATS disconnected")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			entry.WithField("url", nc.ConnectedUrl()).Info("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			entry.WithError(err).Error("NATS error")
		}),
	}

	if config.User != "" && config.Password != "" {
		opts = append(opts, nats.UserInfo(config.User, config.Password))
	}

	nc, err := nats.Connect(config.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	p := &Publisher{
		nc:     nc,
		js:     js,
		config: config,
		log:    entry,
	}

	if err := p.initializeStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to initialize stream: %w", err)
	}

	return p, nil
}

// initializeStream creates or updates the listing event stream.
func (p *Publisher) initializeStream() error {
	streamConfig := &nats.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Emerald Market listing change events",
		Subjects:    []string{SubjectListingCreated, SubjectListingUpdated, SubjectListingDeleted},
		Retention:   nats.LimitsPolicy,
		MaxAge:      p.config.StreamMaxAge,
		MaxBytes:    p.config.StreamMaxBytes,
		MaxMsgs:     p.config.StreamMaxMsgs,
		MaxMsgSize:  p.config.StreamMaxMsgSize,
		Replicas:    p.config.StreamReplicas,
		Duplicates:  5 * time.Minute,
		NoAck:       false,
		Storage:     nats.FileStorage,
	}

	_, err := p.js.AddStream(streamConfig)
	if err != nil {
		_, err = p.js.UpdateStream(streamConfig)
		if err != nil {
			return fmt.Errorf("failed to create/update stream: %w", err)
		}
	}

	return nil
}

// Publish publishes a listing event and waits for the JetStream ack.
// The event ID doubles as the deduplication message ID.
func (p *Publisher) Publish(ctx context.Context, event *ListingEvent) error {
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal listing event: %w", err)
	}

	pubAck, err := p.js.PublishAsync(event.Subject(), data, nats.MsgId(event.ID))
	if err != nil {
		return fmt.Errorf("failed to publish listing event: %w", err)
	}

	select {
	case <-pubAck.Ok():
		return nil
	case err := <-pubAck.Err():
		return fmt.Errorf("listing event publish failed: %w", err)
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Health checks the NATS connection health
func (p *Publisher) Health() error {
	if !p.nc.IsConnected() {
		return fmt.Errorf("NATS is not connected")
	}

	if _, err := p.js.AccountInfo(); err != nil {
		return fmt.Errorf("JetStream health check failed: %w", err)
	}

	return nil
}

// Close closes the NATS connection
func (p *Publisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
