// Package bus publishes JSON events to NATS
package bus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"

	"tedingest/internal/platform/config"
	perr "tedingest/internal/platform/errors"
	"tedingest/internal/platform/logger"
)

// Publisher sends one event; id is used for de-duplication where supported
type Publisher interface {
	Publish(ctx context.Context, subject, id string, v any) error
	Close()
}

// Config configures the NATS connection
type Config struct {
	Enabled   bool
	URL       string
	Subject   string // default subject for run summaries
	JetStream bool
	Name      string
}

// FromConfig reads SERVICE_NATS_*
func FromConfig(cfg config.Conf, app string) Config {
	c := cfg.Prefix("SERVICE_NATS_")
	return Config{
		Enabled:   c.MayBool("ENABLED", false),
		URL:       c.MayString("URL", nats.DefaultURL),
		Subject:   c.MayString("SUBJECT", "ted.ingest.runs"),
		JetStream: c.MayBool("JETSTREAM", false),
		Name:      app,
	}
}

// conn is the slice of *nats.Conn used here
type conn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// jetStream is the slice of nats.JetStreamContext used here
type jetStream interface {
	PublishMsg(m *nats.Msg, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// NATS publishes over core NATS or JetStream
type NATS struct {
	nc  conn
	js  jetStream
	log logger.Logger
}

var connect = nats.Connect

// Open returns a Nop publisher when disabled
func Open(cfg Config) (Publisher, error) {
	if !cfg.Enabled {
		return Nop{}, nil
	}
	log := *logger.Named("bus")
	nc, err := connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(10),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn().Err(err).Msg("nats disconnected")
			}
		}),
	)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "bus: connect")
	}
	n := &NATS{nc: nc, log: log}
	if cfg.JetStream {
		js, err := nc.JetStream()
		if err != nil {
			nc.Close()
			return nil, perr.Wrap(err, perr.ErrorCodeUnavailable, "bus: jetstream")
		}
		n.js = js
	}
	return n, nil
}

// Publish marshals v to JSON and sends it with a Nats-Msg-Id header
func (n *NATS) Publish(ctx context.Context, subject, id string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return perr.Wrap(err, perr.ErrorCodeJSON, "bus: marshal")
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	if id != "" {
		msg.Header.Set(nats.MsgIdHdr, id)
	}

	if n.js != nil {
		if _, err := n.js.PublishMsg(msg, nats.Context(ctx)); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeUnavailable, "bus: jetstream publish %s", subject)
		}
		return nil
	}
	if err := n.nc.PublishMsg(msg); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "bus: publish %s", subject)
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "bus: flush %s", subject)
	}
	return nil
}

// Close closes the connection
func (n *NATS) Close() {
	if n != nil && n.nc != nil {
		n.nc.Close()
	}
}

// Nop drops every event
type Nop struct{}

// Publish does nothing
func (Nop) Publish(context.Context, string, string, any) error { return nil }

// Close does nothing
func (Nop) Close() {}
