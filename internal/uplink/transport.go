package uplink

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Transport carries published telemetry.
type Transport interface {
	Publish(subject string, data []byte) error
	Connected() bool
	Close() error
}

// Dialer opens a transport for s.
type Dialer func(ctx context.Context, s Settings) (Transport, error)

// NATSDialer connects with the nats.go client. An unreachable server does not
// fail the dial: the connection keeps retrying in the background and
// Connected reports false until it succeeds.
func NATSDialer(ctx context.Context, s Settings) (Transport, error) {
	opts := []nats.Option{
		nats.Name(s.ClientID),
		nats.Timeout(5 * time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.ReconnectWait(2 * time.Second),
	}
	if s.Username != "" {
		opts = append(opts, nats.UserInfo(s.Username, s.Password))
	}
	if deadline, ok := ctx.Deadline(); ok {
		if d := time.Until(deadline); d > 0 {
			opts = append(opts, nats.Timeout(d))
		}
	}

	conn, err := nats.Connect(s.Server, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &natsTransport{conn: conn}, nil
}

type natsTransport struct {
	conn *nats.Conn
}

func (t *natsTransport) Publish(subject string, data []byte) error {
	return t.conn.Publish(subject, data)
}

func (t *natsTransport) Connected() bool { return t.conn.IsConnected() }

// Close flushes pending publishes before closing. A connection that never
// reached the server, or is between reconnects, has nothing to flush.
func (t *natsTransport) Close() error {
	if !t.conn.IsConnected() {
		t.conn.Close()
		return nil
	}
	return t.conn.Drain()
}
