// Package mqtt carries observations in from a broker and announces station
// indices back out.
package mqtt

import (
	"context"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/fwi/pkg/logger"
	"github.com/okian/fwi/pkg/metrics"
)

const disconnectQuiesceMs = 250

// ClientConfig holds broker connection settings.
type ClientConfig struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	ConnectTimeout time.Duration
}

// Client owns the broker connection. Subscriber and Publisher share it.
type Client struct {
	client paho.Client
	config ClientConfig
	logger logger.Logger
}

// NewClient connects to the broker. The connection reconnects on its own
// after the first success.
func NewClient(ctx context.Context, cfg ClientConfig) (*Client, error) {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}
	c := &Client{config: cfg, logger: logger.Get().Named("mqtt")}

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetUsername(cfg.Username)
	opts.SetPassword(cfg.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectTimeout(cfg.ConnectTimeout)
	opts.SetOnConnectHandler(func(paho.Client) {
		metrics.UpdateMQTTConnected(true)
		c.logger.Info(context.Background(), "mqtt connection established", logger.String("broker", cfg.Broker))
	})
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		metrics.UpdateMQTTConnected(false)
		metrics.RecordMQTTError("connection_lost")
		c.logger.Warn(context.Background(), "mqtt connection lost", logger.Error(err))
	})

	c.client = paho.NewClient(opts)
	if err := wait(ctx, c.client.Connect()); err != nil {
		metrics.RecordMQTTError("connect")
		return nil, fmt.Errorf("%w: %s: %w", ErrConnect, cfg.Broker, err)
	}
	return c, nil
}

// Native returns the underlying paho client.
func (c *Client) Native() paho.Client {
	return c.client
}

// IsConnected reports whether the connection is currently up.
func (c *Client) IsConnected() bool {
	return c.client.IsConnected()
}

// Close disconnects from the broker.
func (c *Client) Close(ctx context.Context) {
	c.client.Disconnect(disconnectQuiesceMs)
	metrics.UpdateMQTTConnected(false)
	c.logger.Info(ctx, "mqtt client disconnected")
}

// wait blocks until tok completes or ctx is done.
func wait(ctx context.Context, tok paho.Token) error {
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
