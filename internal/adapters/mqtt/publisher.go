package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/logger"
	"github.com/okian/fwi/pkg/metrics"
)

// PublishClient is the part of paho.Client the Publisher uses.
type PublishClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
}

// Publisher announces each applied day on "{prefix}/{station}".
type Publisher struct {
	client PublishClient
	prefix string
	settings
}

// NewPublisher creates a publisher under topic prefix, e.g. "fwi/indices".
func NewPublisher(client PublishClient, prefix string, opts ...Option) *Publisher {
	p := &Publisher{client: client, prefix: strings.TrimSuffix(prefix, "/"), settings: defaults()}
	for _, opt := range opts {
		opt(&p.settings)
	}
	return p
}

// indicesMessage is the payload on the indices topic.
type indicesMessage struct {
	StationID    string          `json:"station_id"`
	Date         string          `json:"date"`
	Codes        fwi.Codes       `json:"codes"`
	Indices      fwi.Indices     `json:"indices"`
	DSR          float64         `json:"dsr"`
	Class        fwi.DangerClass `json:"class"`
	Observations int             `json:"observations"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Topic returns the topic a station's indices are published on.
func (p *Publisher) Topic(stationID string) string {
	return p.prefix + "/" + stationID
}

// Publish implements the worker pool's publisher. It gives up after the
// publish timeout so a broker outage cannot stall the calling worker.
func (p *Publisher) Publish(ctx context.Context, st model.StationState) error { //nolint:gocritic // hugeParam: read-only copy
	payload, err := json.Marshal(indicesMessage{
		StationID:    st.StationID,
		Date:         st.LastDate.Format(model.DateLayout),
		Codes:        st.Codes,
		Indices:      st.Indices,
		DSR:          st.DSR,
		Class:        st.Class,
		Observations: st.Observations,
		UpdatedAt:    st.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("marshal indices: %w", err)
	}

	topic := p.Topic(st.StationID)
	ctx, cancel := clockwork.WithTimeout(ctx, p.clock, p.publishTimeout)
	defer cancel()
	if err := wait(ctx, p.client.Publish(topic, p.qos, p.retain, payload)); err != nil {
		metrics.RecordMQTTError("publish")
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	metrics.RecordMQTTMessagePublished()
	p.logger.Debug(ctx, "indices published", logger.String("topic", topic))
	return nil
}
