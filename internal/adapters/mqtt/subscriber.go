package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/logger"
	"github.com/okian/fwi/pkg/metrics"
)

// Submitter accepts observations for application.
type Submitter interface {
	Submit(ctx context.Context, obs model.Observation) (duplicate bool, err error)
}

// SubscribeClient is the part of paho.Client the Subscriber uses.
type SubscribeClient interface {
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
}

// Subscriber turns messages on the observation topic into submissions.
// The station id is the last topic level unless the payload names one.
type Subscriber struct {
	client SubscribeClient
	topic  string
	submit Submitter
	settings
}

// NewSubscriber creates a subscriber for topic, e.g. "fwi/observations/+".
func NewSubscriber(client SubscribeClient, topic string, submit Submitter, opts ...Option) *Subscriber {
	s := &Subscriber{client: client, topic: topic, submit: submit, settings: defaults()}
	for _, opt := range opts {
		opt(&s.settings)
	}
	return s
}

// Subscribe starts receiving observations.
func (s *Subscriber) Subscribe(ctx context.Context) error {
	if err := wait(ctx, s.client.Subscribe(s.topic, s.qos, s.handle)); err != nil {
		metrics.RecordMQTTError("subscribe")
		return fmt.Errorf("subscribe %s: %w", s.topic, err)
	}
	s.logger.Info(ctx, "subscribed to observations", logger.String("topic", s.topic))
	return nil
}

// Unsubscribe stops receiving observations.
func (s *Subscriber) Unsubscribe(ctx context.Context) error {
	if err := wait(ctx, s.client.Unsubscribe(s.topic)); err != nil {
		metrics.RecordMQTTError("unsubscribe")
		return fmt.Errorf("unsubscribe %s: %w", s.topic, err)
	}
	return nil
}

func (s *Subscriber) handle(_ paho.Client, msg paho.Message) {
	ctx := context.Background()
	metrics.RecordMQTTMessageReceived()

	obs, err := DecodeObservation(msg.Topic(), msg.Payload(), s.clock.Now())
	if err != nil {
		metrics.RecordMQTTError("decode")
		s.logger.Warn(ctx, "dropping observation message",
			logger.String("topic", msg.Topic()),
			logger.Error(err),
		)
		return
	}

	duplicate, err := s.submit.Submit(ctx, obs)
	switch {
	case err != nil:
		metrics.RecordMQTTError("submit")
		s.logger.Warn(ctx, "observation not accepted",
			logger.String("station", obs.StationID),
			logger.String("date", obs.Date.Format(model.DateLayout)),
			logger.Error(err),
		)
	case duplicate:
		s.logger.Debug(ctx, "duplicate observation", logger.String("id", obs.ID))
	}
}

// observationMessage is the payload on the observation topic.
type observationMessage struct {
	ID        string   `json:"id"`
	StationID string   `json:"station_id"`
	Date      string   `json:"date"`
	Temp      *float64 `json:"temp"`
	RH        *float64 `json:"rh"`
	Wind      *float64 `json:"wind"`
	Rain      *float64 `json:"rain"`
}

// DecodeObservation builds an observation from a message. A payload without
// a date is dated on the day of now.
func DecodeObservation(topic string, payload []byte, now time.Time) (model.Observation, error) {
	var m observationMessage
	if err := json.Unmarshal(payload, &m); err != nil {
		return model.Observation{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
	}

	stationID := strings.TrimSpace(m.StationID)
	if stationID == "" {
		stationID = StationFromTopic(topic)
	}
	if stationID == "" {
		return model.Observation{}, ErrMissingStation
	}

	if m.Temp == nil || m.RH == nil || m.Wind == nil || m.Rain == nil {
		return model.Observation{}, fmt.Errorf("%w: temp, rh, wind and rain are required", ErrInvalidPayload)
	}

	day := model.Day(now)
	if m.Date != "" {
		d, err := model.ParseDate(m.Date)
		if err != nil {
			return model.Observation{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		day = d
	}

	id := m.ID
	if id == "" {
		id = model.ObservationID(stationID, day)
	}
	return model.Observation{
		ID:        id,
		StationID: stationID,
		Date:      day,
		Weather: fwi.Weather{
			Temperature:      *m.Temp,
			RelativeHumidity: *m.RH,
			WindSpeed:        *m.Wind,
			Rainfall:         *m.Rain,
			Month:            day.Month(),
		},
	}, nil
}

// StationFromTopic returns the last level of topic, or "" when it is a
// wildcard or empty.
func StationFromTopic(topic string) string {
	i := strings.LastIndexByte(topic, '/')
	last := topic[i+1:]
	if last == "+" || last == "#" {
		return ""
	}
	return strings.TrimSpace(last)
}
