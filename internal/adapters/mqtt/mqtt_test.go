package mqtt_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/jonboulle/clockwork"
	"github.com/okian/fwi/internal/adapters/mqtt"
	"github.com/okian/fwi/internal/domain/fwi"
	"github.com/okian/fwi/internal/domain/model"
	"github.com/okian/fwi/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	if err := logger.Init(logger.WithLevel("error")); err != nil {
		panic(err)
	}
}

type fakeToken struct {
	err  error
	done chan struct{}
}

func completed(err error) *fakeToken {
	t := &fakeToken{err: err, done: make(chan struct{})}
	close(t.done)
	return t
}

func (t *fakeToken) Wait() bool                     { <-t.done; return true }
func (t *fakeToken) WaitTimeout(time.Duration) bool { return true }
func (t *fakeToken) Done() <-chan struct{}          { return t.done }
func (t *fakeToken) Error() error                   { return t.err }

type fakeMessage struct {
	topic   string
	payload []byte
}

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 1 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return m.topic }
func (m fakeMessage) MessageID() uint16 { return 1 }
func (m fakeMessage) Payload() []byte   { return m.payload }
func (m fakeMessage) Ack()              {}

type published struct {
	topic    string
	qos      byte
	retained bool
	payload  []byte
}

// fakeBroker records calls and hands subscription callbacks back to tests.
type fakeBroker struct {
	mu        sync.Mutex
	handlers  map[string]paho.MessageHandler
	published []published
	err       error
	// stalled leaves publish tokens pending, as paho does while reconnecting.
	stalled bool
}

func (b *fakeBroker) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		if b.handlers == nil {
			b.handlers = map[string]paho.MessageHandler{}
		}
		b.handlers[topic] = cb
	}
	return completed(b.err)
}

func (b *fakeBroker) Unsubscribe(topics ...string) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		delete(b.handlers, t)
	}
	return completed(nil)
}

func (b *fakeBroker) Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err == nil {
		b.published = append(b.published, published{topic, qos, retained, payload.([]byte)})
	}
	if b.stalled {
		return &fakeToken{done: make(chan struct{})}
	}
	return completed(b.err)
}

func (b *fakeBroker) deliver(subscription, topic, payload string) {
	b.mu.Lock()
	cb := b.handlers[subscription]
	b.mu.Unlock()
	cb(nil, fakeMessage{topic: topic, payload: []byte(payload)})
}

type recordingSubmitter struct {
	mu   sync.Mutex
	seen []model.Observation
	err  error
}

func (r *recordingSubmitter) Submit(_ context.Context, obs model.Observation) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	r.seen = append(r.seen, obs)
	return false, nil
}

var may2 = time.Date(2024, time.May, 2, 0, 0, 0, 0, time.UTC)

func TestDecodeObservation(t *testing.T) {
	now := may2.Add(13 * time.Hour)

	t.Run("station from topic and date from payload", func(t *testing.T) {
		obs, err := mqtt.DecodeObservation("fwi/observations/stn-4",
			[]byte(`{"date":"2024-04-01","temp":17,"rh":42,"wind":25,"rain":0}`), now)
		require.NoError(t, err)
		assert.Equal(t, "stn-4", obs.StationID)
		assert.Equal(t, time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC), obs.Date)
		assert.Equal(t, time.April, obs.Weather.Month)
		assert.Equal(t, model.ObservationID("stn-4", obs.Date), obs.ID)
		assert.InDelta(t, 42.0, obs.Weather.RelativeHumidity, 1e-12)
	})

	t.Run("payload station wins and a missing date is today", func(t *testing.T) {
		obs, err := mqtt.DecodeObservation("fwi/observations/other",
			[]byte(`{"id":"abc","station_id":"stn-5","temp":-3,"rh":90,"wind":0,"rain":1.5}`), now)
		require.NoError(t, err)
		assert.Equal(t, "stn-5", obs.StationID)
		assert.Equal(t, may2, obs.Date)
		assert.Equal(t, "abc", obs.ID)
		assert.Equal(t, time.May, obs.Weather.Month)
	})

	t.Run("rejects bad payloads", func(t *testing.T) {
		for name, tc := range map[string]struct {
			topic, payload string
			want           error
		}{
			"not json":       {"fwi/observations/stn-1", `temp=3`, mqtt.ErrInvalidPayload},
			"missing field":  {"fwi/observations/stn-1", `{"temp":3,"rh":40,"wind":2}`, mqtt.ErrInvalidPayload},
			"bad date":       {"fwi/observations/stn-1", `{"date":"May 2","temp":3,"rh":40,"wind":2,"rain":0}`, mqtt.ErrInvalidPayload},
			"no station id":  {"fwi/observations/+", `{"temp":3,"rh":40,"wind":2,"rain":0}`, mqtt.ErrMissingStation},
			"empty level id": {"fwi/observations/", `{"temp":3,"rh":40,"wind":2,"rain":0}`, mqtt.ErrMissingStation},
		} {
			_, err := mqtt.DecodeObservation(tc.topic, []byte(tc.payload), now)
			assert.ErrorIs(t, err, tc.want, name)
		}
	})
}

func TestStationFromTopic(t *testing.T) {
	assert.Equal(t, "stn-1", mqtt.StationFromTopic("fwi/observations/stn-1"))
	assert.Equal(t, "stn-1", mqtt.StationFromTopic("stn-1"))
	assert.Equal(t, "", mqtt.StationFromTopic("fwi/observations/#"))
	assert.Equal(t, "", mqtt.StationFromTopic("fwi/observations/+"))
}

func TestSubscriber(t *testing.T) {
	Convey("Given a subscriber on the observation wildcard", t, func() {
		ctx := context.Background()
		broker := &fakeBroker{}
		submitter := &recordingSubmitter{}
		clock := clockwork.NewFakeClockAt(may2.Add(9 * time.Hour))
		sub := mqtt.NewSubscriber(broker, "fwi/observations/+", submitter, mqtt.WithClock(clock))

		So(sub.Subscribe(ctx), ShouldBeNil)

		Convey("When a valid observation arrives", func() {
			broker.deliver("fwi/observations/+", "fwi/observations/stn-1",
				`{"temp":17,"rh":42,"wind":25,"rain":0}`)

			Convey("Then it is submitted for the station of the topic", func() {
				So(submitter.seen, ShouldHaveLength, 1)
				So(submitter.seen[0].StationID, ShouldEqual, "stn-1")
				So(submitter.seen[0].Date, ShouldEqual, may2)
			})
		})

		Convey("When a malformed observation arrives", func() {
			broker.deliver("fwi/observations/+", "fwi/observations/stn-1", `{"temp":17}`)

			Convey("Then it is dropped", func() {
				So(submitter.seen, ShouldBeEmpty)
			})
		})

		Convey("When the submitter refuses", func() {
			submitter.err = errors.New("queue full")

			Convey("Then the handler does not panic", func() {
				So(func() {
					broker.deliver("fwi/observations/+", "fwi/observations/stn-1",
						`{"temp":17,"rh":42,"wind":25,"rain":0}`)
				}, ShouldNotPanic)
			})
		})

		Convey("When unsubscribing", func() {
			So(sub.Unsubscribe(ctx), ShouldBeNil)
			So(broker.handlers, ShouldBeEmpty)
		})
	})

	Convey("Given a broker that refuses subscriptions", t, func() {
		broker := &fakeBroker{err: errors.New("not authorized")}
		sub := mqtt.NewSubscriber(broker, "fwi/observations/+", &recordingSubmitter{})
		So(sub.Subscribe(context.Background()), ShouldNotBeNil)
	})
}

func TestPublisher(t *testing.T) {
	st := model.StationState{
		StationID:    "stn-1",
		LastDate:     time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC),
		Codes:        fwi.Codes{FFMC: 86.7, DMC: 8.5, DC: 19},
		Indices:      fwi.Indices{ISI: 6.2, BUI: 8.4, FWI: 9},
		DSR:          1.2,
		Class:        fwi.ClassModerate,
		Observations: 1,
	}

	t.Run("publishes retained indices per station", func(t *testing.T) {
		broker := &fakeBroker{}
		pub := mqtt.NewPublisher(broker, "fwi/indices/")
		require.NoError(t, pub.Publish(context.Background(), st))

		require.Len(t, broker.published, 1)
		msg := broker.published[0]
		assert.Equal(t, "fwi/indices/stn-1", msg.topic)
		assert.True(t, msg.retained)
		assert.Equal(t, byte(1), msg.qos)

		var body map[string]any
		require.NoError(t, json.Unmarshal(msg.payload, &body))
		assert.Equal(t, "2024-04-01", body["date"])
		assert.Equal(t, "moderate", body["class"])
		assert.InDelta(t, 9.0, body["indices"].(map[string]any)["fwi"], 1e-9)
	})

	t.Run("honours qos and retain options", func(t *testing.T) {
		broker := &fakeBroker{}
		pub := mqtt.NewPublisher(broker, "fwi/indices", mqtt.WithQoS(0), mqtt.WithRetain(false))
		require.NoError(t, pub.Publish(context.Background(), st))
		assert.False(t, broker.published[0].retained)
		assert.Equal(t, byte(0), broker.published[0].qos)
	})

	t.Run("gives up when the broker never acknowledges", func(t *testing.T) {
		clock := clockwork.NewFakeClock()
		broker := &fakeBroker{stalled: true}
		pub := mqtt.NewPublisher(broker, "fwi/indices", mqtt.WithClock(clock), mqtt.WithPublishTimeout(2*time.Second))

		errc := make(chan error, 1)
		go func() { errc <- pub.Publish(context.Background(), st) }()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(2 * time.Second)

		select {
		case err := <-errc:
			require.Error(t, err)
			assert.ErrorIs(t, err, context.DeadlineExceeded)
		case <-ctx.Done():
			t.Fatal("publish did not time out")
		}
	})

	t.Run("reports broker failures", func(t *testing.T) {
		broker := &fakeBroker{err: errors.New("broker gone")}
		pub := mqtt.NewPublisher(broker, "fwi/indices")
		assert.Error(t, pub.Publish(context.Background(), st))
	})
}
