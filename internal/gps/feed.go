package gps

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/fleetwise/fleet-journal/internal/store"
)

// Feed subscribes to the live device-position topic and mirrors each report
// onto the owning vehicle record. It is the push-based complement to
// GetLastPosition; the journal pipeline itself never depends on it.
type Feed struct {
	client   mqtt.Client
	vehicles store.Collection
	topic    string
}

// NewFeed connects a position feed to the broker. Topic defaults to
// "fleet/+/position" where the wildcard segment is the device id.
func NewFeed(brokerURL, clientID string, vehicles store.Collection) *Feed {
	opts := mqtt.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)
	return &Feed{
		client:   mqtt.NewClient(opts),
		vehicles: vehicles,
		topic:    "fleet/+/position",
	}
}

// Start connects to the broker and subscribes. Position handling continues on
// the MQTT client's own goroutines until Stop is called.
func (f *Feed) Start(ctx context.Context) error {
	token := f.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("mqtt connect timed out")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	sub := f.client.Subscribe(f.topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		f.handle(ctx, msg.Payload())
	})
	sub.Wait()
	if err := sub.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %s: %w", f.topic, err)
	}
	log.WithField("topic", f.topic).Info("Position feed started")
	return nil
}

// Stop disconnects from the broker.
func (f *Feed) Stop() {
	f.client.Disconnect(250)
}

func (f *Feed) handle(ctx context.Context, payload []byte) {
	var rec PositionRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		log.WithError(err).Warn("Dropping malformed position message")
		return
	}
	if rec.DeviceID == "" {
		return
	}
	recs, err := f.vehicles.Filter(ctx, store.Conditions{"gps_device_id": rec.DeviceID}, nil)
	if err != nil || len(recs) == 0 {
		return
	}
	id, _ := recs[0]["id"].(string)
	_, err = f.vehicles.Update(ctx, id, store.Record{
		"last_position": map[string]any{"lat": rec.Lat, "lon": rec.Lon},
		"last_seen":     time.Unix(rec.Timestamp, 0).UTC().Format(time.RFC3339),
	})
	if err != nil {
		log.WithFields(log.Fields{
			"device_id":  rec.DeviceID,
			"vehicle_id": id,
		}).WithError(err).Warn("Failed to record vehicle position")
	}
}
