package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"healthwatch-server/models"
	"healthwatch-server/services"
)

// Realtime event names.
const (
	EventConnected        = "connected"
	EventError            = "error"
	EventPing             = "ping"
	EventPong             = "pong"
	EventWatchMeasurement = "watch:measurement"
	EventMeasurementAck   = "watch:measurement:ack"
	EventWatchUpdate      = "watch:update"
	EventLiveHealth       = "watch:live:health"
	EventLiveWorkout      = "watch:live:workout"
	EventRequestLatest    = "phone:requestLatest"
	EventLatestData       = "phone:latestData"
)

const persistTimeout = 5 * time.Second

// MeasurementRecorder is the storage the relay needs.
type MeasurementRecorder interface {
	Create(ctx context.Context, userID uint, in services.MeasurementInput) (*models.Measurement, error)
	Latest(ctx context.Context, userID uint) (*models.Measurement, error)
}

// MeasurementAck confirms a stored measurement to the sender.
type MeasurementAck struct {
	Success   bool      `json:"success"`
	ID        uint      `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
}

// LiveUpdate wraps an unpersisted live reading.
type LiveUpdate struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MeasurementRelay persists watch readings and fans them out to the user's
// other connections.
type MeasurementRelay struct {
	hub    *Hub
	store  MeasurementRecorder
	logger *zap.Logger
}

// NewMeasurementRelay creates the relay and registers its handlers on hub.
func NewMeasurementRelay(hub *Hub, store MeasurementRecorder, logger *zap.Logger) *MeasurementRelay {
	r := &MeasurementRelay{hub: hub, store: store, logger: logger}
	hub.Handle(EventWatchMeasurement, r.handleMeasurement)
	hub.Handle(EventRequestLatest, r.handleRequestLatest)
	hub.Handle(EventLiveHealth, r.liveForwarder("live:health"))
	hub.Handle(EventLiveWorkout, r.liveForwarder("live:workout"))
	return r
}

// handleMeasurement stores the reading, acks the sender and pushes the stored
// row to the user's other connections. Storage runs on its own context so a
// disconnect does not abort it.
func (r *MeasurementRelay) handleMeasurement(client *Client, message *Message) error {
	var in services.MeasurementInput
	if len(message.Data) > 0 {
		if err := json.Unmarshal(message.Data, &in); err != nil {
			return errors.New("invalid measurement payload")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	measurement, err := r.store.Create(ctx, client.UserID, in)
	if err != nil {
		r.logger.Error("❌ Error saving measurement", zap.Uint("user_id", client.UserID), zap.Error(err))
		if errors.Is(err, services.ErrValidation) {
			return err
		}
		return errors.New("failed to save measurement")
	}

	ack, err := NewMessage(EventMeasurementAck, MeasurementAck{
		Success:   true,
		ID:        measurement.ID,
		CreatedAt: measurement.CreatedAt,
	})
	if err != nil {
		return err
	}
	if err := client.SendMessage(ack); err != nil {
		r.logger.Warn("⚠️ Could not ack measurement", zap.String("client_id", client.ID), zap.Error(err))
	}

	update, err := NewMessage(EventWatchUpdate, measurement)
	if err != nil {
		return err
	}
	n := r.hub.SendToUser(client.UserID, update, client)
	r.logger.Debug("⌚ Measurement relayed",
		zap.Uint("user_id", client.UserID),
		zap.Uint("measurement_id", measurement.ID),
		zap.Int("receivers", n))
	return nil
}

// handleRequestLatest replies to the sender only, with null when the user has
// no measurements.
func (r *MeasurementRelay) handleRequestLatest(client *Client, _ *Message) error {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	latest, err := r.store.Latest(ctx, client.UserID)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		r.logger.Error("❌ Error loading latest measurement", zap.Uint("user_id", client.UserID), zap.Error(err))
		return errors.New("failed to load latest measurement")
	}

	reply, err := NewMessage(EventLatestData, latest)
	if err != nil {
		return err
	}
	return client.SendMessage(reply)
}

func (r *MeasurementRelay) liveForwarder(liveType string) MessageHandler {
	return func(client *Client, message *Message) error {
		data := message.Data
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		update, err := NewMessage(EventWatchUpdate, LiveUpdate{Type: liveType, Data: data})
		if err != nil {
			return err
		}
		r.hub.SendToUser(client.UserID, update, client)
		return nil
	}
}
