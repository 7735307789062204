package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"healthwatch-server/database"
	"healthwatch-server/models"
	"healthwatch-server/services"
)

type tokenAuth map[string]*models.User

func (a tokenAuth) Authenticate(_ context.Context, token string) (*models.User, error) {
	if user, ok := a[token]; ok {
		return user, nil
	}
	return nil, services.ErrAuthentication
}

type testServer struct {
	url   string
	hub   *Hub
	store *services.MeasurementStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.OpenMemory(strings.ReplaceAll(t.Name(), "/", "_") + "_" + uuid.NewString()[:8])
	require.NoError(t, err)
	for _, email := range []string{"one@example.com", "two@example.com"} {
		require.NoError(t, db.Create(&models.User{FullName: "U", Email: email, PasswordHash: "x", IsActive: true}).Error)
	}

	logger := zap.NewNop()
	hub := NewHub(logger)
	store := services.NewMeasurementStore(db, time.UTC, logger)
	NewMeasurementRelay(hub, store, logger)

	auth := tokenAuth{
		"token-one": {ID: 1, Role: models.RoleUser},
		"token-two": {ID: 2, Role: models.RoleUser},
	}
	router := gin.New()
	router.GET("/ws", NewGateway(hub, auth, []string{"*"}, logger).Handle)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return &testServer{
		url:   "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws",
		hub:   hub,
		store: store,
	}
}

type testConn struct {
	t    *testing.T
	conn *websocket.Conn
}

func (s *testServer) dial(t *testing.T, token string) *testConn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(s.url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	c := &testConn{t: t, conn: conn}
	connected := c.read()
	require.Equal(t, EventConnected, connected.Type)
	return c
}

func (c *testConn) emit(eventType string, payload interface{}) {
	c.t.Helper()
	msg := map[string]interface{}{"type": eventType}
	if payload != nil {
		msg["data"] = payload
	}
	require.NoError(c.t, c.conn.WriteJSON(msg))
}

func (c *testConn) read() Message {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg Message
	require.NoError(c.t, c.conn.ReadJSON(&msg))
	return msg
}

// expectQuiet proves nothing else is queued: a ping round-trip must come back
// as the very next event.
func (c *testConn) expectQuiet() {
	c.t.Helper()
	c.emit(EventPing, nil)
	msg := c.read()
	assert.Equal(c.t, EventPong, msg.Type, "unexpected event %s: %s", msg.Type, string(msg.Data))
}

func TestGatewayRejectsBadCredential(t *testing.T) {
	srv := newTestServer(t)

	for _, url := range []string{srv.url, srv.url + "?token=forged"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
	assert.Zero(t, srv.hub.Stats().Connections)
}

func TestGatewayAcceptsBearerHeader(t *testing.T) {
	srv := newTestServer(t)

	header := http.Header{"Authorization": []string{"Bearer token-two"}}
	conn, _, err := websocket.DefaultDialer.Dial(srv.url, header)
	require.NoError(t, err)
	defer conn.Close()

	c := &testConn{t: t, conn: conn}
	msg := c.read()
	require.Equal(t, EventConnected, msg.Type)
	assert.True(t, srv.hub.IsUserConnected(2))
}

func TestMeasurementFansOutToUsersOtherConnections(t *testing.T) {
	srv := newTestServer(t)
	phone := srv.dial(t, "token-one")
	watch := srv.dial(t, "token-one")
	stranger := srv.dial(t, "token-two")
	assert.Equal(t, HubStats{Users: 2, Connections: 3}, srv.hub.Stats())

	watch.emit(EventWatchMeasurement, map[string]interface{}{"heartRate": 72, "spO2": 98, "steps": 1200})

	ack := watch.read()
	require.Equal(t, EventMeasurementAck, ack.Type)
	var ackBody MeasurementAck
	require.NoError(t, json.Unmarshal(ack.Data, &ackBody))
	assert.True(t, ackBody.Success)
	assert.NotZero(t, ackBody.ID)

	update := phone.read()
	require.Equal(t, EventWatchUpdate, update.Type)
	var relayed models.Measurement
	require.NoError(t, json.Unmarshal(update.Data, &relayed))
	assert.Equal(t, ackBody.ID, relayed.ID)
	assert.Equal(t, models.MeasurementTypeManual, relayed.Type)
	assert.Equal(t, 72, relayed.HeartRate)
	assert.Equal(t, models.DefaultDuration, relayed.Duration)

	watch.expectQuiet()
	stranger.expectQuiet()

	stored, err := srv.store.Latest(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, ackBody.ID, stored.ID)
}

func TestRequestLatestRepliesToSenderOnly(t *testing.T) {
	srv := newTestServer(t)
	phone := srv.dial(t, "token-one")
	watch := srv.dial(t, "token-one")

	phone.emit(EventRequestLatest, nil)
	empty := phone.read()
	require.Equal(t, EventLatestData, empty.Type)
	assert.Equal(t, "null", string(empty.Data))

	watch.emit(EventWatchMeasurement, map[string]interface{}{"type": "heart", "heartRate": 65})
	ack := watch.read()
	require.Equal(t, EventMeasurementAck, ack.Type)
	require.Equal(t, EventWatchUpdate, phone.read().Type)

	phone.emit(EventRequestLatest, nil)
	latest := phone.read()
	require.Equal(t, EventLatestData, latest.Type)
	var m models.Measurement
	require.NoError(t, json.Unmarshal(latest.Data, &m))
	assert.Equal(t, "heart", m.Type)
	assert.Equal(t, 65, m.HeartRate)

	watch.expectQuiet()
}

func TestLiveEventsAreForwardedNotStored(t *testing.T) {
	srv := newTestServer(t)
	phone := srv.dial(t, "token-one")
	watch := srv.dial(t, "token-one")

	watch.emit(EventLiveHealth, map[string]interface{}{"heartRate": 101})
	update := phone.read()
	require.Equal(t, EventWatchUpdate, update.Type)

	var live struct {
		Type string         `json:"type"`
		Data map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(update.Data, &live))
	assert.Equal(t, "live:health", live.Type)
	assert.Equal(t, 101, live.Data["heartRate"])

	_, err := srv.store.Latest(context.Background(), 1)
	assert.ErrorIs(t, err, services.ErrNotFound)
}

func TestBadEventsGetErrorReplies(t *testing.T) {
	srv := newTestServer(t)
	watch := srv.dial(t, "token-one")

	watch.emit("watch:teleport", nil)
	unknown := watch.read()
	assert.Equal(t, EventError, unknown.Type)

	watch.emit(EventWatchMeasurement, map[string]interface{}{"heartRate": -5})
	invalid := watch.read()
	require.Equal(t, EventError, invalid.Type)
	assert.Contains(t, string(invalid.Data), EventWatchMeasurement)

	require.NoError(t, watch.conn.WriteMessage(websocket.TextMessage, []byte("{not json")))
	assert.Equal(t, EventError, watch.read().Type)
}

func TestDisconnectLeavesRoom(t *testing.T) {
	srv := newTestServer(t)
	phone := srv.dial(t, "token-one")
	require.True(t, srv.hub.IsUserConnected(1))

	require.NoError(t, phone.conn.Close())
	require.Eventually(t, func() bool { return !srv.hub.IsUserConnected(1) }, 3*time.Second, 10*time.Millisecond)
}

func TestConnStateNames(t *testing.T) {
	for state, name := range map[ConnState]string{
		StateConnecting:     "CONNECTING",
		StateAuthenticating: "AUTHENTICATING",
		StateJoined:         "JOINED",
		StateActive:         "ACTIVE",
		StateIdle:           "IDLE",
		StateDisconnected:   "DISCONNECTED",
	} {
		assert.Equal(t, name, state.String(), fmt.Sprint(int(state)))
	}
}
