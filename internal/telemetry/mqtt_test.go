package telemetry

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/CristiGvl/picoFanCtl/internal/daemon"
	"github.com/CristiGvl/picoFanCtl/internal/thermal"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type doneToken struct {
	err error
}

func (t *doneToken) Wait() bool                     { return true }
func (t *doneToken) WaitTimeout(time.Duration) bool { return true }
func (t *doneToken) Error() error                   { return t.err }

func (t *doneToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// mockClient overrides Publish; other methods panic if called.
type mockClient struct {
	mqtt.Client
	mock.Mock
}

func (m *mockClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	args := m.Called(topic, qos, retained, payload)
	return args.Get(0).(mqtt.Token)
}

func TestMQTTPublisher_Report(t *testing.T) {
	client := &mockClient{}
	client.On("Publish", "lab/fan", byte(0), false, mock.Anything).Return(&doneToken{})
	p := newMQTTPublisher(client, "lab/fan")

	snap := daemon.Snapshot{Device: "gpu0", State: thermal.State{Temperature: 64}}
	require.NoError(t, p.Report(context.Background(), snap))

	client.AssertNumberOfCalls(t, "Publish", 1)
	payload := client.Calls[0].Arguments.Get(3).([]byte)
	var got map[string]any
	require.NoError(t, json.Unmarshal(payload, &got))
	require.Equal(t, "gpu0", got["device"])
	require.Equal(t, 64.0, got["state"].(map[string]any)["temperature_celsius"])
}

func TestMQTTPublisher_ReportError(t *testing.T) {
	client := &mockClient{}
	client.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(&doneToken{err: errors.New("not connected")})
	p := newMQTTPublisher(client, "lab/fan")

	err := p.Report(context.Background(), daemon.Snapshot{})
	require.ErrorContains(t, err, "not connected")
}
