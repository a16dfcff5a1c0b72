package kafka

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageBuilder_Defaults(t *testing.T) {
	msg, err := NewMessage().WithKey("A-1").WithValue(map[string]string{"seat_id": "A-1"}).Build()

	require.NoError(t, err)
	assert.NotEmpty(t, msg.GetEventID())
	assert.NotEmpty(t, msg.Headers[HeaderTimestamp])
	assert.JSONEq(t, `{"seat_id":"A-1"}`, string(msg.Value))
}

func TestMessageBuilder_EncodeFailure(t *testing.T) {
	_, err := NewMessage().WithKey("A-1").WithValue(make(chan int)).Build()

	assert.ErrorIs(t, err, ErrInvalidMessage)
}

func TestMessageBuilder_EmptyCorrelationOmitted(t *testing.T) {
	msg, err := NewMessage().WithKey("A-1").WithValue(1).WithCorrelationID("").Build()

	require.NoError(t, err)
	_, ok := msg.Headers[HeaderCorrelationID]
	assert.False(t, ok)
}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("write: %w", context.DeadlineExceeded), true},
		{"refused", errors.New("dial tcp 127.0.0.1:9092: connection refused"), true},
		{"leader", errors.New("[5] Leader Not Available"), true},
		{"empty key", ErrEmptyKey, false},
		{"unknown topic", errors.New("unknown topic or partition"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}
