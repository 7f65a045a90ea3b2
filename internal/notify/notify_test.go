package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestKafkaNotifier_SendVerificationCode(t *testing.T) {
	w := &fakeWriter{}
	n := &KafkaNotifier{writer: w}
	expires := time.Date(2025, 1, 1, 12, 10, 0, 0, time.UTC)

	err := n.SendVerificationCode(context.Background(), "bob@example.com", "123456", expires)
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("bob@example.com"), w.msgs[0].Key)

	var msg VerificationMessage
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &msg))
	assert.Equal(t, TypeEmailVerification, msg.Type)
	assert.Equal(t, "123456", msg.Code)
	assert.True(t, msg.ExpiresAt.Equal(expires))
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := &KafkaNotifier{writer: &fakeWriter{err: errors.New("broker down")}}

	err := n.SendVerificationCode(context.Background(), "bob@example.com", "123456", time.Now())
	assert.ErrorContains(t, err, "broker down")
}

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestNew_FallsBackToLog(t *testing.T) {
	log := slog.New(slog.NewTextHandler(os.Stdout, nil))

	n := New(log, nil, "notifications")
	_, ok := n.(*LogNotifier)
	assert.True(t, ok)
	assert.NoError(t, n.SendVerificationCode(context.Background(), "bob@example.com", "1", time.Now()))

	_, ok = New(log, []string{"localhost:9092"}, "notifications").(*KafkaNotifier)
	assert.True(t, ok)
}
