package services

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"roommate-server/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTypeForIdentifier(t *testing.T) {
	messageType, ok := MessageTypeForIdentifier("+79991234567")
	require.True(t, ok)
	assert.Equal(t, MessageTypeSMS, messageType)

	messageType, ok = MessageTypeForIdentifier("user@example.com")
	require.True(t, ok)
	assert.Equal(t, MessageTypeEmail, messageType)

	_, ok = MessageTypeForIdentifier("garbage")
	assert.False(t, ok)
}

func TestDispatcherDebugMode(t *testing.T) {
	cfg := testConfig()
	dispatcher := NewMessageDispatcher(cfg)

	result, err := dispatcher.Send(context.Background(), Message{
		Content:    "Your authorization code: 123456",
		Recipients: []string{"+79991234567"},
	})
	require.NoError(t, err)
	assert.Equal(t, SendStatusDelivered, result.Status)
}

func TestDispatcherUnknownRecipientShape(t *testing.T) {
	dispatcher := NewMessageDispatcher(testConfig())

	result, err := dispatcher.Send(context.Background(), Message{
		Content:    "hello",
		Recipients: []string{"garbage"},
	})
	require.NoError(t, err)
	assert.Equal(t, SendStatusOther, result.Status)
}

func TestDispatcherMixedRecipients(t *testing.T) {
	dispatcher := NewMessageDispatcher(testConfig())

	result, err := dispatcher.Send(context.Background(), Message{
		Content:    "hello",
		Recipients: []string{"+79991234567", "user@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, SendStatusOther, result.Status)
}

func TestDispatcherNoRecipients(t *testing.T) {
	dispatcher := NewMessageDispatcher(testConfig())

	result, err := dispatcher.Send(context.Background(), Message{Content: "hello"})
	require.NoError(t, err)
	assert.Equal(t, SendStatusOther, result.Status)
}

func newMessaggioSender(url string, cfg config.Config) *MessaggioSender {
	return &MessaggioSender{
		apiURL:     url,
		login:      "test-login",
		senderCode: "TEST",
		client:     http.DefaultClient,
		cfg:        cfg,
	}
}

func TestMessaggioSenderSuccess(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "test-login", r.Header.Get("Messaggio-Login"))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := newMessaggioSender(server.URL, testConfig())
	result, err := sender.Send(context.Background(), Message{
		Content:    "Your authorization code: 123456",
		Recipients: []string{"+79991234567"},
	})
	require.NoError(t, err)
	assert.Equal(t, SendStatusPending, result.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestMessaggioSenderRetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := newMessaggioSender(server.URL, testConfig())
	result, err := sender.Send(context.Background(), Message{
		Content:    "retry me",
		Recipients: []string{"+79991234567"},
	})
	require.NoError(t, err)
	assert.Equal(t, SendStatusPending, result.Status)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestMessaggioSenderGivesUp(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig()
	cfg.MessageSendRetries = 5
	cfg.MessageRetryDelay = time.Millisecond

	sender := newMessaggioSender(server.URL, cfg)
	result, err := sender.Send(context.Background(), Message{
		Content:    "doomed",
		Recipients: []string{"+79991234567"},
	})
	require.Error(t, err)
	assert.Equal(t, SendStatusFailed, result.Status)
	assert.Equal(t, int32(5), atomic.LoadInt32(&calls))
}

func TestMessaggioSenderClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	sender := newMessaggioSender(server.URL, testConfig())
	result, err := sender.Send(context.Background(), Message{
		Content:    "bad payload",
		Recipients: []string{"+79991234567"},
	})
	require.NoError(t, err)
	assert.Equal(t, SendStatusPending, result.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}
