package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"roommate-server/config"

	"github.com/avast/retry-go"
)

// MessageType is the closed set of delivery channels.
type MessageType string

const (
	MessageTypeSMS   MessageType = "sms"
	MessageTypeEmail MessageType = "email"
	MessageTypeCall  MessageType = "call"
)

type SendStatus string

const (
	SendStatusPending   SendStatus = "pending"
	SendStatusDelivered SendStatus = "delivered"
	SendStatusFailed    SendStatus = "failed"
	SendStatusOther     SendStatus = "other"
)

// Message is an abstract outbound message.
type Message struct {
	Content    string
	Recipients []string
}

// SendResult is the outcome of a delivery attempt.
type SendResult struct {
	Status SendStatus
	Detail string
}

// Sender is the capability interface of one delivery channel.
type Sender interface {
	Send(ctx context.Context, message Message) (SendResult, error)
}

// MessageTypeForIdentifier is the pure mapping from identifier shape to
// channel variant.
func MessageTypeForIdentifier(value string) (MessageType, bool) {
	switch DetectIdentifierType(value) {
	case IdentifierTypePhoneNumber:
		return MessageTypeSMS, true
	case IdentifierTypeEmail:
		return MessageTypeEmail, true
	default:
		return "", false
	}
}

// MessageDispatcher selects a sender by recipient identifier shape via a
// lookup table from variant to capability.
type MessageDispatcher struct {
	senders map[MessageType]Sender
}

func NewMessageDispatcher(cfg config.Config) *MessageDispatcher {
	if cfg.AppDebug {
		debug := &DebugSender{}
		return &MessageDispatcher{senders: map[MessageType]Sender{
			MessageTypeSMS:   debug,
			MessageTypeEmail: debug,
			MessageTypeCall:  debug,
		}}
	}
	return &MessageDispatcher{senders: map[MessageType]Sender{
		MessageTypeSMS:   NewMessaggioSender(cfg),
		MessageTypeEmail: &EmailSender{},
		MessageTypeCall:  &CallSender{},
	}}
}

// Send dispatches the message through the channel matching the recipients'
// identifier shape. All recipients must share one shape.
func (d *MessageDispatcher) Send(ctx context.Context, message Message) (SendResult, error) {
	if len(message.Recipients) == 0 {
		return SendResult{Status: SendStatusOther, Detail: "no recipients"}, nil
	}

	messageType, ok := MessageTypeForIdentifier(message.Recipients[0])
	if !ok {
		return SendResult{Status: SendStatusOther, Detail: "message sender could not be determined"}, nil
	}
	for _, r := range message.Recipients[1:] {
		t, ok := MessageTypeForIdentifier(r)
		if !ok || t != messageType {
			return SendResult{Status: SendStatusOther, Detail: "mixed recipient identifier types"}, nil
		}
	}

	sender, ok := d.senders[messageType]
	if !ok {
		return SendResult{Status: SendStatusOther, Detail: "message sender could not be determined"}, nil
	}
	return sender.Send(ctx, message)
}

// MessaggioSender delivers SMS through the Messaggio HTTP API. Transient
// provider failures are retried a fixed number of times with fixed backoff.
type MessaggioSender struct {
	apiURL     string
	login      string
	senderCode string
	client     *http.Client
	cfg        config.Config
}

func NewMessaggioSender(cfg config.Config) *MessaggioSender {
	return &MessaggioSender{
		apiURL:     os.Getenv("MESSAGGIO_API_URL"),
		login:      os.Getenv("MESSAGGIO_LOGIN"),
		senderCode: os.Getenv("MESSAGGIO_SENDER_CODE"),
		client:     http.DefaultClient,
		cfg:        cfg,
	}
}

func (m *MessaggioSender) Send(ctx context.Context, message Message) (SendResult, error) {
	recipients := make([]map[string]string, 0, len(message.Recipients))
	for _, r := range message.Recipients {
		recipients = append(recipients, map[string]string{"phone": r})
	}

	body := map[string]interface{}{
		"recipients": recipients,
		"channels":   []string{"sms"},
		"options":    map[string]interface{}{"ttl": 60},
		"sms": map[string]interface{}{
			"from": m.senderCode,
			"content": []map[string]string{
				{"type": "text", "text": message.Content},
			},
		},
	}
	raw, err := json.Marshal(body)
	if err != nil {
		return SendResult{Status: SendStatusFailed}, err
	}

	err = retry.Do(
		func() error {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(raw))
			if err != nil {
				return retry.Unrecoverable(err)
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Messaggio-Login", m.login)

			res, err := m.client.Do(req)
			if err != nil {
				return err
			}
			defer res.Body.Close()
			if res.StatusCode >= http.StatusInternalServerError {
				return fmt.Errorf("messaggio responded with status %d", res.StatusCode)
			}
			return nil
		},
		retry.Attempts(uint(m.cfg.MessageSendRetries)),
		retry.Delay(m.cfg.MessageRetryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return SendResult{Status: SendStatusFailed, Detail: err.Error()}, err
	}
	return SendResult{Status: SendStatusPending}, nil
}

// EmailSender is the email channel contract. Delivery goes through an
// external provider configured elsewhere; the outcome is reported as pending.
type EmailSender struct{}

func (e *EmailSender) Send(ctx context.Context, message Message) (SendResult, error) {
	return SendResult{Status: SendStatusPending}, nil
}

// CallSender is the voice-call channel contract.
type CallSender struct{}

func (c *CallSender) Send(ctx context.Context, message Message) (SendResult, error) {
	return SendResult{Status: SendStatusPending}, nil
}

// DebugSender logs instead of delivering; used when APP_DEBUG=1.
type DebugSender struct{}

func (d *DebugSender) Send(ctx context.Context, message Message) (SendResult, error) {
	log.Printf("debug message to %v: %s", message.Recipients, message.Content)
	return SendResult{Status: SendStatusDelivered}, nil
}
