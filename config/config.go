package config

import (
	"os"
	"strconv"
	"time"
)

// Config carries the tunable limits and windows of the platform. It is
// resolved once at startup and injected into services, never read from the
// environment mid-operation.
type Config struct {
	ActiveCardLimit      int           // max simultaneously active cards per owner
	RejectedRequestLimit int           // max rejected requests per (user, card)
	AuthCodeLength       int           // digits in an authorization code
	AuthCodeExpiresIn    time.Duration // authorization code lifetime
	AuthCodeCountdown    time.Duration // minimum delay between code sends
	MessageSendRetries   int           // attempts for outbound message delivery
	MessageRetryDelay    time.Duration // fixed backoff between attempts
	SchedulerInterval    time.Duration // clocked task poll interval
	AppDebug             bool
}

func Load() Config {
	return Config{
		ActiveCardLimit:      envInt("ACTIVE_CARD_LIMIT", 3),
		RejectedRequestLimit: envInt("REJECTED_REQUEST_LIMIT", 3),
		AuthCodeLength:       envInt("AUTH_CODE_LENGTH", 6),
		AuthCodeExpiresIn:    envMinutes("AUTH_CODE_EXPIRES_IN_MINUTES", 5),
		AuthCodeCountdown:    envMinutes("AUTH_CODE_COUNTDOWN_MINUTES", 1),
		MessageSendRetries:   envInt("MESSAGE_SEND_RETRIES", 5),
		MessageRetryDelay:    time.Duration(envInt("MESSAGE_RETRY_DELAY_SECONDS", 2)) * time.Second,
		SchedulerInterval:    time.Duration(envInt("SCHEDULER_INTERVAL_SECONDS", 30)) * time.Second,
		AppDebug:             os.Getenv("APP_DEBUG") == "1",
	}
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envMinutes(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Minute
}
