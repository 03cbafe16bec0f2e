package audit

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"taskgate/internal/pkg/logger"
	"taskgate/internal/pkg/safego"
	"taskgate/internal/platform/models"
)

type UsageStore interface {
	Insert(ctx context.Context, u *models.APIKeyUsage) error
}

// Entry describes one request made with an API key.
type Entry struct {
	APIKeyID   string
	Endpoint   string
	Method     string
	StatusCode int
	IPAddress  string
	UserAgent  string
	Elapsed    time.Duration
}

// Logger records API key usage off the request path. Write failures are
// logged and dropped.
type Logger struct {
	store UsageStore
	wg    sync.WaitGroup
	log   zerolog.Logger
}

func NewLogger(store UsageStore) *Logger {
	return &Logger{store: store, log: logger.Component("audit")}
}

func (l *Logger) Log(e Entry) {
	usage := &models.APIKeyUsage{
		APIKeyID:       e.APIKeyID,
		Endpoint:       e.Endpoint,
		Method:         e.Method,
		StatusCode:     e.StatusCode,
		IPAddress:      e.IPAddress,
		UserAgent:      e.UserAgent,
		ResponseTimeMs: e.Elapsed.Milliseconds(),
		CreatedAt:      time.Now().Unix(),
	}

	l.wg.Add(1)
	safego.Go("audit:usage", func() {
		defer l.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := l.store.Insert(ctx, usage); err != nil {
			l.log.Warn().Err(err).Str("api_key_id", usage.APIKeyID).Msg("failed to record api key usage")
		}
	})
}

// Wait blocks until pending writes have finished.
func (l *Logger) Wait() {
	l.wg.Wait()
}
