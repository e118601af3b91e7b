package feedback

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"subalign/internal/config"
	"subalign/internal/logging"
)

// Entry is a reviewer judgement on one aligned pair.
type Entry struct {
	ID         string    `json:"id"`
	SourceText string    `json:"source_text"`
	TargetText string    `json:"target_text"`
	WasCorrect bool      `json:"was_correct"`
	RequestID  string    `json:"request_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Sink persists feedback entries. Implementations must be safe for
// concurrent use.
type Sink interface {
	Record(ctx context.Context, entry Entry) error
	Close() error
}

// Lister is implemented by sinks that can read entries back.
type Lister interface {
	List(ctx context.Context, limit int) ([]Entry, error)
}

// ErrInvalidEntry marks entries missing both texts.
var ErrInvalidEntry = errors.New("invalid feedback entry")

// Prepare fills ID and CreatedAt and checks that the entry carries text.
func Prepare(entry Entry) (Entry, error) {
	entry.SourceText = strings.TrimSpace(entry.SourceText)
	entry.TargetText = strings.TrimSpace(entry.TargetText)
	if entry.SourceText == "" && entry.TargetText == "" {
		return entry, fmt.Errorf("%w: source_text and target_text are both empty", ErrInvalidEntry)
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	return entry, nil
}

// New opens the sink selected by the [feedback] section.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Sink, error) {
	logger = logging.NewComponentLogger(logger, "feedback")
	switch cfg.Feedback.Backend {
	case "sqlite", "":
		store, err := OpenSQLite(ctx, cfg.Feedback.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("feedback store opened", logging.String("backend", "sqlite"), logging.String("path", store.Path()))
		return store, nil
	case "cassandra":
		store, err := OpenCassandra(ctx, CassandraOptions{
			Hosts:    cfg.Feedback.CassandraHosts,
			Keyspace: cfg.Feedback.CassandraKeyspace,
		})
		if err != nil {
			return nil, err
		}
		logger.Info("feedback store opened",
			logging.String("backend", "cassandra"),
			logging.String("keyspace", cfg.Feedback.CassandraKeyspace),
		)
		return store, nil
	case "none":
		return NewLogSink(logger), nil
	default:
		return nil, fmt.Errorf("unsupported feedback backend %q", cfg.Feedback.Backend)
	}
}

// LogSink records entries to the log only.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink returns a sink that discards entries after logging them at debug.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) Record(_ context.Context, entry Entry) error {
	s.logger.Debug("feedback received",
		logging.String("feedback_id", entry.ID),
		logging.Bool("was_correct", entry.WasCorrect),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
