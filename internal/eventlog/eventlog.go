// Package eventlog is the append-only audit sink.
package eventlog

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/request-service/internal/domain"
)

// Log appends audit entries. Implementations never modify past entries.
type Log interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
}

// RedisStream appends entries to a Redis stream with XADD.
type RedisStream struct {
	client redis.Cmdable
	stream string
	maxLen int64
}

// NewRedisStream builds a stream-backed log. maxLen <= 0 keeps the stream unbounded.
func NewRedisStream(client redis.Cmdable, stream string, maxLen int64) *RedisStream {
	return &RedisStream{client: client, stream: stream, maxLen: maxLen}
}

// Append writes entry as one stream record.
func (s *RedisStream) Append(ctx context.Context, entry domain.AuditEntry) error {
	return s.client.XAdd(ctx, streamArgs(s.stream, s.maxLen, entry)).Err()
}

func streamArgs(stream string, maxLen int64, entry domain.AuditEntry) *redis.XAddArgs {
	fields := entry.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	encoded, err := json.Marshal(fields)
	if err != nil {
		encoded = []byte("{}")
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: []interface{}{
			"id", entry.ID,
			"kind", entry.Kind,
			"actor_id", optionalID(entry.ActorID),
			"request_id", optionalID(entry.RequestID),
			"message", entry.Message,
			"fields", string(encoded),
			"created_at", entry.CreatedAt.UTC().Format(time.RFC3339Nano),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return args
}

func optionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}

// ZapLog writes entries as structured log lines.
type ZapLog struct {
	logger *zap.Logger
}

// NewZapLog builds a log backed by logger.
func NewZapLog(logger *zap.Logger) *ZapLog {
	return &ZapLog{logger: logger}
}

// Append logs entry at info level.
func (l *ZapLog) Append(_ context.Context, entry domain.AuditEntry) error {
	fields := []zap.Field{
		zap.String("audit_id", entry.ID),
		zap.String("kind", entry.Kind),
		zap.Time("at", entry.CreatedAt),
	}
	if entry.ActorID != nil {
		fields = append(fields, zap.Int64("actor_id", *entry.ActorID))
	}
	if entry.RequestID != nil {
		fields = append(fields, zap.Int64("request_id", *entry.RequestID))
	}
	if len(entry.Fields) > 0 {
		fields = append(fields, zap.Any("fields", entry.Fields))
	}
	l.logger.Info(entry.Message, fields...)
	return nil
}

// Multi fans an entry out to every log. All logs are attempted; failures are joined.
type Multi []Log

// Append writes entry to each log.
func (m Multi) Append(ctx context.Context, entry domain.AuditEntry) error {
	var errs []error
	for _, l := range m {
		if l == nil {
			continue
		}
		if err := l.Append(ctx, entry); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
