package usage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"codehelper/internal/app"
	"codehelper/internal/util"
)

const (
	defaultPrefix    = "codehelper:usage"
	defaultRetention = 30 * 24 * time.Hour
	recordTimeout    = 2 * time.Second
	dayLayout        = "2006-01-02"
)

// incrementScript bumps one kind:outcome counter in the day hash and sets the
// retention TTL the first time the hash is created.
var incrementScript = redis.NewScript(`
local count = redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
if redis.call("PTTL", KEYS[1]) < 0 then
  redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return count
`)

// Counts maps task kind to outcome to number of calls.
type Counts map[string]map[string]int64

// Recorder keeps per-day call counters in Redis.
// Recording is best-effort: Redis failures are logged and never reach callers.
type Recorder struct {
	client    *redis.Client
	prefix    string
	retention time.Duration
	now       func() time.Time
}

// NewRedisRecorder creates a Redis-backed usage recorder.
func NewRedisRecorder(addr, password, prefix string, retention time.Duration) (*Recorder, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, errors.New("usage recorder redis addr is required")
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = defaultPrefix
	}
	if retention <= 0 {
		retention = defaultRetention
	}
	return &Recorder{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix:    prefix,
		retention: retention,
		now:       time.Now,
	}, nil
}

// Record implements app.UsageRecorder.
func (r *Recorder) Record(ctx context.Context, kind app.TaskKind, outcome app.Outcome) {
	if r == nil {
		return
	}
	// Detach from request cancellation so a closed client connection still counts.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), recordTimeout)
	defer cancel()
	field := string(kind) + ":" + string(outcome)
	key := r.dayKey(r.now())
	if err := incrementScript.Run(ctx, r.client, []string{key}, field, r.retention.Milliseconds()).Err(); err != nil {
		util.LoggerFromContext(ctx).Warn("usage record failed", "key", key, "field", field, "err", err)
	}
}

// Counts returns the counters recorded on the given UTC day.
func (r *Recorder) Counts(ctx context.Context, day time.Time) (Counts, error) {
	raw, err := r.client.HGetAll(ctx, r.dayKey(day)).Result()
	if err != nil {
		return nil, fmt.Errorf("read usage: %w", err)
	}
	out := Counts{}
	for field, value := range raw {
		kind, outcome, ok := strings.Cut(field, ":")
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		if out[kind] == nil {
			out[kind] = map[string]int64{}
		}
		out[kind][outcome] = n
	}
	return out, nil
}

// Ping checks Redis connectivity.
func (r *Recorder) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the Redis client.
func (r *Recorder) Close() error {
	return r.client.Close()
}

func (r *Recorder) dayKey(t time.Time) string {
	return fmt.Sprintf("%s:%s", r.prefix, t.UTC().Format(dayLayout))
}

// ParseDay parses a YYYY-MM-DD day; blank means today (UTC).
func ParseDay(raw string, now time.Time) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return now.UTC(), nil
	}
	day, err := time.Parse(dayLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("day must be formatted as %s", dayLayout)
	}
	return day, nil
}
