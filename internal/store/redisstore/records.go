package redisstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cuongbtq/scout-jobs/internal/jobs"
	goredis "github.com/redis/go-redis/v9"
)

const (
	fieldID         = "id"
	fieldKind       = "kind"
	fieldStatus     = "status"
	fieldResult     = "result"
	fieldError      = "error"
	fieldTotal      = "total"
	fieldProcessed  = "processed"
	fieldSuccessful = "successful"
	fieldFailed     = "failed"
	fieldSkipped    = "skipped"
	fieldNotFound   = "not_found"
	fieldLastResult = "last_result"
	fieldLastError  = "last_error"
	fieldCreatedAt  = "created_at"
	fieldStartedAt  = "started_at"
	fieldEndedAt    = "ended_at"
	itemFieldPrefix = "item:"
)

// Each script touches exactly one record hash so the whole mutation is atomic.
var (
	createScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return 0 end
redis.call('HSET', KEYS[1], unpack(ARGV, 2))
redis.call('PEXPIRE', KEYS[1], ARGV[1])
return 1
`)

	transitionScript = goredis.NewScript(`
local current = redis.call('HGET', KEYS[1], 'status')
if not current then return {-1, ''} end
if current ~= ARGV[1] then return {0, current} end
redis.call('HSET', KEYS[1], 'status', ARGV[2], ARGV[3], ARGV[4])
if ARGV[5] ~= '' then redis.call('HSET', KEYS[1], ARGV[5], ARGV[6]) end
return {1, ARGV[2]}
`)

	recordItemScript = goredis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then return {-1, 0} end
if redis.call('HEXISTS', KEYS[1], ARGV[1]) == 1 then
  return {0, tonumber(redis.call('HGET', KEYS[1], 'processed'))}
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2])
redis.call('HINCRBY', KEYS[1], ARGV[3], 1)
if ARGV[4] ~= '' then redis.call('HSET', KEYS[1], 'last_result', ARGV[4]) end
if ARGV[5] ~= '' then redis.call('HSET', KEYS[1], 'last_error', ARGV[5]) end
return {1, redis.call('HINCRBY', KEYS[1], 'processed', 1)}
`)
)

// Records stores each job as a Redis hash under job:<id>
type Records struct {
	rdb *goredis.Client
}

// NewRecords creates a record store on rdb
func NewRecords(rdb *goredis.Client) *Records {
	return &Records{rdb: rdb}
}

var _ jobs.RecordStore = (*Records)(nil)

func (s *Records) Create(ctx context.Context, job *jobs.Job, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = jobs.DefaultRecordTTL
	}

	args := []any{
		ttl.Milliseconds(),
		fieldID, job.ID,
		fieldKind, string(job.Kind),
		fieldStatus, string(jobs.StatusPending),
		fieldTotal, job.Total,
		fieldProcessed, 0,
		fieldSuccessful, 0,
		fieldFailed, 0,
		fieldSkipped, 0,
		fieldNotFound, 0,
		fieldCreatedAt, formatTime(job.CreatedAt),
	}

	created, err := createScript.Run(ctx, s.rdb, []string{jobs.RecordKey(job.ID)}, args...).Int()
	if err != nil {
		return fmt.Errorf("%w: create job %s: %v", jobs.ErrStoreUnavailable, job.ID, err)
	}
	if created == 0 {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	return nil
}

func (s *Records) Get(ctx context.Context, jobID string) (*jobs.Job, error) {
	fields, err := s.rdb.HGetAll(ctx, jobs.RecordKey(jobID)).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: get job %s: %v", jobs.ErrStoreUnavailable, jobID, err)
	}
	if len(fields) == 0 {
		return nil, jobs.ErrJobNotFound
	}
	return decodeJob(fields)
}

func (s *Records) Transition(ctx context.Context, jobID string, t jobs.Transition) error {
	from, ok := predecessor(t.To)
	if !ok {
		return fmt.Errorf("%w: nothing transitions to %s", jobs.ErrInvalidTransition, t.To)
	}

	tsField := fieldEndedAt
	payloadField, payload := "", ""
	switch t.To {
	case jobs.StatusRunning:
		tsField = fieldStartedAt
	case jobs.StatusCompleted:
		payloadField, payload = fieldResult, t.Result
	case jobs.StatusFailed:
		payloadField, payload = fieldError, t.Error
	}

	res, err := transitionScript.Run(ctx, s.rdb, []string{jobs.RecordKey(jobID)},
		string(from), string(t.To), tsField, formatTime(t.At), payloadField, payload,
	).Slice()
	if err != nil {
		return fmt.Errorf("%w: transition job %s: %v", jobs.ErrStoreUnavailable, jobID, err)
	}
	if len(res) != 2 {
		return fmt.Errorf("%w: transition job %s: unexpected reply %v", jobs.ErrStoreUnavailable, jobID, res)
	}

	code, _ := res[0].(int64)
	current, _ := res[1].(string)
	switch code {
	case 1:
		return nil
	case -1:
		return jobs.ErrJobNotFound
	default:
		return fmt.Errorf("%w: %s -> %s", jobs.ErrInvalidTransition, current, t.To)
	}
}

func (s *Records) RecordItem(ctx context.Context, jobID string, res jobs.ItemResult) (int64, error) {
	errMsg := ""
	if res.Err != nil {
		errMsg = res.Err.Error()
	}

	reply, err := recordItemScript.Run(ctx, s.rdb, []string{jobs.RecordKey(jobID)},
		itemFieldPrefix+res.Item.Key(), string(res.Status), counterField(res.Status), res.Result, errMsg,
	).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("%w: record item for job %s: %v", jobs.ErrStoreUnavailable, jobID, err)
	}
	if len(reply) != 2 {
		return 0, fmt.Errorf("%w: record item for job %s: unexpected reply %v", jobs.ErrStoreUnavailable, jobID, reply)
	}

	switch code, processed := reply[0], reply[1]; code {
	case -1:
		return 0, jobs.ErrJobNotFound
	case 0:
		return processed, fmt.Errorf("%w: %s", jobs.ErrItemRecorded, res.Item.Key())
	default:
		return processed, nil
	}
}

func predecessor(to jobs.Status) (jobs.Status, bool) {
	switch to {
	case jobs.StatusRunning:
		return jobs.StatusPending, true
	case jobs.StatusCompleted, jobs.StatusFailed:
		return jobs.StatusRunning, true
	default:
		return "", false
	}
}

func counterField(status jobs.ItemStatus) string {
	switch status {
	case jobs.ItemSuccess:
		return fieldSuccessful
	case jobs.ItemSkipped:
		return fieldSkipped
	case jobs.ItemNotFound:
		return fieldNotFound
	default:
		return fieldFailed
	}
}

func decodeJob(fields map[string]string) (*jobs.Job, error) {
	job := &jobs.Job{
		ID:         fields[fieldID],
		Kind:       jobs.Kind(fields[fieldKind]),
		Status:     jobs.Status(fields[fieldStatus]),
		Result:     fields[fieldResult],
		Error:      fields[fieldError],
		LastResult: fields[fieldLastResult],
		LastError:  fields[fieldLastError],
		Items:      make(map[string]jobs.ItemStatus),
	}

	counters := []struct {
		field string
		dst   *int64
	}{
		{fieldTotal, &job.Total},
		{fieldProcessed, &job.Processed},
		{fieldSuccessful, &job.Successful},
		{fieldFailed, &job.Failed},
		{fieldSkipped, &job.Skipped},
		{fieldNotFound, &job.NotFound},
	}
	for _, c := range counters {
		raw, ok := fields[c.field]
		if !ok {
			continue
		}
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode job %s field %s: %w", job.ID, c.field, err)
		}
		*c.dst = n
	}

	var err error
	if job.CreatedAt, err = parseTime(fields[fieldCreatedAt]); err != nil {
		return nil, fmt.Errorf("decode job %s created_at: %w", job.ID, err)
	}
	if raw, ok := fields[fieldStartedAt]; ok {
		ts, err := parseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("decode job %s started_at: %w", job.ID, err)
		}
		job.StartedAt = &ts
	}
	if raw, ok := fields[fieldEndedAt]; ok {
		ts, err := parseTime(raw)
		if err != nil {
			return nil, fmt.Errorf("decode job %s ended_at: %w", job.ID, err)
		}
		job.EndedAt = &ts
	}

	for field, value := range fields {
		if key, ok := strings.CutPrefix(field, itemFieldPrefix); ok {
			job.Items[key] = jobs.ItemStatus(value)
		}
	}

	return job, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, raw)
}
