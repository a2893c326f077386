// ABOUTME: Redis-backed steps store layered over another Repository.
// ABOUTME: Step documents live in one hash per user; other feeds pass through.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/harperreed/chronicare/internal/models"
	"github.com/redis/go-redis/v9"
)

// NewRedisClient connects to addr and verifies the connection with a ping.
func NewRedisClient(ctx context.Context, addr, password string, dbIndex int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           dbIndex,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	})

	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", addr, err)
	}
	return rdb, nil
}

// RedisStepRepository serves steps from Redis and everything else from next.
type RedisStepRepository struct {
	Repository
	rdb *redis.Client
	now func() time.Time
}

var _ Repository = (*RedisStepRepository)(nil)

// WithRedisSteps wraps next so that step documents are kept in Redis.
func WithRedisSteps(next Repository, rdb *redis.Client) *RedisStepRepository {
	return &RedisStepRepository{Repository: next, rdb: rdb, now: time.Now}
}

func stepsKey(userID string) string {
	return fmt.Sprintf("chronicare:steps:%s", userID)
}

type redisStepDoc struct {
	Steps       any   `json:"steps"`
	LastUpdated int64 `json:"lastUpdated"`
}

// UploadSteps overwrites the hash field for the sample's date.
func (r *RedisStepRepository) UploadSteps(ctx context.Context, userID string, s models.StepSample) error {
	if s.Date.IsZero() {
		return fmt.Errorf("upload steps: missing date")
	}
	return r.putStepRecord(ctx, userID, models.StepRecord{
		Key:         s.Date.String(),
		Steps:       s.StepsToday,
		LastUpdated: r.now().UnixMilli(),
	})
}

func (r *RedisStepRepository) putStepRecord(ctx context.Context, userID string, rec models.StepRecord) error {
	doc, err := json.Marshal(redisStepDoc{Steps: rec.Steps, LastUpdated: rec.LastUpdated})
	if err != nil {
		return fmt.Errorf("marshal steps: %w", err)
	}
	if err := r.rdb.HSet(ctx, stepsKey(userID), rec.Key, doc).Err(); err != nil {
		return fmt.Errorf("save steps for %s: %w", rec.Key, err)
	}
	return nil
}

// ListDailySteps returns every field of the user's hash. Fields that are
// not JSON documents are surfaced with the raw value as the step count.
func (r *RedisStepRepository) ListDailySteps(ctx context.Context, userID string) ([]models.StepRecord, error) {
	fields, err := r.rdb.HGetAll(ctx, stepsKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list daily steps: %w", err)
	}
	recs := make([]models.StepRecord, 0, len(fields))
	for date, raw := range fields {
		rec := models.StepRecord{Key: date, Steps: raw}
		var doc redisStepDoc
		if err := json.Unmarshal([]byte(raw), &doc); err == nil {
			rec.Steps = doc.Steps
			rec.LastUpdated = doc.LastUpdated
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

// GetAllData reads steps from Redis and the other feeds from the wrapped store.
func (r *RedisStepRepository) GetAllData(ctx context.Context, userID string) (*ExportData, error) {
	return Collect(ctx, r, userID)
}

// ImportData writes steps to Redis and the rest to the wrapped store.
func (r *RedisStepRepository) ImportData(ctx context.Context, userID string, data *ExportData) error {
	for _, rec := range data.Steps {
		if err := r.putStepRecord(ctx, userID, rec); err != nil {
			return fmt.Errorf("import steps: %w", err)
		}
	}
	rest := *data
	rest.Steps = nil
	return r.Repository.ImportData(ctx, userID, &rest)
}

// Close closes the Redis client and the wrapped store.
func (r *RedisStepRepository) Close() error {
	rerr := r.rdb.Close()
	if err := r.Repository.Close(); err != nil {
		return err
	}
	return rerr
}
