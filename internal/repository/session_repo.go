package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bppowerplay/portal/internal/model"
	"github.com/redis/go-redis/v9"
)

// The local persistence surface is exactly three string keys: the serialized
// session record, the device id, and the account email. Only the session
// guard writes them.
const (
	sessionKey = "bppowerplay:session"
	deviceKey  = "bppowerplay:device"
	userKey    = "bppowerplay:user"
)

// SessionRepository persists the guard's local session state in Redis.
type SessionRepository struct {
	rdb *redis.Client
}

func NewSessionRepository(rdb *redis.Client) *SessionRepository {
	return &SessionRepository{rdb: rdb}
}

// SaveSession overwrites the persisted session record wholesale.
func (r *SessionRepository) SaveSession(ctx context.Context, rec *model.SessionRecord) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	return r.rdb.Set(ctx, sessionKey, data, 0).Err()
}

// GetSession returns the persisted session record, or nil if none exists.
func (r *SessionRepository) GetSession(ctx context.Context) (*model.SessionRecord, error) {
	data, err := r.rdb.Get(ctx, sessionKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec model.SessionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}
	return &rec, nil
}

// SaveDeviceID persists the locally derived device identifier.
func (r *SessionRepository) SaveDeviceID(ctx context.Context, deviceID string) error {
	return r.rdb.Set(ctx, deviceKey, deviceID, 0).Err()
}

// GetDeviceID returns the persisted device identifier, or "" if none exists.
func (r *SessionRepository) GetDeviceID(ctx context.Context) (string, error) {
	id, err := r.rdb.Get(ctx, deviceKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return id, err
}

// SaveEmail persists the signed-in account email.
func (r *SessionRepository) SaveEmail(ctx context.Context, email string) error {
	return r.rdb.Set(ctx, userKey, email, 0).Err()
}

// GetEmail returns the persisted account email, or "" if none exists.
func (r *SessionRepository) GetEmail(ctx context.Context) (string, error) {
	email, err := r.rdb.Get(ctx, userKey).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return email, err
}

// Clear drops all three keys. Called on logout, expiry, and supersede.
func (r *SessionRepository) Clear(ctx context.Context) error {
	return r.rdb.Del(ctx, sessionKey, deviceKey, userKey).Err()
}
