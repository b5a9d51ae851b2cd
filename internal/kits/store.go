package kits

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/redis"
)

// SelectionStore persists in-progress configurations per browsing session and
// main product so that navigating away and back resumes them.
type SelectionStore interface {
	Load(ctx context.Context, sessionID, productID string) (*Snapshot, error)
	Save(ctx context.Context, sessionID string, snap Snapshot) error
	Delete(ctx context.Context, sessionID, productID string) error
}

type selectionKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	KitSelectionKey(sessionID, productID string) string
}

// RedisSelectionStore keeps snapshots as JSON with a sliding TTL.
type RedisSelectionStore struct {
	kv  selectionKV
	ttl time.Duration
}

// NewRedisSelectionStore builds a store whose entries live for ttl after the last save.
func NewRedisSelectionStore(kv selectionKV, ttl time.Duration) (*RedisSelectionStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("selection kv store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("selection ttl must be positive")
	}
	return &RedisSelectionStore{kv: kv, ttl: ttl}, nil
}

// Load returns nil, nil when no snapshot exists.
func (s *RedisSelectionStore) Load(ctx context.Context, sessionID, productID string) (*Snapshot, error) {
	key, err := s.key(sessionID, productID)
	if err != nil {
		return nil, err
	}
	raw, err := s.kv.Get(ctx, key)
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load kit selection")
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// an unreadable snapshot is treated as absent; defaults take over
		return nil, nil
	}
	return &snap, nil
}

func (s *RedisSelectionStore) Save(ctx context.Context, sessionID string, snap Snapshot) error {
	key, err := s.key(sessionID, snap.MainProductID)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(snap)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode kit selection")
	}
	if err := s.kv.Set(ctx, key, payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save kit selection")
	}
	return nil
}

func (s *RedisSelectionStore) Delete(ctx context.Context, sessionID, productID string) error {
	key, err := s.key(sessionID, productID)
	if err != nil {
		return err
	}
	if err := s.kv.Del(ctx, key); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete kit selection")
	}
	return nil
}

func (s *RedisSelectionStore) key(sessionID, productID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	productID = strings.TrimSpace(productID)
	if sessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if productID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.kv.KitSelectionKey(sessionID, productID), nil
}
