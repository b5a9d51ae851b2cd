package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/angelmondragon/rentalkit-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/rentalkit-backend/pkg/errors"
	"github.com/angelmondragon/rentalkit-backend/pkg/redis"
)

type guestKV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	GuestCartKey(sessionID string) string
}

// GuestStore keeps guest carts in redis as JSON, expiring ttl after the last
// write.
type GuestStore struct {
	kv  guestKV
	ttl time.Duration
	now func() time.Time
}

// NewGuestStore builds a redis-backed guest cart store.
func NewGuestStore(kv guestKV, ttl time.Duration) (*GuestStore, error) {
	if kv == nil {
		return nil, fmt.Errorf("guest cart kv store required")
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("guest cart ttl must be positive")
	}
	return &GuestStore{kv: kv, ttl: ttl, now: time.Now}, nil
}

func (s *GuestStore) Load(ctx context.Context, owner Owner) (*Record, error) {
	if err := s.check(owner); err != nil {
		return nil, err
	}
	raw, err := s.kv.Get(ctx, s.kv.GuestCartKey(owner.ID))
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load guest cart")
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode guest cart")
	}
	rec.Owner = owner
	return &rec, nil
}

func (s *GuestStore) Save(ctx context.Context, rec Record) error {
	if err := s.check(rec.Owner); err != nil {
		return err
	}
	rec.UpdatedAt = s.now().UTC()
	payload, err := json.Marshal(rec)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode guest cart")
	}
	if err := s.kv.Set(ctx, s.kv.GuestCartKey(rec.Owner.ID), payload, s.ttl); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "save guest cart")
	}
	return nil
}

func (s *GuestStore) Delete(ctx context.Context, owner Owner) error {
	if err := s.check(owner); err != nil {
		return err
	}
	if err := s.kv.Del(ctx, s.kv.GuestCartKey(owner.ID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "delete guest cart")
	}
	return nil
}

func (s *GuestStore) check(owner Owner) error {
	if owner.Kind != enums.OwnerKindGuest {
		return pkgerrors.New(pkgerrors.CodeValidation, "guest store only holds guest carts")
	}
	return owner.Validate()
}
