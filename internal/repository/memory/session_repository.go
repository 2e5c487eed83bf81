package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ai-interview-be/pkg/interview/session"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

var ErrSessionActive = errors.New("a live session is already running for this interview")

const leasePrefix = "interview:live:"

// releaseScript deletes the lease only if this instance still owns it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// SessionRepository tracks the live sessions of this instance. With redis it
// also holds a lease so a second instance cannot run the same interview.
type SessionRepository struct {
	cache    *cache.Cache
	rdb      *redis.Client
	owner    string
	leaseTTL time.Duration

	// claim serializes the check-then-set on the local cache.
	claim sync.Mutex
}

func NewSessionRepository(rdb *redis.Client, leaseTTL time.Duration) *SessionRepository {
	if leaseTTL <= 0 {
		leaseTTL = 2 * time.Hour
	}
	return &SessionRepository{
		// Entries outlive the lease so an abandoned session is still found and closed.
		cache:    cache.New(leaseTTL+time.Hour, 10*time.Minute),
		rdb:      rdb,
		owner:    uuid.NewString(),
		leaseTTL: leaseTTL,
	}
}

// Claim registers s as the live session for its interview.
func (r *SessionRepository) Claim(ctx context.Context, s *session.Session) error {
	r.claim.Lock()
	defer r.claim.Unlock()

	key := s.ID().String()
	if _, found := r.cache.Get(key); found {
		return ErrSessionActive
	}

	if r.rdb != nil {
		ok, err := r.rdb.SetNX(ctx, leasePrefix+key, r.owner, r.leaseTTL).Result()
		if err != nil {
			return fmt.Errorf("acquire session lease: %w", err)
		}
		if !ok {
			return ErrSessionActive
		}
	}

	r.cache.Set(key, s, cache.DefaultExpiration)
	return nil
}

func (r *SessionRepository) Get(id uuid.UUID) (*session.Session, bool) {
	if x, found := r.cache.Get(id.String()); found {
		return x.(*session.Session), true
	}
	return nil, false
}

// Release drops the registration only if it still points at s.
func (r *SessionRepository) Release(ctx context.Context, s *session.Session) {
	r.claim.Lock()
	defer r.claim.Unlock()

	key := s.ID().String()
	if x, found := r.cache.Get(key); !found || x.(*session.Session) != s {
		return
	}
	r.cache.Delete(key)

	if r.rdb != nil {
		_ = releaseScript.Run(ctx, r.rdb, []string{leasePrefix + key}, r.owner).Err()
	}
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}

// CloseAll ends every live session without evaluation. Used on shutdown.
func (r *SessionRepository) CloseAll(ctx context.Context) {
	for _, item := range r.cache.Items() {
		s := item.Object.(*session.Session)
		s.Close()
		r.Release(ctx, s)
	}
}
