package http

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"nomadfinance/internal/cache"
	"nomadfinance/internal/finance"
	"nomadfinance/internal/identity"
	"nomadfinance/internal/log"
	"nomadfinance/internal/remote"
)

// sessions keeps one identity gate per host identity and one finance store
// per authorized user. Both expire after the session TTL without use.
type sessions struct {
	svc     remote.Service
	encoder identity.PasswordEncoder
	logger  *log.Logger
	now     func() time.Time

	gates  *cache.LRUCache[*identity.Gate]
	stores *cache.LRUCache[*finance.Store]
	group  singleflight.Group

	// draining tracks evicted stores whose background calls are still
	// running.
	draining sync.WaitGroup
}

func newSessions(svc remote.Service, encoder identity.PasswordEncoder, size int, ttl time.Duration, now func() time.Time, logger *log.Logger) *sessions {
	s := &sessions{
		svc:     svc,
		encoder: encoder,
		logger:  logger,
		now:     now,
	}
	s.gates = cache.NewLRUCache[*identity.Gate](size, ttl, cache.WithClock[*identity.Gate](now))
	s.stores = cache.NewLRUCache[*finance.Store](size, ttl,
		cache.WithClock[*finance.Store](now),
		cache.WithEvictHandler[*finance.Store](s.release),
	)
	return s
}

// gate returns the cached gate for h, creating it on first use. The gate binds
// authorized users to their finance store.
func (s *sessions) gate(h identity.HostIdentity) *identity.Gate {
	key := h.Key()
	if g, ok := s.gates.Get(key); ok {
		return g
	}
	v, _, _ := s.group.Do("gate:"+key, func() (any, error) {
		if g, ok := s.gates.Get(key); ok {
			return g, nil
		}
		binder := identity.UserBinderFunc(func(ctx context.Context, id *string) error {
			if id == nil {
				return nil
			}
			_, err := s.store(ctx, *id)
			return err
		})
		g := identity.NewGate(&h, s.svc, binder,
			identity.WithEncoder(s.encoder),
			identity.WithGateLogger(s.logger.WithComponent(log.ComponentIdentity)),
		)
		s.gates.Set(key, g)
		return g, nil
	})
	return v.(*identity.Gate)
}

// store returns the finance store for userID, creating and loading it on
// first use. A failed load is logged by the store; the store is still
// returned and cached so the user can keep working and reload later.
func (s *sessions) store(ctx context.Context, userID string) (*finance.Store, error) {
	if st, ok := s.stores.Get(userID); ok {
		return st, nil
	}
	v, err, _ := s.group.Do("store:"+userID, func() (any, error) {
		if st, ok := s.stores.Get(userID); ok {
			return st, nil
		}
		st := finance.New(s.svc,
			finance.WithLogger(s.logger.WithComponent(log.ComponentFinance)),
			finance.WithClock(s.now),
		)
		id := userID
		err := st.SetUserID(context.WithoutCancel(ctx), &id)
		s.stores.Set(userID, st)
		return st, err
	})
	return v.(*finance.Store), err
}

func (s *sessions) release(userID string, st *finance.Store) {
	s.logger.Debug("Session store released", log.FieldUserID, userID)
	s.draining.Add(1)
	go func() {
		defer s.draining.Done()
		st.Wait()
	}()
}

// Close drops every session and waits for in-flight store calls.
func (s *sessions) Close(ctx context.Context) error {
	s.gates.Purge()
	s.stores.Purge()

	done := make(chan struct{})
	go func() {
		s.draining.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
