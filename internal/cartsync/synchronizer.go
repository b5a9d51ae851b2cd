package cartsync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/angelmondragon/rentalkit-backend/internal/cart"
	"github.com/angelmondragon/rentalkit-backend/pkg/enums"
	"github.com/angelmondragon/rentalkit-backend/pkg/logger"
	"github.com/angelmondragon/rentalkit-backend/pkg/metrics"
)

// DefaultDelay is the push debounce window.
const DefaultDelay = time.Second

// Options tunes a Synchronizer.
type Options struct {
	Delay     time.Duration
	AfterFunc AfterFunc
	Metrics   *metrics.CartMetrics
	Logger    *logger.Logger
}

// Synchronizer keeps a local cart and the server cart in step. On sign-in it
// loads the server cart once and merges the local one into it; afterwards
// every local mutation schedules a debounced push of the whole cart. Push
// failures are logged and retried with the next mutation.
type Synchronizer struct {
	cart      *cart.Cart
	remote    Remote
	debouncer *Debouncer
	metrics   *metrics.CartMetrics
	logg      *logger.Logger

	mu            sync.Mutex
	ctx           context.Context
	authenticated bool
	loading       bool
	hasLoaded     bool
	unsubscribe   func()
}

// New wires a synchronizer to a local cart.
func New(c *cart.Cart, remote Remote, opts Options) (*Synchronizer, error) {
	if c == nil {
		return nil, fmt.Errorf("cart required")
	}
	if remote == nil {
		return nil, fmt.Errorf("cart remote required")
	}
	if opts.Delay <= 0 {
		opts.Delay = DefaultDelay
	}
	logg := opts.Logger
	if logg == nil {
		logg = logger.Nop()
	}
	s := &Synchronizer{
		cart:    c,
		remote:  remote,
		metrics: opts.Metrics,
		logg:    logg,
		ctx:     context.Background(),
	}
	s.debouncer = NewDebouncer(opts.Delay, opts.AfterFunc, s.push)
	s.unsubscribe = c.Subscribe(s.onChange)
	return s, nil
}

// Use is the lifecycle hook driven by authentication state. Signing in loads
// and merges the server cart once per session; signing out stops syncing and
// drops any scheduled push.
func (s *Synchronizer) Use(ctx context.Context, isAuthenticated bool) {
	if !isAuthenticated {
		s.mu.Lock()
		s.authenticated = false
		s.hasLoaded = false
		s.mu.Unlock()
		s.debouncer.Cancel()
		return
	}

	s.mu.Lock()
	s.authenticated = true
	s.ctx = context.WithoutCancel(ctx)
	if s.hasLoaded || s.loading {
		s.mu.Unlock()
		return
	}
	s.loading = true
	s.mu.Unlock()

	s.load(ctx)
}

func (s *Synchronizer) load(ctx context.Context) {
	loaded := false
	defer func() {
		s.mu.Lock()
		s.loading = false
		s.hasLoaded = loaded && s.authenticated
		s.mu.Unlock()
	}()

	remote, err := s.remote.Fetch(ctx)
	if err != nil {
		s.metrics.IncLoad(metrics.OutcomeError)
		s.logg.Error(ctx, "load server cart", err)
		return
	}
	s.metrics.IncLoad(metrics.OutcomeOK)

	local := s.cart.Snapshot()
	appended := cart.LocalOnly(local.Items, remote.Items)
	if len(remote.Items) > 0 {
		if err := s.cart.Replace(cart.Merge(local.Items, remote.Items)); err != nil {
			s.logg.Error(ctx, "apply merged cart", err)
			return
		}
	}
	if local.GlobalDates == nil && remote.GlobalDates != nil {
		if err := s.cart.SetGlobalDates(remote.GlobalDates); err != nil {
			s.logg.Warn(ctx, "server cart has invalid global dates: "+err.Error())
		}
	}
	loaded = true
	s.metrics.AddMergedLocal(len(appended))

	if len(appended) > 0 {
		s.logg.Info(s.logg.WithField(ctx, "appended", len(appended)), "local cart items merged into server cart")
		s.debouncer.Trigger()
	}
}

func (s *Synchronizer) onChange(cart.Snapshot) {
	s.mu.Lock()
	active := s.authenticated && s.hasLoaded
	s.mu.Unlock()
	if active {
		s.debouncer.Trigger()
	}
}

// push sends the cart as it is when the debounce window closes.
func (s *Synchronizer) push() {
	s.mu.Lock()
	ctx := s.ctx
	active := s.authenticated
	s.mu.Unlock()
	if !active {
		return
	}

	if err := s.remote.Push(ctx, s.cart.Snapshot()); err != nil {
		s.metrics.IncPush(metrics.OutcomeError)
		s.logg.Error(ctx, "push cart", err)
		return
	}
	s.metrics.IncPush(metrics.OutcomeOK)
}

// State reports Loading while fetching the server cart, Syncing while a push
// is scheduled or in flight, Idle otherwise.
func (s *Synchronizer) State() enums.SyncState {
	s.mu.Lock()
	loading := s.loading
	s.mu.Unlock()
	if loading {
		return enums.SyncStateLoading
	}
	if s.debouncer.State() != DebounceIdle {
		return enums.SyncStateSyncing
	}
	return enums.SyncStateIdle
}

// HasLoaded reports whether the server cart was loaded this session.
func (s *Synchronizer) HasLoaded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hasLoaded
}

// Close detaches from the cart and drops any scheduled push.
func (s *Synchronizer) Close() {
	s.unsubscribe()
	s.debouncer.Cancel()
}
