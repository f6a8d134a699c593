package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/bakery-storefront/internal/core/domain"
	"github.com/rl1809/bakery-storefront/internal/port"
)

var ErrSyncStopped = errors.New("cart sync stopped")

type SyncKind string

const (
	SyncKindHydrate SyncKind = "hydrate"
	SyncKindPush    SyncKind = "push"
)

// SyncEvent describes one finished gateway call.
type SyncEvent struct {
	Kind     SyncKind
	UserID   string
	Items    int
	Version  uint64
	Duration time.Duration
	Err      error
	// Stale is set when the result arrived after the identity it was
	// issued for had already changed and was therefore ignored.
	Stale bool
}

type SyncObserver interface {
	ObserveSync(ev SyncEvent)
}

type SyncStatus struct {
	UserID        string
	Loading       bool
	LastError     error
	SyncedVersion uint64
}

// SyncController keeps the remote cart eventually consistent with the local
// CartStore.
//
// All gateway calls run on a single goroutine, so hydration and pushes never
// overlap and pushes are issued in mutation order. A push always carries the
// newest snapshot; intermediate snapshots that were superseded before the
// goroutine got to them are never sent.
type SyncController struct {
	store       *CartStore
	gateway     port.CartGateway
	logger      *zap.Logger
	pushTimeout time.Duration

	// applyMu orders identity changes against hydration results landing in
	// the store.
	applyMu sync.Mutex

	mu            sync.Mutex
	user          *domain.User
	generation    uint64
	hydratedGen   uint64
	hydrateCancel context.CancelFunc
	loading       bool
	lastErr       error
	syncedVersion uint64
	sentVersion   uint64
	observers     []SyncObserver

	wake     chan struct{}
	flushReq chan chan struct{}
	done     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	unsubscribe func()
}

func NewSyncController(store *CartStore, gateway port.CartGateway, logger *zap.Logger, pushTimeout time.Duration) *SyncController {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &SyncController{
		store:       store,
		gateway:     gateway,
		logger:      logger.Named("cart-sync"),
		pushTimeout: pushTimeout,
		wake:        make(chan struct{}, 1),
		flushReq:    make(chan chan struct{}),
		done:        make(chan struct{}),
	}
	c.unsubscribe = store.Subscribe(c.onCartChange)
	return c
}

func (c *SyncController) AddObserver(o SyncObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Start launches the sync goroutine. It stops when ctx is cancelled or Close
// is called.
func (c *SyncController) Start(ctx context.Context) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.loop(ctx)
	}()
}

// Close stops the sync goroutine and waits for the call in flight, if any.
func (c *SyncController) Close() {
	c.stopOnce.Do(func() {
		close(c.done)
		c.unsubscribe()
	})
	c.mu.Lock()
	if c.hydrateCancel != nil {
		c.hydrateCancel()
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// IdentityChanged is the trigger for hydration. A nil user empties the cart
// right away without touching the gateway.
func (c *SyncController) IdentityChanged(user *domain.User) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	c.generation++
	c.user = user
	if c.hydrateCancel != nil {
		c.hydrateCancel()
		c.hydrateCancel = nil
	}
	if user != nil {
		c.loading = true
		c.mu.Unlock()
		c.logger.Debug("identity changed, hydration scheduled", zap.String("user_id", user.ID))
		c.signal()
		return
	}
	c.loading = false
	c.hydratedGen = c.generation
	c.lastErr = nil
	c.mu.Unlock()

	change := c.store.Dispatch(domain.SetCart(nil))

	c.mu.Lock()
	c.syncedVersion = change.Version
	c.sentVersion = change.Version
	c.mu.Unlock()
	c.logger.Debug("identity cleared, cart reset")
}

// Flush blocks until every change made before the call has been handled by
// the sync goroutine and returns the resulting sync error, if any.
func (c *SyncController) Flush(ctx context.Context) error {
	ack := make(chan struct{})
	select {
	case c.flushReq <- ack:
	case <-c.done:
		return ErrSyncStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ack:
	case <-c.done:
		return ErrSyncStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	return c.LastError()
}

func (c *SyncController) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// LastError is the most recent hydration or push failure, cleared by the
// next successful call.
func (c *SyncController) LastError() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

func (c *SyncController) Status() SyncStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := SyncStatus{
		Loading:       c.loading,
		LastError:     c.lastErr,
		SyncedVersion: c.syncedVersion,
	}
	if c.user != nil {
		st.UserID = c.user.ID
	}
	return st
}

func (c *SyncController) onCartChange(change CartChange) {
	if change.Changed {
		c.signal()
	}
}

func (c *SyncController) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}

func (c *SyncController) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case <-c.wake:
			c.reconcile(ctx)
		case ack := <-c.flushReq:
			// drain a pending wake so the flush observes it
			select {
			case <-c.wake:
			default:
			}
			c.reconcile(ctx)
			close(ack)
		}
	}
}

// reconcile hydrates when the identity moved to a user that has not been
// loaded yet, then pushes the cart when it has changes the gateway has not
// seen.
func (c *SyncController) reconcile(ctx context.Context) {
	c.mu.Lock()
	for c.user != nil && c.hydratedGen != c.generation {
		gen, user := c.generation, c.user
		hctx, cancel := context.WithCancel(ctx)
		c.hydrateCancel = cancel
		c.mu.Unlock()

		c.hydrate(hctx, gen, user)
		cancel()

		c.mu.Lock()
	}

	user := c.user
	if user == nil || c.loading {
		c.mu.Unlock()
		return
	}
	gen := c.generation
	items, version := c.store.Snapshot()
	if version <= c.sentVersion {
		c.mu.Unlock()
		return
	}
	c.sentVersion = version
	c.mu.Unlock()

	c.push(ctx, gen, user, items, version)
}

func (c *SyncController) hydrate(ctx context.Context, gen uint64, user *domain.User) {
	start := time.Now()
	remote, err := c.gateway.FetchCart(ctx, user)
	if err == nil {
		err = domain.CheckRemote(remote)
	}
	ev := SyncEvent{Kind: SyncKindHydrate, UserID: user.ID, Duration: time.Since(start), Err: err}

	c.applyMu.Lock()
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		c.applyMu.Unlock()
		ev.Stale = true
		c.logger.Debug("discarding hydration for previous identity", zap.String("user_id", user.ID))
		c.notify(ev)
		return
	}
	if err != nil {
		c.lastErr = err
		c.loading = false
		c.hydratedGen = gen
		_, c.sentVersion = c.store.Snapshot()
		c.mu.Unlock()
		c.applyMu.Unlock()
		c.logger.Warn("failed to load cart", zap.String("user_id", user.ID), zap.Error(err))
		c.notify(ev)
		return
	}
	c.mu.Unlock()

	change := c.store.Dispatch(domain.SetCart(domain.CartFromRemote(remote)))

	c.mu.Lock()
	c.syncedVersion = change.Version
	c.sentVersion = change.Version
	c.hydratedGen = gen
	c.loading = false
	c.lastErr = nil
	c.mu.Unlock()
	c.applyMu.Unlock()

	ev.Items = len(change.Items)
	ev.Version = change.Version
	c.logger.Debug("cart loaded",
		zap.String("user_id", user.ID),
		zap.Int("items", ev.Items),
		zap.Uint64("version", change.Version),
	)
	c.notify(ev)
}

func (c *SyncController) push(ctx context.Context, gen uint64, user *domain.User, items domain.Cart, version uint64) {
	if c.pushTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.pushTimeout)
		defer cancel()
	}

	start := time.Now()
	err := c.gateway.PersistCart(ctx, user, items)
	ev := SyncEvent{
		Kind:     SyncKindPush,
		UserID:   user.ID,
		Items:    len(items),
		Version:  version,
		Duration: time.Since(start),
		Err:      err,
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		ev.Stale = true
		c.notify(ev)
		return
	}
	if err != nil {
		c.lastErr = err
	} else {
		c.lastErr = nil
		if version > c.syncedVersion {
			c.syncedVersion = version
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("failed to sync cart",
			zap.String("user_id", user.ID),
			zap.Uint64("version", version),
			zap.Error(err),
		)
	} else {
		c.logger.Debug("cart synced", zap.String("user_id", user.ID), zap.Uint64("version", version))
	}
	c.notify(ev)
}

func (c *SyncController) notify(ev SyncEvent) {
	c.mu.Lock()
	observers := make([]SyncObserver, len(c.observers))
	copy(observers, c.observers)
	c.mu.Unlock()

	for _, o := range observers {
		o.ObserveSync(ev)
	}
}
