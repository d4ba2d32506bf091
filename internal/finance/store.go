// Package finance holds the per-session view of one user's expenses, incomes,
// assets and settings, and keeps it in step with the data service.
//
// Mutations are applied locally first. Creates run in the background and are
// reconciled in place when the service answers: the provisional ID is swapped
// for the service ID on success, and the record is dropped on failure.
// Deletes and settings updates are never rolled back; failures only reach the
// ErrorObserver.
package finance

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"nomadfinance/internal/core"
	"nomadfinance/internal/log"
	"nomadfinance/internal/remote"
)

var (
	// ErrNoActiveUser is returned by mutations while nobody is signed in.
	// The store is left untouched.
	ErrNoActiveUser = errors.New("no active user")
	// ErrUnknownRecord is returned when deleting an ID the store does not hold.
	ErrUnknownRecord = errors.New("unknown record")
)

// Store is created once per session and passed to whatever needs it.
type Store struct {
	svc     remote.DataService
	observe ErrorObserver
	now     func() time.Time

	wg sync.WaitGroup

	mu              sync.Mutex
	userID          string
	signedIn        bool
	epoch           uint64
	lastProvisional int64
	expenses        []Entry[core.Expense]
	incomes         []Entry[core.Income]
	assets          []Entry[core.Asset]
	settings        core.Settings

	// Loads are numbered as they start. A remote effect that completes after
	// load n started is marked n (or inFlight until it completes) so that a
	// load which fetched before it does not undo it locally.
	loads        uint64
	committed    uint64
	settled      map[string]uint64
	removed      map[string]uint64
	settingsBusy int
	settingsAt   uint64

	// Provisional IDs deleted before their create returned.
	deletedPending map[string]struct{}
}

const inFlight = math.MaxUint64

type Option func(*Store)

// WithErrorObserver replaces the default logging observer.
func WithErrorObserver(o ErrorObserver) Option {
	return func(s *Store) { s.observe = o }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.observe = LogErrors(l) }
}

// WithClock overrides time.Now for provisional IDs and demo data.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a signed-out store showing the built-in demo data.
func New(svc remote.DataService, opts ...Option) *Store {
	s := &Store{svc: svc, now: time.Now, deletedPending: make(map[string]struct{})}
	for _, opt := range opts {
		opt(s)
	}
	if s.observe == nil {
		s.observe = LogErrors(log.FromContext(context.Background()).WithComponent(log.ComponentFinance))
	}
	s.resetLocked()
	return s
}

// UserID returns the active user and whether one is set.
func (s *Store) UserID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID, s.signedIn
}

// SetUserID switches the active user.
//
// nil signs out and restores the demo data. A different ID clears every
// collection before the new user's rows are fetched, so nothing from the
// previous user is ever visible. Setting the current ID again does nothing.
func (s *Store) SetUserID(ctx context.Context, id *string) error {
	s.mu.Lock()
	if id == nil {
		s.epoch++
		s.signedIn = false
		s.userID = ""
		s.resetLocked()
		s.resetMarksLocked()
		s.mu.Unlock()
		return nil
	}
	if s.signedIn && s.userID == *id {
		s.mu.Unlock()
		return nil
	}
	s.epoch++
	epoch := s.epoch
	s.signedIn = true
	s.userID = *id
	s.expenses, s.incomes, s.assets = nil, nil, nil
	s.settings = core.DefaultSettings()
	s.resetMarksLocked()
	s.mu.Unlock()

	return s.load(ctx, *id, epoch)
}

// Reload fetches the active user's collections again.
func (s *Store) Reload(ctx context.Context) error {
	s.mu.Lock()
	if !s.signedIn {
		s.mu.Unlock()
		return ErrNoActiveUser
	}
	userID, epoch := s.userID, s.epoch
	s.mu.Unlock()
	return s.load(ctx, userID, epoch)
}

func (s *Store) resetLocked() {
	now := s.now()
	s.expenses = confirmedAll(core.DefaultExpenses(now), func(e core.Expense) string { return e.ID })
	s.incomes = confirmedAll(core.DefaultIncomes(now), func(i core.Income) string { return i.ID })
	s.assets = confirmedAll(core.DefaultAssets(), func(a core.Asset) string { return a.ID })
	s.settings = core.DefaultSettings()
}

func (s *Store) resetMarksLocked() {
	s.settled = make(map[string]uint64)
	s.removed = make(map[string]uint64)
	s.settingsBusy, s.settingsAt = 0, 0
}

// load fetches every collection and merges the result into the store. Entries
// still pending are kept ahead of the fetched rows, and remote effects the
// fetch may have missed are preserved.
func (s *Store) load(ctx context.Context, userID string, epoch uint64) error {
	s.mu.Lock()
	s.loads++
	gen := s.loads
	s.mu.Unlock()

	var (
		ex       []Entry[core.Expense]
		in       []Entry[core.Income]
		as       []Entry[core.Asset]
		settings core.Settings
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		ex, err = fetch(gctx, s, expenses, userID)
		return err
	})
	g.Go(func() (err error) {
		in, err = fetch(gctx, s, incomes, userID)
		return err
	})
	g.Go(func() (err error) {
		as, err = fetch(gctx, s, assets, userID)
		return err
	})
	g.Go(func() (err error) {
		settings, err = s.loadSettings(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		s.report(ctx, &OpError{Op: log.OpLoad, UserID: userID, Err: err})
		return fmt.Errorf("load user %s: %w", userID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if epoch != s.epoch || gen < s.committed {
		return nil
	}
	s.committed = gen
	s.expenses = merge(s, expenses, ex, gen)
	s.incomes = merge(s, incomes, in, gen)
	s.assets = merge(s, assets, as, gen)
	if s.settingsBusy == 0 && s.settingsAt < gen {
		s.settings = settings
	}
	pruneMarks(s.settled, gen)
	pruneMarks(s.removed, gen)
	return nil
}

func merge[T, R any](s *Store, k kind[T, R], fetched []Entry[T], gen uint64) []Entry[T] {
	seen := make(map[string]struct{}, len(fetched))
	for _, e := range fetched {
		seen[e.State.ID()] = struct{}{}
	}

	out := make([]Entry[T], 0, len(fetched))
	for _, e := range *k.entries(s) {
		id := e.State.ID()
		if e.State.IsPending() {
			out = append(out, e)
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		if mark, ok := s.settled[k.key(id)]; ok && mark >= gen {
			out = append(out, e)
		}
	}
	for _, e := range fetched {
		if mark, ok := s.removed[k.key(e.State.ID())]; ok && mark >= gen {
			continue
		}
		out = append(out, e)
	}
	return out
}

func pruneMarks(marks map[string]uint64, gen uint64) {
	for key, mark := range marks {
		if mark < gen {
			delete(marks, key)
		}
	}
}

// fetch lists one collection. Rows that cannot be converted are reported and
// skipped.
func fetch[T, R any](ctx context.Context, s *Store, k kind[T, R], userID string) ([]Entry[T], error) {
	rows, err := k.list(s.svc, ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", k.name, err)
	}
	out := make([]Entry[T], 0, len(rows))
	for _, row := range rows {
		rec, err := k.fromRow(row)
		if err != nil {
			s.report(ctx, &OpError{Op: log.OpLoad, Collection: k.name, UserID: userID, RecordID: k.rowID(row), Err: err})
			continue
		}
		out = append(out, Entry[T]{Record: rec, State: Confirmed(k.rowID(row))})
	}
	return out, nil
}

// loadSettings returns the stored settings, creating the row from defaults
// when missing and persisting the legacy exchange-rate migration.
func (s *Store) loadSettings(ctx context.Context, userID string) (core.Settings, error) {
	row, err := s.svc.GetSettings(ctx, userID)
	if errors.Is(err, remote.ErrNotFound) {
		def := core.DefaultSettings()
		if err := s.svc.UpsertSettings(ctx, userID, remote.SettingsRowFrom(def)); err != nil {
			s.report(ctx, &OpError{Op: log.OpCreate, Collection: remote.CollectionSettings, UserID: userID, Err: err})
		}
		return def, nil
	}
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}

	settings, err := row.Settings()
	if err != nil {
		s.report(ctx, &OpError{Op: log.OpLoad, Collection: remote.CollectionSettings, UserID: userID, Err: err})
		settings = core.DefaultSettings()
	}
	settings, migrated := core.MigrateSettings(settings)
	if migrated {
		if err := s.svc.UpsertSettings(ctx, userID, remote.SettingsRowFrom(settings)); err != nil {
			s.report(ctx, &OpError{Op: log.OpUpdate, Collection: remote.CollectionSettings, UserID: userID, Err: err})
		}
	}
	return settings, nil
}

func (s *Store) AddExpense(ctx context.Context, e core.Expense) (string, error) {
	if err := e.Validate(); err != nil {
		return "", err
	}
	return add(ctx, s, expenses, e)
}

func (s *Store) AddIncome(ctx context.Context, i core.Income) (string, error) {
	if err := i.Validate(); err != nil {
		return "", err
	}
	return add(ctx, s, incomes, i)
}

func (s *Store) AddAsset(ctx context.Context, a core.Asset) (string, error) {
	if err := a.Validate(); err != nil {
		return "", err
	}
	return add(ctx, s, assets, a)
}

func (s *Store) DeleteExpense(ctx context.Context, id string) error {
	return remove(ctx, s, expenses, id)
}

func (s *Store) DeleteIncome(ctx context.Context, id string) error {
	return remove(ctx, s, incomes, id)
}

func (s *Store) DeleteAsset(ctx context.Context, id string) error {
	return remove(ctx, s, assets, id)
}

// add prepends rec under a provisional ID and returns that ID right away. The
// create call runs in the background and reconciles the entry when it ends.
func add[T, R any](ctx context.Context, s *Store, k kind[T, R], rec T) (string, error) {
	s.mu.Lock()
	if !s.signedIn {
		s.mu.Unlock()
		return "", ErrNoActiveUser
	}
	pid := s.provisionalIDLocked()
	k.setID(&rec, pid)
	list := k.entries(s)
	*list = append([]Entry[T]{{Record: rec, State: Pending(pid)}}, *list...)
	userID, epoch := s.userID, s.epoch
	s.wg.Add(1)
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		row, err := k.insert(s.svc, bg, userID, k.toRow(rec))
		if err != nil {
			rollback(s, k, pid, epoch)
			s.report(bg, &OpError{Op: log.OpCreate, Collection: k.name, UserID: userID, RecordID: pid, Err: err})
			return
		}
		sid := k.rowID(row)
		if !reconcile(s, k, pid, sid, epoch) {
			return
		}
		// Deleted while the create was in flight. Remove the stored row too
		// so it does not come back on the next reload.
		deleteRemote(bg, s, k, userID, sid, epoch)
	}()
	return pid, nil
}

func rollback[T, R any](s *Store, k kind[T, R], pid string, epoch uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deletedPending, pid)
	if epoch == s.epoch {
		k.drop(s, pid)
	}
}

// deleteRemote deletes id on the service and marks it removed for loads that
// started before the call finished.
func deleteRemote[T, R any](ctx context.Context, s *Store, k kind[T, R], userID, id string, epoch uint64) {
	err := k.delete(s.svc, ctx, userID, id)

	s.mu.Lock()
	if epoch == s.epoch {
		s.removed[k.key(id)] = s.loads
	}
	s.mu.Unlock()

	if err != nil {
		s.report(ctx, &OpError{Op: log.OpDelete, Collection: k.name, UserID: userID, RecordID: id, Err: err})
	}
}

func (k kind[T, R]) drop(s *Store, id string) bool {
	list := k.entries(s)
	i := indexOf(*list, id)
	if i < 0 {
		return false
	}
	*list = append((*list)[:i:i], (*list)[i+1:]...)
	return true
}

// reconcile swaps pid for sid in place. It reports true only when the entry
// was deleted while pending and the stored row must be removed.
func reconcile[T, R any](s *Store, k kind[T, R], pid, sid string, epoch uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.deletedPending[pid]; ok {
		delete(s.deletedPending, pid)
		if epoch == s.epoch {
			s.removed[k.key(sid)] = inFlight
		}
		return true
	}
	if epoch != s.epoch {
		// Another user is active now; the row belongs to the old one.
		return false
	}
	if k.swap(s, pid, sid) {
		s.settled[k.key(sid)] = s.loads
	}
	return false
}

func (k kind[T, R]) swap(s *Store, pid, sid string) bool {
	list := *k.entries(s)
	i := indexOf(list, pid)
	if i < 0 || !list[i].State.IsPending() {
		return false
	}
	k.setID(&list[i].Record, sid)
	list[i].State = Confirmed(sid)
	return true
}

// remove deletes locally and, for confirmed records, fires the remote delete
// without waiting for it. Pending records are remembered and cleaned up by
// their create call.
func remove[T, R any](ctx context.Context, s *Store, k kind[T, R], id string) error {
	s.mu.Lock()
	if !s.signedIn {
		s.mu.Unlock()
		return ErrNoActiveUser
	}
	list := k.entries(s)
	i := indexOf(*list, id)
	if i < 0 {
		s.mu.Unlock()
		return ErrUnknownRecord
	}
	state := (*list)[i].State
	k.drop(s, id)
	userID, epoch := s.userID, s.epoch
	if state.IsPending() {
		s.deletedPending[id] = struct{}{}
		s.mu.Unlock()
		return nil
	}
	s.removed[k.key(id)] = inFlight
	s.wg.Add(1)
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		deleteRemote(bg, s, k, userID, state.ID(), epoch)
	}()
	return nil
}

// UpdateSettings merges p into the current settings and upserts the full
// result in the background.
func (s *Store) UpdateSettings(ctx context.Context, p core.SettingsPatch) (core.Settings, error) {
	s.mu.Lock()
	if !s.signedIn {
		defer s.mu.Unlock()
		return s.settings, ErrNoActiveUser
	}
	merged := s.settings.Merge(p)
	if err := merged.Validate(); err != nil {
		defer s.mu.Unlock()
		return s.settings, err
	}
	s.settings = merged
	s.settingsBusy++
	userID, epoch := s.userID, s.epoch
	s.wg.Add(1)
	s.mu.Unlock()

	bg := context.WithoutCancel(ctx)
	go func() {
		defer s.wg.Done()
		err := s.svc.UpsertSettings(bg, userID, remote.SettingsRowFrom(merged))

		s.mu.Lock()
		if epoch == s.epoch {
			s.settingsBusy--
			s.settingsAt = s.loads
		}
		s.mu.Unlock()

		if err != nil {
			s.report(bg, &OpError{Op: log.OpUpdate, Collection: remote.CollectionSettings, UserID: userID, Err: err})
		}
	}()
	return merged, nil
}

// provisionalIDLocked derives an ID from the clock, bumped when needed so IDs
// stay unique and increasing within the session.
func (s *Store) provisionalIDLocked() string {
	id := s.now().UnixMilli()
	if id <= s.lastProvisional {
		id = s.lastProvisional + 1
	}
	s.lastProvisional = id
	return strconv.FormatInt(id, 10)
}

// Wait blocks until every background call started so far has finished.
func (s *Store) Wait() {
	s.wg.Wait()
}

func (s *Store) report(ctx context.Context, err *OpError) {
	if s.observe != nil {
		s.observe(ctx, err)
	}
}
