package progress

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mcq-study/backend/internal/quiz"
)

var (
	// ErrNoSession is returned when no resumable session exists for a chapter.
	// Ownership mismatches and stale entries also resolve to this error so
	// callers start a fresh session without surfacing the reason to the user.
	ErrNoSession = errors.New("no resumable session")
	// ErrOwnershipMismatch marks a cached session that belongs to a different
	// user. Always joined with ErrNoSession.
	ErrOwnershipMismatch = errors.New("cached session owned by another user")
	// ErrStaleSession marks a cached session older than the freshness
	// threshold. Always joined with ErrNoSession.
	ErrStaleSession = errors.New("cached session is stale")
)

// DefaultFreshness is the maximum age of a resumable cached session (7 days).
const DefaultFreshness = 7 * 24 * time.Hour

// Synchronizer reconciles in-memory session state with the device-local cache
// and the remote answer ledger. The cache write is authoritative and
// synchronous; ledger writes are asynchronous and best-effort.
type Synchronizer struct {
	cache     SessionCache
	remote    Store
	freshness time.Duration
	now       func() time.Time
	wg        sync.WaitGroup
}

// SyncOption configures a Synchronizer.
type SyncOption func(*Synchronizer)

// WithFreshness overrides the session freshness threshold.
func WithFreshness(d time.Duration) SyncOption {
	return func(s *Synchronizer) { s.freshness = d }
}

// WithSyncClock overrides the synchronizer's time source.
func WithSyncClock(now func() time.Time) SyncOption {
	return func(s *Synchronizer) { s.now = now }
}

// NewSynchronizer creates a synchronizer over the given cache and ledger.
func NewSynchronizer(cache SessionCache, remote Store, opts ...SyncOption) *Synchronizer {
	s := &Synchronizer{
		cache:     cache,
		remote:    remote,
		freshness: DefaultFreshness,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the session state to the local cache and mirrors its answer
// records to the remote ledger. The cache write is synchronous and its error
// is returned; the ledger write runs in the background and only logs on
// failure, so a broken remote never blocks the quiz.
func (s *Synchronizer) Save(ctx context.Context, deviceID string, st quiz.State) error {
	if err := s.cache.Put(ctx, deviceID, st); err != nil {
		return err
	}

	s.mirror(st)
	return nil
}

// Restore returns the cached session state for a chapter, or ErrNoSession
// when none exists, the cached owner differs from the current user, or the
// entry aged past the freshness threshold. A successful restore replays the
// state's answer records to the ledger to heal any earlier failed mirror.
func (s *Synchronizer) Restore(ctx context.Context, deviceID, chapterID, userID string) (quiz.State, error) {
	st, found, err := s.cache.Get(ctx, deviceID, chapterID)
	if err != nil {
		return quiz.State{}, err
	}
	if !found {
		return quiz.State{}, ErrNoSession
	}

	if st.OwnerID != "" && st.OwnerID != userID {
		slog.Debug("discarding cached session, owner mismatch",
			"chapter_id", chapterID,
			"cached_owner", st.OwnerID,
		)
		return quiz.State{}, errors.Join(ErrNoSession, ErrOwnershipMismatch)
	}

	if age := s.now().Sub(st.UpdatedAt); age > s.freshness {
		slog.Debug("discarding stale cached session",
			"chapter_id", chapterID,
			"age", age,
		)
		return quiz.State{}, errors.Join(ErrNoSession, ErrStaleSession)
	}

	s.mirror(st)
	return st, nil
}

// Purge removes the cached session for a chapter. The remote ledger is left
// untouched: resetting a quiz clears the in-progress session pointer, never
// the permanent answer history.
func (s *Synchronizer) Purge(ctx context.Context, deviceID, chapterID string) error {
	return s.cache.Delete(ctx, deviceID, chapterID)
}

// Flush waits for in-flight ledger writes. Used on shutdown and in tests.
func (s *Synchronizer) Flush() {
	s.wg.Wait()
}

// mirror upserts the state's answer records to the ledger in the background.
// Anonymous sessions have no ledger identity and are skipped.
func (s *Synchronizer) mirror(st quiz.State) {
	if st.OwnerID == "" || len(st.Answers) == 0 {
		return
	}

	recs := RecordsFromState(st)
	userID := st.OwnerID

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.remote.UpsertBatch(ctx, userID, recs); err != nil {
			slog.Error("mirroring answer records failed",
				"user_id", userID,
				"chapter_id", st.ChapterID,
				"records", len(recs),
				"error", err,
			)
		}
	}()
}
