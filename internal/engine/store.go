// Package engine implements the hybrid recommendation core: the shared
// mutable state (users, videos, user-item matrix, preference models),
// the five scoring strategies, the hybrid ranking stage, and the
// interaction ingestion path that keeps derived state consistent.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/subculture-collective/recaster/internal/models"
)

// Store owns the four partitioned stores (users, videos, matrix,
// preferences) behind independent single-writer/multi-reader locks.
// Lock acquisition always follows the fixed order users -> videos ->
// matrix -> preferences, and release happens in reverse, to prevent
// deadlock between the read path (recommend) and the write path
// (ingest).
type Store struct {
	usersMu sync.RWMutex
	users   map[string]*models.User

	videosMu sync.RWMutex
	videos   map[string]*models.Video
	channels map[string]*models.Channel
	viewLog  map[string][]time.Time // video -> ascending watch timestamps, pruned by PruneViewLog

	matrixMu     sync.RWMutex
	matrixRows   map[string]map[string]float64           // user -> video -> rating
	ratingInputs map[string]map[string]models.RatingInputs // user -> video -> aggregated signals

	prefsMu sync.RWMutex
	prefs   map[string]*models.PreferenceModel

	appliedMu sync.Mutex
	applied   map[models.IdempotencyKey]struct{}

	eventsMu sync.Mutex
	events   []models.InteractionEvent // bounded ring buffer, most recent last

	decayLambda float64 // affinity decay rate per day, default 1/30
}

// maxRecentEvents bounds the in-memory recent-interaction log consumed
// by GET /api/stats; older entries are dropped, not the event itself
// (ingestion remains unaffected, only the recency feed is bounded).
const maxRecentEvents = 500

// NewStore returns an empty engine store with the given affinity decay
// rate (per day). Pass 0 to use the default of 1/30.
func NewStore(decayLambdaPerDay float64) *Store {
	if decayLambdaPerDay <= 0 {
		decayLambdaPerDay = 1.0 / 30.0
	}
	return &Store{
		users:        make(map[string]*models.User),
		videos:       make(map[string]*models.Video),
		channels:     make(map[string]*models.Channel),
		viewLog:      make(map[string][]time.Time),
		matrixRows:   make(map[string]map[string]float64),
		ratingInputs: make(map[string]map[string]models.RatingInputs),
		prefs:        make(map[string]*models.PreferenceModel),
		applied:      make(map[models.IdempotencyKey]struct{}),
		decayLambda:  decayLambdaPerDay,
	}
}

// DecayLambda returns the configured affinity decay rate per day.
func (st *Store) DecayLambda() float64 { return st.decayLambda }

// recordEvent appends ev to the bounded recent-interaction log.
func (st *Store) recordEvent(ev models.InteractionEvent) {
	st.eventsMu.Lock()
	defer st.eventsMu.Unlock()
	st.events = append(st.events, ev)
	if len(st.events) > maxRecentEvents {
		st.events = st.events[len(st.events)-maxRecentEvents:]
	}
}

// RecentEvents returns up to the last n ingested interaction events,
// oldest first.
func (st *Store) RecentEvents(n int) []models.InteractionEvent {
	st.eventsMu.Lock()
	defer st.eventsMu.Unlock()
	if n <= 0 || n > len(st.events) {
		n = len(st.events)
	}
	out := make([]models.InteractionEvent, n)
	copy(out, st.events[len(st.events)-n:])
	return out
}

// Snapshot is an immutable, consistent view of all four stores held for
// the duration of a single recommendation request. Accessor methods
// read the underlying maps directly: safe because the snapshot's
// creator holds shared (read) locks on every store for the snapshot's
// entire lifetime, so no writer can run concurrently. Consumers must
// not mutate anything returned by a Snapshot.
type Snapshot struct {
	store *Store
	now   time.Time
}

// Now returns the instant this snapshot was created, frozen for the
// duration of the request so decay and time-of-day calculations are
// internally consistent.
func (s *Snapshot) Now() time.Time { return s.now }

// WithSnapshot acquires shared access across all four stores, in fixed
// order, builds a Snapshot, and invokes fn. Locks are released when fn
// returns, regardless of outcome.
func (st *Store) WithSnapshot(fn func(*Snapshot) error) error {
	st.usersMu.RLock()
	defer st.usersMu.RUnlock()
	st.videosMu.RLock()
	defer st.videosMu.RUnlock()
	st.matrixMu.RLock()
	defer st.matrixMu.RUnlock()
	st.prefsMu.RLock()
	defer st.prefsMu.RUnlock()

	snap := &Snapshot{store: st, now: time.Now().UTC()}
	return fn(snap)
}

// User returns the user record, if present.
func (s *Snapshot) User(id string) (*models.User, bool) {
	u, ok := s.store.users[id]
	return u, ok
}

// Video returns the video record, if present.
func (s *Snapshot) Video(id string) (*models.Video, bool) {
	v, ok := s.store.videos[id]
	return v, ok
}

// Channel returns the channel record, if present.
func (s *Snapshot) Channel(id string) (*models.Channel, bool) {
	c, ok := s.store.channels[id]
	return c, ok
}

// Videos returns every video in the corpus. Order is unspecified;
// callers needing determinism sort by video id themselves.
func (s *Snapshot) Videos() []*models.Video {
	out := make([]*models.Video, 0, len(s.store.videos))
	for _, v := range s.store.videos {
		out = append(out, v)
	}
	return out
}

// Rating returns the implicit rating for (user, video); ok is false if
// the pair has no entry (distinct from a rating of exactly 0).
func (s *Snapshot) Rating(userID, videoID string) (float64, bool) {
	row, ok := s.store.matrixRows[userID]
	if !ok {
		return 0, false
	}
	r, ok := row[videoID]
	return r, ok
}

// Row returns the target user's matrix row as (video_id, rating) pairs.
func (s *Snapshot) Row(userID string) []models.Rating {
	row := s.store.matrixRows[userID]
	out := make([]models.Rating, 0, len(row))
	for v, r := range row {
		out = append(out, models.Rating{VideoID: v, Value: r})
	}
	return out
}

// AllRows returns the read-only full matrix, user -> video -> rating.
// Used by the collaborative filtering scorer, which must scan every
// other user's row to find qualifying peers.
func (s *Snapshot) AllRows() map[string]map[string]float64 {
	return s.store.matrixRows
}

// Column returns every (user_id, rating) pair recorded against videoID,
// the transpose of Row. Completes the user-item matrix's row/column
// interface; callers needing "who rated this video" (e.g. item-based
// neighbourhoods, offline evaluation scenario building) scan this
// instead of AllRows plus a per-user filter.
func (s *Snapshot) Column(videoID string) []models.ColumnEntry {
	out := make([]models.ColumnEntry, 0)
	for userID, row := range s.store.matrixRows {
		if r, ok := row[videoID]; ok {
			out = append(out, models.ColumnEntry{UserID: userID, Value: r})
		}
	}
	return out
}

// Preference returns the user's preference model, or nil if the user
// has none yet (equivalent to an all-empty model).
func (s *Snapshot) Preference(userID string) *models.PreferenceModel {
	return s.store.prefs[userID]
}

// DecayLambda returns the configured affinity decay rate per day.
func (s *Snapshot) DecayLambda() float64 { return s.store.decayLambda }

// ViewsInWindow returns the number of watch events recorded for videoID
// within window of the snapshot's frozen now, read from the per-video
// view log maintained by applyWatch.
func (s *Snapshot) ViewsInWindow(videoID string, window time.Duration) int64 {
	cutoff := s.now.Add(-window)
	var count int64
	for _, ts := range s.store.viewLog[videoID] {
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// CreateOrUpdateUser upserts a user record, used by seeding collaborators.
func (st *Store) CreateOrUpdateUser(u *models.User) {
	st.usersMu.Lock()
	defer st.usersMu.Unlock()
	st.users[u.ID] = u
}

// CreateOrUpdateVideo upserts a video record, used by seeding collaborators.
func (st *Store) CreateOrUpdateVideo(v *models.Video) {
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	st.videos[v.ID] = v
}

// CreateOrUpdateChannel upserts a channel record.
func (st *Store) CreateOrUpdateChannel(c *models.Channel) {
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	st.channels[c.ID] = c
}

// GetUser returns the user record, if present.
func (st *Store) GetUser(id string) (*models.User, bool) {
	st.usersMu.RLock()
	defer st.usersMu.RUnlock()
	u, ok := st.users[id]
	return u, ok
}

// GetVideo returns the video record, if present.
func (st *Store) GetVideo(id string) (*models.Video, bool) {
	st.videosMu.RLock()
	defer st.videosMu.RUnlock()
	v, ok := st.videos[id]
	return v, ok
}

// IterVideos returns every video in the corpus.
func (st *Store) IterVideos() []*models.Video {
	st.videosMu.RLock()
	defer st.videosMu.RUnlock()
	out := make([]*models.Video, 0, len(st.videos))
	for _, v := range st.videos {
		out = append(out, v)
	}
	return out
}

// IterUsers returns every user in the corpus.
func (st *Store) IterUsers() []*models.User {
	st.usersMu.RLock()
	defer st.usersMu.RUnlock()
	out := make([]*models.User, 0, len(st.users))
	for _, u := range st.users {
		out = append(out, u)
	}
	return out
}

// IncrementMetric adjusts a single numeric field of a video's metrics by
// delta. Unknown fields are a validation error; unknown videos are a
// benign no-op per the entity store's not-found-is-a-skip contract.
func (st *Store) IncrementMetric(videoID, field string, delta float64) error {
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	v, ok := st.videos[videoID]
	if !ok {
		return nil
	}
	m := v.Metrics
	switch field {
	case "views":
		m.Views += int64(delta)
	case "likes":
		m.Likes += int64(delta)
	case "dislikes":
		m.Dislikes += int64(delta)
	case "shares":
		m.Shares += int64(delta)
	case "comments":
		m.Comments += int64(delta)
	default:
		return fmt.Errorf("%w: unknown metric field %q", models.ErrValidation, field)
	}
	if m.Likes+m.Dislikes > m.Views {
		// Reject the update: state must remain consistent with the
		// likes+dislikes <= views invariant.
		return fmt.Errorf("%w: likes+dislikes would exceed views for video %q", models.ErrInternal, videoID)
	}
	v.Metrics = m
	return nil
}

// PruneViewLog discards view-log entries older than cutoff across every
// video, keeping the per-video timestamp slices bounded for corpora with
// long-lived popular videos. Called on every pass of the quality-evaluation
// scheduler; never needs to run more often than the widest configured
// trending window.
func (st *Store) PruneViewLog(cutoff time.Time) {
	st.videosMu.Lock()
	defer st.videosMu.Unlock()
	for videoID, timestamps := range st.viewLog {
		kept := timestamps[:0]
		for _, ts := range timestamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		if len(kept) == 0 {
			delete(st.viewLog, videoID)
			continue
		}
		st.viewLog[videoID] = kept
	}
}
