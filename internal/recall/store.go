package recall

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"meme-trading-bot/internal/clock"
)

// snapshotEvery is the insertion interval between automatic snapshots.
const snapshotEvery = 100

// Tolerance bands for relevance ordering. Importance differences below
// importanceBand are ties; within a tie, creation times within
// recencyBand of each other are ties too.
const (
	importanceBand = 0.1
	recencyBand    = 60 * time.Second
)

var ErrNotInitialized = errors.New("recall: store not initialized")

// Record is one entry in the recall memory. ID and CreatedAt are
// immutable; AccessCount and LastAccessedAt are the only fields mutated
// after creation, and only by retrieval.
type Record struct {
	ID             string    `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	Kind           Kind      `json:"kind"`
	Payload        Payload   `json:"-"`
	Tags           []string  `json:"tags"`
	Importance     float64   `json:"importance"`
	AccessCount    int       `json:"access_count"`
	LastAccessedAt time.Time `json:"last_accessed_at"`
}

// ScoredRecord pairs a record with its similarity score.
type ScoredRecord struct {
	Record Record
	Score  float64
}

// Filter is a conjunction of optional predicates for Query.
type Filter struct {
	Kind          *Kind
	Tags          []string // match-any
	From, To      *time.Time // inclusive
	MinImportance *float64
	Limit         int // 0 means the default of 100
}

// Stats summarizes the store contents.
type Stats struct {
	TotalRecords  int            `json:"total_records"`
	CountsByKind  map[Kind]int   `json:"counts_by_kind"`
	CountsByTag   map[string]int `json:"counts_by_tag"`
	LastUpdatedAt time.Time      `json:"last_updated_at"`
}

// Store is the append-only tagged record log with rank-ordered
// retrieval and best-effort disk snapshotting. All public methods are
// mutex-guarded; the engine's two tickers read and write concurrently.
type Store struct {
	mu          sync.Mutex
	records     map[string]*Record
	inserts     int
	lastUpdated time.Time

	sink Sink
	clk  clock.Clock
	log  *slog.Logger
}

// New builds an empty store. The sink may be nil, in which case
// snapshotting is disabled entirely.
func New(sink Sink, clk clock.Clock, log *slog.Logger) *Store {
	return &Store{
		records: make(map[string]*Record),
		sink:    sink,
		clk:     clk,
		log:     log,
	}
}

// Append inserts a new record and returns its id. The only validation
// is that the kind is known and the payload shape belongs to it; an
// insertion never fails for content reasons. Every 100th insertion
// kicks off an asynchronous snapshot whose failure is logged, not
// raised.
func (s *Store) Append(kind Kind, payload Payload, tags []string, importance float64) (string, error) {
	if s == nil || s.records == nil {
		return "", ErrNotInitialized
	}
	if !kind.IsValid() {
		return "", fmt.Errorf("recall: unknown record kind %q", kind)
	}
	if payload == nil || payload.Kind() != kind {
		return "", fmt.Errorf("recall: payload does not match kind %q", kind)
	}

	s.mu.Lock()
	now := s.clk.Now()
	rec := &Record{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		Kind:       kind,
		Payload:    payload,
		Tags:       append([]string(nil), tags...),
		Importance: clamp01(importance),
	}
	s.records[rec.ID] = rec
	s.inserts++
	s.lastUpdated = now
	due := s.inserts%snapshotEvery == 0
	id := rec.ID
	s.mu.Unlock()

	if due {
		go func() {
			if err := s.SaveSnapshot(); err != nil {
				s.log.Warn("recall snapshot failed", "error", err)
			}
		}()
	}
	return id, nil
}

// Query returns records matching every present predicate, ordered by
// relevance and truncated to the limit. Each returned record has its
// access count incremented and last-access time refreshed: a read is an
// observable mutation.
func (s *Store) Query(f Filter) ([]Record, error) {
	if s == nil || s.records == nil {
		return nil, ErrNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.filterLocked(f)
	if len(matched) == 0 {
		return nil, nil
	}

	sortByRelevance(matched)

	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	if len(matched) > limit {
		matched = matched[:limit]
	}

	now := s.clk.Now()
	out := make([]Record, 0, len(matched))
	for _, rec := range matched {
		rec.AccessCount++
		rec.LastAccessedAt = now
		out = append(out, copyRecord(rec))
	}
	return out, nil
}

// filterLocked narrows the candidate set by each present predicate,
// short-circuiting as soon as it goes empty.
func (s *Store) filterLocked(f Filter) []*Record {
	candidates := make([]*Record, 0, len(s.records))
	for _, rec := range s.records {
		candidates = append(candidates, rec)
	}

	if f.Kind != nil {
		candidates = keep(candidates, func(r *Record) bool { return r.Kind == *f.Kind })
		if len(candidates) == 0 {
			return nil
		}
	}
	if len(f.Tags) > 0 {
		candidates = keep(candidates, func(r *Record) bool { return hasAnyTag(r.Tags, f.Tags) })
		if len(candidates) == 0 {
			return nil
		}
	}
	if f.From != nil {
		candidates = keep(candidates, func(r *Record) bool { return !r.CreatedAt.Before(*f.From) })
		if len(candidates) == 0 {
			return nil
		}
	}
	if f.To != nil {
		candidates = keep(candidates, func(r *Record) bool { return !r.CreatedAt.After(*f.To) })
		if len(candidates) == 0 {
			return nil
		}
	}
	if f.MinImportance != nil {
		candidates = keep(candidates, func(r *Record) bool { return r.Importance >= *f.MinImportance })
	}
	return candidates
}

// sortByRelevance orders by importance descending with a 0.1 tie band,
// then recency descending with a 60s tie band, then access count.
func sortByRelevance(recs []*Record) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if math.Abs(a.Importance-b.Importance) >= importanceBand {
			return a.Importance > b.Importance
		}
		dt := a.CreatedAt.Sub(b.CreatedAt)
		if dt > recencyBand || dt < -recencyBand {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.AccessCount > b.AccessCount
	})
}

// FindSimilar ranks records of the given kind by per-field similarity
// against the sample. Fields present in only one side are ignored; a
// record with no overlapping fields scores nothing and is dropped.
func (s *Store) FindSimilar(sample map[string]any, kind Kind, limit int) ([]ScoredRecord, error) {
	records, err := s.Query(Filter{Kind: &kind})
	if err != nil {
		return nil, err
	}

	scored := make([]ScoredRecord, 0, len(records))
	for _, rec := range records {
		score, overlap := similarity(sample, rec.Payload.Fields())
		if !overlap {
			continue
		}
		scored = append(scored, ScoredRecord{Record: rec, Score: score})
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Score > scored[j].Score })
	if limit > 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored, nil
}

// similarity averages per-field scores over the fields present in both
// maps: equal non-numeric values score 1, numeric pairs score
// 1-|Δ|/max(|a|,|b|).
func similarity(sample, fields map[string]any) (float64, bool) {
	total, n := 0.0, 0
	for key, want := range sample {
		have, ok := fields[key]
		if !ok {
			continue
		}
		n++
		wf, wNum := numericValue(want)
		hf, hNum := numericValue(have)
		switch {
		case wNum && hNum:
			denom := math.Max(math.Abs(wf), math.Abs(hf))
			if denom == 0 {
				total += 1
			} else {
				total += 1 - math.Abs(wf-hf)/denom
			}
		case want == have:
			total += 1
		}
	}
	if n == 0 {
		return 0, false
	}
	return total / float64(n), true
}

// FindMatchingPattern returns records in the time range whose payload
// satisfies every pattern key: equality for plain values, or the
// predicate when the value is a func(any) bool. A record lacking a
// required key is excluded.
func (s *Store) FindMatchingPattern(pattern map[string]any, from, to time.Time) ([]Record, error) {
	if s == nil || s.records == nil {
		return nil, ErrNotInitialized
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Record
	for _, rec := range s.records {
		if rec.CreatedAt.Before(from) || rec.CreatedAt.After(to) {
			continue
		}
		if matchesPattern(pattern, rec.Payload.Fields()) {
			out = append(out, copyRecord(rec))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func matchesPattern(pattern, fields map[string]any) bool {
	for key, want := range pattern {
		have, ok := fields[key]
		if !ok {
			return false
		}
		if pred, isPred := want.(func(any) bool); isPred {
			if !pred(have) {
				return false
			}
			continue
		}
		wf, wNum := numericValue(want)
		hf, hNum := numericValue(have)
		if wNum && hNum {
			if wf != hf {
				return false
			}
			continue
		}
		if want != have {
			return false
		}
	}
	return true
}

// Stats reports totals without counting as an access.
func (s *Store) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{
		TotalRecords:  len(s.records),
		CountsByKind:  make(map[Kind]int),
		CountsByTag:   make(map[string]int),
		LastUpdatedAt: s.lastUpdated,
	}
	for _, rec := range s.records {
		st.CountsByKind[rec.Kind]++
		for _, tag := range rec.Tags {
			st.CountsByTag[tag]++
		}
	}
	return st
}

// Cleanup deletes records that are both older than the retention
// horizon and below 0.5 importance. Newer or important records are kept
// indefinitely. Returns the number removed.
func (s *Store) Cleanup(retentionDays int) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.clk.Now().AddDate(0, 0, -retentionDays)
	removed := 0
	for id, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) && rec.Importance < 0.5 {
			delete(s.records, id)
			removed++
		}
	}
	if removed > 0 {
		s.lastUpdated = s.clk.Now()
		s.log.Info("recall cleanup", "removed", removed, "retention_days", retentionDays)
	}
	return removed
}

func keep(recs []*Record, pred func(*Record) bool) []*Record {
	out := recs[:0]
	for _, r := range recs {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}

func hasAnyTag(tags, want []string) bool {
	for _, w := range want {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}

func copyRecord(r *Record) Record {
	out := *r
	out.Tags = append([]string(nil), r.Tags...)
	return out
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// numericValue reports a field as float64 if it is any numeric type,
// so snapshot round-trips (which decode numbers as float64) compare
// equal to in-memory ints.
func numericValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// recordEnvelope is the snapshot wire form of a record; the payload is
// kept raw until the kind is known.
type recordEnvelope struct {
	ID             string          `json:"id"`
	CreatedAt      time.Time       `json:"created_at"`
	Kind           Kind            `json:"kind"`
	Payload        json.RawMessage `json:"payload"`
	Tags           []string        `json:"tags"`
	Importance     float64         `json:"importance"`
	AccessCount    int             `json:"access_count"`
	LastAccessedAt time.Time       `json:"last_accessed_at"`
}

type snapshotFile struct {
	SavedAt time.Time        `json:"saved_at"`
	Records []recordEnvelope `json:"records"`
}

// SaveSnapshot serializes the whole store through the sink. Best
// effort: callers log failures, nothing rolls back.
func (s *Store) SaveSnapshot() error {
	if s == nil || s.sink == nil {
		return nil
	}
	s.mu.Lock()
	file := snapshotFile{SavedAt: s.clk.Now(), Records: make([]recordEnvelope, 0, len(s.records))}
	for _, rec := range s.records {
		raw, err := json.Marshal(rec.Payload)
		if err != nil {
			s.mu.Unlock()
			return fmt.Errorf("marshal payload for %s: %w", rec.ID, err)
		}
		file.Records = append(file.Records, recordEnvelope{
			ID:             rec.ID,
			CreatedAt:      rec.CreatedAt,
			Kind:           rec.Kind,
			Payload:        raw,
			Tags:           rec.Tags,
			Importance:     rec.Importance,
			AccessCount:    rec.AccessCount,
			LastAccessedAt: rec.LastAccessedAt,
		})
	}
	s.mu.Unlock()

	data, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.sink.WriteSnapshot(data)
}

// Restore replaces in-memory state from the sink's snapshot. Called
// once at startup; a missing or unreadable snapshot leaves the store
// empty and is logged, never fatal.
func (s *Store) Restore() {
	if s == nil || s.sink == nil {
		return
	}
	data, err := s.sink.ReadSnapshot()
	if err != nil {
		s.log.Warn("recall restore skipped", "error", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var file snapshotFile
	if err := json.Unmarshal(data, &file); err != nil {
		s.log.Warn("recall snapshot unreadable, starting empty", "error", err)
		return
	}

	records := make(map[string]*Record, len(file.Records))
	for _, env := range file.Records {
		payload, err := decodePayload(env.Kind, env.Payload)
		if err != nil {
			s.log.Warn("recall record skipped on restore", "id", env.ID, "error", err)
			continue
		}
		records[env.ID] = &Record{
			ID:             env.ID,
			CreatedAt:      env.CreatedAt,
			Kind:           env.Kind,
			Payload:        payload,
			Tags:           env.Tags,
			Importance:     env.Importance,
			AccessCount:    env.AccessCount,
			LastAccessedAt: env.LastAccessedAt,
		}
	}

	s.mu.Lock()
	s.records = records
	s.lastUpdated = file.SavedAt
	s.mu.Unlock()
	s.log.Info("recall store restored", "records", len(records))
}
