// Package suggestions ranks tools by historical demand per subject. The
// trained model is an explicit versioned snapshot swapped atomically, so
// queries in flight keep reading a consistent ranking while a retrain builds
// the next one.
package suggestions

import (
	"context"
	"database/sql"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	pdb "panol-backend/internal/platform/db"
)

type Clock interface{ Now() time.Time }
type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

type Service struct {
	db      *sql.DB
	store   *Store
	dataDir string
	clock   Clock

	current atomic.Pointer[Snapshot]
	version atomic.Int64
	group   singleflight.Group
}

func NewService(db *sql.DB, dataDir string) *Service {
	return &Service{
		db:      db,
		store:   NewStore(db),
		dataDir: dataDir,
		clock:   realClock{},
	}
}

// Retrain rebuilds the ranking from history and publishes it as a new
// snapshot. Concurrent callers share one rebuild.
func (s *Service) Retrain(ctx context.Context) (*Snapshot, error) {
	v, err, _ := s.group.Do("retrain", func() (any, error) {
		return s.train(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Snapshot), nil
}

func (s *Service) train(ctx context.Context) (*Snapshot, error) {
	// both reads in one read-only tx so the ranking is built from a single
	// consistent view of history
	var rows []usageRow
	var subjects map[int64]string
	err := pdb.ReadOnly(ctx, s.db, func(ctx context.Context, tx pdb.DBTX) error {
		var err error
		if rows, err = s.store.UsageHistory(ctx, tx); err != nil {
			return err
		}
		subjects, err = s.store.SubjectNames(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	w := loadWeights(s.dataDir)

	bySubject := make(map[int64]map[string]*Suggestion)
	global := make(map[string]*Suggestion)
	for _, r := range rows {
		subjectName := ""
		if r.SubjectID.Valid {
			subjectName = subjects[r.SubjectID.Int64]
		}
		score := float64(r.Quantity) * w.factor(r.ToolCode, subjectName)

		accumulate(global, r.ToolCode, r.ToolName, score)
		if r.SubjectID.Valid {
			m := bySubject[r.SubjectID.Int64]
			if m == nil {
				m = make(map[string]*Suggestion)
				bySubject[r.SubjectID.Int64] = m
			}
			accumulate(m, r.ToolCode, r.ToolName, score)
		}
	}

	snap := &Snapshot{
		Version:   s.version.Add(1),
		TrainedAt: s.clock.Now(),
		BySubject: make(map[int64][]Suggestion, len(bySubject)),
		Global:    ranked(global),
	}
	for id, m := range bySubject {
		snap.BySubject[id] = ranked(m)
	}
	s.current.Store(snap)
	log.Info().Int64("version", snap.Version).Int("subjects", len(snap.BySubject)).Msg("suggestion ranking retrained")
	return snap, nil
}

// Suggest returns the topN ranked tools for a subject, falling back to the
// global ranking when the subject has no history of its own. The first call
// trains lazily.
func (s *Service) Suggest(ctx context.Context, subjectID int64, topN int) ([]Suggestion, int64, error) {
	snap := s.current.Load()
	if snap == nil {
		var err error
		snap, err = s.Retrain(ctx)
		if err != nil {
			return nil, 0, err
		}
	}
	if topN <= 0 {
		topN = 10
	}
	list := snap.BySubject[subjectID]
	if len(list) == 0 {
		list = snap.Global
	}
	if len(list) > topN {
		list = list[:topN]
	}
	return list, snap.Version, nil
}

// ===== helpers =====

func accumulate(m map[string]*Suggestion, code, name string, score float64) {
	if sg, ok := m[code]; ok {
		sg.Score += score
		return
	}
	m[code] = &Suggestion{ToolCode: code, ToolName: name, Score: score}
}

func ranked(m map[string]*Suggestion) []Suggestion {
	out := make([]Suggestion, 0, len(m))
	for _, sg := range m {
		out = append(out, *sg)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ToolCode < out[j].ToolCode
	})
	return out
}
