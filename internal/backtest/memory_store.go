package backtest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wonny/sectorcast/internal/contracts"
)

type recordKey struct {
	date   time.Time
	sector string
}

// MemoryStore 메모리 저장소 (테스트, --store memory)
// 날짜 인자는 DATE 컬럼처럼 UTC 자정으로 정규화
type MemoryStore struct {
	mu          sync.RWMutex
	predictions map[recordKey]contracts.PredictionRecord
	performance map[recordKey]contracts.SectorPerformanceRecord
	accuracy    []contracts.AccuracyStats
	nextID      int64
	now         func() time.Time
}

// NewMemoryStore 생성
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		predictions: make(map[recordKey]contracts.PredictionRecord),
		performance: make(map[recordKey]contracts.SectorPerformanceRecord),
		now:         time.Now,
	}
}

func (s *MemoryStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *MemoryStore) GetPrediction(_ context.Context, date time.Time, sector string) (*contracts.PredictionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.predictions[recordKey{contracts.NormalizeDate(date), sector}]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}

func (s *MemoryStore) UpsertPrediction(_ context.Context, rec *contracts.PredictionRecord) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.Date = contracts.NormalizeDate(rec.Date)
	key := recordKey{rec.Date, rec.Sector}
	existing, replaced := s.predictions[key]
	if replaced && existing.Status() == contracts.StatusResolved {
		return false, fmt.Errorf("%s %s: %w", rec.Sector, rec.Date.Format(contracts.DateLayout), contracts.ErrAlreadyResolved)
	}

	stored := *rec
	stored.ActualChange, stored.IsCorrect = nil, nil
	stored.ID = existing.ID
	if !replaced {
		stored.ID = s.id()
	}
	stored.CreatedAt = s.now()
	s.predictions[key] = stored

	rec.ID, rec.CreatedAt = stored.ID, stored.CreatedAt
	return replaced, nil
}

func (s *MemoryStore) SaveResolution(_ context.Context, pred *contracts.PredictionRecord, perf contracts.SectorPerformanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if pred != nil {
		pred.Date = contracts.NormalizeDate(pred.Date)
		key := recordKey{pred.Date, pred.Sector}
		if _, ok := s.predictions[key]; !ok {
			return fmt.Errorf("resolve %s: prediction disappeared", pred.Sector)
		}
		s.predictions[key] = *pred
	}
	perf.Date = contracts.NormalizeDate(perf.Date)
	s.performance[recordKey{perf.Date, perf.Sector}] = perf
	return nil
}

func (s *MemoryStore) ListPredictions(_ context.Context, date time.Time) ([]contracts.PredictionRecord, error) {
	date = contracts.NormalizeDate(date)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.PredictionRecord
	for k, p := range s.predictions {
		if k.date.Equal(date) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out, nil
}

func (s *MemoryStore) ListSectorPerformance(_ context.Context, date time.Time) ([]contracts.SectorPerformanceRecord, error) {
	date = contracts.NormalizeDate(date)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.SectorPerformanceRecord
	for k, p := range s.performance {
		if k.date.Equal(date) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sector < out[j].Sector })
	return out, nil
}

func (s *MemoryStore) InsertAccuracyStats(_ context.Context, stats *contracts.AccuracyStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats.Date = contracts.NormalizeDate(stats.Date)
	stats.ID = s.id()
	stats.CreatedAt = s.now()
	s.accuracy = append(s.accuracy, *stats)
	return nil
}

func (s *MemoryStore) ListAccuracyStats(_ context.Context, from, to time.Time) ([]contracts.AccuracyStats, error) {
	from, to = contracts.NormalizeDate(from), contracts.NormalizeDate(to)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.AccuracyStats
	for _, a := range s.accuracy {
		if !a.Date.Before(from) && !a.Date.After(to) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) ListResolvedPredictions(_ context.Context, sector string, from, to time.Time) ([]contracts.PredictionRecord, error) {
	from, to = contracts.NormalizeDate(from), contracts.NormalizeDate(to)
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []contracts.PredictionRecord
	for _, p := range s.predictions {
		if p.Status() != contracts.StatusResolved {
			continue
		}
		if sector != "" && p.Sector != sector {
			continue
		}
		if p.Date.Before(from) || p.Date.After(to) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].Sector < out[j].Sector
	})
	return out, nil
}
