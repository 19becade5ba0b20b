package forecast

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Store 섹터 모델 저장소 (메모리)
// 항목은 통째로 교체되므로 읽는 쪽은 잠금 없이 모델을 사용할 수 있다
type Store struct {
	mu     sync.RWMutex
	models map[string]*SectorModel
}

// NewStore 생성
func NewStore() *Store {
	return &Store{models: make(map[string]*SectorModel)}
}

// Get 섹터 모델 조회 (없으면 nil)
func (s *Store) Get(sector string) *SectorModel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.models[sector]
}

// Put 섹터 모델 교체
func (s *Store) Put(m *SectorModel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.Sector] = m
}

// Sectors 학습된 섹터 목록 (정렬)
func (s *Store) Sectors() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.models))
	for name := range s.models {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Save 섹터 모델을 아티팩트로 저장
func (s *Store) Save(ctx context.Context, sector string, as ArtifactStore) error {
	m := s.Get(sector)
	if m == nil {
		return fmt.Errorf("save sector %s: no model in store", sector)
	}
	a, err := NewArtifact(m)
	if err != nil {
		return fmt.Errorf("save sector %s: %w", sector, err)
	}
	if err := as.SaveArtifact(ctx, a); err != nil {
		return fmt.Errorf("save sector %s: %w", sector, err)
	}
	return nil
}

// Load 아티팩트에서 섹터 모델 복원 후 교체
func (s *Store) Load(ctx context.Context, sector string, as ArtifactStore) error {
	a, err := as.LoadArtifact(ctx, sector)
	if err != nil {
		return fmt.Errorf("load sector %s: %w", sector, err)
	}
	m, err := a.SectorModel()
	if err != nil {
		return fmt.Errorf("load sector %s: %w", sector, err)
	}
	s.Put(m)
	return nil
}

// LoadAll 여러 섹터 복원, 실패한 섹터 이름과 에러 반환
func (s *Store) LoadAll(ctx context.Context, sectors []string, as ArtifactStore) map[string]error {
	failed := make(map[string]error)
	for _, sector := range sectors {
		if err := s.Load(ctx, sector, as); err != nil {
			failed[sector] = err
		}
	}
	return failed
}
