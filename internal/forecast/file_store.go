package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileArtifactStore 섹터당 JSON 파일 하나
type FileArtifactStore struct {
	dir string
}

// NewFileArtifactStore 디렉토리 기반 저장소
func NewFileArtifactStore(dir string) *FileArtifactStore {
	return &FileArtifactStore{dir: dir}
}

func (s *FileArtifactStore) path(sector string) string {
	name := strings.NewReplacer("/", "_", "\\", "_", " ", "_").Replace(sector)
	return filepath.Join(s.dir, name+"_model.json")
}

// SaveArtifact 임시 파일에 쓴 뒤 rename
func (s *FileArtifactStore) SaveArtifact(ctx context.Context, a *Artifact) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}

	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("encode artifact: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".artifact-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close artifact: %w", err)
	}
	return os.Rename(tmp.Name(), s.path(a.Sector))
}

// LoadArtifact 섹터 아티팩트 읽기
func (s *FileArtifactStore) LoadArtifact(ctx context.Context, sector string) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(sector))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("sector %s: %w", sector, ErrArtifactNotFound)
	}
	if err != nil {
		return nil, err
	}

	var a Artifact
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &a, nil
}
