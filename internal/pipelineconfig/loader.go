package pipelineconfig

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/creasty/defaults"
	"gopkg.in/yaml.v3"

	"github.com/wonny/sectorcast/internal/ml"
)

// Default 기본 설정
func Default() *Config {
	cfg := &Config{}
	cfg.Training.Models = ModelsConfig{
		RandomForest:        ml.DefaultParams(ml.KindRandomForest),
		GradientBoosting:    ml.DefaultParams(ml.KindGradientBoosting),
		RegularizedBoosting: ml.DefaultParams(ml.KindRegularizedBoosting),
		HistogramBoosting:   ml.DefaultParams(ml.KindHistogramBoosting),
	}
	// 모델 파라미터를 먼저 채운 뒤 나머지 zero 필드만 태그 기본값으로
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("pipelineconfig defaults: %v", err))
	}
	return cfg
}

// Load YAML 파일을 읽어 기본값 위에 덮어쓴 뒤 검증
// path가 비어 있으면 기본 설정
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode YAML 스트림 디코딩
// KnownFields(true): 오타/미사용 필드 즉시 실패
func Decode(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Hash 설정 SHA256 (canonical JSON), 모델 산출물 추적용
func Hash(cfg *Config) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:]), nil
}
