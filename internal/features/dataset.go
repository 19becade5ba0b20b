package features

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/wonny/sectorcast/internal/contracts"
)

// Dataset 수집기가 만든 섹터 데이터셋
type Dataset struct {
	Sectors   map[string]contracts.SectorSeries `json:"sectors"`
	Sentiment []contracts.SentimentAggregate    `json:"sentiment"`
}

// SectorNames 섹터 이름 (정렬)
func (d *Dataset) SectorNames() []string {
	names := make([]string, 0, len(d.Sectors))
	for name := range d.Sectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadDataset JSON 파일 로드
func LoadDataset(path string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	return DecodeDataset(f)
}

// Opener URL 데이터셋 본문을 연다 (httputil.Client)
type Opener interface {
	Open(ctx context.Context, url string) (io.ReadCloser, error)
}

// LoadDatasetFrom src가 http(s) URL이면 opener로, 아니면 파일에서 로드
func LoadDatasetFrom(ctx context.Context, src string, opener Opener) (*Dataset, error) {
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return LoadDataset(src)
	}
	if opener == nil {
		return nil, fmt.Errorf("no HTTP client for dataset %s", src)
	}
	body, err := opener.Open(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch dataset: %w", err)
	}
	defer body.Close()

	return DecodeDataset(body)
}

// DecodeDataset 스트림에서 디코드 후 Normalize
func DecodeDataset(r io.Reader) (*Dataset, error) {
	var d Dataset
	if err := json.NewDecoder(r).Decode(&d); err != nil {
		return nil, fmt.Errorf("decode dataset: %w", err)
	}
	if err := d.Normalize(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Normalize 섹터 존재 확인, 종목 시계열 날짜순 정렬
func (d *Dataset) Normalize() error {
	if len(d.Sectors) == 0 {
		return fmt.Errorf("dataset has no sectors")
	}
	for _, series := range d.Sectors {
		for id, bars := range series {
			sort.SliceStable(bars, func(i, j int) bool { return bars[i].Date.Before(bars[j].Date) })
			series[id] = bars
		}
	}
	return nil
}
