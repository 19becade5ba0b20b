package realtime

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/wonny/sectorcast/internal/contracts"
)

// SnapshotFunc 섹터 시계열이 바뀔 때마다 호출 (복사본 전달)
type SnapshotFunc func(ctx context.Context, sector string, series contracts.SectorSeries)

// Monitor 피드 메시지를 종목별 시계열로 누적
// ⭐ SSOT: 상태는 Run 고루틴만 소유 (공유 폴링 없음)
type Monitor struct {
	window     int
	onSnapshot SnapshotFunc
	series     map[string]contracts.SectorSeries
	log        zerolog.Logger
}

// NewMonitor window: 종목당 보관할 최대 봉 수
func NewMonitor(window int, onSnapshot SnapshotFunc, log zerolog.Logger) *Monitor {
	if window < 2 {
		window = 2
	}
	return &Monitor{
		window:     window,
		onSnapshot: onSnapshot,
		series:     make(map[string]contracts.SectorSeries),
		log:        log.With().Str("component", "realtime.monitor").Logger(),
	}
}

// Seed 과거 데이터로 초기 시계열 설정
func (m *Monitor) Seed(sector string, series contracts.SectorSeries) {
	s := make(contracts.SectorSeries, len(series))
	for id, bars := range series {
		s[id] = m.trim(append([]contracts.Bar(nil), bars...))
	}
	m.series[sector] = s
}

// Run 채널이 닫히거나 ctx가 취소될 때까지 소비
func (m *Monitor) Run(ctx context.Context, in <-chan BarMessage) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-in:
			if !ok {
				return nil
			}
			m.apply(msg)
			if m.onSnapshot != nil {
				m.onSnapshot(ctx, msg.Sector, m.Snapshot(msg.Sector))
			}
		}
	}
}

// apply 같은 날짜 봉은 교체, 새 날짜는 추가 (날짜순 유지)
func (m *Monitor) apply(msg BarMessage) {
	s, ok := m.series[msg.Sector]
	if !ok {
		s = make(contracts.SectorSeries)
		m.series[msg.Sector] = s
	}
	bars := s[msg.Instrument]
	day := contracts.NormalizeDate(msg.Bar.Date)

	i := sort.Search(len(bars), func(i int) bool {
		return !contracts.NormalizeDate(bars[i].Date).Before(day)
	})
	switch {
	case i < len(bars) && contracts.NormalizeDate(bars[i].Date).Equal(day):
		bars[i] = msg.Bar
	case i == len(bars):
		bars = append(bars, msg.Bar)
	default:
		bars = append(bars, contracts.Bar{})
		copy(bars[i+1:], bars[i:])
		bars[i] = msg.Bar
	}
	s[msg.Instrument] = m.trim(bars)

	m.log.Debug().
		Str("sector", msg.Sector).
		Str("instrument", msg.Instrument).
		Int("bars", len(s[msg.Instrument])).
		Msg("bar applied")
}

func (m *Monitor) trim(bars []contracts.Bar) []contracts.Bar {
	if len(bars) > m.window {
		return append([]contracts.Bar(nil), bars[len(bars)-m.window:]...)
	}
	return bars
}

// Snapshot 섹터 시계열 복사본
func (m *Monitor) Snapshot(sector string) contracts.SectorSeries {
	s := m.series[sector]
	out := make(contracts.SectorSeries, len(s))
	for id, bars := range s {
		out[id] = append([]contracts.Bar(nil), bars...)
	}
	return out
}
