package realtime

import (
	"github.com/wonny/sectorcast/internal/contracts"
)

// 메시지 종류
const (
	MessageBar       = "bar"
	MessageSubscribe = "subscribe"
)

// BarMessage 피드가 보내는 봉 업데이트
// ⭐ SSOT: 실시간 피드 메시지 구조
type BarMessage struct {
	Type       string        `json:"type"`
	Sector     string        `json:"sector"`
	Instrument string        `json:"instrument"`
	Bar        contracts.Bar `json:"bar"`
}

// SubscribeMessage 연결 직후 보내는 구독 요청
type SubscribeMessage struct {
	Type    string   `json:"type"`
	Sectors []string `json:"sectors"`
}

// Valid 필수 필드 확인
func (m BarMessage) Valid() bool {
	return m.Type == MessageBar && m.Sector != "" && m.Instrument != "" && !m.Bar.Date.IsZero()
}
