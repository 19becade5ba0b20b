package backtest

import (
	"hash/fnv"
	"sync"
	"time"
)

const lockShards = 64

// keyLocks (date, sector) 키 샤딩 잠금
type keyLocks struct {
	shards [lockShards]sync.Mutex
}

func (l *keyLocks) lock(date time.Time, sector string) func() {
	h := fnv.New32a()
	h.Write([]byte(date.Format("20060102")))
	h.Write([]byte{0})
	h.Write([]byte(sector))

	m := &l.shards[h.Sum32()%lockShards]
	m.Lock()
	return m.Unlock
}
