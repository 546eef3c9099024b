package config

import "sync"

// Live holds the record currently governing the device. It is only ever
// replaced as a whole; readers get copies.
type Live struct {
	mu     sync.RWMutex
	record Record
}

func NewLive(r Record) *Live {
	return &Live{record: r}
}

// Snapshot returns a copy of the live record.
func (l *Live) Snapshot() Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.record
}

// Replace swaps in a new live record.
func (l *Live) Replace(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.record = r
}

var instance *Live
var once sync.Once

// Init creates the process-wide live record from the compile-time defaults.
// Later calls are no-ops.
func Init(defaults Record) *Live {
	once.Do(func() {
		instance = NewLive(defaults)
	})
	return instance
}

// Get returns the process-wide live record
func Get() *Live {
	if instance == nil {
		panic("config not initialized - call Init() first")
	}
	return instance
}
