package logger

import (
	"fmt"
	"os"
	"sync"
	"time"

	"sense-firmware/pkg/globals"

	"github.com/sirupsen/logrus"
)

type Entry struct {
	Time   string         `json:"time"`
	Level  string         `json:"level"`
	Msg    string         `json:"msg"`
	Fields map[string]any `json:"fields,omitempty"`
}

// ring keeps the most recent entries for the /logs endpoint.
type ring struct {
	mu   sync.Mutex
	size int
	logs []Entry
}

func newRing(size int) *ring {
	return &ring{size: size, logs: []Entry{}}
}

func (r *ring) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (r *ring) Fire(e *logrus.Entry) error {
	entry := Entry{
		Time:  e.Time.Format(time.TimeOnly),
		Level: e.Level.String(),
		Msg:   e.Message,
	}
	if len(e.Data) > 0 {
		entry.Fields = make(map[string]any, len(e.Data))
		for k, v := range e.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			entry.Fields[k] = v
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, entry)
	if len(r.logs) > r.size {
		r.logs = r.logs[len(r.logs)-r.size:]
	}
	return nil
}

func (r *ring) entries() []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry{}, r.logs...)
}

var hook *ring

// Init configures the process logger. level is a logrus level name.
func Init(level string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	hook = newRing(globals.MaxLogs)

	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(lvl)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	log.AddHook(hook)
	return log, nil
}

// GetLogs returns a copy of the recent log entries, oldest first.
func GetLogs() []Entry {
	if hook == nil {
		return []Entry{}
	}
	return hook.entries()
}
