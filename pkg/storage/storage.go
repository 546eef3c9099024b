package storage

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"sense-firmware/pkg/config"

	"github.com/sirupsen/logrus"
)

var (
	ErrCreate = errors.New("failed to create settings file")
	ErrRead   = errors.New("failed to read settings file")
	ErrCommit = errors.New("failed to persist settings")
)

// State is a node of the load state machine.
type State int

const (
	StateNoFile State = iota
	StateCreated
	StateCreateFailed
	StateFileExists
	StateReadFailed
	StateParsed
	StateParseFailed
	StateAccepted
	StateTagMismatch
	StateReset
)

var stateNames = []string{
	"no_file", "created", "create_failed", "file_exists", "read_failed",
	"parsed", "parse_failed", "accepted", "tag_mismatch", "reset",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Outcome is where a load (or a reset) ended. When Restart is set the caller
// must restart the device; Record is then the factory default and must not be
// persisted by anyone else.
type Outcome struct {
	State   State
	Record  config.Record
	Restart bool
	Err     error
}

type Options struct {
	Path      string
	FS        FS // nil means the OS filesystem
	Codec     *config.Codec
	Indicator Indicator // nil means no fault signal
	Log       logrus.FieldLogger
}

// Storage owns the persisted settings file. No other component opens it.
type Storage struct {
	mu        sync.Mutex
	path      string
	fs        FS
	codec     *config.Codec
	indicator Indicator
	log       logrus.FieldLogger
}

func New(opts Options) *Storage {
	s := &Storage{
		path:      opts.Path,
		fs:        opts.FS,
		codec:     opts.Codec,
		indicator: opts.Indicator,
		log:       opts.Log,
	}
	if s.fs == nil {
		s.fs = OSFS{}
	}
	if s.indicator == nil {
		s.indicator = IndicatorFunc(func(Fault) {})
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.log = s.log.WithField("path", s.path)
	return s
}

func (s *Storage) Path() string {
	return s.path
}

// Load brings the persisted record up: it creates the file from defaults when
// there is none, and otherwise reads, decodes and tag-checks it. Any failure
// signals a fault, removes the file and asks for a restart so the next boot
// starts over from defaults.
func (s *Storage) Load() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.fs.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		s.log.WithField("state", StateNoFile.String()).Debug("No settings file")
		return s.create()
	} else if err != nil {
		return s.discard(StateReadFailed, FaultRead, fmt.Errorf("%w: %v", ErrRead, err))
	}
	s.log.WithField("state", StateFileExists.String()).Debug("Reading settings file")

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return s.discard(StateReadFailed, FaultRead, fmt.Errorf("%w: %v", ErrRead, err))
	}

	record, err := s.codec.Decode(data)
	if err != nil {
		return s.discard(StateParseFailed, FaultParse, err)
	}
	s.log.WithField("state", StateParsed.String()).Debug("Settings file parsed")

	expected := s.codec.Defaults().Tag
	if record.Tag != expected {
		return s.discard(StateTagMismatch, FaultTag,
			fmt.Errorf("%w: stored %s, firmware expects %s", config.ErrTagMismatch, record.Tag, expected))
	}

	s.log.WithField("tag", record.Tag.String()).Info("Settings loaded")
	return Outcome{State: StateAccepted, Record: record}
}

// Commit writes the whole record as one document in a single write call.
func (s *Storage) Commit(r config.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.codec.Encode(r)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCommit, err)
	}
	if err := s.write(data); err != nil {
		s.log.WithError(err).Error("Failed to commit settings")
		return fmt.Errorf("%w: %w", ErrCommit, err)
	}

	s.log.Info("Settings committed")
	return nil
}

// FactoryReset deletes the persisted file and asks for a restart, which lands
// the next boot on the create-from-defaults path.
func (s *Storage) FactoryReset() Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.log.Warn("Factory reset requested, removing settings")
	out := Outcome{State: StateReset, Record: s.codec.Defaults(), Restart: true}
	if err := s.remove(); err != nil {
		s.indicator.Signal(FaultRemove)
		out.Err = err
	}
	return out
}

func (s *Storage) create() Outcome {
	defaults := s.codec.Defaults()

	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return s.createFailed(FaultCreate, fmt.Errorf("%w: %v", ErrCreate, err))
	}

	data, err := s.codec.Encode(defaults)
	if err != nil {
		return s.createFailed(FaultCreate, fmt.Errorf("%w: %v", ErrCreate, err))
	}

	if err := s.write(data); err != nil {
		return s.createFailed(FaultWrite, fmt.Errorf("%w: %v", ErrCreate, err))
	}

	s.log.WithField("tag", defaults.Tag.String()).Info("Settings file created from defaults")
	return Outcome{State: StateCreated, Record: defaults}
}

func (s *Storage) createFailed(fault Fault, err error) Outcome {
	s.log.WithError(err).Error("Failed to create settings file")
	s.indicator.Signal(fault)
	if rmErr := s.remove(); rmErr != nil {
		s.log.WithError(rmErr).Error("Failed to remove partial settings file")
		s.indicator.Signal(FaultRemove)
	}
	return Outcome{State: StateCreateFailed, Record: s.codec.Defaults(), Restart: true, Err: err}
}

// discard handles a file that exists but cannot be trusted.
func (s *Storage) discard(state State, fault Fault, err error) Outcome {
	s.log.WithError(err).WithField("state", state.String()).Error("Discarding settings file")
	s.indicator.Signal(fault)
	if rmErr := s.remove(); rmErr != nil {
		s.log.WithError(rmErr).Error("Failed to remove settings file")
		s.indicator.Signal(FaultRemove)
	}
	return Outcome{State: state, Record: s.codec.Defaults(), Restart: true, Err: err}
}

// write replaces the settings file with data. The document goes to a
// temporary file in one write call and is renamed over the old one once it is
// on disk, so a failed write leaves the previous document in place.
func (s *Storage) write(data []byte) error {
	tmp := s.path + ".tmp"
	if err := s.writeFile(tmp, data); err != nil {
		if rmErr := s.fs.Remove(tmp); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			s.log.WithError(rmErr).Warn("Failed to remove temporary settings file")
		}
		return err
	}
	if err := s.fs.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace settings file: %w", err)
	}
	return nil
}

func (s *Storage) writeFile(name string, data []byte) error {
	f, err := s.fs.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open settings file: %w", err)
	}

	n, err := f.Write(data)
	if err == nil && n != len(data) {
		err = io.ErrShortWrite
	}
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write settings file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("failed to sync settings file: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close settings file: %w", err)
	}
	return nil
}

func (s *Storage) remove() error {
	if err := s.fs.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove settings file: %w", err)
	}
	return nil
}
