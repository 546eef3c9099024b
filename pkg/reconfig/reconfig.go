package reconfig

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"sense-firmware/pkg/camera"
	"sense-firmware/pkg/config"
	"sense-firmware/pkg/metrics"

	"github.com/sirupsen/logrus"
)

var (
	ErrHardwareReject = errors.New("setting not supported by the camera")
	ErrHardwareApply  = errors.New("camera rejected setting")
	ErrCommit         = errors.New("settings applied but not persisted")
)

// Committer persists a whole record.
type Committer interface {
	Commit(config.Record) error
}

// Applier runs the validate, push, replace, persist cycle for incoming
// records. At most one cycle runs at a time.
type Applier struct {
	mu      sync.Mutex
	live    *config.Live
	driver  camera.Driver
	store   Committer
	log     logrus.FieldLogger
	metrics *metrics.Metrics
	onApply []func(config.Record, bool)
}

func New(live *config.Live, driver camera.Driver, store Committer, log logrus.FieldLogger, m *metrics.Metrics) *Applier {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Applier{
		live:    live,
		driver:  driver,
		store:   store,
		log:     log,
		metrics: m,
	}
}

// OnApply registers fn to run with every record that becomes live through
// Apply, once the commit has been attempted. persisted is false when the
// record is live but the commit failed. Register before serving requests.
func (a *Applier) OnApply(fn func(r config.Record, persisted bool)) {
	a.onApply = append(a.onApply, fn)
}

// Apply makes candidate the live record. On ErrHardwareReject, ErrHardwareApply
// and config.ErrTagMismatch the live record and storage are untouched, though
// after ErrHardwareApply fields pushed before the failing one stay on the
// camera. On ErrCommit the record is live but not persisted.
func (a *Applier) Apply(candidate config.Record) (config.Record, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	start := time.Now()
	live := a.live.Snapshot()

	if candidate.Tag != live.Tag {
		a.metrics.ObserveApply("tag_mismatch", time.Since(start))
		return live, fmt.Errorf("%w: got %s, expected %s", config.ErrTagMismatch, candidate.Tag, live.Tag)
	}

	changes := diff(live.Capture, candidate.Capture)

	for _, c := range changes {
		if c.field != fieldFrameSize {
			continue
		}
		if limit := a.driver.MaxFrameSize(); candidate.Capture.FrameSize > limit {
			a.metrics.ObserveApply("rejected", time.Since(start))
			return live, fmt.Errorf("%w: frame size %s exceeds sensor maximum %s",
				ErrHardwareReject, candidate.Capture.FrameSize, limit)
		}
	}

	for _, c := range changes {
		err := c.push(a.driver)
		a.metrics.ObservePush(c.field, err)
		if err != nil {
			a.log.WithError(err).WithField("field", c.field).Error("Camera rejected setting")
			a.metrics.ObserveApply("apply_failed", time.Since(start))
			return live, fmt.Errorf("%w: %s: %v", ErrHardwareApply, c.field, err)
		}
		a.log.WithField("field", c.field).Info("Camera setting applied")
	}

	a.live.Replace(candidate)

	err := a.store.Commit(candidate)
	for _, fn := range a.onApply {
		fn(candidate, err == nil)
	}
	if err != nil {
		a.metrics.ObserveApply("commit_failed", time.Since(start))
		return candidate, fmt.Errorf("%w: %w", ErrCommit, err)
	}

	a.metrics.ObserveApply("accepted", time.Since(start))
	return candidate, nil
}

// Resync pushes the live capture fields to the camera. The persisted record
// is authoritative; the camera's own state is not trusted across a restart.
// A field the sensor cannot deliver is skipped.
func (a *Applier) Resync() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	capture := a.live.Snapshot().Capture
	var errs []error
	for _, c := range all(capture) {
		if c.field == fieldFrameSize && capture.FrameSize > a.driver.MaxFrameSize() {
			a.log.WithField("frame_size", capture.FrameSize.String()).Warn("Stored frame size exceeds sensor maximum, keeping camera default")
			continue
		}
		err := c.push(a.driver)
		a.metrics.ObservePush(c.field, err)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", c.field, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("failed to sync camera: %w", errors.Join(errs...))
	}
	return nil
}
