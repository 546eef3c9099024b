package reconfig

import (
	"errors"
	"fmt"
	"testing"

	"sense-firmware/pkg/config"
	"sense-firmware/pkg/storage"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testTag = config.ExpectedTag(config.Version{Major: 1, Minor: 2})

type fakeDriver struct {
	max   config.FrameSize
	calls []string
	fail  map[string]error
}

func (d *fakeDriver) MaxFrameSize() config.FrameSize { return d.max }

func (d *fakeDriver) SetPixelFormat(p config.PixelFormat) error {
	return d.record("set_pixel_format", p.String())
}

func (d *fakeDriver) SetFrameSize(f config.FrameSize) error {
	return d.record("set_frame_size", f.String())
}

func (d *fakeDriver) SetQuality(q uint8) error {
	return d.record("set_quality", fmt.Sprint(q))
}

func (d *fakeDriver) record(op, arg string) error {
	d.calls = append(d.calls, op+"("+arg+")")
	return d.fail[op]
}

type fakeStore struct {
	committed []config.Record
	err       error
}

func (s *fakeStore) Commit(r config.Record) error {
	if s.err != nil {
		return s.err
	}
	s.committed = append(s.committed, r)
	return nil
}

func setup(t *testing.T) (*Applier, *config.Live, *fakeDriver, *fakeStore) {
	t.Helper()
	live := config.NewLive(config.Default(testTag, false))
	driver := &fakeDriver{max: config.FrameUXGA}
	store := &fakeStore{}
	log, _ := test.NewNullLogger()
	return New(live, driver, store, log, nil), live, driver, store
}

func TestApplyFrameSizeAndQuality(t *testing.T) {
	a, live, driver, store := setup(t)
	before := live.Snapshot()
	require.Equal(t, config.PixelJPEG, before.Capture.PixelFormat)
	require.Equal(t, config.FrameSVGA, before.Capture.FrameSize)
	require.Equal(t, uint8(12), before.Capture.JPEGQuality)

	candidate := before
	candidate.Capture.FrameSize = config.FrameVGA
	candidate.Capture.JPEGQuality = 10

	got, err := a.Apply(candidate)
	require.NoError(t, err)
	assert.Equal(t, candidate, got)

	assert.Equal(t, []string{"set_frame_size(VGA)", "set_quality(10)"}, driver.calls)

	after := live.Snapshot()
	assert.Equal(t, config.PixelJPEG, after.Capture.PixelFormat)
	assert.Equal(t, config.FrameVGA, after.Capture.FrameSize)
	assert.Equal(t, uint8(10), after.Capture.JPEGQuality)
	assert.Equal(t, before.Network, after.Network)

	assert.Equal(t, []config.Record{candidate}, store.committed)
}

func TestApplyPushOrder(t *testing.T) {
	a, live, driver, _ := setup(t)

	candidate := live.Snapshot()
	candidate.Capture.JPEGQuality = 5
	candidate.Capture.FrameSize = config.FrameHD
	candidate.Capture.PixelFormat = config.PixelYUV422

	_, err := a.Apply(candidate)
	require.NoError(t, err)
	assert.Equal(t, []string{"set_pixel_format(YUV422)", "set_frame_size(HD)", "set_quality(5)"}, driver.calls)
}

func TestApplyWithoutCaptureChanges(t *testing.T) {
	a, live, driver, store := setup(t)

	candidate := live.Snapshot()
	candidate.Network.Hostname = "attic"
	candidate.Capture.FBCount = 2

	_, err := a.Apply(candidate)
	require.NoError(t, err)
	assert.Empty(t, driver.calls)
	assert.Equal(t, "attic", live.Snapshot().Network.Hostname)
	assert.Len(t, store.committed, 1)
}

func TestApplyRejectsFrameSizeAboveSensor(t *testing.T) {
	a, live, driver, store := setup(t)
	before := live.Snapshot()

	candidate := before
	candidate.Capture.FrameSize = driver.max + 1
	candidate.Capture.PixelFormat = config.PixelGrayscale

	_, err := a.Apply(candidate)
	assert.ErrorIs(t, err, ErrHardwareReject)
	assert.Empty(t, driver.calls, "no field may reach the camera")
	assert.Equal(t, before, live.Snapshot())
	assert.Empty(t, store.committed)
}

func TestApplyAcceptsSensorMaximum(t *testing.T) {
	a, live, _, _ := setup(t)

	candidate := live.Snapshot()
	candidate.Capture.FrameSize = config.FrameUXGA
	_, err := a.Apply(candidate)
	assert.NoError(t, err)
}

func TestApplyRejectsTagMismatch(t *testing.T) {
	a, live, driver, store := setup(t)
	before := live.Snapshot()

	candidate := before
	candidate.Tag++
	candidate.Capture.JPEGQuality = 20

	_, err := a.Apply(candidate)
	assert.ErrorIs(t, err, config.ErrTagMismatch)
	assert.Empty(t, driver.calls)
	assert.Equal(t, before, live.Snapshot())
	assert.Empty(t, store.committed)
}

func TestApplyDriverFailureKeepsLiveRecord(t *testing.T) {
	a, live, driver, store := setup(t)
	driver.fail = map[string]error{"set_quality": errors.New("device busy")}
	before := live.Snapshot()

	candidate := before
	candidate.Capture.FrameSize = config.FrameVGA
	candidate.Capture.JPEGQuality = 10

	_, err := a.Apply(candidate)
	assert.ErrorIs(t, err, ErrHardwareApply)
	// The frame size stays pushed; nothing is rolled back.
	assert.Equal(t, []string{"set_frame_size(VGA)", "set_quality(10)"}, driver.calls)
	assert.Equal(t, before, live.Snapshot())
	assert.Empty(t, store.committed)
}

func TestApplyCommitFailure(t *testing.T) {
	a, live, _, store := setup(t)
	store.err = fmt.Errorf("%w: disk full", storage.ErrCommit)

	candidate := live.Snapshot()
	candidate.Capture.JPEGQuality = 30

	got, err := a.Apply(candidate)
	assert.ErrorIs(t, err, ErrCommit)
	assert.ErrorIs(t, err, storage.ErrCommit)
	assert.NotErrorIs(t, err, ErrHardwareApply)
	assert.Equal(t, candidate, got)
	assert.Equal(t, candidate, live.Snapshot(), "live record stays updated")
}

type published struct {
	record    config.Record
	persisted bool
}

func TestOnApplyHooks(t *testing.T) {
	a, live, driver, store := setup(t)
	var seen []published
	a.OnApply(func(r config.Record, persisted bool) {
		assert.Equal(t, r, live.Snapshot(), "hooks see the live record")
		seen = append(seen, published{r, persisted})
	})

	candidate := live.Snapshot()
	candidate.Capture.JPEGQuality = 40
	_, err := a.Apply(candidate)
	require.NoError(t, err)
	require.Len(t, store.committed, 1)

	bad := candidate
	bad.Capture.FrameSize = driver.max + 1
	_, err = a.Apply(bad)
	require.Error(t, err)

	assert.Equal(t, []published{{candidate, true}}, seen)
}

func TestOnApplyHooksReportCommitFailure(t *testing.T) {
	a, live, _, store := setup(t)
	var seen []published
	a.OnApply(func(r config.Record, persisted bool) {
		seen = append(seen, published{r, persisted})
	})

	store.err = errors.New("disk full")
	candidate := live.Snapshot()
	candidate.Network.Hostname = "shed"
	_, err := a.Apply(candidate)
	require.ErrorIs(t, err, ErrCommit)

	assert.Equal(t, []published{{candidate, false}}, seen)
}

func TestResyncPushesEverything(t *testing.T) {
	a, _, driver, store := setup(t)

	require.NoError(t, a.Resync())
	assert.Equal(t, []string{"set_pixel_format(JPEG)", "set_frame_size(SVGA)", "set_quality(12)"}, driver.calls)
	assert.Empty(t, store.committed)
}

func TestResyncSkipsUnsupportedFrameSize(t *testing.T) {
	a, _, driver, _ := setup(t)
	driver.max = config.FrameVGA
	driver.fail = map[string]error{"set_quality": errors.New("busy")}

	err := a.Resync()
	require.Error(t, err)
	assert.Equal(t, []string{"set_pixel_format(JPEG)", "set_quality(12)"}, driver.calls)
}
