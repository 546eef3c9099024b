package camera

import (
	"bufio"
	"bytes"
	"fmt"
	"os/exec"
	"strings"
	"sync"

	"sense-firmware/pkg/config"

	"github.com/sirupsen/logrus"
)

// Driver is the live camera as far as reconfiguration is concerned: one
// capability query and one setter per hardware-affecting capture field.
// Setters are idempotent.
type Driver interface {
	MaxFrameSize() config.FrameSize
	SetPixelFormat(config.PixelFormat) error
	SetFrameSize(config.FrameSize) error
	SetQuality(uint8) error
}

// Runner executes a command and returns its combined output.
type Runner func(name string, args ...string) ([]byte, error)

func execRunner(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).CombinedOutput()
}

var fourCC = map[config.PixelFormat]string{
	config.PixelRGB565:    "RGBP",
	config.PixelYUV422:    "YUYV",
	config.PixelYUV420:    "YU12",
	config.PixelGrayscale: "GREY",
	config.PixelJPEG:      "MJPG",
	config.PixelRGB888:    "RGB3",
	config.PixelRAW:       "BA81",
	config.PixelRGB444:    "R444",
	config.PixelRGB555:    "RGBO",
}

type Options struct {
	Device string
	Sensor string // empty means ask the device
	Run    Runner // nil means exec
	Log    logrus.FieldLogger
}

// V4L2 drives a camera through v4l2-ctl.
type V4L2 struct {
	mu     sync.Mutex
	device string
	sensor string
	max    config.FrameSize
	run    Runner
	log    logrus.FieldLogger
}

func NewV4L2(opts Options) *V4L2 {
	d := &V4L2{
		device: opts.Device,
		sensor: opts.Sensor,
		run:    opts.Run,
		log:    opts.Log,
	}
	if d.run == nil {
		d.run = execRunner
	}
	if d.log == nil {
		d.log = logrus.StandardLogger()
	}
	d.log = d.log.WithField("device", d.device)

	if d.sensor == "" {
		sensor, err := d.detect()
		if err != nil {
			d.log.WithError(err).Warn("Failed to detect camera sensor")
		}
		d.sensor = sensor
	}
	d.max = MaxFrameSizeFor(d.sensor)
	d.log.WithFields(logrus.Fields{"sensor": d.sensor, "max_frame_size": d.max.String()}).Info("Camera ready")

	return d
}

func (d *V4L2) Sensor() string {
	return d.sensor
}

func (d *V4L2) MaxFrameSize() config.FrameSize {
	return d.max
}

func (d *V4L2) SetPixelFormat(p config.PixelFormat) error {
	code, ok := fourCC[p]
	if !ok {
		return fmt.Errorf("unsupported pixel format %d", p)
	}
	return d.ctl("pixel format", "--set-fmt-video=pixelformat="+code)
}

func (d *V4L2) SetFrameSize(f config.FrameSize) error {
	if f > d.max {
		return fmt.Errorf("frame size %s exceeds sensor maximum %s", f, d.max)
	}
	w, h := f.Dimensions()
	if w == 0 {
		return fmt.Errorf("unknown frame size %d", f)
	}
	return d.ctl("frame size", fmt.Sprintf("--set-fmt-video=width=%d,height=%d", w, h))
}

// SetQuality takes the 0-63 scale (lower is better) and maps it onto the
// driver's 1-100 compression quality (higher is better).
func (d *V4L2) SetQuality(q uint8) error {
	if q > 63 {
		return fmt.Errorf("quality %d out of range", q)
	}
	return d.ctl("quality", fmt.Sprintf("--set-ctrl=compression_quality=%d", v4l2Quality(q)))
}

func v4l2Quality(q uint8) int {
	return 100 - int(q)*99/63
}

func (d *V4L2) ctl(what string, arg string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	out, err := d.run("v4l2-ctl", "--device", d.device, arg)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w: %s", what, err, strings.TrimSpace(string(out)))
	}
	d.log.WithField("arg", arg).Debug("Camera updated")
	return nil
}

// detect reads the sensor name from the card type the driver reports.
func (d *V4L2) detect() (string, error) {
	out, err := d.run("v4l2-ctl", "--device", d.device, "--info")
	if err != nil {
		return "", fmt.Errorf("failed to query camera: %w", err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if ok && strings.TrimSpace(key) == "Card type" {
			return strings.TrimSpace(value), nil
		}
	}
	return "", fmt.Errorf("no card type in camera info")
}
