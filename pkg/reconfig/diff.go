package reconfig

import (
	"sense-firmware/pkg/camera"
	"sense-firmware/pkg/config"
)

const (
	fieldPixelFormat = "pixel_format"
	fieldFrameSize   = "frame_size"
	fieldQuality     = "jpeg_quality"
)

// change is one capture field to push to the camera.
type change struct {
	field string
	push  func(camera.Driver) error
}

// all returns the hardware-affecting fields in push order.
func all(c config.Capture) []change {
	return []change{
		{fieldPixelFormat, func(d camera.Driver) error { return d.SetPixelFormat(c.PixelFormat) }},
		{fieldFrameSize, func(d camera.Driver) error { return d.SetFrameSize(c.FrameSize) }},
		{fieldQuality, func(d camera.Driver) error { return d.SetQuality(c.JPEGQuality) }},
	}
}

// diff returns the fields of next that differ from prev, in push order.
func diff(prev, next config.Capture) []change {
	changed := map[string]bool{
		fieldPixelFormat: prev.PixelFormat != next.PixelFormat,
		fieldFrameSize:   prev.FrameSize != next.FrameSize,
		fieldQuality:     prev.JPEGQuality != next.JPEGQuality,
	}

	var out []change
	for _, c := range all(next) {
		if changed[c.field] {
			out = append(out, c)
		}
	}
	return out
}
