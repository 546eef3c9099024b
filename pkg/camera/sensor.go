package camera

import (
	"strings"

	"sense-firmware/pkg/config"
)

// sensorMax maps a sensor model to the largest frame size it can deliver.
var sensorMax = map[string]config.FrameSize{
	"ov7725":   config.FrameVGA,
	"ov7670":   config.FrameVGA,
	"gc2145":   config.FrameVGA,
	"gc032a":   config.FrameVGA,
	"gc0308":   config.FrameVGA,
	"bf3005":   config.FrameVGA,
	"bf20a6":   config.FrameVGA,
	"sc030iot": config.FrameVGA,
	"sc031gs":  config.FrameVGA,
	"nt99141":  config.FrameHD,
	"sc101iot": config.FrameHD,
	"ov9650":   config.FrameSXGA,
	"ov2640":   config.FrameUXGA,
	"ov3660":   config.FrameQXGA,
	"ov5640":   config.FrameQSXGA,

	// Raspberry Pi camera modules
	"ov5647": config.FrameQSXGA,
	"imx219": config.FrameQSXGA,
	"imx477": config.FrameQSXGA,
	"imx708": config.FrameQSXGA,
}

// MaxFrameSizeFor returns the capability of a sensor model. The model may be a
// bare name ("imx219") or a v4l2 card string that contains one
// ("imx219 10-0010"). Unknown sensors get the smallest common capability.
func MaxFrameSizeFor(model string) config.FrameSize {
	model = strings.ToLower(strings.TrimSpace(model))
	if limit, ok := sensorMax[model]; ok {
		return limit
	}
	for name, limit := range sensorMax {
		if strings.Contains(model, name) {
			return limit
		}
	}
	return config.FrameVGA
}
