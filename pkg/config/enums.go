package config

// WiFiMode selects which radio roles are active.
type WiFiMode uint8

const (
	WiFiOff WiFiMode = iota
	WiFiStation
	WiFiAccessPoint
	WiFiStationAP
)

var wifiModeNames = []string{"OFF", "STA", "AP", "APSTA"}

func (m WiFiMode) String() string { return enumName(wifiModeNames, m) }

// Security is the minimum authentication mode accepted when joining a network.
type Security uint8

const (
	SecurityOpen Security = iota
	SecurityWEP
	SecurityWPAPSK
	SecurityWPA2PSK
	SecurityWPAWPA2PSK
	SecurityWPA2Enterprise
	SecurityWPA3PSK
	SecurityWPA2WPA3PSK
	SecurityWAPIPSK
	SecurityOWE
	SecurityWPA3Ent192
)

var securityNames = []string{
	"OPEN", "WEP", "WPA_PSK", "WPA2_PSK", "WPA_WPA2_PSK", "WPA2_ENTERPRISE",
	"WPA3_PSK", "WPA2_WPA3_PSK", "WAPI_PSK", "OWE", "WPA3_ENT_192",
}

func (s Security) String() string { return enumName(securityNames, s) }

type PixelFormat uint8

const (
	PixelRGB565 PixelFormat = iota
	PixelYUV422
	PixelYUV420
	PixelGrayscale
	PixelJPEG
	PixelRGB888
	PixelRAW
	PixelRGB444
	PixelRGB555
)

var pixelFormatNames = []string{
	"RGB565", "YUV422", "YUV420", "GRAYSCALE", "JPEG", "RGB888", "RAW", "RGB444", "RGB555",
}

func (p PixelFormat) String() string { return enumName(pixelFormatNames, p) }

// FrameSize values are ordered by index; a larger index is never a smaller
// sensor requirement, which is what the capability check relies on.
type FrameSize uint8

const (
	Frame96x96 FrameSize = iota
	FrameQQVGA
	FrameQCIF
	FrameHQVGA
	Frame240x240
	FrameQVGA
	FrameCIF
	FrameHVGA
	FrameVGA
	FrameSVGA
	FrameXGA
	FrameHD
	FrameSXGA
	FrameUXGA
	// 3MP sensors
	FrameFHD
	FramePHD
	FrameP3MP
	FrameQXGA
	// 5MP sensors
	FrameQHD
	FrameWQXGA
	FramePFHD
	FrameQSXGA
)

var frameSizeNames = []string{
	"96X96", "QQVGA", "QCIF", "HQVGA", "240X240", "QVGA", "CIF", "HVGA", "VGA", "SVGA",
	"XGA", "HD", "SXGA", "UXGA", "FHD", "P_HD", "P_3MP", "QXGA", "QHD", "WQXGA",
	"P_FHD", "QSXGA",
}

var frameDimensions = [][2]int{
	{96, 96}, {160, 120}, {176, 144}, {240, 176}, {240, 240}, {320, 240}, {400, 296},
	{480, 320}, {640, 480}, {800, 600}, {1024, 768}, {1280, 720}, {1280, 1024},
	{1600, 1200}, {1920, 1080}, {720, 1280}, {864, 1536}, {2048, 1536}, {2560, 1440},
	{2560, 1600}, {1080, 1920}, {2560, 1920},
}

func (f FrameSize) String() string { return enumName(frameSizeNames, f) }

// Dimensions returns width and height in pixels, or zeros for an unknown size.
func (f FrameSize) Dimensions() (int, int) {
	if int(f) >= len(frameDimensions) {
		return 0, 0
	}
	d := frameDimensions[f]
	return d[0], d[1]
}

// ParseFrameSize looks a frame size up by name.
func ParseFrameSize(name string) (FrameSize, bool) {
	for i, n := range frameSizeNames {
		if n == name {
			return FrameSize(i), true
		}
	}
	return 0, false
}

// FBLocation is where frame buffers are allocated.
type FBLocation uint8

const (
	FBInPSRAM FBLocation = iota // external memory
	FBInDRAM                    // fast internal memory
)

var fbLocationNames = []string{"IN_PSRAM", "IN_DRAM"}

func (l FBLocation) String() string { return enumName(fbLocationNames, l) }

// GrabMode decides when frame buffers are refilled.
type GrabMode uint8

const (
	GrabWhenEmpty GrabMode = iota
	GrabLatest
)

var grabModeNames = []string{"WHEN_EMPTY", "LATEST"}

func (g GrabMode) String() string { return enumName(grabModeNames, g) }

func enumName[E ~uint8](names []string, v E) string {
	if int(v) < len(names) {
		return names[v]
	}
	return "INVALID"
}
