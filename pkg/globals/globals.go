package globals

import "time"

// FirmwareVersion is set at build time via -ldflags.
// It must have the form major.minor.patch[.revision]; it feeds the settings compatibility tag.
var FirmwareVersion = "1.2.0.0"

// Writable data directory
var DataDir = "/data"

// Firmware data
var FirmwareDataDir = DataDir + "/.firmware-data"

// Settings record (JSON, comments tolerated)
var SettingsPath = FirmwareDataDir + "/settings.jsonc"

// HTTP configuration endpoint
var ListenAddr = ":80"

// Camera device and sensor model. An empty sensor model means detect via v4l2-ctl.
var VideoDevice = "/dev/video0"
var SensorModel = ""

// GPIO lines for the status LED and the factory reset button (periph names)
var LEDPin = "GPIO17"
var ResetPin = "GPIO27"

// ResetHold is how long the reset button must be held at boot
const ResetHold = 3 * time.Second

// LargeMemoryThreshold selects the large-memory capture defaults (bytes of RAM)
var LargeMemoryThreshold uint64 = 1 << 30

// Number of log lines kept in memory
const MaxLogs = 1000
