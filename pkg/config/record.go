package config

import (
	"net/netip"
	"unicode/utf8"
)

// Fixed capacities of the string fields, in bytes.
const (
	SSIDSize       = 32
	PassphraseSize = 64
	HostnameSize   = 64
	UpdatePathSize = 128
	CredentialSize = 64
)

// Record is the whole persisted device configuration.
//
// It is a plain value: copying it copies everything, and two records compare
// equal with == exactly when every field matches.
type Record struct {
	Tag     Tag
	Network Network
	Update  UpdateService
	Capture Capture
}

type Network struct {
	Mode     WiFiMode
	Timeout  uint32 // milliseconds
	Hostname string
	Security Security
	AP       AccessPoint
	Station  Station
}

type AccessPoint struct {
	SSID       string
	Passphrase string
	LocalIP    netip.Addr
	Gateway    netip.Addr
	Subnet     netip.Addr
}

type Station struct {
	SSID       string
	Passphrase string
	DHCP       bool
	LocalIP    netip.Addr
	Gateway    netip.Addr
	Subnet     netip.Addr
	DNS1       netip.Addr
	DNS2       netip.Addr
}

// UpdateService holds where firmware updates are accepted and the optional
// basic-auth credentials guarding it.
type UpdateService struct {
	Path     string
	Username string
	Password string
}

type Capture struct {
	XCLKFreqHz  uint32
	LEDCTimer   uint8
	LEDCChannel uint8
	PixelFormat PixelFormat
	FrameSize   FrameSize
	JPEGQuality uint8 // 0-63, lower is better
	FBCount     uint8
	FBLocation  FBLocation
	GrabMode    GrabMode
}

// Truncate cuts s to at most capacity bytes without splitting a UTF-8 sequence.
func Truncate(s string, capacity int) string {
	if len(s) <= capacity {
		return s
	}
	for capacity > 0 && !utf8.RuneStart(s[capacity]) {
		capacity--
	}
	return s[:capacity]
}
