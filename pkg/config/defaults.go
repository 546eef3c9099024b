package config

import "net/netip"

const (
	DefaultHostname     = "sense-camera"
	DefaultWiFiTimeout  = 20 * 1000 // milliseconds
	DefaultAPSSID       = "Sense-Camera-AP"
	DefaultAPPassphrase = "TotallySecurePassword1234!"
	DefaultUpdatePath   = "/update"
	DefaultXCLKFreqHz   = 20 * 1000 * 1000

	DefaultJPEGQuality = 12
	DefaultFBCount     = 1

	// Used when the platform has a large memory pool to spare.
	LargeMemoryJPEGQuality = 10
	LargeMemoryFBCount     = 2
)

var (
	defaultAPAddress = netip.AddrFrom4([4]byte{192, 168, 69, 1})
	defaultAPSubnet  = netip.AddrFrom4([4]byte{255, 255, 255, 0})
	unsetAddress     = netip.AddrFrom4([4]byte{})
	defaultDNS1      = netip.AddrFrom4([4]byte{94, 140, 14, 140})
	defaultDNS2      = netip.AddrFrom4([4]byte{94, 140, 14, 141})
)

// Default builds the factory record stamped with tag. When largeMemory is set
// the capture defaults trade memory for quality: double-buffered frames in
// external memory, always the latest frame, and a lower (better) JPEG
// quality value. The choice is baked into the record the first time it is
// persisted and is not revisited afterwards.
func Default(tag Tag, largeMemory bool) Record {
	r := Record{
		Tag: tag,
		Network: Network{
			Mode:     WiFiAccessPoint,
			Timeout:  DefaultWiFiTimeout,
			Hostname: DefaultHostname,
			Security: SecurityWPAWPA2PSK,
			AP: AccessPoint{
				SSID:       DefaultAPSSID,
				Passphrase: DefaultAPPassphrase,
				LocalIP:    defaultAPAddress,
				Gateway:    defaultAPAddress,
				Subnet:     defaultAPSubnet,
			},
			Station: Station{
				DHCP:    true,
				LocalIP: unsetAddress,
				Gateway: unsetAddress,
				Subnet:  unsetAddress,
				DNS1:    defaultDNS1,
				DNS2:    defaultDNS2,
			},
		},
		Update: UpdateService{
			Path: DefaultUpdatePath,
		},
		Capture: Capture{
			XCLKFreqHz:  DefaultXCLKFreqHz,
			PixelFormat: PixelJPEG,
			FrameSize:   FrameSVGA,
			JPEGQuality: DefaultJPEGQuality,
			FBCount:     DefaultFBCount,
			FBLocation:  FBInDRAM,
			GrabMode:    GrabWhenEmpty,
		},
	}

	if largeMemory {
		r.Capture.JPEGQuality = LargeMemoryJPEGQuality
		r.Capture.FBCount = LargeMemoryFBCount
		r.Capture.FBLocation = FBInPSRAM
		r.Capture.GrabMode = GrabLatest
	}

	return r
}
