package config

import (
	"encoding/json"
	"fmt"
	"math"
	"net/netip"
	"strconv"
	"strings"
	"unsafe"

	"github.com/buger/jsonparser"
)

type visibility uint8

const (
	visPublic   visibility = iota
	visSecret              // update-service credentials
	visLowLevel            // frame-buffer allocation, only read at camera init
)

// field describes one leaf of the settings document.
type field struct {
	path     []string
	kind     jsonparser.ValueType
	width    int // storage width, feeds the layout size
	required bool
	vis      visibility
	encode   func(*Record) any
	decode   func(*Record, any) error
}

type unsigned interface {
	~uint8 | ~uint16 | ~uint32 | ~uint64
}

func uintField[T unsigned](path string, lo, hi uint64, ptr func(*Record) *T) field {
	var zero T
	return field{
		path:   strings.Split(path, "."),
		kind:   jsonparser.Number,
		width:  int(unsafe.Sizeof(zero)),
		encode: func(r *Record) any { return uint64(*ptr(r)) },
		decode: func(r *Record, v any) error {
			n, err := toUint(v)
			if err != nil {
				return err
			}
			if n < lo || n > hi {
				return fmt.Errorf("%d out of range [%d, %d]", n, lo, hi)
			}
			*ptr(r) = T(n)
			return nil
		},
	}
}

func enumField[T ~uint8](path string, names []string, ptr func(*Record) *T) field {
	return uintField(path, 0, uint64(len(names)-1), ptr)
}

func stringField(path string, capacity int, ptr func(*Record) *string) field {
	return field{
		path:   strings.Split(path, "."),
		kind:   jsonparser.String,
		width:  capacity + 1,
		encode: func(r *Record) any { return Truncate(*ptr(r), capacity) },
		decode: func(r *Record, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected string, got %T", v)
			}
			*ptr(r) = Truncate(s, capacity)
			return nil
		},
	}
}

func secretField(path string, capacity int, ptr func(*Record) *string) field {
	f := stringField(path, capacity, ptr)
	f.vis = visSecret
	return f
}

func lowLevel(f field) field {
	f.vis = visLowLevel
	return f
}

func boolField(path string, ptr func(*Record) *bool) field {
	return field{
		path:   strings.Split(path, "."),
		kind:   jsonparser.Boolean,
		width:  1,
		encode: func(r *Record) any { return *ptr(r) },
		decode: func(r *Record, v any) error {
			b, ok := v.(bool)
			if !ok {
				return fmt.Errorf("expected boolean, got %T", v)
			}
			*ptr(r) = b
			return nil
		},
	}
}

func ipField(path string, ptr func(*Record) *netip.Addr) field {
	return field{
		path:   strings.Split(path, "."),
		kind:   jsonparser.String,
		width:  4,
		encode: func(r *Record) any { return ptr(r).String() },
		decode: func(r *Record, v any) error {
			s, ok := v.(string)
			if !ok {
				return fmt.Errorf("expected IPv4 address string, got %T", v)
			}
			addr, err := netip.ParseAddr(s)
			if err != nil {
				return err
			}
			if !addr.Is4() {
				return fmt.Errorf("%s is not an IPv4 address", s)
			}
			*ptr(r) = addr
			return nil
		},
	}
}

func toUint(v any) (uint64, error) {
	num, ok := v.(json.Number)
	if !ok {
		return 0, fmt.Errorf("expected number, got %T", v)
	}
	n, err := strconv.ParseUint(num.String(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("expected unsigned integer, got %s", num)
	}
	return n, nil
}

var tagField = func() field {
	f := uintField("tag", 0, math.MaxUint64, func(r *Record) *Tag { return &r.Tag })
	f.required = true
	return f
}()

// fields is the whole document layout, in document order.
var fields = []field{
	tagField,

	enumField("network.mode", wifiModeNames, func(r *Record) *WiFiMode { return &r.Network.Mode }),
	uintField("network.timeout", 0, math.MaxUint32, func(r *Record) *uint32 { return &r.Network.Timeout }),
	stringField("network.hostname", HostnameSize, func(r *Record) *string { return &r.Network.Hostname }),
	enumField("network.security", securityNames, func(r *Record) *Security { return &r.Network.Security }),

	stringField("network.ap.ssid", SSIDSize, func(r *Record) *string { return &r.Network.AP.SSID }),
	stringField("network.ap.pass", PassphraseSize, func(r *Record) *string { return &r.Network.AP.Passphrase }),
	ipField("network.ap.local_ip", func(r *Record) *netip.Addr { return &r.Network.AP.LocalIP }),
	ipField("network.ap.gateway", func(r *Record) *netip.Addr { return &r.Network.AP.Gateway }),
	ipField("network.ap.subnet", func(r *Record) *netip.Addr { return &r.Network.AP.Subnet }),

	stringField("network.sta.ssid", SSIDSize, func(r *Record) *string { return &r.Network.Station.SSID }),
	stringField("network.sta.pass", PassphraseSize, func(r *Record) *string { return &r.Network.Station.Passphrase }),
	boolField("network.sta.dhcp", func(r *Record) *bool { return &r.Network.Station.DHCP }),
	ipField("network.sta.local_ip", func(r *Record) *netip.Addr { return &r.Network.Station.LocalIP }),
	ipField("network.sta.gateway", func(r *Record) *netip.Addr { return &r.Network.Station.Gateway }),
	ipField("network.sta.subnet", func(r *Record) *netip.Addr { return &r.Network.Station.Subnet }),
	ipField("network.sta.dns1", func(r *Record) *netip.Addr { return &r.Network.Station.DNS1 }),
	ipField("network.sta.dns2", func(r *Record) *netip.Addr { return &r.Network.Station.DNS2 }),

	stringField("update.path", UpdatePathSize, func(r *Record) *string { return &r.Update.Path }),
	secretField("update.username", CredentialSize, func(r *Record) *string { return &r.Update.Username }),
	secretField("update.password", CredentialSize, func(r *Record) *string { return &r.Update.Password }),

	uintField("capture.xclk_freq_hz", 1_000_000, 40_000_000, func(r *Record) *uint32 { return &r.Capture.XCLKFreqHz }),
	uintField("capture.ledc_timer", 0, 3, func(r *Record) *uint8 { return &r.Capture.LEDCTimer }),
	uintField("capture.ledc_channel", 0, 7, func(r *Record) *uint8 { return &r.Capture.LEDCChannel }),
	enumField("capture.pixel_format", pixelFormatNames, func(r *Record) *PixelFormat { return &r.Capture.PixelFormat }),
	enumField("capture.frame_size", frameSizeNames, func(r *Record) *FrameSize { return &r.Capture.FrameSize }),
	uintField("capture.jpeg_quality", 0, 63, func(r *Record) *uint8 { return &r.Capture.JPEGQuality }),
	lowLevel(uintField("capture.fb_count", 1, 3, func(r *Record) *uint8 { return &r.Capture.FBCount })),
	lowLevel(enumField("capture.fb_location", fbLocationNames, func(r *Record) *FBLocation { return &r.Capture.FBLocation })),
	lowLevel(enumField("capture.grab_mode", grabModeNames, func(r *Record) *GrabMode { return &r.Capture.GrabMode })),
}

// containers lists every object path that leaves hang from.
var containers = func() [][]string {
	seen := map[string]bool{}
	var out [][]string
	for _, f := range fields {
		for i := 1; i < len(f.path); i++ {
			key := strings.Join(f.path[:i], ".")
			if !seen[key] {
				seen[key] = true
				out = append(out, f.path[:i])
			}
		}
	}
	return out
}()

var layoutSize = func() int {
	size := 0
	for _, f := range fields {
		size += f.width
	}
	return size
}()

// LayoutSize is the storage size of a record as described by the field table.
// Any change to the set of fields or their capacities changes it, and with it
// the compatibility tag.
func LayoutSize() int {
	return layoutSize
}
