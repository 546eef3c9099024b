package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrDecode      = errors.New("invalid settings document")
	ErrTagMismatch = errors.New("settings compatibility tag mismatch")
)

// Tag binds a record to the firmware version and record layout that wrote it.
// The high 32 bits hold the packed version, the low 16 bits the layout size.
type Tag uint64

type Version struct {
	Major, Minor, Patch, Revision uint8
}

// ParseVersion accepts "1.2.0", "1.2.0.0" or the same with a leading "v".
func ParseVersion(s string) (Version, error) {
	parts := strings.Split(strings.TrimPrefix(s, "v"), ".")
	if len(parts) != 3 && len(parts) != 4 {
		return Version{}, fmt.Errorf("invalid firmware version %q", s)
	}

	var nums [4]uint8
	for i, p := range parts {
		n, err := strconv.ParseUint(p, 10, 8)
		if err != nil {
			return Version{}, fmt.Errorf("invalid firmware version %q: %w", s, err)
		}
		nums[i] = uint8(n)
	}

	return Version{Major: nums[0], Minor: nums[1], Patch: nums[2], Revision: nums[3]}, nil
}

func (v Version) Packed() uint32 {
	return uint32(v.Major)<<24 | uint32(v.Minor)<<16 | uint32(v.Patch)<<8 | uint32(v.Revision)
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d.%d", v.Major, v.Minor, v.Patch, v.Revision)
}

// ComputeTag packs a firmware version and a record size into a tag.
func ComputeTag(v Version, size int) Tag {
	return Tag(uint64(v.Packed())<<32 | uint64(size&0xFFFF))
}

// ExpectedTag is the tag the running firmware stamps on records it creates
// and requires on records it accepts.
func ExpectedTag(v Version) Tag {
	return ComputeTag(v, LayoutSize())
}

func (t Tag) Version() Version {
	p := uint32(t >> 32)
	return Version{Major: uint8(p >> 24), Minor: uint8(p >> 16), Patch: uint8(p >> 8), Revision: uint8(p)}
}

func (t Tag) LayoutSize() uint16 {
	return uint16(t & 0xFFFF)
}

func (t Tag) String() string {
	return fmt.Sprintf("0x%016x", uint64(t))
}
