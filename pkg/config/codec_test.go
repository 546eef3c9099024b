package config

import (
	"encoding/json"
	"fmt"
	"net/netip"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A tag above 2^53 catches any float64 round trip.
var testTag = ComputeTag(Version{Major: 1, Minor: 2, Patch: 0, Revision: 7}, LayoutSize())

func newTestCodec() *Codec {
	return NewCodec(Default(testTag, false))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := newTestCodec()

	r := c.Defaults()
	r.Network.Mode = WiFiStation
	r.Network.Station.SSID = "home"
	r.Network.Station.Passphrase = "hunter22"
	r.Network.Station.DHCP = false
	r.Network.Station.LocalIP = netip.MustParseAddr("10.0.0.20")
	r.Update.Username = "admin"
	r.Update.Password = "secret"
	r.Capture.FrameSize = FrameHD
	r.Capture.JPEGQuality = 30
	r.Capture.FBCount = 3
	r.Capture.GrabMode = GrabLatest

	doc, err := c.Encode(r)
	require.NoError(t, err)
	assert.True(t, ValidateShape(doc))

	got, err := c.Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, r, got)
}

func TestDecodeKeepsFullTagPrecision(t *testing.T) {
	c := newTestCodec()
	doc, err := c.Encode(c.Defaults())
	require.NoError(t, err)
	assert.Contains(t, string(doc), fmt.Sprintf(`"tag": %d`, uint64(testTag)))

	got, err := c.Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, testTag, got.Tag)
}

func TestDecodeMissingKeysFallBackToDefaults(t *testing.T) {
	c := newTestCodec()

	got, err := c.Decode([]byte(fmt.Sprintf(`{"tag": %d}`, uint64(testTag))))
	require.NoError(t, err)
	assert.Equal(t, c.Defaults(), got)

	got, err = c.Decode([]byte(fmt.Sprintf(`{"tag": %d, "capture": {"frame_size": 8}}`, uint64(testTag))))
	require.NoError(t, err)
	assert.Equal(t, FrameVGA, got.Capture.FrameSize)
	assert.Equal(t, c.Defaults().Capture.JPEGQuality, got.Capture.JPEGQuality)
	assert.Equal(t, c.Defaults().Network, got.Network)
}

func TestDecodeAcceptsComments(t *testing.T) {
	c := newTestCodec()
	doc := fmt.Sprintf(`// written by hand
{
  "tag": %d, /* do not touch */
  "network": {
    "hostname": "porch" // the new name
  }
}`, uint64(testTag))

	got, err := c.Decode([]byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "porch", got.Network.Hostname)
}

func TestDecodeRejects(t *testing.T) {
	c := newTestCodec()
	tag := uint64(testTag)

	cases := map[string]string{
		"empty":              ``,
		"not json":           `tag=1`,
		"array root":         `[1, 2]`,
		"missing tag":        `{"network": {"hostname": "x"}}`,
		"textual tag":        `{"tag": "123"}`,
		"negative tag":       `{"tag": -1}`,
		"fractional number":  fmt.Sprintf(`{"tag": %d, "network": {"timeout": 1.5}}`, tag),
		"string for number":  fmt.Sprintf(`{"tag": %d, "network": {"timeout": "20000"}}`, tag),
		"number for string":  fmt.Sprintf(`{"tag": %d, "network": {"hostname": 5}}`, tag),
		"number for bool":    fmt.Sprintf(`{"tag": %d, "network": {"sta": {"dhcp": 1}}}`, tag),
		"container not obj":  fmt.Sprintf(`{"tag": %d, "capture": 8}`, tag),
		"quality too high":   fmt.Sprintf(`{"tag": %d, "capture": {"jpeg_quality": 64}}`, tag),
		"unknown frame size": fmt.Sprintf(`{"tag": %d, "capture": {"frame_size": 22}}`, tag),
		"unknown wifi mode":  fmt.Sprintf(`{"tag": %d, "network": {"mode": 4}}`, tag),
		"fb count zero":      fmt.Sprintf(`{"tag": %d, "capture": {"fb_count": 0}}`, tag),
		"xclk too low":       fmt.Sprintf(`{"tag": %d, "capture": {"xclk_freq_hz": 10}}`, tag),
		"ipv6 address":       fmt.Sprintf(`{"tag": %d, "network": {"ap": {"local_ip": "::1"}}}`, tag),
		"garbage address":    fmt.Sprintf(`{"tag": %d, "network": {"sta": {"dns1": "dns.example"}}}`, tag),
		"truncated document": fmt.Sprintf(`{"tag": %d, "network": {`, tag),
		"trailing text":      fmt.Sprintf(`{"tag": %d} trailing`, tag),
		"second document":    fmt.Sprintf(`{"tag": %d}{"tag": 1}`, tag),
	}

	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := c.Decode([]byte(doc))
			assert.ErrorIs(t, err, ErrDecode)
		})
	}
}

func TestValidateShapeSingleDocument(t *testing.T) {
	tag := uint64(testTag)

	assert.True(t, ValidateShape([]byte(fmt.Sprintf("{\"tag\": %d}\n", tag))))
	assert.True(t, ValidateShape([]byte(fmt.Sprintf("{\"tag\": %d} // saved by hand\n", tag))))
	assert.False(t, ValidateShape([]byte(fmt.Sprintf(`{"tag": %d} trailing`, tag))))
	assert.False(t, ValidateShape([]byte(fmt.Sprintf(`{"tag": %d}{"tag": 1}`, tag))))

	_, err := newTestCodec().Decode([]byte(fmt.Sprintf("{\"tag\": %d} // saved by hand\n", tag)))
	assert.NoError(t, err)
}

func TestDecodeTruncatesLongStrings(t *testing.T) {
	c := newTestCodec()

	long := strings.Repeat("a", HostnameSize+10)
	got, err := c.Decode([]byte(fmt.Sprintf(`{"tag": %d, "network": {"hostname": %q}}`, uint64(testTag), long)))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", HostnameSize), got.Network.Hostname)

	ssid := strings.Repeat("a", SSIDSize-1) + "é"
	got, err = c.Decode([]byte(fmt.Sprintf(`{"tag": %d, "network": {"ap": {"ssid": %q}}}`, uint64(testTag), ssid)))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("a", SSIDSize-1), got.Network.AP.SSID)
}

func TestEncodeRespectsCapacities(t *testing.T) {
	c := newTestCodec()
	r := c.Defaults()
	r.Update.Password = strings.Repeat("p", CredentialSize+16)
	r.Network.Station.SSID = strings.Repeat("s", SSIDSize*2)

	doc, err := c.Encode(r)
	require.NoError(t, err)
	assert.NotContains(t, string(doc), strings.Repeat("p", CredentialSize+1))

	got, err := c.Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("p", CredentialSize), got.Update.Password)
	assert.Equal(t, strings.Repeat("s", SSIDSize), got.Network.Station.SSID)

	again, err := c.Encode(got)
	require.NoError(t, err)
	assert.Equal(t, doc, again)
}

func TestDecodeDoesNotCheckTagValue(t *testing.T) {
	c := newTestCodec()
	got, err := c.Decode([]byte(`{"tag": 42}`))
	require.NoError(t, err)
	assert.Equal(t, Tag(42), got.Tag)
}

func TestRenderViews(t *testing.T) {
	c := newTestCodec()
	r := c.Defaults()
	r.Update.Username = "admin"
	r.Update.Password = "secret"

	decode := func(doc []byte) map[string]any {
		var m map[string]any
		require.NoError(t, json.Unmarshal(doc, &m))
		return m
	}

	full := decode(mustRender(t, c, r, Full))
	assert.Equal(t, "admin", full["update"].(map[string]any)["username"])
	assert.Contains(t, full["capture"], "fb_count")
	assert.NotContains(t, full, TypesKey)

	public := decode(mustRender(t, c, r, View{Types: Metadata(FrameUXGA)}))
	update := public["update"].(map[string]any)
	assert.NotContains(t, update, "username")
	assert.NotContains(t, update, "password")
	assert.Equal(t, DefaultUpdatePath, update["path"])
	capture := public["capture"].(map[string]any)
	assert.NotContains(t, capture, "fb_count")
	assert.NotContains(t, capture, "fb_location")
	assert.NotContains(t, capture, "grab_mode")
	assert.Contains(t, capture, "frame_size")
	assert.Contains(t, public, TypesKey)

	echo := decode(mustRender(t, c, r, View{LowLevel: true}))
	assert.NotContains(t, echo["update"], "password")
	assert.Contains(t, echo["capture"], "grab_mode")
}

func TestDecodeIgnoresTypesBlock(t *testing.T) {
	c := newTestCodec()
	doc := mustRender(t, c, c.Defaults(), View{LowLevel: true, Secrets: true, Types: Metadata(FrameQSXGA)})

	got, err := c.Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, c.Defaults(), got)
}

func TestMetadataLimitsFrameSizes(t *testing.T) {
	meta := Metadata(FrameVGA)
	capture := meta["capture"].(map[string]any)

	sizes := capture["frame_size"].([]string)
	assert.Len(t, sizes, int(FrameVGA)+1)
	assert.Equal(t, "VGA", sizes[len(sizes)-1])
	assert.Equal(t, "VGA", capture["max_frame_size"].(map[string]any)["name"])

	network := meta["network"].(map[string]any)
	assert.Contains(t, network["mode"], "APSTA")
}

func TestDefaultLargeMemoryProfile(t *testing.T) {
	small := Default(testTag, false)
	large := Default(testTag, true)

	assert.Equal(t, FBInDRAM, small.Capture.FBLocation)
	assert.Equal(t, uint8(DefaultFBCount), small.Capture.FBCount)
	assert.Equal(t, GrabWhenEmpty, small.Capture.GrabMode)

	assert.Equal(t, FBInPSRAM, large.Capture.FBLocation)
	assert.Equal(t, uint8(LargeMemoryFBCount), large.Capture.FBCount)
	assert.Equal(t, GrabLatest, large.Capture.GrabMode)
	assert.Equal(t, uint8(LargeMemoryJPEGQuality), large.Capture.JPEGQuality)

	assert.Equal(t, small.Network, large.Network)
	assert.Equal(t, WiFiAccessPoint, small.Network.Mode)
	assert.Equal(t, "192.168.69.1", small.Network.AP.LocalIP.String())
}

func mustRender(t *testing.T, c *Codec, r Record, v View) []byte {
	t.Helper()
	doc, err := c.Render(r, v)
	require.NoError(t, err)
	return doc
}
