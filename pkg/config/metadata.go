package config

// Metadata builds the enumeration block served to editing tools. Frame sizes
// are listed up to and including limit, the largest size the attached sensor
// supports. The block is derived data and is never decoded.
func Metadata(limit FrameSize) map[string]any {
	sizes := frameSizeNames
	if int(limit) < len(sizes) {
		sizes = sizes[:limit+1]
	}

	return map[string]any{
		"network": map[string]any{
			"mode":     wifiModeNames,
			"security": securityNames,
		},
		"capture": map[string]any{
			"pixel_format": pixelFormatNames,
			"frame_size":   sizes,
			"fb_location":  fbLocationNames,
			"grab_mode":    grabModeNames,
			"max_frame_size": map[string]any{
				"index": int(limit),
				"name":  limit.String(),
			},
		},
	}
}
