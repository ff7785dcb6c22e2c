package decoder

// jpegOrientation scans a JPEG buffer for the EXIF orientation tag (0x0112)
// without a pixel decode. Returns 0 when the tag is absent or the EXIF
// segment is malformed; valid values are 1-8.
func jpegOrientation(data []byte) int {
	// Walk marker segments until SOS; APP1 carries EXIF.
	i := 2 // skip SOI
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			return 0
		}
		marker := data[i+1]
		if marker == 0xDA { // SOS: entropy-coded data follows, no EXIF past here
			return 0
		}
		segLen := int(data[i+2])<<8 | int(data[i+3])
		if segLen < 2 || i+2+segLen > len(data) {
			return 0
		}
		if marker == 0xE1 {
			return parseExifOrientation(data[i+4 : i+2+segLen])
		}
		i += 2 + segLen
	}
	return 0
}

// parseExifOrientation reads the first IFD of an APP1 payload.
func parseExifOrientation(seg []byte) int {
	if len(seg) < 6 || string(seg[:6]) != "Exif\x00\x00" {
		return 0
	}
	tiff := seg[6:]
	if len(tiff) < 8 {
		return 0
	}

	var little bool
	switch {
	case tiff[0] == 0x49 && tiff[1] == 0x49:
		little = true
	case tiff[0] == 0x4D && tiff[1] == 0x4D:
		little = false
	default:
		return 0
	}

	read16 := func(p int) int {
		if p+1 >= len(tiff) {
			return 0
		}
		if little {
			return int(tiff[p]) | int(tiff[p+1])<<8
		}
		return int(tiff[p])<<8 | int(tiff[p+1])
	}
	read32 := func(p int) int {
		if p+3 >= len(tiff) {
			return 0
		}
		if little {
			return int(tiff[p]) | int(tiff[p+1])<<8 | int(tiff[p+2])<<16 | int(tiff[p+3])<<24
		}
		return int(tiff[p])<<24 | int(tiff[p+1])<<16 | int(tiff[p+2])<<8 | int(tiff[p+3])
	}

	if read16(2) != 42 {
		return 0
	}
	ifd := read32(4)
	if ifd < 8 || ifd+2 > len(tiff) {
		return 0
	}

	entries := read16(ifd)
	const orientationTag = 0x0112
	for n := 0; n < entries; n++ {
		off := ifd + 2 + n*12
		if off+12 > len(tiff) {
			return 0
		}
		if read16(off) != orientationTag {
			continue
		}
		// Type must be SHORT with a count of 1.
		if read16(off+2) != 3 || read32(off+4) != 1 {
			return 0
		}
		if v := read16(off + 8); v >= 1 && v <= 8 {
			return v
		}
		return 0
	}
	return 0
}
