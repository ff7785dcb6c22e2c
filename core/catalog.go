package core

// PresetOriginal is the sentinel preset meaning "keep source dimensions".
// The plain fan-out skips it and instead emits one original-dimension
// variant in the modern delivery format.
const PresetOriginal = "original"

// DefaultPresets returns the built-in size catalog in delivery order.
func DefaultPresets() []SizePreset {
	return []SizePreset{
		{Name: "thumbnail", Width: 150, Height: 150, Fit: FitCover},
		{Name: "small", Width: 320, Height: 240, Fit: FitContain},
		{Name: "medium", Width: 640, Height: 480, Fit: FitContain},
		{Name: "large", Width: 1280, Height: 960, Fit: FitContain},
		{Name: "xlarge", Width: 1920, Height: 1440, Fit: FitContain},
		{Name: PresetOriginal, Fit: FitContain},
	}
}

// DefaultProfiles returns the built-in encode parameter table.
func DefaultProfiles() map[Format]EncodeProfile {
	return map[Format]EncodeProfile{
		FormatWebP: {Format: FormatWebP, Quality: 82, Effort: 4},
		FormatJPEG: {Format: FormatJPEG, Quality: 85, Progressive: true},
		FormatPNG:  {Format: FormatPNG, CompressionLevel: -3}, // png.BestCompression
	}
}

// DefaultDeliveryFormats is the (modern, fallback) delivery pair produced by
// the plain fan-out.
func DefaultDeliveryFormats() []Format {
	return []Format{FormatWebP, FormatJPEG}
}

// DecodableFormats is the closed set of formats the pipeline accepts as input.
func DecodableFormats() []Format {
	return []Format{FormatJPEG, FormatPNG, FormatWebP, FormatGIF, FormatBMP, FormatTIFF}
}

// DefaultAllowedMIMETypes is the declared-type allow list checked by the
// validator before any decode work.
func DefaultAllowedMIMETypes() []string {
	return []string{
		"image/jpeg",
		"image/jpg",
		"image/png",
		"image/webp",
		"image/gif",
		"image/bmp",
		"image/tiff",
	}
}

// DefaultAllowedExtensions is the case-insensitive extension allow list.
func DefaultAllowedExtensions() []string {
	return []string{".jpg", ".jpeg", ".png", ".webp", ".gif", ".bmp", ".tif", ".tiff"}
}

// DefaultCategories maps each logical category to its storage subdirectory.
func DefaultCategories() map[Category]string {
	return map[Category]string{
		CategoryProjects:  "projects",
		CategoryTeam:      "team",
		CategoryBlog:      "blog",
		CategoryOptimized: "optimized",
	}
}

// MIMEToFormat maps a declared content type to a Format value.
func MIMEToFormat(ct string) Format {
	switch ct {
	case "image/jpeg", "image/jpg":
		return FormatJPEG
	case "image/png":
		return FormatPNG
	case "image/webp":
		return FormatWebP
	case "image/gif":
		return FormatGIF
	case "image/bmp":
		return FormatBMP
	case "image/tiff":
		return FormatTIFF
	}
	return FormatUnknown
}
