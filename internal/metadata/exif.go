package metadata

import (
	"context"
	"errors"
	"fmt"
	"strings"

	exif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"

	"github.com/nao1215/metahunter/internal/model"
)

// EXIFExtractor reads EXIF tags from JPEG, TIFF and HEIC images.
//
// It reports:
//   - GPS coordinates, converted to signed decimal degrees
//   - camera make, model and serial numbers
//   - software and host computer
//   - artist, copyright and capture timestamps
type EXIFExtractor struct{}

// NewEXIFExtractor returns an EXIFExtractor.
func NewEXIFExtractor() *EXIFExtractor {
	return &EXIFExtractor{}
}

// Name returns "exif".
func (e *EXIFExtractor) Name() string {
	return "exif"
}

// Supports reports whether path is an EXIF-capable image.
func (e *EXIFExtractor) Supports(path string) bool {
	return hasExtension(path, ".jpg", ".jpeg", ".jpe", ".tif", ".tiff", ".heic", ".heif")
}

// Extract returns the EXIF metadata of the image at path.
// An image without EXIF yields empty metadata.
func (e *EXIFExtractor) Extract(ctx context.Context, path string) (*model.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rawExif, err := exif.SearchFileAndExtractExif(path)
	if err != nil {
		if errors.Is(err, exif.ErrNoExif) {
			return &model.Metadata{}, nil
		}
		return nil, fmt.Errorf("failed to locate EXIF in %s: %w", path, err)
	}
	return ParseEXIF(rawExif)
}

// ParseEXIF maps a raw EXIF block (starting at the TIFF header) to metadata.
func ParseEXIF(rawExif []byte) (*model.Metadata, error) {
	entries, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: EXIF: %v", ErrMalformed, err)
	}

	md := &model.Metadata{}
	var lat, lon []exifcommon.Rational
	latRef, lonRef := "N", "E"

	for _, entry := range entries {
		value := strings.TrimSpace(strings.TrimRight(entry.Formatted, "\x00"))

		switch entry.TagName {
		case "GPSLatitude":
			lat, _ = entry.Value.([]exifcommon.Rational)
		case "GPSLongitude":
			lon, _ = entry.Value.([]exifcommon.Rational)
		case "GPSLatitudeRef":
			latRef = value
		case "GPSLongitudeRef":
			lonRef = value

		case "Make":
			md.CameraMake = value
		case "Model":
			md.CameraModel = value
		case "Software", "ProcessingSoftware":
			if md.Software == "" {
				md.Software = value
			} else {
				md.AddExtra(entry.TagName, value)
			}
		case "HostComputer":
			md.Device = value
		case "Artist", "XPAuthor":
			if md.Author == "" {
				md.Author = value
			}
		case "ImageDescription", "XPTitle":
			if md.Title == "" {
				md.Title = value
			}
		case "DateTimeOriginal":
			md.CreatedAt = value
		case "DateTimeDigitized":
			if md.CreatedAt == "" {
				md.CreatedAt = value
			}
		case "DateTime":
			md.ModifiedAt = value
		case "Copyright", "SerialNumber", "CameraSerialNumber", "BodySerialNumber",
			"LensSerialNumber", "CameraOwnerName", "XPComment", "XPKeywords", "UserComment":
			md.AddExtra(entry.TagName, value)
		}
	}

	if latDeg, ok := rationalDegrees(lat, latRef, "S"); ok {
		if lonDeg, ok := rationalDegrees(lon, lonRef, "W"); ok {
			md.GPSLatitude = &latDeg
			md.GPSLongitude = &lonDeg
		}
	}
	return md, nil
}

// rationalDegrees converts degrees, minutes and seconds to decimal degrees.
// The result is negative when ref equals negativeRef.
func rationalDegrees(parts []exifcommon.Rational, ref, negativeRef string) (float64, bool) {
	if len(parts) == 0 {
		return 0, false
	}
	divisors := []float64{1, 60, 3600}
	var deg float64
	for i, p := range parts {
		if i >= len(divisors) {
			break
		}
		if p.Denominator == 0 {
			if p.Numerator == 0 {
				continue
			}
			return 0, false
		}
		deg += float64(p.Numerator) / float64(p.Denominator) / divisors[i]
	}
	if strings.EqualFold(strings.TrimSpace(ref), negativeRef) {
		deg = -deg
	}
	return deg, true
}
