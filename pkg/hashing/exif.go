package hashing

import (
	"bytes"
	"encoding/binary"
	"os"
	"unicode/utf8"
)

// exifTagNames covers the common baseline TIFF/EXIF tags; unknown tag IDs
// are skipped rather than failing the scan.
var exifTagNames = map[uint16]string{
	0x010F: "make",
	0x0110: "model",
	0x0112: "orientation",
	0x0132: "datetime",
	0x829A: "exposure_time",
	0x829D: "f_number",
	0x8827: "iso",
	0x9003: "datetime_original",
	0x920A: "focal_length",
	0xA002: "pixel_x_dimension",
	0xA003: "pixel_y_dimension",
	0x0103: "compression",
	0x011A: "x_resolution",
	0x011B: "y_resolution",
}

// ExtractEXIF reads path's JPEG APP1 Exif segment and returns its tags as a
// plain map. It is tolerant of malformed or absent EXIF data: any decoding
// failure yields an empty map (the function has no error result), since
// EXIF is best-effort metadata that must never fail ingestion.
func ExtractEXIF(path string) (tags map[string]any) {
	tags = map[string]any{}
	defer func() {
		if recover() != nil {
			tags = map[string]any{}
		}
	}()
	data, err := os.ReadFile(path)
	if err != nil {
		return tags
	}

	seg := findEXIFSegment(data)
	if seg == nil {
		return map[string]any{}
	}
	tags, err = decodeTIFF(seg)
	if err != nil {
		return map[string]any{}
	}
	return tags
}

// findEXIFSegment scans a JPEG byte stream for the APP1 marker (0xFFE1) whose
// payload begins with the "Exif\x00\x00" signature, and returns the TIFF
// structure that follows it.
func findEXIFSegment(data []byte) []byte {
	if len(data) < 4 || data[0] != 0xFF || data[1] != 0xD8 {
		return nil // not a JPEG
	}
	i := 2
	for i+4 <= len(data) {
		if data[i] != 0xFF {
			i++
			continue
		}
		marker := data[i+1]
		if marker == 0xD8 || marker == 0xD9 || (marker >= 0xD0 && marker <= 0xD7) {
			i += 2
			continue
		}
		if i+4 > len(data) {
			break
		}
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))
		segStart := i + 4
		segEnd := i + 2 + length
		if segEnd > len(data) || segEnd < segStart {
			break
		}
		if marker == 0xE1 {
			payload := data[segStart:segEnd]
			if bytes.HasPrefix(payload, []byte("Exif\x00\x00")) {
				return payload[6:]
			}
		}
		if marker == 0xDA {
			break // start of scan: no more metadata markers follow
		}
		i = segEnd
	}
	return nil
}

// decodeTIFF parses a minimal TIFF/IFD0 structure and returns its entries as
// a tag-name-keyed map. Values are decoded as UTF-8 where possible, falling
// back to a latin-1 byte-for-rune conversion on invalid UTF-8.
func decodeTIFF(tiff []byte) (map[string]any, error) {
	if len(tiff) < 8 {
		return map[string]any{}, nil
	}
	var order binary.ByteOrder
	switch string(tiff[0:2]) {
	case "II":
		order = binary.LittleEndian
	case "MM":
		order = binary.BigEndian
	default:
		return map[string]any{}, nil
	}
	ifdOffset := order.Uint32(tiff[4:8])
	out := map[string]any{}
	if int(ifdOffset)+2 > len(tiff) {
		return out, nil
	}
	count := int(order.Uint16(tiff[ifdOffset : ifdOffset+2]))
	entryBase := int(ifdOffset) + 2
	for e := 0; e < count; e++ {
		off := entryBase + e*12
		if off+12 > len(tiff) {
			break
		}
		tagID := order.Uint16(tiff[off : off+2])
		typ := order.Uint16(tiff[off+2 : off+4])
		numVal := order.Uint32(tiff[off+4 : off+8])
		valueBytes := tiff[off+8 : off+12]

		name, known := exifTagNames[tagID]
		if !known {
			continue
		}
		v := decodeTIFFValue(tiff, order, typ, numVal, valueBytes)
		if v != nil {
			out[name] = v
		}
	}
	return out, nil
}

// decodeTIFFValue interprets one IFD entry's value per its TIFF type code.
// Only types 2 (ASCII), 3 (SHORT), 4 (LONG) and 5 (RATIONAL) are decoded,
// sufficient for the baseline tags this package extracts; any other type
// yields nil.
func decodeTIFFValue(tiff []byte, order binary.ByteOrder, typ uint16, count uint32, inline []byte) any {
	switch typ {
	case 2: // ASCII
		var raw []byte
		if count <= 4 {
			raw = inline[:min(int(count), len(inline))]
		} else {
			off := order.Uint32(inline)
			if int(off)+int(count) > len(tiff) {
				return nil
			}
			raw = tiff[off : off+count]
		}
		return decodeTolerantString(raw)
	case 3: // SHORT
		return int(order.Uint16(inline[0:2]))
	case 4: // LONG
		return int(order.Uint32(inline))
	case 5: // RATIONAL
		off := order.Uint32(inline)
		if int(off)+8 > len(tiff) {
			return nil
		}
		num := order.Uint32(tiff[off : off+4])
		den := order.Uint32(tiff[off+4 : off+8])
		if den == 0 {
			return nil
		}
		return float64(num) / float64(den)
	default:
		return nil
	}
}

// decodeTolerantString decodes raw as UTF-8, falling back to treating each
// byte as a latin-1 code point (which is always valid UTF-8 once converted)
// when the bytes are not valid UTF-8.
func decodeTolerantString(raw []byte) string {
	raw = bytes.TrimRight(raw, "\x00")
	if utf8.Valid(raw) {
		return string(raw)
	}
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}
