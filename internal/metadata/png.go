package metadata

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"strings"

	"fortio.org/safecast"
	"github.com/klauspost/compress/zlib"
	"golang.org/x/text/encoding/charmap"

	"github.com/nao1215/metahunter/internal/model"
)

// PNGSignature is the eight-byte header of every PNG file.
var PNGSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// maxPNGTextSize bounds the inflated size of one compressed text chunk.
const maxPNGTextSize = 1 << 20

// PNGChunk is one chunk of a PNG stream.
type PNGChunk struct {
	Type string
	Data []byte
}

// IsPNGMetadataChunk reports whether a chunk type carries metadata rather
// than image data.
func IsPNGMetadataChunk(chunkType string) bool {
	switch chunkType {
	case "tEXt", "zTXt", "iTXt", "eXIf", "tIME":
		return true
	}
	return false
}

// ReadPNGChunks splits a PNG stream into chunks, checking every CRC.
// Reading stops after IEND.
func ReadPNGChunks(data []byte) ([]PNGChunk, error) {
	if !bytes.HasPrefix(data, PNGSignature) {
		return nil, fmt.Errorf("%w: missing PNG signature", ErrMalformed)
	}
	rest := data[len(PNGSignature):]

	var chunks []PNGChunk
	for len(rest) > 0 {
		if len(rest) < 12 {
			return nil, fmt.Errorf("%w: truncated PNG chunk", ErrMalformed)
		}
		length := binary.BigEndian.Uint32(rest[:4])
		if uint64(length) > uint64(len(rest)-12) {
			return nil, fmt.Errorf("%w: PNG chunk length %d overruns file", ErrMalformed, length)
		}
		typ := rest[4:8]
		body := rest[8 : 8+length]
		sum := binary.BigEndian.Uint32(rest[8+length : 12+length])
		if crc32.Checksum(rest[4:8+length], crc32.IEEETable) != sum {
			return nil, fmt.Errorf("%w: bad CRC in %s chunk", ErrMalformed, typ)
		}
		chunks = append(chunks, PNGChunk{Type: string(typ), Data: body})
		rest = rest[12+length:]
		if string(typ) == "IEND" {
			break
		}
	}
	return chunks, nil
}

// WritePNGChunk writes one chunk with its length and CRC.
func WritePNGChunk(w io.Writer, c PNGChunk) error {
	length, err := safecast.Conv[uint32](len(c.Data))
	if err != nil {
		return fmt.Errorf("%s chunk too large: %w", c.Type, err)
	}
	var header [8]byte
	binary.BigEndian.PutUint32(header[:4], length)
	copy(header[4:], c.Type)

	crc := crc32.NewIEEE()
	crc.Write(header[4:])
	crc.Write(c.Data)

	var trailer [4]byte
	binary.BigEndian.PutUint32(trailer[:], crc.Sum32())

	for _, b := range [][]byte{header[:], c.Data, trailer[:]} {
		if _, err := w.Write(b); err != nil {
			return err
		}
	}
	return nil
}

// PNGExtractor reads text, timestamp and EXIF chunks from PNG images.
type PNGExtractor struct {
	maxSize int64
}

// NewPNGExtractor returns a PNGExtractor.
func NewPNGExtractor(maxSize int64) *PNGExtractor {
	return &PNGExtractor{maxSize: maxSize}
}

// Name returns "png".
func (e *PNGExtractor) Name() string {
	return "png"
}

// Supports reports whether path is a PNG image.
func (e *PNGExtractor) Supports(path string) bool {
	return hasExtension(path, ".png")
}

// Extract returns the metadata of the PNG at path.
func (e *PNGExtractor) Extract(ctx context.Context, path string) (*model.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := readLimited(path, e.maxSize)
	if err != nil {
		return nil, err
	}
	return ParsePNG(data)
}

// ParsePNG maps the metadata chunks of a PNG stream to metadata.
func ParsePNG(data []byte) (*model.Metadata, error) {
	chunks, err := ReadPNGChunks(data)
	if err != nil {
		return nil, err
	}

	md := &model.Metadata{}
	for _, c := range chunks {
		switch c.Type {
		case "tEXt", "zTXt", "iTXt":
			key, value, err := decodePNGText(c)
			if err != nil {
				md.AddExtra("png_"+c.Type+"_error", err.Error())
				continue
			}
			applyPNGText(md, key, value)
		case "tIME":
			if len(c.Data) == 7 {
				md.ModifiedAt = fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02dZ",
					binary.BigEndian.Uint16(c.Data[:2]), c.Data[2], c.Data[3], c.Data[4], c.Data[5], c.Data[6])
			}
		case "eXIf":
			exifMD, err := ParseEXIF(c.Data)
			if err != nil {
				md.AddExtra("png_exif_error", err.Error())
				continue
			}
			md.Merge(exifMD)
		}
	}
	return md, nil
}

// applyPNGText maps the well-known PNG text keywords.
func applyPNGText(md *model.Metadata, key, value string) {
	value = strings.TrimSpace(value)
	if value == "" {
		return
	}
	switch strings.ToLower(key) {
	case "author":
		if md.Author == "" {
			md.Author = value
			return
		}
	case "software":
		if md.Software == "" {
			md.Software = value
			return
		}
	case "title":
		if md.Title == "" {
			md.Title = value
			return
		}
	case "creation time":
		if md.CreatedAt == "" {
			md.CreatedAt = value
			return
		}
	case "source":
		if md.Device == "" {
			md.Device = value
			return
		}
	}
	md.AddExtra(key, value)
}

// decodePNGText returns the keyword and text of a tEXt, zTXt or iTXt chunk.
func decodePNGText(c PNGChunk) (string, string, error) {
	key, rest, ok := bytes.Cut(c.Data, []byte{0})
	if !ok {
		return "", "", fmt.Errorf("%w: %s chunk without keyword separator", ErrMalformed, c.Type)
	}

	switch c.Type {
	case "tEXt":
		return string(key), latin1(rest), nil
	case "zTXt":
		if len(rest) < 1 {
			return "", "", fmt.Errorf("%w: zTXt chunk without compression method", ErrMalformed)
		}
		text, err := inflate(rest[1:])
		if err != nil {
			return "", "", err
		}
		return string(key), latin1(text), nil
	default: // iTXt
		if len(rest) < 2 {
			return "", "", fmt.Errorf("%w: truncated iTXt chunk", ErrMalformed)
		}
		compressed := rest[0] == 1
		rest = rest[2:]
		// language tag, then translated keyword
		for range 2 {
			_, after, ok := bytes.Cut(rest, []byte{0})
			if !ok {
				return "", "", fmt.Errorf("%w: truncated iTXt chunk", ErrMalformed)
			}
			rest = after
		}
		if compressed {
			text, err := inflate(rest)
			if err != nil {
				return "", "", err
			}
			rest = text
		}
		return string(key), string(rest), nil
	}
}

func inflate(b []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	defer zr.Close()

	out, err := io.ReadAll(io.LimitReader(zr, maxPNGTextSize))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return out, nil
}

// latin1 decodes ISO 8859-1 bytes, the encoding of tEXt and zTXt.
func latin1(b []byte) string {
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}
	return string(out)
}
