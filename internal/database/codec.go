package database

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/nao1215/metahunter/internal/model"
)

// analysesCodec names the encoding of the analyses column.
const analysesCodec = "cbor+zstd"

var (
	// encMode uses Core Deterministic Encoding so the same analyses always
	// produce the same bytes.
	encMode cbor.EncMode
	decMode cbor.DecMode

	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error

	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("database: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("database: CBOR decoder initialization failed: " + err.Error())
	}

	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("database: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("database: zstd decoder initialization failed: " + err.Error())
	}
}

// encodeAnalyses serializes analyses as zstd-compressed CBOR.
// EncodeAll and DecodeAll are safe for concurrent use.
func encodeAnalyses(analyses []*model.FileAnalysis) ([]byte, error) {
	if analyses == nil {
		analyses = []*model.FileAnalysis{}
	}
	raw, err := encMode.Marshal(analyses)
	if err != nil {
		return nil, fmt.Errorf("failed to encode analyses: %w", err)
	}
	return zstdEncoder.EncodeAll(raw, nil), nil
}

// decodeAnalyses reverses encodeAnalyses.
func decodeAnalyses(data []byte) ([]*model.FileAnalysis, error) {
	if len(data) == 0 {
		return nil, nil
	}
	raw, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress analyses: %w", err)
	}
	var analyses []*model.FileAnalysis
	if err := decMode.Unmarshal(raw, &analyses); err != nil {
		return nil, fmt.Errorf("failed to decode analyses: %w", err)
	}
	return analyses, nil
}
