package database

import (
	"encoding/json"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// Shared zstd coders; EncodeAll/DecodeAll are safe for concurrent use.
var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil)
)

// compressJSON marshals v and zstd-compresses the result.
func compressJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}
	return encoder.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

// decompressJSON reverses compressJSON into v.
func decompressJSON(data []byte, v any) error {
	raw, err := decoder.DecodeAll(data, nil)
	if err != nil {
		return fmt.Errorf("zstd decode: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return nil
}
