package cryptox

import (
	"fmt"

	"github.com/dmitrijs2005/cryptkeeper/internal/common"
	"github.com/klauspost/compress/zstd"
)

// Compression levels accepted by Compress, following the zstd command line.
const (
	MinCompressionLevel     = -7
	MaxCompressionLevel     = 22
	DefaultCompressionLevel = 3
)

// ValidateLevel reports common.ErrInvalidLevel for levels outside
// [MinCompressionLevel, MaxCompressionLevel].
func ValidateLevel(level int) error {
	if level < MinCompressionLevel || level > MaxCompressionLevel {
		return fmt.Errorf("%w: %d not in [%d, %d]", common.ErrInvalidLevel, level, MinCompressionLevel, MaxCompressionLevel)
	}
	return nil
}

func encoderLevel(level int) zstd.EncoderLevel {
	if level <= 0 {
		// negative zstd levels trade ratio for speed
		return zstd.SpeedFastest
	}
	return zstd.EncoderLevelFromZstd(level)
}

// Compress encodes data as a single zstd frame at the given level.
func Compress(data []byte, level int) ([]byte, error) {
	if err := ValidateLevel(level); err != nil {
		return nil, err
	}

	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderLevel(encoderLevel(level)),
		zstd.WithEncoderConcurrency(1),
		zstd.WithZeroFrames(true),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: new encoder: %v", common.ErrCodec, err)
	}
	defer enc.Close()

	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// Decompress inverts Compress. Malformed input yields common.ErrCorrupt.
func Decompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, fmt.Errorf("%w: new decoder: %v", common.ErrCodec, err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrCorrupt, err)
	}
	return out, nil
}
