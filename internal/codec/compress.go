package codec

import (
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// compressPayload squeezes a serialized lossy-algo blob with zstd. Encoder
// concurrency is pinned to one so the same blob always compresses to the
// same bytes, which keeps manifests byte-reproducible.
func compressPayload(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil,
		zstd.WithEncoderConcurrency(1),
		zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/4+64)), nil
}

// decompressPayload inflates a lossy-algo blob. maxSize caps decoder memory
// so a hostile manifest cannot force unbounded allocation.
func decompressPayload(data []byte, maxSize int) ([]byte, error) {
	dec, err := zstd.NewReader(nil,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxMemory(uint64(maxSize)),
	)
	if err != nil {
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTruncatedPayload, err)
	}
	return out, nil
}
