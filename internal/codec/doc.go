// Package codec implements the three image-to-text manifest codecs and the
// boundary API the surrounding transport layer consumes.
//
// Every manifest is a plain-text envelope (internal/envelope) around a
// codec-specific payload:
//
//   - lossless: dimensions, channel layout, and the raw pixel bytes through
//     a reversible radix-85 transform. Decoding reproduces the encoded
//     buffer bit for bit.
//   - lossy-algo: the buffer, optionally downscaled to a maximum side, is
//     reduced to a palette plus index map (internal/quant); the serialized
//     form is zstd-compressed and radix-85 encoded. Decoding reconstructs at
//     the encoded resolution by palette lookup.
//   - lossy-nlp: a constrained prose description of the image's dominant
//     tones, anchors, and quadrant layout. Decoding synthesizes a visually
//     plausible proxy image, with no pixel-level fidelity guarantee.
//
// # Concurrency
//
// Every entrypoint is a pure function over its inputs: no package state, no
// caches, no suspension points. Calls are safe to issue concurrently, one
// per request, with no locking.
//
// # Error Taxonomy
//
// Failures surface as one of a small set of sentinel errors so callers can
// distinguish bad input from corrupted manifests: the envelope errors
// (ErrMalformedManifest, ErrChecksumMismatch), pixel.ErrInvalidDimensions,
// quant.ErrInvalidPaletteSize, and this package's ErrTruncatedPayload,
// ErrIndexOutOfRange, ErrUnparsableDescription, and ErrInvalidAnchor. All
// are terminal for the call that raised them; nothing is retried and no
// error is downgraded to a partial result.
package codec
