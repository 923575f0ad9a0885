package codec

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/pixeltext/img2txt/internal/envelope"
	"github.com/pixeltext/img2txt/internal/pixel"
	"github.com/pixeltext/img2txt/internal/textsafe"
)

// losslessMagic leads the binary section of every lossless payload.
const losslessMagic = "LL1\n"

// lossless payload layout, before the radix-85 transform:
//
//	magic(4) | width u32 | height u32 | layout u8 | pixel bytes
const losslessHeaderLen = 13

// EncodeLossless serializes a pixel buffer into a manifest that decodes back
// to the identical buffer, bit for bit. No resizing, recoloring, or
// compression is applied; the payload is larger than the raw pixels by the
// constant factor of the text-safe transform.
func EncodeLossless(cfg Config, buf *pixel.Buffer, source string) (string, string, error) {
	if err := cfg.checkEncodeBuffer(buf); err != nil {
		return "", "", err
	}

	var bin bytes.Buffer
	bin.Grow(losslessHeaderLen + len(buf.Data))
	bin.WriteString(losslessMagic)
	binary.Write(&bin, binary.BigEndian, uint32(buf.Width))
	binary.Write(&bin, binary.BigEndian, uint32(buf.Height))
	bin.WriteByte(uint8(buf.Layout))
	bin.Write(buf.Data)

	manifest := envelope.Wrap(envelope.Lossless, source, textsafe.Z85.Encode(bin.Bytes()))
	return manifest, losslessOutName, nil
}

// DecodeLossless reconstructs the exact pixel buffer a lossless manifest was
// encoded from.
func DecodeLossless(cfg Config, manifest string) (*pixel.Buffer, Diagnostics, error) {
	source, payload, err := decodeKind(manifest, envelope.Lossless)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	return decodeLosslessPayload(cfg, source, payload)
}

func decodeLosslessPayload(cfg Config, source, payload string) (*pixel.Buffer, Diagnostics, error) {
	raw, err := textsafe.Z85.Decode(payload)
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("%w: text transform: %v", ErrTruncatedPayload, err)
	}
	if len(raw) < losslessHeaderLen {
		return nil, Diagnostics{}, fmt.Errorf("%w: %d bytes, header needs %d",
			ErrTruncatedPayload, len(raw), losslessHeaderLen)
	}
	if string(raw[:4]) != losslessMagic {
		return nil, Diagnostics{}, fmt.Errorf("%w: bad lossless payload magic",
			envelope.ErrMalformedManifest)
	}

	width := binary.BigEndian.Uint32(raw[4:8])
	height := binary.BigEndian.Uint32(raw[8:12])
	if width == 0 || height == 0 {
		return nil, Diagnostics{}, fmt.Errorf("%w: %dx%d", pixel.ErrInvalidDimensions, width, height)
	}
	layout, err := pixel.ParseLayout(raw[12])
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("%w: %v", envelope.ErrMalformedManifest, err)
	}
	if err := cfg.checkPixelCount(int64(width), int64(height)); err != nil {
		return nil, Diagnostics{}, err
	}

	data := raw[losslessHeaderLen:]
	want := int64(width) * int64(height) * int64(layout.Channels())
	if int64(len(data)) != want {
		return nil, Diagnostics{}, fmt.Errorf("%w: %d pixel bytes, want %d",
			ErrTruncatedPayload, len(data), want)
	}

	buf := &pixel.Buffer{
		Width:  int(width),
		Height: int(height),
		Layout: layout,
		Data:   data,
	}
	diag := Diagnostics{
		Codec:  string(envelope.Lossless),
		Source: source,
		Width:  buf.Width,
		Height: buf.Height,
		Layout: layout.String(),
	}
	return buf, diag, nil
}
