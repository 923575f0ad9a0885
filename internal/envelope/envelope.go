// Package envelope implements the versioned text container shared by all
// three manifest codecs. A manifest is a single header line followed by the
// codec payload:
//
//	IMG2TXT/1;kind=lossy-algo;source=chat_upload;crc=89abcdef
//	<payload>
//
// The header carries the format version, the codec kind, a caller-supplied
// source tag, and a CRC-32 over the payload. Everything is plain text, so a
// manifest travels inside a JSON string with no escaping beyond standard
// string quoting. The checksum is recomputed at unwrap time; any mismatch is
// fatal, and an unknown format version is rejected rather than best-effort
// parsed.
package envelope

import (
	"errors"
	"fmt"
	"hash/crc32"
	"strconv"
	"strings"
)

// FormatVersion is the only manifest layout this package reads or writes.
const FormatVersion = 1

const headerPrefix = "IMG2TXT/"

var (
	// ErrMalformedManifest reports a manifest whose leading markers are
	// absent or unrecognized, including unknown format versions and kinds.
	ErrMalformedManifest = errors.New("envelope: malformed manifest")
	// ErrChecksumMismatch reports a payload whose recomputed CRC-32 disagrees
	// with the stored one. The manifest is corrupt; nothing is recoverable.
	ErrChecksumMismatch = errors.New("envelope: checksum mismatch")
)

// Kind identifies which codec produced a manifest payload.
type Kind string

const (
	Lossless  Kind = "lossless"
	LossyAlgo Kind = "lossy-algo"
	LossyNLP  Kind = "lossy-nlp"
)

// ParseKind validates a kind marker read from a manifest header.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case Lossless, LossyAlgo, LossyNLP:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown codec kind %q", ErrMalformedManifest, s)
	}
}

// Wrap builds a manifest string around a codec payload. The source tag is
// sanitized so it cannot break the header grammar.
func Wrap(kind Kind, source, payload string) string {
	sum := crc32.ChecksumIEEE([]byte(payload))
	return fmt.Sprintf("%s%d;kind=%s;source=%s;crc=%08x\n%s",
		headerPrefix, FormatVersion, kind, sanitizeSource(source), sum, payload)
}

// Unwrap parses a manifest, verifies its version and checksum, and returns
// the codec kind, the source tag, and the raw payload.
func Unwrap(manifest string) (Kind, string, string, error) {
	header, payload, ok := strings.Cut(manifest, "\n")
	if !ok {
		return "", "", "", fmt.Errorf("%w: missing payload separator", ErrMalformedManifest)
	}
	rest, ok := strings.CutPrefix(header, headerPrefix)
	if !ok {
		return "", "", "", fmt.Errorf("%w: missing %q marker", ErrMalformedManifest, headerPrefix)
	}

	fields := strings.Split(rest, ";")
	if len(fields) != 4 {
		return "", "", "", fmt.Errorf("%w: header has %d fields, want 4", ErrMalformedManifest, len(fields))
	}

	version, err := strconv.Atoi(fields[0])
	if err != nil {
		return "", "", "", fmt.Errorf("%w: unreadable version %q", ErrMalformedManifest, fields[0])
	}
	if version != FormatVersion {
		return "", "", "", fmt.Errorf("%w: unsupported format version %d", ErrMalformedManifest, version)
	}

	kindVal, err := headerField(fields[1], "kind")
	if err != nil {
		return "", "", "", err
	}
	kind, err := ParseKind(kindVal)
	if err != nil {
		return "", "", "", err
	}
	source, err := headerField(fields[2], "source")
	if err != nil {
		return "", "", "", err
	}
	crcVal, err := headerField(fields[3], "crc")
	if err != nil {
		return "", "", "", err
	}
	stored, err := strconv.ParseUint(crcVal, 16, 32)
	if err != nil {
		return "", "", "", fmt.Errorf("%w: unreadable checksum %q", ErrMalformedManifest, crcVal)
	}

	if sum := crc32.ChecksumIEEE([]byte(payload)); uint32(stored) != sum {
		return "", "", "", fmt.Errorf("%w: stored %08x, computed %08x", ErrChecksumMismatch, stored, sum)
	}
	return kind, source, payload, nil
}

func headerField(field, name string) (string, error) {
	key, value, ok := strings.Cut(field, "=")
	if !ok || key != name {
		return "", fmt.Errorf("%w: expected %s field, got %q", ErrMalformedManifest, name, field)
	}
	return value, nil
}

// sanitizeSource replaces characters that would collide with the header
// grammar. The tag is informational only, so substitution is fine.
func sanitizeSource(source string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ';', '\n', '\r':
			return '_'
		default:
			return r
		}
	}, source)
}
