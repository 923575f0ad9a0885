// Package pixel defines the canonical in-memory representation of decoded
// image data shared by all three manifest codecs.
//
// A Buffer holds the pixel bytes of one image in a fixed channel layout
// (RGB, RGBA, or Gray) with no padding and no stride: row-major, top to
// bottom, left to right. Every codec in this repository reads and writes
// Buffers; converting arbitrary image files into a Buffer (and writing a
// Buffer back out as PNG or JPEG) is the job of the caller.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner:
// X increases rightward, Y increases downward.
//
// # Invariants
//
// A valid Buffer always satisfies len(Data) == Width*Height*Layout.Channels().
// Constructors enforce this; code that builds a Buffer by hand can check it
// with Validate. A Buffer is never partially populated.
//
// # Thread Safety
//
// Buffers carry no internal synchronization. They are safe for concurrent
// reads; concurrent writers must be synchronized by the caller. All package
// functions are stateless.
package pixel
