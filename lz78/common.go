// Package lz78 implements a streaming LZ78 compressed data format with a
// variable-width bit-packed code stream and a dual-dictionary adaptation
// scheme that bounds dictionary memory while keeping the compression ratio
// stable across a long stream.
//
// The format has no relation to DEFLATE, BZip2, or Brotli; it is a classic
// Ziv-Lempel trie-based scheme where both sides build identical dictionaries
// by observing the same code stream, with no explicit reset marker ever
// appearing on the wire.
package lz78

// Reserved code values. Codes below 256 are literal byte values, codes 256
// through 259 are the following sentinels, and codes from DictSizeMin up
// are dynamically assigned dictionary entries.
const (
	codeEOF   = 256 // End-of-stream marker
	codeSize  = 257 // Size-announcement marker
	codeStart = 258 // Encoder "start" pseudostate
	codeStop  = 259 // Encoder "stop" pseudostate
)

// Dictionary size bounds.
const (
	DictSizeMin     = 260     // One past the last reserved code
	DictSizeDefault = 4096    // Default dictionary size when none is given
	DictSizeMax     = 1 << 20 // Largest dictionary size a stream may request
)

// clampDictSize limits n to the legal dictionary size range, exactly as
// the original C implementation's DICT_LIMIT macro does: sizes are clamped
// rather than rejected.
func clampDictSize(n uint32) uint32 {
	switch {
	case n < DictSizeMin+1:
		return DictSizeMin + 1
	case n > DictSizeMax:
		return DictSizeMax
	default:
		return n
	}
}

// secondaryThreshold returns the point within an epoch of size d after
// which input bytes also get fed to the secondary dictionary.
func secondaryThreshold(d uint32) uint32 {
	return d * 8 / 10
}

// bitlen returns the number of bits needed to represent i: 0 for i == 0,
// otherwise floor(log2(i))+1.
func bitlen(i uint32) uint {
	var n uint
	for i != 0 {
		n++
		i >>= 1
	}
	return n
}

// Error is the wrapper type for errors specific to this package, following
// the same convention as the teacher library's flate/bzip2 packages.
type Error string

func (e Error) Error() string { return "lz78: " + string(e) }

// Sentinel errors, one per kind from the error handling design: a
// malformed compressed stream, a dictionary that could not be grown or
// rotated, and an API call made on the wrong kind of codec instance.
var (
	ErrCorrupt    error = Error("stream is corrupted")
	ErrDictionary error = Error("dictionary allocation failed")
	ErrMode       error = Error("wrong instance mode for this operation")
	ErrClosed     error = Error("codec instance is closed")
)
