package lz78

import (
	"errors"
	"io"

	"github.com/dsnet/golib/errs"

	"github.com/dsnet/lz78/internal/bitio"
)

// Reader is an io.ReadCloser that decompresses a stream produced by Writer,
// modeled after decompress_code in the original C implementation (and, in
// shape, after flate.Reader/bzip2.Reader: a step function driving a small
// dictionary state machine, called repeatedly from Read until output is
// available or the stream ends).
//
// Reader is not safe for concurrent use.
type Reader struct {
	in *bitio.Reader

	// phase tracks the three-step bootstrap: a DICT_CODE_START marker
	// read at bitlen(DictSizeMin) bits, then the true dictionary size at
	// bitlen(DictSizeMax) bits, then ordinary data codes at
	// bitlen(main.next) bits. This mirrors the decoder's d_next ==
	// DictSizeMax sentinel from the original C implementation.
	phase int
	main  *decoderDict
	sec   *encoderDict

	pending []byte // Decoded bytes not yet returned to the caller
	eof     bool
	closed  bool
	err     error
}

// NewReader creates a Reader that reads a compressed stream from r using
// the bit stream's default buffer capacity.
func NewReader(r io.Reader) *Reader {
	return NewReaderBuffer(r, 0)
}

// NewReaderBuffer is like NewReader but additionally takes the bit
// stream's buffer capacity in bits (see internal/bitio.NewReader; a
// non-positive or non-8-aligned value falls back to bitio.DefaultBufferSize).
func NewReaderBuffer(r io.Reader, bufferBits uint32) *Reader {
	return &Reader{in: bitio.NewReader(r, int(bufferBits))}
}

// Read decompresses from the underlying stream into p, decoding as many
// codes as needed to produce at least one byte of output (or to reach
// end of stream). It returns io.EOF once the stream's end-of-stream code
// has been consumed and all buffered output has been drained.
//
// A bitio.ErrWouldBlock return is transient, per spec.md §5's re-entrant
// retry contract: Read may simply be called again once the underlying
// io.Reader is ready, resuming from the partial bits decodeOne has
// already accumulated. Any other error (a corrupt stream, a dictionary
// violation, a genuine I/O failure) is latched permanently, since the
// bit stream's read position has already moved past whatever produced
// it and retrying would decode from an arbitrary, not a resumable,
// offset.
func (zr *Reader) Read(p []byte) (n int, err error) {
	if zr.err != nil {
		return 0, zr.err
	}
	defer func() {
		if err != nil && !errors.Is(err, bitio.ErrWouldBlock) {
			zr.err = err
		}
	}()
	defer errs.Recover(&err)

	for len(zr.pending) == 0 && !zr.eof {
		zr.decodeOne()
	}
	n = copy(p, zr.pending)
	zr.pending = zr.pending[n:]
	if n == 0 && zr.eof {
		zr.err = io.EOF
		return 0, io.EOF
	}
	return n, nil
}

// Close releases the Reader. It does not close the underlying io.Reader.
func (zr *Reader) Close() error {
	zr.closed = true
	if zr.err == nil {
		zr.err = ErrClosed
	}
	return nil
}

// Bootstrap phases. See the phase field's doc comment.
const (
	phaseStart = iota
	phaseSize
	phaseData
)

// codeWidth returns the number of bits the next code is encoded with,
// mirroring the driver loop's "bits = bitlen(d_main->d_next)" computation.
func (zr *Reader) codeWidth() uint {
	switch zr.phase {
	case phaseStart:
		return bitlen(DictSizeMin)
	case phaseSize:
		return bitlen(DictSizeMax)
	default:
		return bitlen(zr.main.next)
	}
}

// decodeOne reads and processes exactly one code, following
// decompress_code step for step: the bootstrap handshake, the dictionary
// allocation that follows it, ordinary dictionary_update decoding, the
// secondary dictionary warm-up, and epoch rotation.
func (zr *Reader) decodeOne() {
	width := zr.codeWidth()
	code, got, err := zr.in.ReadBits(width)
	errs.Panic(err)
	errs.Assert(got == width, ErrCorrupt)

	switch {
	case code == codeEOF:
		zr.eof = true
		return
	case zr.phase == phaseStart:
		errs.Assert(code == codeStart || code == codeSize, ErrCorrupt)
		zr.phase = phaseSize
		return
	case zr.phase == phaseSize:
		errs.Assert(code > DictSizeMin && code <= DictSizeMax, ErrDictionary)
		zr.main = newDecoderDict(code)
		zr.sec = newEncoderDict(code)
		zr.phase = phaseData
		return
	}

	errs.Assert(code < zr.main.next, ErrCorrupt)

	zr.main.update(code)
	out := zr.main.buf[zr.main.offset : zr.main.offset+zr.main.nBytes]
	zr.pending = append(zr.pending, out...)

	if zr.main.next > zr.main.thr {
		for _, b := range out {
			zr.sec.update(uint16(b))
		}
	}

	if zr.main.next == zr.main.size {
		zr.main.rotate(zr.sec)
	}
}
