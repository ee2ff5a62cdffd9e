package lz78

import (
	"errors"
	"io"

	"github.com/dsnet/lz78/internal/bitio"
)

// closeStage tracks how far Close has progressed through its three-step
// shutdown sequence (feed the EOF pseudo-label, emit the stop marker,
// flush/close the bit stream), so a would-block return from any step can
// be retried by calling Close again without re-running an earlier step.
// Re-running the EOF feed would corrupt the dictionary by processing the
// same pseudo-label twice; re-running the stop marker's WriteBits call
// would duplicate its bits on the wire (see Writer's doc comment on why a
// WriteBits call is never replayed).
type closeStage int

const (
	closeFeedEOF closeStage = iota
	closeWriteStop
	closeFlush
	closeDone
)

// Writer is an io.WriteCloser that compresses bytes written to it using
// the streaming LZ78 codec described by this package, modeled after
// compress_byte in the original C implementation (and, in shape, after
// the teacher library's flate.Writer/bzip2.Writer: construct, Write
// repeatedly, Close once).
//
// A would-block error from the underlying io.Writer (surfaced through
// bitio.ErrWouldBlock) is transient, per spec.md §5's re-entrant retry
// contract: Write/Close never latch it as a permanent failure, and
// neither ever replays a bitio.Writer.WriteBits call that returned one.
// Replaying isn't needed and would corrupt the stream: WriteBits merges
// its full argument into its internal bit accumulator unconditionally,
// before it ever attempts the flush that can fail (see internal/bitio's
// own doc comment), so the code is already durably recorded by the time
// an error comes back — a second call with the same value would merge it
// a second time. Any other error is terminal.
//
// Writer is not safe for concurrent use.
type Writer struct {
	out *bitio.Writer

	dictSize uint32
	main     *encoderDict
	sec      *encoderDict

	closeStage closeStage
	stopBits   uint

	err    error
	closed bool
}

// NewWriter creates a Writer that writes a compressed stream to w using
// DictSizeDefault as the dictionary size.
func NewWriter(w io.Writer) (*Writer, error) {
	return NewWriterSize(w, DictSizeDefault)
}

// NewWriterSize creates a Writer that writes a compressed stream to w
// using the given dictionary size (clamped to the legal range, as the
// original implementation's DICT_LIMIT macro does) and the bit stream's
// default buffer capacity.
func NewWriterSize(w io.Writer, dictSize uint32) (*Writer, error) {
	return NewWriterBuffer(w, dictSize, 0)
}

// NewWriterBuffer is like NewWriterSize but additionally takes the bit
// stream's buffer capacity in bits (see internal/bitio.NewWriter; a
// non-positive or non-8-aligned value falls back to bitio.DefaultBufferSize),
// mirroring the original wrapper.c's independent -a/-b sizing knobs.
func NewWriterBuffer(w io.Writer, dictSize, bufferBits uint32) (*Writer, error) {
	if dictSize == 0 {
		dictSize = DictSizeDefault
	}
	dictSize = clampDictSize(dictSize)

	zw := &Writer{
		out:      bitio.NewWriter(w, int(bufferBits)),
		dictSize: dictSize,
		main:     newEncoderDict(dictSize),
		sec:      newEncoderDict(dictSize),
	}

	// The bootstrap preamble: a DICT_CODE_START marker at the width a
	// fresh decoder always assumes (bitlen(DictSizeMin)), followed by the
	// true dictionary size at bitlen(DictSizeMax) bits. See
	// lz78.Reader's bootstrap handling for the reciprocal half of this
	// handshake.
	if err := zw.out.WriteBits(codeStart, bitlen(DictSizeMin)); err != nil {
		return nil, err
	}
	if err := zw.out.WriteBits(dictSize, bitlen(DictSizeMax)); err != nil {
		return nil, err
	}
	return zw, nil
}

// Write compresses buf, writing the resulting code stream to the
// underlying io.Writer. A bitio.ErrWouldBlock return is transient: the
// byte that triggered it was already consumed by the dictionary (the
// returned count includes it), so a caller should retry with whatever
// slice of buf remains rather than resending it.
func (zw *Writer) Write(buf []byte) (int, error) {
	if zw.err != nil {
		return 0, zw.err
	}
	if zw.closed {
		return 0, ErrClosed
	}
	for i, c := range buf {
		emit, val, bits := zw.feed(uint16(c))
		if !emit {
			continue
		}
		if err := zw.out.WriteBits(val, bits); err != nil {
			if !errors.Is(err, bitio.ErrWouldBlock) {
				zw.err = err
			}
			return i + 1, err
		}
	}
	return len(buf), nil
}

// Close emits the end-of-stream code and flushes the underlying bit
// stream, padding the final byte as needed. A bitio.ErrWouldBlock return
// is transient: Close may be called again; each of the three shutdown
// steps (the final dictionary feed, the stop marker, and the underlying
// flush/close) runs at most once across any number of such retries.
func (zw *Writer) Close() error {
	if zw.closed {
		return nil
	}
	if zw.err != nil {
		return zw.err
	}

	if zw.closeStage == closeFeedEOF {
		// Feed the EOF pseudo-label through the dictionary exactly like
		// any other byte: it may cause one last ordinary code to be
		// emitted (the match in progress when the stream ended) and may
		// trigger one final rotation. This runs exactly once: closeStage
		// advances past it immediately, before the write that might
		// block, so a retry never re-feeds the pseudo-label.
		emit, val, bits := zw.feed(codeEOF)
		zw.stopBits = bitlen(zw.main.next)
		zw.closeStage = closeWriteStop
		if emit {
			if err := zw.out.WriteBits(val, bits); err != nil {
				if !errors.Is(err, bitio.ErrWouldBlock) {
					zw.err = err
				}
				return err
			}
		}
	}

	if zw.closeStage == closeWriteStop {
		// The actual end-of-stream marker: the decoder reads this at the
		// width implied by the main dictionary's d_next as of the feed
		// above. Like the EOF feed, this runs exactly once: closeStage
		// advances before the write that might block.
		zw.closeStage = closeFlush
		if err := zw.out.WriteBits(codeEOF, zw.stopBits); err != nil {
			if !errors.Is(err, bitio.ErrWouldBlock) {
				zw.err = err
			}
			return err
		}
	}

	if err := zw.out.Close(); err != nil {
		if !errors.Is(err, bitio.ErrWouldBlock) {
			zw.err = err
		}
		return err
	}
	zw.closeStage = closeDone
	zw.closed = true
	zw.err = ErrClosed
	return nil
}

// feed advances the main dictionary by one label (a literal byte value or
// codeEOF) and reports whether a code must be emitted along with its
// value and width, mirroring compress_byte's dictionary update, emission,
// rotation, and secondary-dictionary warm-up.
func (zw *Writer) feed(label uint16) (emit bool, val uint32, bits uint) {
	if !zw.main.update(label) {
		if zw.main.next >= zw.main.thr {
			zw.sec.update(label)
		}
		return false, 0, 0
	}

	val = zw.main.prev.code
	bits = bitlen(zw.main.next - 1)

	if zw.main.next == zw.dictSize {
		zw.main, zw.sec = zw.sec, zw.main
		zw.main.cur = matchState{code: uint32(label), has: true}
		zw.sec.reset()
	}
	if zw.main.next >= zw.main.thr {
		zw.sec.update(label)
	}
	return true, val, bits
}
