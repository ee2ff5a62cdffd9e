package lz78

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/dsnet/lz78/internal/bitio"
	"github.com/dsnet/lz78/internal/testutil"
)

func encode(t *testing.T, s []byte, dictSize uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriterSize(&buf, dictSize)
	if err != nil {
		t.Fatalf("NewWriterSize: %v", err)
	}
	if _, err := w.Write(s); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	return buf.Bytes()
}

func decode(t *testing.T, compressed []byte) []byte {
	t.Helper()
	r := NewReader(bytes.NewReader(compressed))
	out, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	return out
}

func roundTrip(t *testing.T, s []byte, dictSize uint32) []byte {
	t.Helper()
	compressed := encode(t, s, dictSize)
	got := decode(t, compressed)
	if !bytes.Equal(got, s) {
		t.Fatalf("round-trip mismatch: got %d bytes, want %d bytes", len(got), len(s))
	}
	return compressed
}

func TestRoundTripEmpty(t *testing.T) {
	compressed := roundTrip(t, nil, DictSizeDefault)
	if len(compressed) == 0 {
		t.Fatalf("encode(\"\") produced no stream at all")
	}
}

// S1: ten repeated bytes must compress to fewer than ten bytes.
func TestScenarioRepeatedLiteral(t *testing.T) {
	s := bytes.Repeat([]byte("A"), 10)
	compressed := roundTrip(t, s, DictSizeDefault)
	if len(compressed) >= len(s) {
		t.Fatalf("compressed length %d not shorter than input length %d", len(compressed), len(s))
	}
}

// S2: "ABABABABAB" round-trips, and since no two-byte phrase exists yet
// when the first 'B' is processed, the encoder has nothing to emit but
// the literal value of the preceding 'A' (65) — it cannot yet have
// assigned a dictionary code to any multi-byte phrase.
func TestScenarioAlternating(t *testing.T) {
	s := []byte("ABABABABAB")
	roundTrip(t, s, DictSizeDefault)

	// Replay the same dictionary steps Writer.feed takes internally to
	// recover the sequence of emitted codes.
	d := newEncoderDict(DictSizeDefault)
	var codes []uint32
	for _, c := range s {
		if d.update(uint16(c)) {
			codes = append(codes, d.prev.code)
		}
	}
	if len(codes) < 2 || codes[0] != uint32('A') || codes[1] != uint32('B') {
		t.Fatalf("expected the first two emitted codes to be the literals 'A', 'B' (%d, %d), got %v", 'A', 'B', codes)
	}
}

// S3: the 256-byte identity sequence must produce exactly 256 literal code
// emissions (each byte mismatches immediately, since no two-byte phrase
// has been seen before) followed by the EOF code.
func TestScenarioIdentity256(t *testing.T) {
	s := make([]byte, 256)
	for i := range s {
		s[i] = byte(i)
	}
	compressed := roundTrip(t, s, DictSizeDefault)

	r := NewReader(bytes.NewReader(compressed))
	var literals int
	for i := 0; i < 256; i++ {
		b := make([]byte, 1)
		n, err := r.Read(b)
		if n != 1 || err != nil {
			t.Fatalf("byte %d: Read returned n=%d err=%v", i, n, err)
		}
		if b[0] != byte(i) {
			t.Fatalf("byte %d: got %d, want %d", i, b[0], i)
		}
		literals++
	}
	if literals != 256 {
		t.Fatalf("got %d literal bytes, want 256", literals)
	}
	if _, err := r.Read(make([]byte, 1)); err != io.EOF {
		t.Fatalf("expected io.EOF after 256 bytes, got %v", err)
	}

	// Replay the dictionary steps Writer.feed takes, including the final
	// EOF pseudo-label fed by Close, to recover the emitted codes.
	d := newEncoderDict(DictSizeDefault)
	var codes []uint32
	for _, c := range append(s16(s), codeEOF) {
		if d.update(c) {
			codes = append(codes, d.prev.code)
		}
	}
	if len(codes) != 256 {
		t.Fatalf("got %d code emissions before the EOF code, want 256", len(codes))
	}
	for i, c := range codes {
		if c != uint32(i) {
			t.Fatalf("emission %d: got code %d, want literal %d", i, c, i)
		}
	}
}

func s16(b []byte) []uint16 {
	out := make([]uint16, len(b))
	for i, c := range b {
		out[i] = uint16(c)
	}
	return out
}

// S4: random data round-trips, and its compressed size stays at or above
// 0.95 of the input size, since random bytes cannot really be compressed.
func TestScenarioRandomIncompressible(t *testing.T) {
	rnd := testutil.NewRand(1)
	s := rnd.Bytes(100 << 10)
	compressed := roundTrip(t, s, DictSizeDefault)
	ratio := float64(len(compressed)) / float64(len(s))
	if ratio < 0.95 {
		t.Fatalf("compression ratio %.3f on random data suggests encoder bug (smaller than the incompressible bound)", ratio)
	}
}

// S5: a long repeating pattern must compress substantially.
func TestScenarioRepeatingPattern(t *testing.T) {
	pattern := make([]byte, 64)
	for i := range pattern {
		pattern[i] = byte(i)
	}
	s := bytes.Repeat(pattern, (10<<20)/len(pattern))
	compressed := roundTrip(t, s, DictSizeDefault)
	ratio := float64(len(compressed)) / float64(len(s))
	if ratio >= 0.10 {
		t.Fatalf("compression ratio %.4f on a repeating pattern is not substantial enough", ratio)
	}
}

// S6: a run longer than the dictionary size repeatedly forces the
// decoder's KwKwK path (a code equal to d_next-1).
func TestScenarioKwKwKStress(t *testing.T) {
	const dictSize = DictSizeMin + 16
	s := bytes.Repeat([]byte("a"), dictSize*3)
	roundTrip(t, s, dictSize)
}

// Boundary dictionary sizes.
func TestBoundaryDictSizes(t *testing.T) {
	rnd := testutil.NewRand(2)
	s := rnd.Bytes(4 << 10)
	for _, d := range []uint32{DictSizeMin + 1, DictSizeMax} {
		roundTrip(t, s, d)
	}
}

// Determinism: encoding the same input twice with the same dictionary size
// must produce byte-identical output.
func TestDeterminism(t *testing.T) {
	rnd := testutil.NewRand(3)
	s := rnd.Bytes(8 << 10)
	a := encode(t, s, DictSizeDefault)
	b := encode(t, s, DictSizeDefault)
	if !bytes.Equal(a, b) {
		t.Fatalf("encode is not deterministic across identical runs")
	}
}

// Rotation consistency: after a rotation, the decoder's new main
// dictionary must agree with the encoder's new main dictionary on the set
// of (parent, label) -> child mappings both sides can observe.
func TestRotationConsistency(t *testing.T) {
	const dictSize = DictSizeMin + 32
	rnd := testutil.NewRand(4)
	s := rnd.Bytes(dictSize * 6)

	var buf bytes.Buffer
	w, err := NewWriterSize(&buf, dictSize)
	if err != nil {
		t.Fatalf("NewWriterSize: %v", err)
	}
	if _, err := w.Write(s); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	encoderEntries := htEntries(w.main)

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if _, err := io.ReadAll(r); err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	decoderEntries := decEntries(r.main)

	// The decoder's newest entry only gets its label from the next code, so
	// only the codes below decComplete are observable on both sides.
	var sharedEntries []pair
	for _, e := range encoderEntries {
		if e.Child < decComplete(r.main) {
			sharedEntries = append(sharedEntries, e)
		}
	}
	byChild := cmpopts.SortSlices(func(a, b pair) bool { return a.Child < b.Child })
	if diff := cmp.Diff(sharedEntries, decoderEntries, cmpopts.EquateEmpty(), byChild); diff != "" {
		t.Fatalf("encoder/decoder main dictionary mismatch after rotation (-encoder +decoder):\n%s", diff)
	}
}

type pair struct {
	Parent uint32
	Label  uint16
	Child  uint32
}

func htEntries(d *encoderDict) []pair {
	var out []pair
	for _, e := range d.root {
		if e.used {
			out = append(out, pair{e.parent, e.label, e.child})
		}
	}
	return out
}

// decComplete returns one past the decoder's last complete code: entry
// d.next-1 is still pending its label unless a rotation has just copied
// every entry in whole (d.next == d.min).
func decComplete(d *decoderDict) uint32 {
	if d.next > d.min {
		return d.next - 1
	}
	return d.next
}

func decEntries(d *decoderDict) []pair {
	var out []pair
	for code := DictSizeMin; uint32(code) < decComplete(d); code++ {
		e := d.root[code]
		out = append(out, pair{e.parent, e.label, uint32(code)})
	}
	return out
}

// Malformed-stream handling (spec.md §7's "Decompress" error kind). A
// bootstrap marker other than codeStart/codeSize must be rejected as
// corrupt, following xflate/meta's own style of exercising a reader's
// error path against a literal hand-built byte vector rather than one
// produced by the package's own Writer.
//
// The vector is two bytes: the value 42 packed little-endian into the
// bitlen(DictSizeMin) == 9 bits a fresh Reader always expects for its
// first code, followed by zero pad bits filling out the second byte.
func TestDecodeCorruptBootstrap(t *testing.T) {
	data := testutil.MustDecodeHex("2a00")
	r := NewReader(bytes.NewReader(data))
	if _, err := io.ReadAll(r); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("ReadAll: got %v, want ErrCorrupt", err)
	}
}

// A dictionary size outside (DictSizeMin, DictSizeMax] following the
// bootstrap marker must be rejected rather than silently clamped, since
// spec.md §6.2 states the size announcement on the wire is already a
// valid dictionary size — clamping happens only on the encode side's own
// constructor argument (spec.md §9's DICT_LIMIT behavior), not on an
// untrusted value read back off the wire.
func TestDecodeBadDictionarySize(t *testing.T) {
	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, 0)
	if err := w.WriteBits(codeStart, bitlen(DictSizeMin)); err != nil {
		t.Fatalf("WriteBits(codeStart): %v", err)
	}
	if err := w.WriteBits(DictSizeMin, bitlen(DictSizeMax)); err != nil {
		t.Fatalf("WriteBits(size): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if _, err := io.ReadAll(r); !errors.Is(err, ErrDictionary) {
		t.Fatalf("ReadAll: got %v, want ErrDictionary", err)
	}
}

// A data code at or above the dictionary's current d_next is not a code
// either side could have agreed on yet (the decoder's bounds check from
// spec.md §9's open question on trusting the stream) and must be rejected
// rather than read out of the dictionary array.
func TestDecodeUnresolvableCode(t *testing.T) {
	const dictSize = DictSizeMin + 50

	var buf bytes.Buffer
	w := bitio.NewWriter(&buf, 0)
	if err := w.WriteBits(codeStart, bitlen(DictSizeMin)); err != nil {
		t.Fatalf("WriteBits(codeStart): %v", err)
	}
	if err := w.WriteBits(dictSize, bitlen(DictSizeMax)); err != nil {
		t.Fatalf("WriteBits(size): %v", err)
	}
	// main.next == DictSizeMin immediately after size ingestion; any code
	// at or beyond it cannot yet be resolved by either side.
	if err := w.WriteBits(DictSizeMin+10, bitlen(DictSizeMin)); err != nil {
		t.Fatalf("WriteBits(code): %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	r := NewReader(bytes.NewReader(buf.Bytes()))
	if _, err := io.ReadAll(r); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("ReadAll: got %v, want ErrCorrupt", err)
	}
}

// temporaryErr satisfies bitio's would-block classification contract
// (a Temporary() bool method returning true), the same minimal fake used
// in internal/bitio's own would-block tests.
type temporaryErr struct{}

func (temporaryErr) Error() string   { return "temporary" }
func (temporaryErr) Temporary() bool { return true }

// blockingWriter fails its underlying write exactly once per call to
// block, then succeeds, modeling a non-blocking io.Writer that isn't
// ready yet.
type blockingWriter struct {
	buf    bytes.Buffer
	blocks map[int]bool // write call index (0-based) -> block once
	n      int
}

func (w *blockingWriter) Write(p []byte) (int, error) {
	i := w.n
	w.n++
	if w.blocks[i] {
		return 0, temporaryErr{}
	}
	return w.buf.Write(p)
}

// TestWriteRetryAfterWouldBlock exercises spec.md §5's re-entrant retry
// contract at the Writer level (not just internal/bitio's): a would-block
// from the underlying io.Writer during Write must not corrupt dictionary
// state, must not be reported as a permanent error, and retrying by
// calling Write/Close again must reach a byte-identical, round-trippable
// stream to an unobstructed run.
func TestWriteRetryAfterWouldBlock(t *testing.T) {
	const dictSize = DictSizeMin + 32
	rnd := testutil.NewRand(5)
	s := rnd.Bytes(int(dictSize) * 4)

	want := encode(t, s, dictSize)

	// A tiny bit-stream buffer forces internal/bitio to flush (and so
	// call the underlying io.Writer) many times over the course of
	// encoding s, giving blockingWriter's call indices 2 and 5 a chance
	// to land mid-stream rather than only at the final Close flush.
	bw := &blockingWriter{blocks: map[int]bool{2: true, 5: true}}
	w, err := NewWriterBuffer(bw, dictSize, 16)
	if err != nil {
		t.Fatalf("NewWriterBuffer: %v", err)
	}
	for off := 0; off < len(s); {
		n, err := w.Write(s[off:])
		off += n
		if err != nil {
			if !errors.Is(err, bitio.ErrWouldBlock) {
				t.Fatalf("Write: unexpected error %v", err)
			}
			continue
		}
	}
	for {
		err := w.Close()
		if err == nil || errors.Is(err, ErrClosed) {
			break
		}
		if !errors.Is(err, bitio.ErrWouldBlock) {
			t.Fatalf("Close: unexpected error %v", err)
		}
	}

	got := bw.buf.Bytes()
	if !bytes.Equal(got, want) {
		t.Fatalf("stream with retried would-blocks differs from an unobstructed run:\ngot  %x\nwant %x", got, want)
	}
	if out := decode(t, got); !bytes.Equal(out, s) {
		t.Fatalf("round-trip mismatch after would-block retries")
	}
}
