package lz78

// decEntry is one node of the decoder's array-indexed trie: codes below
// DictSizeMin are literals (parent == 0, label == code); everything else
// is installed during decoding.
type decEntry struct {
	parent uint32
	label  uint16
}

// decoderDict is the decoder's main dictionary: an array-indexed trie plus
// the scratch buffer used to materialize a decoded string before it is
// handed to the caller.
type decoderDict struct {
	root []decEntry
	size uint32
	thr  uint32
	min  uint32
	next uint32

	buf    []byte // Scratch buffer, length == size
	offset int    // Start of the valid region of buf
	nBytes int    // Length of the valid region of buf
}

func newDecoderDict(size uint32) *decoderDict {
	size = clampDictSize(size)
	d := &decoderDict{
		root: make([]decEntry, size),
		size: size,
		thr:  secondaryThreshold(size),
		min:  DictSizeMin,
		next: DictSizeMin,
		buf:  make([]byte, size),
	}
	for i := uint32(0); i < DictSizeMin; i++ {
		d.root[i] = decEntry{parent: 0, label: uint16(i)}
	}
	return d
}

// update materializes the string for code into the scratch buffer and
// installs a new pending entry at d.next, following dictionary_update in
// the original C source exactly: walk parent pointers into the high end of
// the buffer, apply the KwKwK special case, fill the previous pending
// entry's deferred label, then publish the output window.
//
// After update returns, output is available at d.buf[d.offset:d.offset+d.nBytes].
func (d *decoderDict) update(code uint32) {
	last := int(d.size) - 1
	i := last
	p := code

	for {
		d.buf[i] = byte(d.root[p].label)
		i--
		if p < DictSizeMin || i == 0 {
			break
		}
		p = d.root[p].parent
	}

	// KwKwK case: code refers to the entry currently being installed, so
	// its last byte is not yet known — it is the first byte of this same
	// string.
	if code >= d.min && code == d.next-1 {
		d.buf[last] = d.buf[i+1]
	}

	// Deferred label fill: the previous pending entry's label is exactly
	// the first byte of the string we just decoded.
	if d.next > d.min {
		d.root[d.next-1].label = uint16(d.buf[i+1])
	}

	d.nBytes = last - i
	d.offset = last + 1 - d.nBytes
	d.root[d.next] = decEntry{parent: code}
	d.next++
}

// reset returns the dictionary to an empty epoch, keeping the literal
// entries (0..255) intact since they never need to change.
func (d *decoderDict) reset() {
	d.min = DictSizeMin
	d.next = DictSizeMin
}

// rotate replaces d's contents with sec's, the decoder-side counterpart of
// the encoder's primary/secondary dictionary swap: every entry sec has
// installed is copied into d at the code position it was assigned, d's
// epoch boundary (d_min) advances to where sec left off, and sec is
// cleared to start warming up the next epoch from empty.
//
// This mirrors the dictionary swap in decompress_code exactly, including
// its reliance on the hash table scan rather than any direct bookkeeping
// of which codes sec actually populated.
func (d *decoderDict) rotate(sec *encoderDict) {
	next := sec.next
	for _, e := range sec.root {
		if e.used {
			d.root[e.child] = decEntry{parent: e.parent, label: e.label}
		}
	}
	d.min = next
	d.next = next
	sec.reset()
}
