package http2

import (
	"sync"
)

// dynamicTableEntryOverhead is the per-entry accounting overhead
// added to the key+value byte length when computing a dynamic table
// entry's contribution to HPACK's table size.
//
// https://tools.ietf.org/html/rfc7541#section-4.1
const dynamicTableEntryOverhead = 32

var hpackPool = sync.Pool{
	New: func() interface{} {
		hp := &HPACK{}
		hp.Reset()
		return hp
	},
}

// AcquireHPack returns an HPACK decoder/encoder from the pool, ready
// to use with the RFC 7540 default dynamic table size.
func AcquireHPack() *HPACK {
	return hpackPool.Get().(*HPACK)
}

// ReleaseHPack releases fields held by hp and returns it to the pool.
func ReleaseHPack(hp *HPACK) {
	hp.Reset()
	hpackPool.Put(hp)
}

// HPACK implements the header compression scheme of RFC 7541: a
// decoder and encoder sharing one dynamic table.
//
// fields accumulates the headers decoded by the most recent call to
// Read, or added via Add for the next call to Write; call
// releaseFields (or Reset) between uses to recycle them.
//
// An HPACK value is not safe for concurrent use.
type HPACK struct {
	// DisableCompression turns off Huffman encoding in Write, emitting
	// literal strings instead. Used by conformance tests that need to
	// compare against known plaintext wire bytes.
	DisableCompression bool

	fields  []*HeaderField
	dynamic []*HeaderField

	tableSize    int
	maxTableSize int
}

// Reset clears hp back to a fresh decoder with the RFC 7540 default
// dynamic table size.
func (hp *HPACK) Reset() {
	hp.releaseFields()
	hp.dynamic = hp.dynamic[:0]
	hp.tableSize = 0
	hp.maxTableSize = defaultHeaderTableSize
	hp.DisableCompression = false
}

func (hp *HPACK) releaseFields() {
	for _, hf := range hp.fields {
		ReleaseHeaderField(hf)
	}
	hp.fields = hp.fields[:0]
}

// SetMaxTableSize sets the maximum size the dynamic table may grow to;
// existing entries are evicted immediately if they no longer fit.
func (hp *HPACK) SetMaxTableSize(size int) {
	hp.maxTableSize = size
	hp.evict()
}

// Add appends a header field to be written by the next call to Write.
func (hp *HPACK) Add(k, v string) *HeaderField {
	hf := AcquireHeaderField()
	hf.Set(k, v)
	hp.fields = append(hp.fields, hf)
	return hf
}

// AddBytes is the []byte counterpart of Add.
func (hp *HPACK) AddBytes(k, v []byte) *HeaderField {
	hf := AcquireHeaderField()
	hf.SetBytes(k, v)
	hp.fields = append(hp.fields, hf)
	return hf
}

func (hp *HPACK) addDynamic(hf *HeaderField) {
	cp := AcquireHeaderField()
	hf.CopyTo(cp)
	hp.dynamic = append([]*HeaderField{cp}, hp.dynamic...)
	hp.tableSize += hf.Size()
	hp.evict()
}

func (hp *HPACK) evict() {
	for hp.tableSize > hp.maxTableSize && len(hp.dynamic) > 0 {
		last := hp.dynamic[len(hp.dynamic)-1]
		hp.tableSize -= last.Size()
		ReleaseHeaderField(last)
		hp.dynamic = hp.dynamic[:len(hp.dynamic)-1]
	}
}

// dynamicByIndex returns the dynamic table entry for a 0-based index
// (0 is the most recently inserted entry), or nil if out of range.
func (hp *HPACK) dynamicByIndex(i int) *HeaderField {
	if i < 0 || i >= len(hp.dynamic) {
		return nil
	}
	return hp.dynamic[i]
}

// byIndex resolves a combined static+dynamic HPACK index (1-based) as
// defined by RFC 7541 §2.3.3.
func (hp *HPACK) byIndex(i uint64) (key, value string, ok bool) {
	if i == 0 {
		return "", "", false
	}
	if int(i) <= staticTableLen {
		hf := &staticTable[i]
		return string(hf.key), string(hf.value), true
	}
	d := hp.dynamicByIndex(int(i) - staticTableLen - 1)
	if d == nil {
		return "", "", false
	}
	return d.Key(), d.Value(), true
}

// AppendHeader appends hf's HPACK representation to dst. If store is
// true (the header is not sensitive) and an exact match isn't already
// in either table, hf is inserted into the dynamic table.
func (hp *HPACK) AppendHeader(dst []byte, hf *HeaderField, store bool) []byte {
	key, value := hf.Key(), hf.Value()

	if idx := staticFind(key, value); idx > 0 {
		return appendIndexed(dst, idx)
	}
	if idx := hp.findDynamic(key, value); idx > 0 {
		return appendIndexed(dst, idx)
	}

	var nameIdx int
	if idx := staticFindKey(key); idx > 0 {
		nameIdx = idx
	} else if idx := hp.findDynamicKey(key); idx > 0 {
		nameIdx = idx
	}

	sensible := hf.IsSensible() || isSensibleValue(key, value)

	switch {
	case sensible:
		dst = hp.appendLiteral(dst, 0x10, 4, nameIdx, key, value)
	case store:
		dst = hp.appendLiteral(dst, 0x40, 6, nameIdx, key, value)
		hp.addDynamic(hf)
	default:
		dst = hp.appendLiteral(dst, 0x0, 4, nameIdx, key, value)
	}

	return dst
}

// appendIndexed emits a fully indexed header field (RFC 7541 §6.1):
// the 7-bit-prefixed index with the high bit set, continuation bytes
// added when idx doesn't fit seven bits.
func appendIndexed(dst []byte, idx int) []byte {
	first := len(dst)
	dst = appendInt(dst, 7, uint64(idx))
	dst[first] |= 0x80
	return dst
}

func (hp *HPACK) appendLiteral(dst []byte, prefixBits byte, n int, nameIdx int, key, value string) []byte {
	if nameIdx > 0 {
		// Encode the index on its own n-bit prefix first (so
		// continuation bytes are emitted correctly when nameIdx
		// doesn't fit), then OR the representation's flag bits into
		// the untouched high bits of the first byte.
		first := len(dst)
		dst = appendInt(dst, uint8(n), uint64(nameIdx))
		dst[first] |= prefixBits
	} else {
		first := len(dst)
		dst = appendInt(dst, uint8(n), 0)
		dst[first] |= prefixBits
		dst = writeString(dst, s2b(key), !hp.DisableCompression)
	}
	dst = writeString(dst, s2b(value), !hp.DisableCompression)
	return dst
}

func (hp *HPACK) findDynamic(key, value string) int {
	for i, d := range hp.dynamic {
		if d.Key() == key && d.Value() == value {
			return staticTableLen + i + 1
		}
	}
	return 0
}

func (hp *HPACK) findDynamicKey(key string) int {
	for i, d := range hp.dynamic {
		if d.Key() == key {
			return staticTableLen + i + 1
		}
	}
	return 0
}

// Write encodes every field added via Add/AddBytes since the last
// releaseFields and appends the result to dst.
func (hp *HPACK) Write(dst []byte) ([]byte, error) {
	for _, hf := range hp.fields {
		store := !hf.IsSensible() && !isSensibleValue(hf.Key(), hf.Value()) && shouldIndex(hf.Key())
		dst = hp.AppendHeader(dst, hf, store)
	}
	return dst, nil
}

// Read decodes the header block in src, populating hp.fields and
// updating the dynamic table, and returns any unconsumed bytes of src
// (always empty unless src ends mid-representation).
func (hp *HPACK) Read(src []byte) ([]byte, error) {
	for len(src) > 0 {
		b := src[0]

		switch {
		case b&0x80 != 0: // indexed header field, RFC 7541 §6.1
			var idx uint64
			var err error
			src, idx, err = readInt(7, src)
			if err != nil {
				return src, err
			}
			key, value, ok := hp.byIndex(idx)
			if !ok {
				return src, NewConnError(CompressionError, "invalid HPACK index")
			}
			hf := AcquireHeaderField()
			hf.Set(key, value)
			hp.fields = append(hp.fields, hf)

		case b&0xc0 == 0x40: // literal with incremental indexing, §6.2.1
			rest, idx, key, value, err := hp.readLiteral(src, 6)
			if err != nil {
				return src, err
			}
			src = rest
			hf := AcquireHeaderField()
			if idx > 0 {
				k, _, ok := hp.byIndex(idx)
				if !ok {
					return src, NewConnError(CompressionError, "invalid HPACK index")
				}
				hf.SetKey(k)
			} else {
				hf.SetKey(key)
			}
			hf.SetValue(value)
			hp.fields = append(hp.fields, hf)
			hp.addDynamic(hf)

		case b&0xe0 == 0x20: // dynamic table size update, §6.3
			rest, size, err := readInt(5, src)
			if err != nil {
				return src, err
			}
			src = rest
			if int(size) > hp.maxTableSize {
				return src, NewConnError(CompressionError, "dynamic table size update exceeds negotiated maximum")
			}
			hp.SetMaxTableSize(int(size))

		case b&0xf0 == 0x10: // literal never indexed, §6.2.3
			rest, idx, key, value, err := hp.readLiteral(src, 4)
			if err != nil {
				return src, err
			}
			src = rest
			hf := AcquireHeaderField()
			if idx > 0 {
				k, _, ok := hp.byIndex(idx)
				if !ok {
					return src, NewConnError(CompressionError, "invalid HPACK index")
				}
				hf.SetKey(k)
			} else {
				hf.SetKey(key)
			}
			hf.SetValue(value)
			hp.fields = append(hp.fields, hf)

		default: // literal without indexing, §6.2.2 (b&0xf0 == 0x00)
			rest, idx, key, value, err := hp.readLiteral(src, 4)
			if err != nil {
				return src, err
			}
			src = rest
			hf := AcquireHeaderField()
			if idx > 0 {
				k, _, ok := hp.byIndex(idx)
				if !ok {
					return src, NewConnError(CompressionError, "invalid HPACK index")
				}
				hf.SetKey(k)
			} else {
				hf.SetKey(key)
			}
			hf.SetValue(value)
			hp.fields = append(hp.fields, hf)
		}
	}

	return src, nil
}

// readLiteral decodes a literal representation's name-index/name and
// value, given the prefix width n of the index field.
func (hp *HPACK) readLiteral(src []byte, n int) (rest []byte, nameIdx uint64, key, value string, err error) {
	src, nameIdx, err = readInt(n, src)
	if err != nil {
		return src, 0, "", "", err
	}

	if nameIdx == 0 {
		var kb []byte
		kb, src, err = readString(nil, src)
		if err != nil {
			return src, 0, "", "", err
		}
		key = string(kb)
	}

	var vb []byte
	vb, src, err = readString(nil, src)
	if err != nil {
		return src, 0, "", "", err
	}

	return src, nameIdx, key, string(vb), nil
}

// writeInt encodes i using an N-bit prefix integer representation
// (RFC 7541 §5.1) at the start of dst, discarding dst's previous
// contents, and returns the encoded bytes.
func writeInt(dst []byte, n uint8, i uint64) []byte {
	return appendInt(dst[:0], n, i)
}

// appendInt encodes i as an HPACK N-bit-prefix integer (RFC 7541 §5.1)
// and appends it to dst. The caller is responsible for OR-ing any
// representation flag bits into the first emitted byte afterwards
// (the low n bits of that byte are the only ones appendInt touches).
func appendInt(dst []byte, n uint8, i uint64) []byte {
	mask := uint64(1<<n - 1)

	if i < mask {
		return append(dst, byte(i))
	}

	dst = append(dst, byte(mask))
	i -= mask

	for i >= 128 {
		dst = append(dst, byte(i&0x7f)|0x80)
		i >>= 7
	}

	return append(dst, byte(i))
}

func readInt(n uint8, src []byte) ([]byte, uint64, error) {
	if len(src) == 0 {
		return src, 0, ErrMissingBytes
	}

	mask := uint64(1<<n - 1)
	v := uint64(src[0]) & mask
	src = src[1:]

	if v < mask {
		return src, v, nil
	}

	var m uint
	for {
		if len(src) == 0 {
			return src, 0, ErrMissingBytes
		}
		b := src[0]
		src = src[1:]

		v += uint64(b&0x7f) << m
		if v > 1<<62 {
			return src, 0, ErrBitOverflow
		}
		m += 7

		if b&0x80 == 0 {
			break
		}
	}

	return src, v, nil
}

func readIntFrom(n uint8, br byteReader) (uint64, error) {
	b, err := br.ReadByte()
	if err != nil {
		return 0, err
	}

	mask := uint64(1<<n - 1)
	v := uint64(b) & mask
	if v < mask {
		return v, nil
	}

	var m uint
	for {
		b, err = br.ReadByte()
		if err != nil {
			return 0, err
		}

		v += uint64(b&0x7f) << m
		if v > 1<<62 {
			return 0, ErrBitOverflow
		}
		m += 7

		if b&0x80 == 0 {
			break
		}
	}

	return v, nil
}

// byteReader is the minimal surface readIntFrom needs; *bufio.Reader
// satisfies it.
type byteReader interface {
	ReadByte() (byte, error)
}

// writeString appends s as an HPACK string literal (RFC 7541 §5.2),
// Huffman-encoding it when huff is true and doing so is shorter.
func writeString(dst []byte, s []byte, huff bool) []byte {
	if huff {
		encodedLen := HuffmanEncodedLen(s)
		if encodedLen < len(s) {
			first := len(dst)
			dst = appendInt(dst, 7, uint64(encodedLen))
			dst[first] |= 0x80
			return HuffmanEncode(dst, s)
		}
	}

	dst = appendInt(dst, 7, uint64(len(s)))
	return append(dst, s...)
}

func readString(dst, src []byte) ([]byte, []byte, error) {
	if len(src) == 0 {
		return dst, src, ErrMissingBytes
	}

	huff := src[0]&0x80 != 0

	src, n, err := readInt(7, src)
	if err != nil {
		return dst, src, err
	}
	if uint64(len(src)) < n {
		return dst, src, ErrMissingBytes
	}

	raw := src[:n]
	src = src[n:]

	if huff {
		dst, err = HuffmanDecode(dst, raw)
		if err != nil {
			return dst, src, err
		}
	} else {
		dst = append(dst, raw...)
	}

	return dst, src, nil
}
