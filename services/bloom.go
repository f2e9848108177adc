package services

import (
	"encoding/binary"
	"hash/fnv"
	"math"

	"tournament-escrow-system/models"
)

// Bloom registry: a partitioned bloom filter serialized into a single byte
// buffer so it can live in one BloomRegistry row. The buffer layout is a
// fixed-size header followed by the bit buffer; the header stores the slice
// geometry so the filter can be reloaded without re-deriving it.
//
// Sizing follows the partitioned construction:
//
//	num_slices     = ceil(log2(1/p))
//	slice_len_bits = ceil(capacity / ln 2)
//	total_bits     = num_slices * slice_len_bits
//
// The registry is capped at MaxBloomBytes; given that cap the maximum
// admissible capacity is solved in reverse, and tournament configurations
// needing more participants than that are rejected outright.
const (
	bloomHeaderBytes = 76
	MaxBloomBytes    = 8156
)

type BloomFilter struct {
	numSlices    uint32
	sliceLenBits uint32
	inserted     uint32
	bits         []byte
}

func bloomNumSlices(falsePositiveRate float64) uint32 {
	return uint32(math.Ceil(math.Log2(1.0 / falsePositiveRate)))
}

// BloomSizeFor returns the serialized size in bytes of a filter for the
// given capacity and target false-positive rate.
func BloomSizeFor(capacity int, falsePositiveRate float64) int {
	numSlices := bloomNumSlices(falsePositiveRate)
	sliceLenBits := uint32(math.Ceil(float64(capacity) / math.Ln2))
	totalBits := uint64(numSlices) * uint64(sliceLenBits)
	return bloomHeaderBytes + int((totalBits+7)/8)
}

// MaxBloomCapacity solves the sizing formula backward against the storage
// cap: the largest item count whose filter still fits in MaxBloomBytes.
func MaxBloomCapacity(falsePositiveRate float64) int {
	numSlices := bloomNumSlices(falsePositiveRate)
	return int(math.Floor(float64(MaxBloomBytes-bloomHeaderBytes) * 8.0 * math.Ln2 / float64(numSlices)))
}

// NewBloomFilter sizes a filter for capacity items at the target rate.
// Capacities the storage cap cannot accommodate are rejected with
// ErrMaxPlayersExceeded.
func NewBloomFilter(capacity int, falsePositiveRate float64) (*BloomFilter, error) {
	if falsePositiveRate <= 0 || falsePositiveRate >= 1 {
		return nil, models.ErrInvalidPrecision
	}
	if capacity <= 0 || capacity > MaxBloomCapacity(falsePositiveRate) {
		return nil, models.ErrMaxPlayersExceeded
	}

	numSlices := bloomNumSlices(falsePositiveRate)
	sliceLenBits := uint32(math.Ceil(float64(capacity) / math.Ln2))
	totalBits := uint64(numSlices) * uint64(sliceLenBits)

	return &BloomFilter{
		numSlices:    numSlices,
		sliceLenBits: sliceLenBits,
		bits:         make([]byte, (totalBits+7)/8),
	}, nil
}

// LoadBloomFilter reconstructs a filter from a persisted buffer.
func LoadBloomFilter(data []byte) (*BloomFilter, error) {
	if len(data) < bloomHeaderBytes {
		return nil, models.ErrInvalidPrecision
	}
	b := &BloomFilter{
		numSlices:    binary.LittleEndian.Uint32(data[0:4]),
		sliceLenBits: binary.LittleEndian.Uint32(data[4:8]),
		inserted:     binary.LittleEndian.Uint32(data[8:12]),
		bits:         make([]byte, len(data)-bloomHeaderBytes),
	}
	copy(b.bits, data[bloomHeaderBytes:])
	return b, nil
}

// Bytes serializes the filter for persistence.
func (b *BloomFilter) Bytes() []byte {
	out := make([]byte, bloomHeaderBytes+len(b.bits))
	binary.LittleEndian.PutUint32(out[0:4], b.numSlices)
	binary.LittleEndian.PutUint32(out[4:8], b.sliceLenBits)
	binary.LittleEndian.PutUint32(out[8:12], b.inserted)
	copy(out[bloomHeaderBytes:], b.bits)
	return out
}

// Insert adds an item and reports whether it was new. False means every
// slice bit was already set: the item is probably present. Callers must
// treat that as "already registered" and never try to disambiguate a true
// duplicate from a false positive. There is no removal.
func (b *BloomFilter) Insert(item string) bool {
	h1, h2 := b.hashPair(item)

	present := true
	for i := uint32(0); i < b.numSlices; i++ {
		pos := b.slicePos(h1, h2, i)
		if !b.getBit(pos) {
			present = false
		}
	}
	if present {
		return false
	}

	for i := uint32(0); i < b.numSlices; i++ {
		b.setBit(b.slicePos(h1, h2, i))
	}
	b.inserted++
	return true
}

// Contains reports probable membership without mutating the filter.
func (b *BloomFilter) Contains(item string) bool {
	h1, h2 := b.hashPair(item)
	for i := uint32(0); i < b.numSlices; i++ {
		if !b.getBit(b.slicePos(h1, h2, i)) {
			return false
		}
	}
	return true
}

// Count returns how many items have been inserted.
func (b *BloomFilter) Count() int {
	return int(b.inserted)
}

// slicePos maps an item onto slice i via double hashing; each slice owns
// its own bit region so slices stay independent.
func (b *BloomFilter) slicePos(h1, h2 uint64, i uint32) uint64 {
	idx := (h1 + uint64(i)*h2) % uint64(b.sliceLenBits)
	return uint64(i)*uint64(b.sliceLenBits) + idx
}

func (b *BloomFilter) hashPair(item string) (uint64, uint64) {
	h := fnv.New64a()
	h.Write([]byte(item))
	h1 := h.Sum64()

	h.Write([]byte{0xff})
	h2 := h.Sum64() | 1 // odd, so the double-hash stride cycles the slice
	return h1, h2
}

func (b *BloomFilter) getBit(pos uint64) bool {
	return b.bits[pos/8]&(1<<(pos%8)) != 0
}

func (b *BloomFilter) setBit(pos uint64) {
	b.bits[pos/8] |= 1 << (pos % 8)
}
