package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickmem/process"
	"tickmem/process_blob"
)

var signature = []byte{0x48, 0x8B, 0x05, 0xDE, 0xAD, 0xBE, 0xEF}

func plant(size int, at int, b []byte) *process_blob.ProcessBlob {
	data := make([]byte, size)
	for i := range data {
		data[i] = byte(i*7 + 3)
	}
	copy(data[at:], b)
	return process_blob.NewProcessBlob(0, data)
}

func TestFindPlanted(t *testing.T) {
	for _, at := range []int{0, 1, 100, 4095 - len(signature) + 1, 4096, 9000, 3*4096 - len(signature)} {
		blob := plant(3*4096, at, signature)

		addr, err := Find(blob, NewPattern(signature))
		require.NoError(t, err, "planted at %d", at)
		assert.Equal(t, process.ProcessMemoryAddress(at), addr)
	}
}

func TestFindStraddlingChunkBoundary(t *testing.T) {
	for shift := 1; shift < len(signature); shift++ {
		at := 4096 - shift
		blob := plant(3*4096, at, signature)

		addr, err := Find(blob, NewPattern(signature))
		require.NoError(t, err, "shift %d", shift)
		assert.Equal(t, process.ProcessMemoryAddress(at), addr)
	}
}

func TestFindSmallChunks(t *testing.T) {
	blob := plant(512, 301, signature)

	addr, err := Find(blob, NewPattern(signature), WithChunkSize(3))
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(301), addr)
}

func TestFindNotPresent(t *testing.T) {
	blob := plant(3*4096, 0, nil)

	_, err := Find(blob, NewPattern([]byte{0xCC, 0xCC, 0xCC, 0xCC, 0xCC}))
	assert.ErrorIs(t, err, ErrPatternNotFound)
}

func TestFindFromNonZeroBase(t *testing.T) {
	data := make([]byte, 8192)
	copy(data[5000:], signature)
	blob := process_blob.NewProcessBlob(0x7f0000000000, data)

	// Starting at 0 hits unmapped memory at once, exactly like a real target.
	_, err := Find(blob, NewPattern(signature))
	assert.ErrorIs(t, err, ErrPatternNotFound)

	addr, err := Find(blob, NewPattern(signature), WithStart(0x7f0000000000))
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x7f0000000000+5000), addr)
}

func TestFindWithLimit(t *testing.T) {
	blob := plant(8192, 6000, signature)

	_, err := Find(blob, NewPattern(signature), WithLimit(6003))
	assert.ErrorIs(t, err, ErrPatternNotFound)

	addr, err := Find(blob, NewPattern(signature), WithLimit(6000+process.ProcessMemoryAddress(len(signature))))
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(6000), addr)
}

func TestFindInModule(t *testing.T) {
	blob := plant(8192, 200, signature)
	require.NoError(t, process.Write(blob, 7000, [7]byte(signature)))

	m := process.Module{Name: "client.dll", BaseAddress: 4096, Size: 4096}
	addr, err := FindInModule(blob, m, NewPattern(signature))
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(7000), addr)
}

func TestFindInRanges(t *testing.T) {
	blob := plant(8192, 5000, signature)

	addr, err := FindInRanges(blob, []Range{{0, 1000}, {4000, 8192}}, NewPattern(signature))
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(5000), addr)

	_, err = FindInRanges(blob, []Range{{0, 1000}}, NewPattern(signature))
	assert.ErrorIs(t, err, ErrPatternNotFound)
}

func TestFindWildcard(t *testing.T) {
	blob := plant(4096, 1234, signature)

	p, err := ParsePattern("48 8B 05 ?? ?? BE EF")
	require.NoError(t, err)

	addr, err := Find(blob, p)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(1234), addr)
}

func TestFindShortReads(t *testing.T) {
	blob := plant(4096, 2000, signature)
	blob.SetTransferCap(100, true)

	addr, err := Find(blob, NewPattern(signature))
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(2000), addr)
}

func TestFindRejectsEmptyPattern(t *testing.T) {
	blob := plant(16, 0, nil)
	_, err := Find(blob, Pattern{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrPatternNotFound)
}

func TestParsePattern(t *testing.T) {
	p, err := ParsePattern("48,8b, ?? 05")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x48, 0x8B, 0x00, 0x05}, p.Bytes)
	assert.Equal(t, []byte{0xFF, 0xFF, 0x00, 0xFF}, p.Mask)
	assert.Equal(t, "48 8B ?? 05", p.String())

	_, err = ParsePattern("48 zz")
	assert.Error(t, err)

	_, err = ParsePattern("   ")
	assert.Error(t, err)

	_, err = NewMaskedPattern([]byte{1, 2}, []byte{0xFF})
	assert.Error(t, err)
}

func TestFindAll(t *testing.T) {
	data := make([]byte, 3*4096)
	for _, at := range []int{10, 4093, 8000} {
		copy(data[at:], signature)
	}
	blob := process_blob.NewProcessBlob(0x10000, data)

	all, err := FindAll(blob, NewPattern(signature), 0, WithStart(0x10000))
	require.NoError(t, err)
	assert.Equal(t, []process.ProcessMemoryAddress{0x10000 + 10, 0x10000 + 4093, 0x10000 + 8000}, all)

	two, err := FindAll(blob, NewPattern(signature), 2, WithStart(0x10000))
	require.NoError(t, err)
	assert.Len(t, two, 2)

	limited, err := FindAll(blob, NewPattern(signature), 0, WithStart(0x10000), WithLimit(0x10000+4096))
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	none, err := FindAll(blob, NewPattern([]byte{0xCC, 0xCC, 0xCC, 0xCC}), 0, WithStart(0x10000))
	require.NoError(t, err)
	assert.Empty(t, none)
}
