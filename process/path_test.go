package process_test

import (
	"bytes"
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickmem/process"
	"tickmem/process_blob"
	"tickmem/retry"
)

const base = process.ProcessMemoryAddress(0x7f0000001000)

type vec3 struct {
	X, Y, Z float32
}

func roundTrip[T comparable](t *testing.T, acc process.Accessor, addr process.ProcessMemoryAddress, v T) {
	t.Helper()
	require.NoError(t, process.Write(acc, addr, v))
	got, err := process.Read[T](acc, addr)
	require.NoError(t, err)
	assert.Equal(t, v, got)
}

func TestReadWriteRoundTrip(t *testing.T) {
	blob := process_blob.NewZeroed(base, 256)

	roundTrip(t, blob, base, uint8(0xAB))
	roundTrip(t, blob, base+1, int8(-7))
	roundTrip(t, blob, base+2, uint16(0xBEEF))
	roundTrip(t, blob, base+4, int32(-123456))
	roundTrip(t, blob, base+8, uint64(0x1122334455667788))
	roundTrip(t, blob, base+16, int64(math.MinInt64))
	roundTrip(t, blob, base+24, float32(3.25))
	roundTrip(t, blob, base+32, -2.5e-300)
	roundTrip(t, blob, base+40, uintptr(0xdeadbeef))
	roundTrip(t, blob, base+48, [12]byte{'d', 'e', '_', 'd', 'u', 's', 't', '2'})
	roundTrip(t, blob, base+64, vec3{1, -2, 3.5})
}

func TestReadFailsOnShortTransfer(t *testing.T) {
	blob := process_blob.NewZeroed(base, 64)

	// Backend reports a short count without an error; the typed layer must still fail.
	blob.SetTransferCap(2, true)

	_, err := process.Read[uint32](blob, base)
	assert.ErrorIs(t, err, process.ErrShortRead)

	err = process.Write(blob, base, uint64(1))
	assert.ErrorIs(t, err, process.ErrShortWrite)

	_, err = process.Read[uint16](blob, base)
	assert.NoError(t, err)
}

func TestReadPastEnd(t *testing.T) {
	blob := process_blob.NewZeroed(base, 8)

	_, err := process.Read[uint64](blob, base+4)
	assert.ErrorIs(t, err, process.ErrShortRead)

	err = process.Write(blob, base+6, uint32(1))
	assert.ErrorIs(t, err, process.ErrShortWrite)
}

func TestReadZeroSized(t *testing.T) {
	blob := process_blob.NewZeroed(base, 8)

	_, err := process.Read[struct{}](blob, base)
	assert.ErrorIs(t, err, process.ErrZeroSizedType)
}

type entityRef struct {
	ID   uint32
	Name string
}

type nestedRef struct {
	Pos  vec3
	Refs [2]*vec3
}

func TestTypedHelpersRejectPointerTypes(t *testing.T) {
	blob := process_blob.NewProcessBlob(base, bytes.Repeat([]byte{0xFF}, 256))

	_, err := process.Read[string](blob, base)
	assert.ErrorIs(t, err, process.ErrPointerType)

	_, err = process.Read[[]byte](blob, base)
	assert.ErrorIs(t, err, process.ErrPointerType)

	_, err = process.Read[*uint64](blob, base)
	assert.ErrorIs(t, err, process.ErrPointerType)

	_, err = process.Read[map[int]int](blob, base)
	assert.ErrorIs(t, err, process.ErrPointerType)

	_, err = process.Read[any](blob, base)
	assert.ErrorIs(t, err, process.ErrPointerType)

	_, err = process.Read[entityRef](blob, base)
	assert.ErrorIs(t, err, process.ErrPointerType)

	_, err = process.Read[nestedRef](blob, base)
	assert.ErrorIs(t, err, process.ErrPointerType)

	_, err = process.ReadSlice[entityRef](blob, base, 2)
	assert.ErrorIs(t, err, process.ErrPointerType)

	assert.ErrorIs(t, process.Write(blob, base, "tick"), process.ErrPointerType)

	// Nothing was written by the rejected call.
	v, err := process.Read[uint32](blob, base)
	require.NoError(t, err)
	assert.Equal(t, uint32(0xFFFFFFFF), v)
}

func TestReadString(t *testing.T) {
	data := make([]byte, 32)
	copy(data, "de_mirage\x00junk")
	copy(data[24:], "abcdefgh")
	blob := process_blob.NewProcessBlob(base, data)

	s, err := process.ReadString(blob, base, 64)
	require.NoError(t, err)
	assert.Equal(t, "de_mirage", s)

	s, err = process.ReadString(blob, base, 4)
	assert.ErrorIs(t, err, process.ErrUnterminatedString)
	assert.Equal(t, "de_m", s)

	// Runs off the end of the region: stops at the first unreadable byte.
	s, err = process.ReadString(blob, base+24, 64)
	require.NoError(t, err)
	assert.Equal(t, "abcdefgh", s)

	_, err = process.ReadString(blob, base+100, 64)
	assert.ErrorIs(t, err, process.ErrShortRead)
}

func TestReadPath(t *testing.T) {
	blob := process_blob.NewZeroed(base, 0x200)

	// base+0x10 -> A; A+0x20 -> B; value at B+0x8
	a := base + 0x100
	b := base + 0x180
	require.NoError(t, process.Write(blob, base+0x10, uint64(a)))
	require.NoError(t, process.Write(blob, a+0x20, uint64(b)))
	require.NoError(t, process.Write(blob, b+0x8, int32(100)))

	v, err := process.ReadPath[int32](blob, base, 0x10, 0x20, 0x8)
	require.NoError(t, err)
	assert.Equal(t, int32(100), v)

	v, err = process.ReadPath[int32](blob, b+0x8)
	require.NoError(t, err)
	assert.Equal(t, int32(100), v)

	_, err = process.ReadPath[int32](blob, base, 0x18, 0x0)
	assert.ErrorIs(t, err, process.ErrInvalidPointer)
}

func TestWaitPointer(t *testing.T) {
	blob := process_blob.NewZeroed(base, 64)
	cfg := retry.Config{MaxRetries: 50, InitialBackoff: time.Millisecond, MaxBackoff: 5 * time.Millisecond}

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = process.Write(blob, base+8, uint64(0x1234))
	}()

	ptr, err := process.WaitPointer(context.Background(), blob, base+8, cfg)
	require.NoError(t, err)
	assert.Equal(t, process.ProcessMemoryAddress(0x1234), ptr)
}

func TestWaitPointerTimeout(t *testing.T) {
	blob := process_blob.NewZeroed(base, 64)
	cfg := retry.Config{MaxRetries: 3, InitialBackoff: time.Millisecond}

	_, err := process.WaitPointer(context.Background(), blob, base, cfg)
	assert.ErrorIs(t, err, retry.ErrTimeout)
	assert.ErrorIs(t, err, process.ErrInvalidPointer)
}
