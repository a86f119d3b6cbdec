// Package fixture reads and writes pixsort test cases.
//
// A case file starts with the 4-byte magic "PXSF" and a version byte,
// followed by a zstd frame holding the body:
//
//	u32 N (channel count)   u32 L (pixel count)   u8 flags
//	N*L f32 values, channel-major
//	L   u32 offsets
//	L*N u32 expected output (only when flagExpected is set)
//
// All integers and floats are little-endian. Flags bit 0 selects
// TieBreakOffset, bit 1 marks an expected output and bits 2-3 hold the NaN
// policy.
package fixture

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/gogpu/pixsort"
)

// Magic identifies a case file.
const Magic = "PXSF"

// Version is the only format version this package reads and writes.
const Version = 1

const (
	flagTieBreakOffset = 1 << 0
	flagExpected       = 1 << 1
	flagNaNShift       = 2
	flagNaNMask        = 0b11 << flagNaNShift
)

const headerSize = len(Magic) + 1

// MaxChannels is the largest channel count a case may hold.
const MaxChannels = 1 << 16

// maxBodySize caps the decompressed body.
const maxBodySize = 1 << 30

var (
	// ErrBadMagic is returned when the input does not start with Magic.
	ErrBadMagic = errors.New("fixture: bad magic")

	// ErrUnsupportedVersion is returned for a version other than Version.
	ErrUnsupportedVersion = errors.New("fixture: unsupported version")

	// ErrTruncated is returned when the body is shorter than its header
	// declares, or the compressed frame cannot be decoded.
	ErrTruncated = errors.New("fixture: truncated")

	// ErrBadHeader is returned when the body declares no channels or more
	// than MaxChannels.
	ErrBadHeader = errors.New("fixture: bad body header")
)

// Case is one sort input, optionally with the output recorded when it was
// captured.
type Case struct {
	Channels [][]float32
	Offsets  []uint32
	TieBreak pixsort.TieBreak
	NaN      pixsort.NaNPolicy

	// Expected is the channel-major output, or nil when not recorded.
	Expected []uint32
}

// ChannelCount returns len(c.Channels).
func (c *Case) ChannelCount() int {
	return len(c.Channels)
}

// Len returns the number of pixels.
func (c *Case) Len() int {
	return len(c.Offsets)
}

// Validate reports shape errors the way the sorter would, plus an expected
// output of the wrong length.
func (c *Case) Validate() error {
	if err := pixsort.ValidateShape(c.Channels, c.Offsets, len(c.Channels)); err != nil {
		return err
	}
	if len(c.Channels) > MaxChannels {
		return fmt.Errorf("%w: %d channels, at most %d", pixsort.ErrInvalidInputShape, len(c.Channels), MaxChannels)
	}
	if c.Expected != nil && len(c.Expected) != c.Len()*c.ChannelCount() {
		return fmt.Errorf("%w: expected output has %d entries, want %d",
			pixsort.ErrInvalidInputShape, len(c.Expected), c.Len()*c.ChannelCount())
	}
	return nil
}

var encoderPool = sync.Pool{
	New: func() any {
		enc, err := zstd.NewWriter(
			nil,
			zstd.WithEncoderConcurrency(1),
			zstd.WithEncoderLevel(zstd.SpeedBetterCompression),
			zstd.WithLowerEncoderMem(true),
		)
		if err != nil {
			panic(err)
		}
		return enc
	},
}

var decoderPool = sync.Pool{
	New: func() any {
		dec, err := zstd.NewReader(
			nil,
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderLowmem(true),
			zstd.WithDecoderMaxMemory(maxBodySize),
		)
		if err != nil {
			panic(err)
		}
		return dec
	},
}

// Write encodes c to w.
func Write(w io.Writer, c *Case) error {
	if err := c.Validate(); err != nil {
		return err
	}

	n, l := c.ChannelCount(), c.Len()
	body := make([]byte, 0, 9+4*(n*l+l+len(c.Expected)))
	body = binary.LittleEndian.AppendUint32(body, uint32(n)) //nolint:gosec // channel count fits uint32
	body = binary.LittleEndian.AppendUint32(body, uint32(l)) //nolint:gosec // pixel count fits uint32
	body = append(body, c.flags())
	for _, ch := range c.Channels {
		for _, v := range ch {
			body = binary.LittleEndian.AppendUint32(body, math.Float32bits(v))
		}
	}
	for _, off := range c.Offsets {
		body = binary.LittleEndian.AppendUint32(body, off)
	}
	for _, off := range c.Expected {
		body = binary.LittleEndian.AppendUint32(body, off)
	}

	enc := encoderPool.Get().(*zstd.Encoder)
	out := make([]byte, 0, headerSize+len(body)/2)
	out = append(out, Magic...)
	out = append(out, Version)
	out = enc.EncodeAll(body, out)
	encoderPool.Put(enc)

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("fixture: write: %w", err)
	}
	return nil
}

func (c *Case) flags() byte {
	var f byte
	if c.TieBreak == pixsort.TieBreakOffset {
		f |= flagTieBreakOffset
	}
	if c.Expected != nil {
		f |= flagExpected
	}
	f |= (byte(c.NaN) << flagNaNShift) & flagNaNMask
	return f
}

// Read decodes one case from r, consuming r to EOF.
func Read(r io.Reader) (*Case, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("fixture: read: %w", err)
	}
	if len(data) < headerSize {
		if bytes.HasPrefix([]byte(Magic), data) {
			return nil, fmt.Errorf("%w: %d byte header", ErrTruncated, len(data))
		}
		return nil, ErrBadMagic
	}
	if string(data[:len(Magic)]) != Magic {
		return nil, fmt.Errorf("%w: %q", ErrBadMagic, data[:len(Magic)])
	}
	if v := data[len(Magic)]; v != Version {
		return nil, fmt.Errorf("%w: %d", ErrUnsupportedVersion, v)
	}

	dec := decoderPool.Get().(*zstd.Decoder)
	body, err := dec.DecodeAll(data[headerSize:], nil)
	decoderPool.Put(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTruncated, err)
	}
	return decodeBody(body)
}

func decodeBody(body []byte) (*Case, error) {
	if len(body) < 9 {
		return nil, fmt.Errorf("%w: %d byte body", ErrTruncated, len(body))
	}
	n64 := uint64(binary.LittleEndian.Uint32(body[0:]))
	l64 := uint64(binary.LittleEndian.Uint32(body[4:]))
	flags := body[8]
	rest := body[9:]

	if n64 == 0 || n64 > MaxChannels {
		return nil, fmt.Errorf("%w: %d channels", ErrBadHeader, n64)
	}
	// n64 <= 1<<16 and l64 < 1<<32, so no term below can wrap.
	words := n64*l64 + l64
	if flags&flagExpected != 0 {
		words += n64 * l64
	}
	if uint64(len(rest))/4 != words || uint64(len(rest))%4 != 0 {
		return nil, fmt.Errorf("%w: body holds %d bytes, header needs %d", ErrTruncated, len(rest), words*4)
	}
	n, l := int(n64), int(l64)

	c := &Case{
		Channels: make([][]float32, n),
		Offsets:  make([]uint32, l),
		NaN:      pixsort.NaNPolicy((flags & flagNaNMask) >> flagNaNShift),
	}
	if flags&flagTieBreakOffset != 0 {
		c.TieBreak = pixsort.TieBreakOffset
	}

	pos := 0
	next := func() uint32 {
		v := binary.LittleEndian.Uint32(rest[pos:])
		pos += 4
		return v
	}
	for ch := range c.Channels {
		c.Channels[ch] = make([]float32, l)
		for i := range c.Channels[ch] {
			c.Channels[ch][i] = math.Float32frombits(next())
		}
	}
	for i := range c.Offsets {
		c.Offsets[i] = next()
	}
	if flags&flagExpected != 0 {
		c.Expected = make([]uint32, n*l)
		for i := range c.Expected {
			c.Expected[i] = next()
		}
	}
	return c, nil
}

// Save writes c to the named file, creating or truncating it.
func Save(path string, c *Case) error {
	var buf bytes.Buffer
	if err := Write(&buf, c); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // fixtures are not secret
		return fmt.Errorf("fixture: save %s: %w", path, err)
	}
	return nil
}

// Load reads a case from the named file.
func Load(path string) (*Case, error) {
	f, err := os.Open(path) //nolint:gosec // path supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("fixture: load: %w", err)
	}
	defer f.Close()
	c, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
