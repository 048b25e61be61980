package entropy

import (
	"fmt"
	"math/rand/v2"
)

// Sampler derives values from raw segment bytes at random offsets.
// The zero value is ready to use.
type Sampler struct {
	// IntN returns a uniform integer in [0, n). Defaults to math/rand/v2.
	IntN func(n int) int
}

// Unsigned reads 4 bytes big-endian starting at a uniform offset in [0, len-4].
func (s Sampler) Unsigned(buf []byte) (uint32, error) {
	if len(buf) < 4 {
		return 0, fmt.Errorf("%w: need 4 bytes, have %d", ErrShortBuffer, len(buf))
	}

	start := s.intN(len(buf) - 3)

	return uint32(buf[start])<<24 |
		uint32(buf[start+1])<<16 |
		uint32(buf[start+2])<<8 |
		uint32(buf[start+3]), nil
}

// Boolean reports whether the byte at a uniform offset is odd.
func (s Sampler) Boolean(buf []byte) (bool, error) {
	if len(buf) == 0 {
		return false, fmt.Errorf("%w: empty buffer", ErrShortBuffer)
	}

	return buf[s.intN(len(buf))]&1 != 0, nil
}

// Signed reinterprets an unsigned draw as int32 and negates it when an
// independent boolean draw from the same buffer is true.
func (s Sampler) Signed(buf []byte) (int32, error) {
	value, err := s.Unsigned(buf)
	if err != nil {
		return 0, err
	}

	negate, err := s.Boolean(buf)
	if err != nil {
		return 0, err
	}

	number := int32(value)
	if negate {
		number = -number
	}
	return number, nil
}

func (s Sampler) intN(n int) int {
	if s.IntN != nil {
		return s.IntN(n)
	}
	return rand.IntN(n)
}

// Color is an RGB triple taken from the low 24 bits of a sample.
type Color struct {
	Red   uint8 `json:"red"`
	Green uint8 `json:"green"`
	Blue  uint8 `json:"blue"`
}

// ColorFrom splits value into its red, green and blue bytes.
func ColorFrom(value uint32) Color {
	return Color{
		Red:   uint8(value >> 16),
		Green: uint8(value >> 8),
		Blue:  uint8(value),
	}
}

// Hex packs the color as 0xRRGGBB.
func (c Color) Hex() uint32 {
	return uint32(c.Red)<<16 | uint32(c.Green)<<8 | uint32(c.Blue)
}
