package algebra

import (
	"errors"
	"fmt"
	"math/big"
)

// EncodeNumeric64 converts a decimal literal with the given scale into the
// field's i64 storage encoding. It errors if the scaled value overflows
// int64.
func EncodeNumeric64(literal *big.Rat, scale int) (int64, error) {
	scaled := new(big.Rat).Mul(literal, new(big.Rat).SetInt(pow10(scale)))
	if !scaled.IsInt() {
		return 0, fmt.Errorf("algebra: numeric literal %s does not scale cleanly to %d decimal places", literal.RatString(), scale)
	}
	i := scaled.Num()
	if !i.IsInt64() {
		return 0, fmt.Errorf("algebra: scaled numeric literal %s overflows int64", i.String())
	}
	return i.Int64(), nil
}

func pow10(n int) *big.Int {
	return new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
}

// l85Alphabet is the teacher's lexicographically-sortable base85 alphabet
// (datalog/codec/l85.go), reused here to encode NumericBytes values: bytes
// whose unsigned lexicographic order must match numeric order.
const l85Alphabet = "!$%&()+,-./" +
	"0123456789:;<=>@" +
	"ABCDEFGHIJKLMNOPQRSTUVWXYZ[]_`" +
	"abcdefghijklmnopqrstuvwxyz{}"

var (
	l85Decode [256]byte

	// ErrInvalidNumericBytes indicates an invalid character in a
	// NumericBytes textual encoding.
	ErrInvalidNumericBytes = errors.New("algebra: invalid NumericBytes encoding")
)

func init() {
	for i, c := range l85Alphabet {
		l85Decode[byte(c)] = byte(i + 1)
	}
}

// EncodeNumericBytes maps a big-endian sign-and-magnitude numeric value to
// NumericBytes' lexicographically sortable textual form. The leading byte
// encodes the sign so that negative values sort before
// positive ones under plain byte comparison: 0x00 for negative, 0x01 for
// non-negative, followed by the magnitude (bitwise inversion applied to
// negative magnitudes so larger-magnitude negatives still sort
// first).
func EncodeNumericBytes(v *big.Int) string {
	mag := new(big.Int).Abs(v)
	raw := mag.Bytes()
	if v.Sign() < 0 {
		// Invert magnitude bytes so that more-negative values sort first.
		inv := make([]byte, len(raw))
		for i, b := range raw {
			inv[i] = ^b
		}
		return encodeL85(append([]byte{0x00}, inv...))
	}
	return encodeL85(append([]byte{0x01}, raw...))
}

// DecodeNumericBytes is the inverse of EncodeNumericBytes.
func DecodeNumericBytes(s string) (*big.Int, error) {
	raw, err := decodeL85(s)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, ErrInvalidNumericBytes
	}
	sign, mag := raw[0], raw[1:]
	if sign == 0x00 {
		inv := make([]byte, len(mag))
		for i, b := range mag {
			inv[i] = ^b
		}
		return new(big.Int).Neg(new(big.Int).SetBytes(inv)), nil
	}
	return new(big.Int).SetBytes(mag), nil
}

func encodeL85(src []byte) string {
	if len(src) == 0 {
		return ""
	}
	result := make([]byte, 0, len(src)*5/4+5)
	for i := 0; i+4 <= len(src); i += 4 {
		v := uint32(src[i])<<24 | uint32(src[i+1])<<16 | uint32(src[i+2])<<8 | uint32(src[i+3])
		var chars [5]byte
		for j := 4; j >= 0; j-- {
			chars[j] = l85Alphabet[v%85]
			v /= 85
		}
		result = append(result, chars[:]...)
	}
	if rem := len(src) % 4; rem > 0 {
		var padded [4]byte
		copy(padded[:], src[len(src)-rem:])
		v := uint32(padded[0])<<24 | uint32(padded[1])<<16 | uint32(padded[2])<<8 | uint32(padded[3])
		var chars [5]byte
		for j := 4; j >= 0; j-- {
			chars[j] = l85Alphabet[v%85]
			v /= 85
		}
		result = append(result, chars[:rem+1]...)
	}
	return string(result)
}

func decodeL85(src string) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}
	for i, c := range src {
		if c >= 256 || l85Decode[byte(c)] == 0 {
			return nil, fmt.Errorf("%w: invalid character %q at position %d", ErrInvalidNumericBytes, c, i)
		}
	}
	result := make([]byte, 0, len(src)*4/5+4)
	for i := 0; i+5 <= len(src); i += 5 {
		v := uint32(0)
		for j := 0; j < 5; j++ {
			v = v*85 + uint32(l85Decode[src[i+j]]-1)
		}
		result = append(result, byte(v>>24), byte(v>>16), byte(v>>8), byte(v))
	}
	if rem := len(src) % 5; rem > 0 {
		numBytes := rem - 1
		if numBytes <= 0 {
			return nil, fmt.Errorf("%w: incomplete group", ErrInvalidNumericBytes)
		}
		padded := src[len(src)-rem:]
		for len(padded) < 5 {
			padded += string(l85Alphabet[len(l85Alphabet)-1])
		}
		v := uint32(0)
		for j := 0; j < 5; j++ {
			v = v*85 + uint32(l85Decode[padded[j]]-1)
		}
		bs := [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
		result = append(result, bs[:numBytes]...)
	}
	return result, nil
}
