package sourcemap

import (
	"errors"
	"strings"
)

const base64Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

var base64Values [128]int8

func init() {
	for i := range base64Values {
		base64Values[i] = -1
	}
	for i, c := range base64Alphabet {
		base64Values[c] = int8(i)
	}
}

const (
	vlqShift    = 5
	vlqMask     = 1<<vlqShift - 1
	vlqContinue = 1 << vlqShift
)

var errVLQ = errors.New("invalid VLQ segment")

// appendVLQ writes value as a base64 VLQ. The sign is carried in the
// lowest bit.
func appendVLQ(sb *strings.Builder, value int) {
	v := uint32(value) << 1
	if value < 0 {
		v = uint32(-value)<<1 | 1
	}
	for {
		digit := v & vlqMask
		v >>= vlqShift
		if v > 0 {
			digit |= vlqContinue
		}
		sb.WriteByte(base64Alphabet[digit])
		if v == 0 {
			return
		}
	}
}

// readVLQ decodes one value from the front of s and returns it with the
// number of bytes consumed.
func readVLQ(s string) (int, int, error) {
	var v uint32
	var shift uint
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 128 || base64Values[c] < 0 {
			return 0, 0, errVLQ
		}
		digit := uint32(base64Values[c])
		v |= (digit & vlqMask) << shift
		shift += vlqShift
		if digit&vlqContinue == 0 {
			if v&1 != 0 {
				return -int(v >> 1), i + 1, nil
			}
			return int(v >> 1), i + 1, nil
		}
	}
	return 0, 0, errVLQ
}
