package rendercache

import (
	"cmp"
	"encoding/binary"
	"math"
	"reflect"
	"strings"
)

// Key orders knobs. Keys compare bytewise. Every encoding below is
// prefix-free, so a concatenation of keys compares field by field.
type Key string

// Compare returns -1, 0 or +1 as k sorts before, with or after o.
func (k Key) Compare(o Key) int { return strings.Compare(string(k), string(o)) }

// Uint encodes v.
func Uint(v uint64) Key {
	return Key(binary.BigEndian.AppendUint64(nil, v))
}

// Int encodes v.
func Int(v int64) Key {
	return Uint(uint64(v) ^ 1<<63)
}

// Float encodes v. Negative zero sorts before zero.
func Float(v float64) Key {
	b := math.Float64bits(v)
	if b&(1<<63) != 0 {
		b = ^b
	} else {
		b |= 1 << 63
	}
	return Uint(b)
}

// String encodes s: zero bytes are escaped as 0x00 0xFF and the result is
// terminated by 0x00 0x01, so no encoded string is a prefix of another.
func String(s string) Key {
	var sb strings.Builder
	sb.Grow(len(s) + 2)
	for i := 0; i < len(s); i++ {
		sb.WriteByte(s[i])
		if s[i] == 0 {
			sb.WriteByte(0xff)
		}
	}
	sb.WriteString("\x00\x01")
	return Key(sb.String())
}

// Concat joins keys into one that compares lexicographically.
func Concat(keys ...Key) Key {
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(string(k))
	}
	return Key(sb.String())
}

// ordered encodes any value of an ordered type.
func ordered[K cmp.Ordered](v K) Key {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return Uint(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Float(rv.Float())
	default:
		return String(rv.String())
	}
}
