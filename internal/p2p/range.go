package p2p

import (
	"math"
	"strings"
)

// ByteRange is an inclusive [Start, End] interval of file offsets.
// Length may be zero or negative for degenerate requests such as "bytes=500-200";
// such a range is still a valid answer and is served as an empty 206.
type ByteRange struct {
	Start  int64
	End    int64
	Length int64
}

// ParseRange reads a Range header against a file of size bytes. ok is false
// when the header is absent, which means the whole file is wanted.
// Malformed input never fails: unparsable positions fall back to the
// open-ended and suffix rules.
func ParseRange(header string, size int64) (r ByteRange, ok bool) {
	if header == "" {
		return ByteRange{}, false
	}

	value := header[strings.LastIndex(header, "=")+1:]
	parts := strings.Split(value, "-")

	start, hasStart := leadingInt(parts[0])
	var end int64
	hasEnd := false
	if len(parts) > 1 {
		end, hasEnd = leadingInt(parts[1])
	}

	if !hasEnd {
		end = size - 1
	}
	if !hasStart {
		// Suffix form: the end field holds the number of trailing bytes.
		start, end = size-end, size-1
	}

	return ByteRange{Start: start, End: end, Length: span(start, end)}, true
}

// span is the length of [start, end], saturating at math.MaxInt64.
func span(start, end int64) int64 {
	n := end - start
	if n < math.MaxInt64 {
		n++
	}
	return n
}

// leadingInt parses the decimal integer at the start of s, after optional
// whitespace and sign, ignoring whatever follows it ("12abc" is 12).
// Values that do not fit an int64 saturate at its bounds.
func leadingInt(s string) (int64, bool) {
	s = strings.TrimLeft(s, " \t\n\r\v\f")
	neg := false
	if s != "" && (s[0] == '+' || s[0] == '-') {
		neg = s[0] == '-'
		s = s[1:]
	}

	var n int64
	digits := 0
	overflow := false
	for _, c := range s {
		if c < '0' || c > '9' {
			break
		}
		digits++
		d := int64(c - '0')
		if overflow || n > (math.MaxInt64-d)/10 {
			overflow = true
			continue
		}
		n = n*10 + d
	}

	switch {
	case digits == 0:
		return 0, false
	case overflow && neg:
		return math.MinInt64, true
	case overflow:
		return math.MaxInt64, true
	case neg:
		return -n, true
	}
	return n, true
}

// clamp bounds a parsed range to a file of size bytes the way HTTP treats
// over-long ranges. It never turns an empty range into a non-empty one.
func (r ByteRange) clamp(size int64) ByteRange {
	if r.Start < 0 {
		r.Start = 0
	}
	if r.End > size-1 {
		r.End = size - 1
	}
	r.Length = span(r.Start, r.End)
	return r
}
