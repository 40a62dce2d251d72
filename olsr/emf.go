package olsr

import (
	"math"
	"time"
)

// emfC is the scaling factor for the mantissa/exponent time format, in
// seconds. RFC 3626 calls it C and fixes it at 1/16 s.
const emfC = 0.0625

// SecondsToEmf encodes a number of seconds as a mantissa/exponent byte:
// emfC * (1 + a/16) * 2^b, with the mantissa a in the high nibble and the
// exponent b in the low nibble. Quantization rounds up, so the decoded
// value is never less than seconds. Values past the representable range
// clamp to the nearest end.
func SecondsToEmf(seconds float64) uint8 {
	if seconds <= emfC {
		return 0
	}

	// largest b such that emfC*2^b <= seconds
	b := 0
	for b < 15 && seconds/emfC >= float64(uint(1)<<(b+1)) {
		b++
	}

	a := int(math.Ceil(16 * (seconds/(emfC*float64(uint(1)<<b)) - 1)))

	if a > 15 {
		a = 0
		b++
	}

	if b > 15 {
		a = 15
		b = 15
	}

	return uint8(a<<4 | b)
}

// EmfToSeconds decodes a mantissa/exponent byte. It is total: all 256 byte
// values decode to a positive number of seconds.
func EmfToSeconds(emf uint8) float64 {
	a := int(emf >> 4)
	b := int(emf & 0x0f)

	return emfC * (1 + float64(a)/16) * float64(uint(1)<<b)
}

func DurationToEmf(d time.Duration) uint8 {
	return SecondsToEmf(d.Seconds())
}

func EmfToDuration(emf uint8) time.Duration {
	return time.Duration(EmfToSeconds(emf) * float64(time.Second))
}
