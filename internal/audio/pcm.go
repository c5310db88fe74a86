package audio

// ToPCM16 converts mono float32 samples in [-1, 1] to little-endian LINEAR16
// bytes, the encoding the recognizer adapters expect.
func ToPCM16(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		if s > 1 {
			s = 1
		} else if s < -1 {
			s = -1
		}
		v := int16(s * 32767)
		out[2*i] = byte(v)
		out[2*i+1] = byte(uint16(v) >> 8)
	}
	return out
}
