package audio

// DownmixMono averages interleaved channels into a single channel. Trailing
// samples that do not fill a whole frame are dropped.
func DownmixMono(samples []float32, channels int) []float32 {
	if channels <= 1 {
		return samples
	}

	frames := len(samples) / channels
	mono := make([]float32, 0, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < channels; c++ {
			sum += samples[i*channels+c]
		}
		mono = append(mono, sum/float32(channels))
	}
	return mono
}

// Resample converts mono samples from one rate to another by linear
// interpolation, clamping to the last source sample at the boundary. No
// lookahead filtering; the recognizer tolerates the resulting artifacts.
func Resample(samples []float32, fromRate, toRate int) []float32 {
	if fromRate == toRate || len(samples) == 0 {
		out := make([]float32, len(samples))
		copy(out, samples)
		return out
	}

	ratio := float64(fromRate) / float64(toRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]float32, 0, outLen)

	for i := 0; i < outLen; i++ {
		pos := float64(i) * ratio
		idx := int(pos)
		frac := float32(pos - float64(idx))

		var sample float32
		switch {
		case idx+1 < len(samples):
			sample = samples[idx]*(1-frac) + samples[idx+1]*frac
		case idx < len(samples):
			sample = samples[idx]
		}
		out = append(out, sample)
	}
	return out
}
