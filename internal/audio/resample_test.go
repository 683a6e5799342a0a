package audio

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDownmixMonoAveragesChannels(t *testing.T) {
	stereo := []float32{0.2, 0.4, -0.6, -0.2, 1.0, 0.0}
	mono := DownmixMono(stereo, 2)
	require.Equal(t, []float32{0.3, -0.4, 0.5}, mono)
}

func TestDownmixMonoSingleChannelPassthrough(t *testing.T) {
	in := []float32{0.1, 0.2}
	require.Equal(t, in, DownmixMono(in, 1))
}

func TestDownmixMonoDropsPartialFrame(t *testing.T) {
	in := []float32{0.2, 0.4, 0.6}
	require.Equal(t, []float32{0.3}, DownmixMono(in, 2))
}

func TestResampleSameRateCopies(t *testing.T) {
	in := []float32{0.1, 0.2, 0.3}
	out := Resample(in, 16000, 16000)
	require.Equal(t, in, out)

	out[0] = 9
	require.Equal(t, float32(0.1), in[0])
}

func TestResampleConstantSignalStaysConstant(t *testing.T) {
	in := make([]float32, 48000)
	for i := range in {
		in[i] = 0.25
	}

	out := Resample(in, 48000, 16000)
	require.Len(t, out, 16000)
	for i, v := range out {
		require.InDelta(t, 0.25, v, 1e-6, "sample %d", i)
	}
}

func TestResampleHalvesLength(t *testing.T) {
	in := []float32{0, 1, 2, 3, 4, 5, 6, 7}
	out := Resample(in, 32000, 16000)
	require.Len(t, out, 4)
	// Downsampling by two lands exactly on even source samples.
	require.Equal(t, []float32{0, 2, 4, 6}, out)
}

func TestResampleInterpolatesBetweenSamples(t *testing.T) {
	in := []float32{0, 1}
	out := Resample(in, 16000, 32000)
	require.Len(t, out, 4)
	require.InDelta(t, 0.0, out[0], 1e-6)
	require.InDelta(t, 0.5, out[1], 1e-6)
	// Past the last source pair the value clamps to the final sample.
	require.InDelta(t, 1.0, out[3], 1e-6)
}

func TestResampleEmptyInput(t *testing.T) {
	require.Empty(t, Resample(nil, 48000, 16000))
}
