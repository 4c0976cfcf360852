package testutil

// SampleFiles is a small set of plaintext fixtures with realistic names
// and types for vault round-trip tests.
var SampleFiles = []struct {
	Name string
	Type string
	Data []byte
}{
	{"notes.txt", "text/plain", []byte("meeting notes from tuesday")},
	{"photo.jpg", "image/jpeg", []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10, 0x4a, 0x46}},
	{"empty-ish.bin", "application/octet-stream", []byte{0x00}},
	{"budget.csv", "text/csv", []byte("month,amount\njan,1200\nfeb,1350\n")},
}

// FaceDescriptor returns a deterministic descriptor with a constant offset,
// for tests that need near and far samples.
func FaceDescriptor(offset float64) []float64 {
	d := make([]float64, 128)
	for i := range d {
		d[i] = float64(i%10)/10.0 + offset
	}
	return d
}

// IrisSample returns a feature vector that passes the default quality
// gates, shifted by a constant brightness offset.
func IrisSample(offset int) []int {
	sample := make([]int, 64)
	for i := range sample {
		sample[i] = 60 + (i%16)*8 + offset
	}
	return sample
}
