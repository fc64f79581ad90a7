// i2s_benchmark_test.go - Performance benchmarks for the DMA buffer driver

/*
 ██▓ ███▄    █ ▄▄▄█████▓ █    ██  ██▓▄▄▄█████▓ ██▓ ▒█████   ███▄    █    ▓█████  ███▄    █   ▄████  ██▓ ███▄    █ ▓█████
▓██▒ ██ ▀█   █ ▓  ██▒ ▓▒ ██  ▓██▒▓██▒▓  ██▒ ▓▒▓██▒▒██▒  ██▒ ██ ▀█   █    ▓█   ▀  ██ ▀█   █  ██▒ ▀█▒▓██▒ ██ ▀█   █ ▓█   ▀
▒██▒▓██  ▀█ ██▒▒ ▓██░ ▒░▓██  ▒██░▒██▒▒ ▓██░ ▒░▒██▒▒██░  ██▒▓██  ▀█ ██▒   ▒███   ▓██  ▀█ ██▒▒██░▄▄▄░▒██▒▓██  ▀█ ██▒▒███
░██░▓██▒  ▐▌██▒░ ▓██▓ ░ ▓▓█  ░██░░██░░ ▓██▓ ░ ░██░▒██   ██░▓██▒  ▐▌██▒   ▒▓█  ▄ ▓██▒  ▐▌██▒░▓█  ██▓░██░▓██▒  ▐▌██▒▒▓█  ▄
░██░▒██░   ▓██░  ▒██▒ ░ ▒▒█████▓ ░██░  ▒██▒ ░ ░██░░ ████▓▒░▒██░   ▓██░   ░▒████▒▒██░   ▓██░░▒▓███▀▒░██░▒██░   ▓██░░▒████▒
░▓  ░ ▒░   ▒ ▒   ▒ ░░   ░▒▓▒ ▒ ▒ ░▓    ▒ ░░   ░▓  ░ ▒░▒░▒░ ░ ▒░   ▒ ▒    ░░ ▒░ ░░ ▒░   ▒ ▒  ░▒   ▒ ░▓  ░ ▒░   ▒ ▒ ░░ ▒░ ░
 ▒ ░░ ░░   ░ ▒░    ░    ░░▒░ ░ ░  ▒ ░    ░     ▒ ░  ░ ▒ ▒░ ░ ░░   ░ ▒░    ░ ░  ░░ ░░   ░ ▒░  ░   ░  ▒ ░░ ░░   ░ ▒░ ░ ░  ░
 ▒ ░   ░   ░ ░   ░       ░░░ ░ ░  ▒ ░  ░       ▒ ░░ ░ ░ ▒     ░   ░ ░       ░      ░   ░ ░ ░ ░   ░  ▒ ░   ░   ░ ░    ░
 ░           ░             ░      ░            ░      ░ ░           ░       ░  ░         ░       ░  ░           ░    ░  ░

(c) 2024 - 2026 Zayn Otley
https://github.com/IntuitionAmiga/IntuitionI2S
Buy me a coffee: https://ko-fi.com/intuition/tip

License: GPLv3 or later
*/

package i2s

import "testing"

// createBenchmarkDriver builds a driver over a transceiver draining into
// an unpaced discard sink, so the engine recycles slots as fast as the
// producer can fill them.
func createBenchmarkDriver(b *testing.B) (*Driver, *I2STransceiver) {
	b.Helper()
	out := NewHeadlessOutput(I2S_DEFAULT_SAMPLE_RATE, false)
	dev := &I2STransceiver{output: out}
	d, err := Open(dev, Config{BufCount: 8, BufLen: 64})
	if err != nil {
		b.Fatalf("Open failed: %v", err)
	}
	return d, dev
}

// BenchmarkDriver_PushSample measures the full producer path: slot claim
// through the free queue when a block boundary is crossed, then the
// atomic word store.
func BenchmarkDriver_PushSample(b *testing.B) {
	d, dev := createBenchmarkDriver(b)
	defer dev.Close()
	defer d.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		d.PushSample(uint32(i))
	}
}

// BenchmarkDriver_PushStereo measures the packed variant on top of the
// same path.
func BenchmarkDriver_PushStereo(b *testing.B) {
	d, dev := createBenchmarkDriver(b)
	defer dev.Close()
	defer d.Close()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		d.PushStereo(int16(i), int16(-i))
	}
}

// BenchmarkSolveRate measures the exhaustive divider scan at standard
// width (one bit depth per divider pair)
func BenchmarkSolveRate(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = SolveRate(44100, false)
	}
}

// BenchmarkSolveRate_Wide measures the scan with word length fuzzing
// (four bit depths per divider pair)
func BenchmarkSolveRate_Wide(b *testing.B) {
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = SolveRate(44100, true)
	}
}

// BenchmarkSlotQueue_PutGet measures one completion/claim round trip on
// the free slot queue.
func BenchmarkSlotQueue_PutGet(b *testing.B) {
	q := newSlotQueue(8)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		q.put(i & 7)
		_ = q.get()
	}
}
