package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/RyanBlaney/sonido-tinte/logging"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

func init() {
	logging.SetGlobalLogger(nil)
}

func writeWAV(t *testing.T, path string, sampleRate, bitDepth, channels int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, 1)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		t.Fatal(err)
	}
	if err := enc.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestDecodeWAVStereo16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	// frames: (16384, 0) (-16384, -16384) (32767, 32767) (0, 8192)
	writeWAV(t, path, 8000, 16, 2, []int{16384, 0, -16384, -16384, 32767, 32767, 0, 8192})

	data, err := NewDecoder(nil).DecodeFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}

	if data.SampleRate != 8000 || data.Channels != 2 || data.Format != "wav" {
		t.Errorf("unexpected header: %+v", data)
	}
	want := []float64{0.25, -0.5, 32767.0 / 32768.0, 0.125}
	if len(data.PCM) != len(want) {
		t.Fatalf("got %d samples, want %d", len(data.PCM), len(want))
	}
	for i := range want {
		if math.Abs(data.PCM[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %v, want %v", i, data.PCM[i], want[i])
		}
	}
	if data.Duration != 500*time.Microsecond {
		t.Errorf("duration = %v, want 500µs", data.Duration)
	}
}

func TestDecodeWAV8Bit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mono8.wav")
	writeWAV(t, path, 11025, 8, 1, []int{128, 192, 64, 0})

	data, err := NewDecoder(nil).DecodeFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 0.5, -0.5, -1}
	for i := range want {
		if math.Abs(data.PCM[i]-want[i]) > 1e-9 {
			t.Errorf("sample %d = %v, want %v", i, data.PCM[i], want[i])
		}
	}
}

func TestDecodeWAVMaxDuration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "long.wav")
	samples := make([]int, 1000)
	writeWAV(t, path, 1000, 16, 1, samples)

	cfg := DefaultDecoderConfig()
	cfg.MaxDuration = 250 * time.Millisecond
	data, err := NewDecoder(cfg).DecodeFile(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if len(data.PCM) != 250 {
		t.Errorf("got %d samples, want 250", len(data.PCM))
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	_, err := NewDecoder(nil).DecodeWAV(bytes.NewReader([]byte("definitely not a riff file")))
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestDecodeFileUnsupportedExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewDecoder(nil).DecodeFile(context.Background(), path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestBytesToFloat64(t *testing.T) {
	values := []float64{0.5, -1, 0.125}
	raw := make([]byte, 0, len(values)*8+3)
	for _, v := range values {
		raw = binary.LittleEndian.AppendUint64(raw, math.Float64bits(v))
	}
	raw = append(raw, 1, 2, 3)

	got := bytesToFloat64(raw)
	if len(got) != len(values) {
		t.Fatalf("got %d samples, want %d", len(got), len(values))
	}
	for i := range values {
		if got[i] != values[i] {
			t.Errorf("sample %d = %v, want %v", i, got[i], values[i])
		}
	}
	if bytesToFloat64([]byte{1, 2}) != nil {
		t.Error("short input must decode to nil")
	}
}

func TestParseFFprobeOutput(t *testing.T) {
	out := []byte(`{"streams":[{"codec_type":"audio","codec_name":"mp3","sample_rate":"48000",
		"channels":2,"duration":"12.5","bit_rate":"192000","codec_long_name":"MP3"}]}`)
	meta, err := parseFFprobeOutput(out)
	if err != nil {
		t.Fatal(err)
	}
	if meta.SampleRate != 48000 || meta.Channels != 2 || meta.Codec != "mp3" || meta.Duration != 12.5 {
		t.Errorf("unexpected metadata %+v", meta)
	}

	if _, err := parseFFprobeOutput([]byte(`{"streams":[]}`)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for no streams, got %v", err)
	}
	if _, err := parseFFprobeOutput([]byte(`{"streams":[{"codec_type":"video","channels":2}]}`)); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat for video stream, got %v", err)
	}
}
