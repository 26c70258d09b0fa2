package transcode

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/RyanBlaney/sonido-tinte/logging"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// ErrUnsupportedFormat is returned for files neither the WAV reader nor
// ffmpeg can turn into PCM
var ErrUnsupportedFormat = errors.New("unsupported audio format")

// wavFormatPCM is the WAVE_FORMAT_PCM format tag
const wavFormatPCM = 1

// AudioData represents decoded mono audio
type AudioData struct {
	PCM        []float64     `json:"-"`           // Mono samples in [-1, 1]
	SampleRate int           `json:"sample_rate"` // Hz
	Channels   int           `json:"channels"`    // Channel count of the source before down-mixing
	Duration   time.Duration `json:"duration"`
	Format     string        `json:"format"` // Container or codec the samples came from
}

// AudioMetadata holds audio properties detected by ffprobe
type AudioMetadata struct {
	SampleRate int     `json:"sample_rate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"target_sample_rate"` // ffmpeg resample target, 0 keeps the source rate
	MaxDuration      time.Duration `json:"max_duration"`       // Decoded audio is truncated to this, 0 = no limit
	FFmpegPath       string        `json:"ffmpeg_path"`
	FFprobePath      string        `json:"ffprobe_path"`
	Timeout          time.Duration `json:"timeout"` // Per ffmpeg/ffprobe invocation
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 0,
		MaxDuration:      0,
		FFmpegPath:       "ffmpeg",
		FFprobePath:      "ffprobe",
		Timeout:          60 * time.Second,
	}
}

// Decoder turns audio files into mono PCM. WAV files holding integer PCM
// are read natively. Everything else goes through ffmpeg.
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.WithFields(logging.Fields{
			"component": "audio_decoder",
		}),
	}
}

// SupportedFormats lists the file extensions DecodeFile accepts
func (d *Decoder) SupportedFormats() []string {
	return []string{
		"wav", "wave", "aac", "mp3", "flac", "ogg", "opus", "m4a", "wma",
		"aiff", "aif", "webm", "mp4", "mov", "mkv",
	}
}

// DecodeFile decodes path into mono PCM
func (d *Decoder) DecodeFile(ctx context.Context, path string) (*AudioData, error) {
	logger := d.logger.WithContext(ctx).WithFields(logging.Fields{
		"function": "DecodeFile",
		"filename": path,
	})

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if !slices.Contains(d.SupportedFormats(), ext) {
		return nil, fmt.Errorf("%w: extension %q", ErrUnsupportedFormat, ext)
	}

	if ext == "wav" || ext == "wave" {
		data, err := d.decodeWAVFile(path)
		if err == nil {
			logger.Debug("Decoded WAV natively", logging.Fields{
				"sample_rate": data.SampleRate,
				"channels":    data.Channels,
				"samples":     len(data.PCM),
			})
			return data, nil
		}
		if !errors.Is(err, ErrUnsupportedFormat) {
			return nil, err
		}
		logger.Debug("WAV encoding not handled natively, falling back to ffmpeg", logging.Fields{
			"reason": err.Error(),
		})
	}

	return d.decodeWithFFmpeg(ctx, path, logger)
}

func (d *Decoder) decodeWAVFile(path string) (*AudioData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return d.DecodeWAV(f)
}

// DecodeWAV reads integer PCM WAV data from r. Samples are scaled by the bit
// depth into [-1, 1] and channels are averaged. Float or compressed WAV data
// yields ErrUnsupportedFormat.
func (d *Decoder) DecodeWAV(r io.ReadSeeker) (*AudioData, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		if err := dec.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrUnsupportedFormat, err)
		}
		return nil, fmt.Errorf("%w: not a valid WAV file", ErrUnsupportedFormat)
	}
	if dec.WavAudioFormat != wavFormatPCM {
		return nil, fmt.Errorf("%w: WAV format tag %d", ErrUnsupportedFormat, dec.WavAudioFormat)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV samples: %w", err)
	}

	pcm := downmix(buf)
	sampleRate := buf.Format.SampleRate
	pcm = d.truncate(pcm, sampleRate)

	return &AudioData{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   buf.Format.NumChannels,
		Duration:   samplesDuration(len(pcm), sampleRate),
		Format:     "wav",
	}, nil
}

// downmix scales integer samples to [-1, 1] and averages channels. 8-bit WAV
// samples are unsigned and centred on 128.
func downmix(buf *audio.IntBuffer) []float64 {
	channels := max(buf.Format.NumChannels, 1)
	bitDepth := buf.SourceBitDepth

	offset := 0.0
	scale := math.Exp2(float64(bitDepth - 1))
	if bitDepth == 8 {
		offset = 128
		scale = 128
	}

	frames := len(buf.Data) / channels
	out := make([]float64, frames)
	for f := range frames {
		sum := 0.0
		for _, v := range buf.Data[f*channels : (f+1)*channels] {
			sum += (float64(v) - offset) / scale
		}
		out[f] = max(-1, min(1, sum/float64(channels)))
	}
	return out
}

func (d *Decoder) truncate(pcm []float64, sampleRate int) []float64 {
	if d.config.MaxDuration <= 0 || sampleRate <= 0 {
		return pcm
	}
	limit := int(d.config.MaxDuration.Seconds() * float64(sampleRate))
	if limit < len(pcm) {
		return pcm[:limit]
	}
	return pcm
}

func samplesDuration(n, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	return time.Duration(float64(n) / float64(sampleRate) * float64(time.Second))
}

func (d *Decoder) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(ctx, d.config.Timeout)
	}
	return context.WithCancel(ctx)
}

func (d *Decoder) decodeWithFFmpeg(ctx context.Context, path string, logger logging.Logger) (*AudioData, error) {
	metadata, err := d.Probe(ctx, path)
	if err != nil {
		return nil, err
	}

	logger.Debug("Audio metadata detected", logging.Fields{
		"input_sample_rate": metadata.SampleRate,
		"input_channels":    metadata.Channels,
		"input_codec":       metadata.Codec,
		"input_duration":    metadata.Duration,
		"input_bitrate":     metadata.Bitrate,
	})

	sampleRate := metadata.SampleRate
	if d.config.TargetSampleRate > 0 {
		sampleRate = d.config.TargetSampleRate
	}

	args := []string{"-v", "error", "-i", path, "-map", "0:a:0", "-vn"}
	if d.config.MaxDuration > 0 {
		args = append(args, "-t", fmt.Sprintf("%.3f", d.config.MaxDuration.Seconds()))
	}
	args = append(args,
		"-f", "f64le",
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"pipe:1",
	)

	cmdCtx, cancel := d.commandContext(ctx)
	defer cancel()

	logger.Debug("Running ffmpeg command", logging.Fields{
		"args": strings.Join(args, " "),
	})

	start := time.Now()
	output, err := exec.CommandContext(cmdCtx, d.config.FFmpegPath, args...).Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			logger.Error(err, "FFmpeg decode failed", logging.Fields{
				"stderr": string(exitError.Stderr),
			})
			return nil, fmt.Errorf("%w: ffmpeg decode failed: %w, stderr: %s",
				ErrUnsupportedFormat, err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffmpeg decode failed: %w", err)
	}

	samples := bytesToFloat64(output)
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no audio samples decoded from %s", ErrUnsupportedFormat, path)
	}

	logger.Debug("FFmpeg decode completed", logging.Fields{
		"output_bytes": len(output),
		"decode_time":  time.Since(start).Seconds(),
	})

	return &AudioData{
		PCM:        samples,
		SampleRate: sampleRate,
		Channels:   metadata.Channels,
		Duration:   samplesDuration(len(samples), sampleRate),
		Format:     metadata.Codec,
	}, nil
}

// Probe uses ffprobe to read the first audio stream's properties
func (d *Decoder) Probe(ctx context.Context, path string) (*AudioMetadata, error) {
	args := []string{
		"-v", "quiet",
		"-print_format", "json",
		"-show_streams",
		"-select_streams", "a:0",
		path,
	}

	cmdCtx, cancel := d.commandContext(ctx)
	defer cancel()

	output, err := exec.CommandContext(cmdCtx, d.config.FFprobePath, args...).Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var exitError *exec.ExitError
		if errors.As(err, &exitError) {
			return nil, fmt.Errorf("%w: ffprobe failed: %w, stderr: %s",
				ErrUnsupportedFormat, err, string(exitError.Stderr))
		}
		return nil, fmt.Errorf("ffprobe failed: %w", err)
	}

	return parseFFprobeOutput(output)
}

// parseFFprobeOutput extracts audio metadata from ffprobe's JSON stream listing
func parseFFprobeOutput(jsonData []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []struct {
			CodecType     string `json:"codec_type"`
			CodecName     string `json:"codec_name"`
			SampleRate    string `json:"sample_rate"`
			Channels      int    `json:"channels"`
			Duration      string `json:"duration"`
			BitRate       string `json:"bit_rate"`
			CodecLongName string `json:"codec_long_name"`
		} `json:"streams"`
	}

	if err := json.Unmarshal(jsonData, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	if len(probe.Streams) == 0 {
		return nil, fmt.Errorf("%w: no audio streams found", ErrUnsupportedFormat)
	}

	stream := probe.Streams[0]
	if stream.CodecType != "audio" {
		return nil, fmt.Errorf("%w: stream is not audio type: %s", ErrUnsupportedFormat, stream.CodecType)
	}

	sampleRate, err := strconv.Atoi(stream.SampleRate)
	if err != nil || sampleRate <= 0 {
		sampleRate = 44100
	}

	duration, err := strconv.ParseFloat(stream.Duration, 64)
	if err != nil {
		duration = 0
	}

	bitrate, err := strconv.Atoi(stream.BitRate)
	if err != nil {
		bitrate = 0
	}

	if stream.Channels <= 0 || stream.Channels > 8 {
		return nil, fmt.Errorf("invalid channel count: %d", stream.Channels)
	}

	return &AudioMetadata{
		SampleRate: sampleRate,
		Channels:   stream.Channels,
		Codec:      stream.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     stream.CodecLongName,
	}, nil
}

// bytesToFloat64 converts raw little-endian float64 bytes. A trailing
// partial sample is dropped.
func bytesToFloat64(data []byte) []float64 {
	data = data[:len(data)-len(data)%8]
	if len(data) == 0 {
		return nil
	}

	samples := make([]float64, len(data)/8)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8 : i*8+8]))
	}
	return samples
}

// ValidateConfig checks that ffmpeg and ffprobe can be executed
func (d *Decoder) ValidateConfig() error {
	if d.config.TargetSampleRate < 0 {
		return fmt.Errorf("invalid target sample rate: %d", d.config.TargetSampleRate)
	}
	if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
		return fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
	}
	if _, err := exec.LookPath(d.config.FFprobePath); err != nil {
		return fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
	}
	return nil
}
