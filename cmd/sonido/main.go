package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RyanBlaney/sonido-tinte/analysis"
	"github.com/RyanBlaney/sonido-tinte/cache"
	"github.com/RyanBlaney/sonido-tinte/config"
	"github.com/RyanBlaney/sonido-tinte/logging"
	"github.com/RyanBlaney/sonido-tinte/transcode"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
)

type cliConfig struct {
	configPath  string
	profile     string
	cacheDir    string
	cacheTTL    time.Duration
	logLevel    string
	concurrency int
	maxDuration time.Duration
	ffmpegPath  string
	ffprobePath string
	pretty      bool
	quiet       bool
}

// fileResult is one entry of the JSON output
type fileResult struct {
	Path     string               `json:"path"`
	Features *analysis.FeatureSet `json:"features,omitempty"`
	Cached   bool                 `json:"cached,omitempty"`
	Error    string               `json:"error,omitempty"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func parseFlags(args []string, stderr io.Writer) (*cliConfig, []string, error) {
	c := &cliConfig{}
	fs := flag.NewFlagSet("sonido", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&c.configPath, "config", "", "JSON analysis config (defaults are used for missing fields)")
	fs.StringVar(&c.profile, "profile", "default", "analysis preset when no config file is given: default|fast")
	fs.StringVar(&c.cacheDir, "cache", "", "feature cache directory (disabled when empty)")
	fs.DurationVar(&c.cacheTTL, "cache-ttl", 0, "cache entry lifetime, 0 keeps entries forever")
	fs.StringVar(&c.logLevel, "log-level", "warn", "log level: debug|info|warn|error")
	fs.IntVar(&c.concurrency, "concurrency", 0, "files analyzed at once (overrides the config)")
	fs.DurationVar(&c.maxDuration, "max-duration", 0, "analyze at most this much audio per file, 0 = all")
	fs.StringVar(&c.ffmpegPath, "ffmpeg", "ffmpeg", "path to ffmpeg")
	fs.StringVar(&c.ffprobePath, "ffprobe", "ffprobe", "path to ffprobe")
	fs.BoolVar(&c.pretty, "pretty", false, "indent JSON output")
	fs.BoolVar(&c.quiet, "quiet", false, "hide the progress bar")

	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: sonido [flags] <audio file>...\n\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return nil, nil, err
	}
	if fs.NArg() < 1 {
		fs.Usage()
		return nil, nil, errors.New("no input files")
	}
	return c, fs.Args(), nil
}

func loadAnalysisConfig(c *cliConfig) (*config.AnalysisConfig, error) {
	var cfg *config.AnalysisConfig
	if c.configPath != "" {
		loaded, err := config.Load(c.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		profile, err := config.ParseProfile(c.profile)
		if err != nil {
			return nil, err
		}
		cfg = config.ConfigForProfile(profile)
	}

	if c.concurrency > 0 {
		cfg.Concurrency = c.concurrency
	}
	return cfg, cfg.Validate()
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	c, paths, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	level, err := logging.ParseLevel(c.logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "invalid -log-level: %v\n", err)
		return 2
	}
	logger := logging.NewDefaultLoggerWithWriters(stderr, stderr)
	logger.SetLevel(level)
	logging.SetGlobalLogger(logger)

	cfg, err := loadAnalysisConfig(c)
	if err != nil {
		logging.Error(err, "Failed to load configuration")
		return 1
	}

	analyzer, err := analysis.NewAnalyzer(cfg)
	if err != nil {
		logging.Error(err, "Failed to create analyzer")
		return 1
	}

	configDigest, err := cfg.Digest()
	if err != nil {
		logging.Error(err, "Failed to digest configuration")
		return 1
	}

	var store *cache.Store
	if c.cacheDir != "" {
		store, err = cache.Open(cache.Options{Dir: c.cacheDir, TTL: c.cacheTTL})
		if err != nil {
			logging.Error(err, "Failed to open cache", logging.Fields{"dir": c.cacheDir})
			return 1
		}
		defer store.Close()
	}

	decoderConfig := transcode.DefaultDecoderConfig()
	decoderConfig.MaxDuration = c.maxDuration
	decoderConfig.FFmpegPath = c.ffmpegPath
	decoderConfig.FFprobePath = c.ffprobePath

	p := &pipeline{
		analyzer:     analyzer,
		decoder:      transcode.NewDecoder(decoderConfig),
		store:        store,
		configDigest: configDigest,
	}

	results := p.analyzeAll(ctx, paths, cfg.Concurrency, progressOutput(c.quiet, stderr))
	if ctx.Err() != nil {
		logging.Warn("Interrupted")
		return 130
	}

	enc := json.NewEncoder(stdout)
	if c.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(results); err != nil {
		logging.Error(err, "Failed to write results")
		return 1
	}

	for _, r := range results {
		if r.Error != "" {
			return 1
		}
	}
	return 0
}

func progressOutput(quiet bool, stderr io.Writer) io.Writer {
	if quiet {
		return io.Discard
	}
	return stderr
}

type pipeline struct {
	analyzer     *analysis.Analyzer
	decoder      *transcode.Decoder
	store        *cache.Store
	configDigest uint64
}

// analyzeAll processes paths with at most concurrency files in flight.
// Results keep the order of paths. Per-file failures are reported in the
// result instead of aborting the batch.
func (p *pipeline) analyzeAll(ctx context.Context, paths []string, concurrency int, progress io.Writer) []fileResult {
	bars := mpb.NewWithContext(ctx, mpb.WithOutput(progress), mpb.WithWidth(64))
	bar := bars.AddBar(int64(len(paths)),
		mpb.PrependDecorators(
			decor.Name("Analyzing: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(
			decor.Percentage(),
			decor.EwmaETA(decor.ET_STYLE_GO, 60),
		),
	)

	results := make([]fileResult, len(paths))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(concurrency, 1))

	for i, path := range paths {
		g.Go(func() error {
			start := time.Now()
			results[i] = p.analyzeFile(gctx, path)
			bar.EwmaIncrement(time.Since(start))
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		bar.Abort(false)
	}
	bars.Wait()

	return results
}

func (p *pipeline) analyzeFile(ctx context.Context, path string) fileResult {
	ctx = logging.ContextWithFields(ctx, logging.Fields{"file": path})
	logger := logging.WithContext(ctx)

	audio, err := p.decoder.DecodeFile(ctx, path)
	if err != nil {
		logger.Error(err, "Decode failed")
		return fileResult{Path: path, Error: err.Error()}
	}

	sig, err := analysis.NewSignal(audio.PCM, audio.SampleRate)
	if err != nil {
		logger.Error(err, "Unusable audio")
		return fileResult{Path: path, Error: err.Error()}
	}

	signalDigest := sig.Digest()
	if p.store != nil {
		features, err := p.store.Get(signalDigest, p.configDigest)
		if err == nil {
			logger.Debug("Cache hit")
			return fileResult{Path: path, Features: features, Cached: true}
		}
		if !errors.Is(err, cache.ErrNotFound) {
			logger.Warn("Cache read failed", logging.Fields{"error": err.Error()})
		}
	}

	features, err := p.analyzer.Analyze(ctx, sig)
	if err != nil {
		logger.Error(err, "Analysis failed")
		return fileResult{Path: path, Error: err.Error()}
	}

	if p.store != nil {
		if err := p.store.Put(signalDigest, p.configDigest, features); err != nil {
			logger.Warn("Cache write failed", logging.Fields{"error": err.Error()})
		}
	}

	return fileResult{Path: path, Features: features}
}
