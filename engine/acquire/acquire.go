// Package acquire turns a video URL into a speaker-attributed transcript on
// disk, recording every attempt in a processing log keyed by URL.
package acquire

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	"github.com/WessleyAI/rizz-engine/pkg/fn"
)

// Layout names the data directories under the data root.
const (
	AudioDir             = "audio"
	RawTranscriptDir     = "whisper_transcript"
	SpeakerTranscriptDir = "speaker_transcript"
	DefaultLogFile       = "log_transcript.json"
)

// Options configures an Acquirer.
type Options struct {
	DataDir string
	// Sink, when set, receives the raw and speaker transcripts after success.
	Sink   ArtifactSink
	Logger *slog.Logger
	Now    func() time.Time
}

// Acquirer runs download, transcription and diarization for one URL at a time.
type Acquirer struct {
	log         LogStore
	downloader  Downloader
	transcriber Transcriber
	diarizer    Diarizer
	opts        Options
	logger      *slog.Logger
}

// New creates an Acquirer.
func New(log LogStore, dl Downloader, tr Transcriber, dz Diarizer, opts Options) *Acquirer {
	if opts.DataDir == "" {
		opts.DataDir = "data"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Acquirer{log: log, downloader: dl, transcriber: tr, diarizer: dz, opts: opts, logger: logger}
}

// Process returns the speaker transcript path for url. A URL already logged
// as transcribed is answered from the log without touching any model. Failed
// acquisitions are recoverable results; a log that cannot be read or written
// is fatal.
func (a *Acquirer) Process(ctx context.Context, url string) fn.Result[string] {
	url = strings.TrimSpace(url)
	if err := domain.ValidateVideoURL(url); err != nil {
		return fn.Err[string](err)
	}

	// Claiming the URL is one locked step so concurrent runs agree on retries.
	var cached bool
	entry, err := a.log.Update(ctx, url, func(prev domain.ProcessingLogEntry, found bool) (domain.ProcessingLogEntry, bool) {
		if found && prev.Status == domain.StatusTranscribed {
			cached = true
			return prev, false
		}
		retries := 0
		if found {
			retries = prev.Retries + 1
		}
		return domain.ProcessingLogEntry{
			URL:       url,
			Timestamp: a.opts.Now(),
			Status:    domain.StatusPending,
			Retries:   retries,
		}, true
	})
	if err != nil {
		return fn.Fatal[string](fmt.Errorf("acquire: write log: %w", err))
	}
	if cached {
		a.logger.Info("acquire: already transcribed", "url", url, "output_path", entry.OutputPath)
		return fn.Ok(entry.OutputPath)
	}
	retries := entry.Retries

	a.logger.Info("acquire: start", "url", url, "retries", retries)
	start := time.Now()
	outPath, runErr := a.run(ctx, url)

	entry.Timestamp = a.opts.Now()
	if runErr != nil {
		entry.Status = domain.StatusFailed
		entry.Error = runErr.Error()
		a.logger.Error("acquire: failed", "url", url, "retries", retries, "error", runErr)
	} else {
		entry.Status = domain.StatusTranscribed
		entry.OutputPath = outPath
		a.logger.Info("acquire: transcribed", "url", url, "output_path", outPath, "duration", time.Since(start))
	}
	// A cancelled caller still gets its outcome recorded.
	if err := a.log.Put(context.WithoutCancel(ctx), entry); err != nil {
		return fn.Fatal[string](fmt.Errorf("acquire: write log: %w", err))
	}
	if runErr != nil {
		return fn.Err[string](fmt.Errorf("acquire: %s: %w", url, runErr))
	}
	return fn.Ok(outPath)
}

func (a *Acquirer) run(ctx context.Context, url string) (string, error) {
	audioPath, err := a.downloader.Download(ctx, url, filepath.Join(a.opts.DataDir, AudioDir))
	if err != nil {
		return "", err
	}
	id := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))

	rawPath := filepath.Join(a.opts.DataDir, RawTranscriptDir, id+".json")
	tr, err := a.transcription(ctx, audioPath, rawPath)
	if err != nil {
		return "", err
	}

	turns, err := a.diarizer.Diarize(ctx, audioPath)
	if err != nil {
		return "", err
	}

	lines := AssignSpeakers(tr.Segments, turns)
	outPath := filepath.Join(a.opts.DataDir, SpeakerTranscriptDir, id+".txt")
	if err := writeFile(outPath, []byte(RenderTranscript(lines))); err != nil {
		return "", err
	}

	a.mirror(ctx, id, rawPath, outPath)
	return outPath, nil
}

// transcription reuses a persisted raw transcription when one exists.
func (a *Acquirer) transcription(ctx context.Context, audioPath, rawPath string) (Transcription, error) {
	if data, err := os.ReadFile(rawPath); err == nil {
		var tr Transcription
		if err := json.Unmarshal(data, &tr); err == nil && len(tr.Segments) > 0 {
			a.logger.Info("acquire: reusing raw transcription", "path", rawPath)
			return tr, nil
		}
		a.logger.Warn("acquire: ignoring unreadable raw transcription", "path", rawPath)
	}

	tr, err := a.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return Transcription{}, err
	}
	if len(tr.Segments) == 0 {
		return Transcription{}, domain.ErrNoSegments
	}
	data, err := json.MarshalIndent(tr, "", "  ")
	if err != nil {
		return Transcription{}, err
	}
	if err := writeFile(rawPath, data); err != nil {
		return Transcription{}, err
	}
	return tr, nil
}

func (a *Acquirer) mirror(ctx context.Context, id, rawPath, outPath string) {
	if a.opts.Sink == nil {
		return
	}
	uploads := []struct{ key, path, ctype string }{
		{RawTranscriptDir + "/" + id + ".json", rawPath, "application/json"},
		{SpeakerTranscriptDir + "/" + id + ".txt", outPath, "text/plain; charset=utf-8"},
	}
	for _, u := range uploads {
		if err := a.opts.Sink.Store(ctx, u.key, u.path, u.ctype); err != nil {
			a.logger.Warn("acquire: artifact upload failed", "key", u.key, "error", err)
		}
	}
}

// Outcome is the result of one URL in a batch file.
type Outcome struct {
	URL  string
	Path string
	Err  error
}

// ProcessFile processes every line of path that starts with https:// in
// order. Recoverable failures are reported per URL; a fatal result stops
// the batch.
func (a *Acquirer) ProcessFile(ctx context.Context, path string) ([]Outcome, error) {
	urls, err := ReadURLFile(path)
	if err != nil {
		return nil, err
	}
	out := make([]Outcome, 0, len(urls))
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		r := a.Process(ctx, u)
		if r.IsFatal() {
			return out, r.Error()
		}
		p, err := r.Unwrap()
		out = append(out, Outcome{URL: u, Path: p, Err: err})
	}
	return out, nil
}

// ReadURLFile returns the trimmed lines of path that start with https://.
func ReadURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("acquire: open url file: %w", err)
	}
	defer f.Close()

	var urls []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); strings.HasPrefix(line, "https://") {
			urls = append(urls, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("acquire: read url file: %w", err)
	}
	return urls, nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("acquire: create dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("acquire: write %s: %w", path, err)
	}
	return nil
}

// IsValidationError reports whether err came from URL validation.
func IsValidationError(err error) bool {
	var ve *domain.ValidationError
	return errors.As(err, &ve)
}
