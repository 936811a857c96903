package acquire

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/WessleyAI/rizz-engine/engine/domain"
	goopenai "github.com/sashabaranov/go-openai"
)

// Downloader fetches the audio track of a video URL into dir and returns the
// path of the resulting WAV file, named after the platform's video ID.
type Downloader interface {
	Download(ctx context.Context, url, dir string) (string, error)
}

// Transcription is the raw speech-to-text output persisted before
// diarization.
type Transcription struct {
	Language string           `json:"language,omitempty"`
	Text     string           `json:"text"`
	Segments []domain.Segment `json:"segments"`
}

// Transcriber turns an audio file into time-coded segments.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (Transcription, error)
}

// Diarizer attributes intervals of an audio file to speakers.
type Diarizer interface {
	Diarize(ctx context.Context, audioPath string) ([]domain.SpeakerTurn, error)
}

// YTDLPDownloader shells out to yt-dlp with ffmpeg audio extraction.
type YTDLPDownloader struct {
	Binary string
	// ExtraArgs are inserted before the URL (cookies, proxies).
	ExtraArgs []string
}

// Download implements Downloader.
func (d YTDLPDownloader) Download(ctx context.Context, url, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("acquire: create audio dir: %w", err)
	}
	bin := d.Binary
	if bin == "" {
		bin = "yt-dlp"
	}
	args := []string{
		"--no-progress",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "wav",
		"--output", filepath.Join(dir, "%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
	}
	args = append(args, d.ExtraArgs...)
	args = append(args, url)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("acquire: yt-dlp: %w: %s", err, lastLine(stderr.String()))
	}
	path := lastLine(stdout.String())
	if path == "" {
		return "", errors.New("acquire: yt-dlp printed no output path")
	}
	return path, nil
}

func lastLine(s string) string {
	var last string
	sc := bufio.NewScanner(strings.NewReader(s))
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			last = line
		}
	}
	return last
}

// WhisperTranscriber uses the OpenAI audio transcription endpoint with
// segment-level timestamps.
type WhisperTranscriber struct {
	Client   *goopenai.Client
	Model    string
	Language string
}

// Transcribe implements Transcriber.
func (w WhisperTranscriber) Transcribe(ctx context.Context, audioPath string) (Transcription, error) {
	model := w.Model
	if model == "" {
		model = goopenai.Whisper1
	}
	resp, err := w.Client.CreateTranscription(ctx, goopenai.AudioRequest{
		Model:    model,
		FilePath: audioPath,
		Language: w.Language,
		Format:   goopenai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Transcription{}, fmt.Errorf("acquire: whisper: %w", err)
	}
	out := Transcription{Language: resp.Language, Text: resp.Text}
	for _, s := range resp.Segments {
		out.Segments = append(out.Segments, domain.Segment{Start: s.Start, End: s.End, Text: s.Text})
	}
	return out, nil
}

// HTTPDiarizer posts the audio file to a diarization service that answers
// {"turns":[{"start":0.0,"end":1.5,"speaker":"SPEAKER_00"}]}.
type HTTPDiarizer struct {
	Endpoint string
	Token    string
	Client   *http.Client
}

// Diarize implements Diarizer.
func (d HTTPDiarizer) Diarize(ctx context.Context, audioPath string) ([]domain.SpeakerTurn, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("acquire: open audio: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(audioPath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, pr)
	if err != nil {
		_ = pr.Close()
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if d.Token != "" {
		req.Header.Set("Authorization", "Bearer "+d.Token)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("acquire: diarize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("acquire: diarize: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var body struct {
		Turns []domain.SpeakerTurn `json:"turns"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("acquire: decode diarization: %w", err)
	}
	return body.Turns, nil
}
