package speech

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"hermes/internal/adapters/config"
	"hermes/pkg/errors"
	"hermes/pkg/logger"
)

// Pipeline turns a video URL into clean transcript text via yt-dlp and
// whisper subprocesses
type Pipeline interface {
	Transcribe(ctx context.Context, videoURL string) (string, error)
}

var timestampRes = []*regexp.Regexp{
	// Whisper segment markers like [02:40.000 --> 02:42.000]
	regexp.MustCompile(`\[\d{1,2}:\d{2}\.\d{1,3}\s*-->\s*\d{1,2}:\d{2}\.\d{1,3}\]`),
	regexp.MustCompile(`\[\d{1,2}:\d{2}\s*-->\s*\d{1,2}:\d{2}\]`),
	regexp.MustCompile(`\[?\d{1,2}:\d{2}:\d{2}\]?`),
	regexp.MustCompile(`\[?\d{1,2}:\d{2}\]?`),
}

// Transcriber implements Pipeline with local yt-dlp and whisper binaries
type Transcriber struct {
	whisperPath string
	ytDlpPath   string
	tempDir     string
	cookiesFile string
	log         *logger.Logger
}

func NewTranscriber(cfg config.SpeechConfig) (*Transcriber, error) {
	tempDir := cfg.TempDir
	if tempDir == "" {
		tempDir = filepath.Join(os.TempDir(), "hermes-speech")
	}
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "create temp dir %s", tempDir)
	}

	return &Transcriber{
		whisperPath: cfg.WhisperPath,
		ytDlpPath:   cfg.YtDlpPath,
		tempDir:     tempDir,
		cookiesFile: cfg.CookiesFile,
		log:         logger.Get().With("component", "transcriber"),
	}, nil
}

// Transcribe downloads the audio track, runs whisper on it and returns
// the cleaned transcript. Temp files are removed before returning.
func (t *Transcriber) Transcribe(ctx context.Context, videoURL string) (string, error) {
	audioPath, err := t.downloadAudio(ctx, videoURL)
	if err != nil {
		return "", err
	}
	defer t.removeArtifacts(audioPath)

	raw, err := t.runWhisper(ctx, audioPath)
	if err != nil {
		return "", err
	}

	transcript := CleanTranscript(raw)
	if transcript == "" {
		return "", errors.Wrap(errors.ErrInternal, "transcript is empty")
	}
	return transcript, nil
}

func (t *Transcriber) downloadAudio(ctx context.Context, videoURL string) (string, error) {
	audioPath := filepath.Join(t.tempDir, fmt.Sprintf("audio_%s.mp3", uuid.New().String()))

	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--output", audioPath,
	}
	if t.cookiesFile != "" {
		args = append(args, "--cookies", t.cookiesFile)
	}
	args = append(args, videoURL)

	t.log.Infow("Downloading audio", "url", videoURL)

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.ytDlpPath, args...)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		t.log.Errorw("yt-dlp failed", "url", videoURL, "stderr", stderr.String())
		return "", errors.Wrapf(err, "download audio from %s", videoURL)
	}

	info, err := os.Stat(audioPath)
	if err != nil || info.Size() == 0 {
		return "", errors.Wrap(errors.ErrInternal, "yt-dlp produced no audio file")
	}
	return audioPath, nil
}

func (t *Transcriber) runWhisper(ctx context.Context, audioPath string) (string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, t.whisperPath, audioPath, "--model", "turbo")
	cmd.Dir = t.tempDir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	t.log.Infow("Transcribing audio", "file", filepath.Base(audioPath))

	if err := cmd.Run(); err != nil {
		t.log.Errorw("whisper failed", "stderr", stderr.String())
		return "", errors.Wrap(err, "transcribe audio")
	}
	return stdout.String(), nil
}

// removeArtifacts drops the audio file and the sidecar files whisper
// writes next to it (.txt, .srt, .vtt and friends)
func (t *Transcriber) removeArtifacts(audioPath string) {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath))
	matches, _ := filepath.Glob(filepath.Join(t.tempDir, base+"*"))
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			t.log.Warnw("Failed to remove temp file", "file", m, "error", err)
		}
	}
}

// CleanTranscript strips whisper timestamp markers and collapses the
// result into readable text
func CleanTranscript(raw string) string {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		for _, re := range timestampRes {
			line = re.ReplaceAllString(line, "")
		}
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, " ")
}

var _ Pipeline = (*Transcriber)(nil)
