// Package media locates record audio and cuts record segments with ffmpeg.
package media

import (
	"bytes"
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"lukechampine.com/blake3"

	"github.com/rcliao/speech-query/internal/model"
	"github.com/rcliao/speech-query/internal/query"
)

// audioExts are tried, in order, when a record's media file is not audio
// or does not exist under its own name.
var audioExts = []string{".wav", ".WAV", ".aiff", ".aif", ".flac", ".mp3"}

// FFmpeg is a query.AudioSource backed by files under Root.
type FFmpeg struct {
	Root   string // directory relative media paths are resolved against
	TmpDir string // where segments are written; a private dir when empty
	Bin    string // ffmpeg executable, "ffmpeg" when empty

	mu           sync.Mutex
	fingerprints map[string]string
	ownTmp       bool
}

var _ query.AudioSource = (*FFmpeg)(nil)

// NewFFmpeg returns an audio source resolving media under root.
func NewFFmpeg(root string) *FFmpeg {
	return &FFmpeg{Root: root}
}

// Locate finds the audio file of rec and fingerprints it.
func (f *FFmpeg) Locate(ctx context.Context, rec *model.Record) (query.AudioHandle, error) {
	if strings.TrimSpace(rec.Media) == "" {
		return query.AudioHandle{}, query.ErrNoMedia
	}
	path, err := f.resolve(rec.Media)
	if err != nil {
		return query.AudioHandle{}, err
	}
	fp, err := f.fingerprint(path)
	if err != nil {
		return query.AudioHandle{}, err
	}
	return query.AudioHandle{Path: path, Fingerprint: fp}, nil
}

func (f *FFmpeg) resolve(media string) (string, error) {
	path := media
	if !filepath.IsAbs(path) && f.Root != "" {
		path = filepath.Join(f.Root, path)
	}
	base := strings.TrimSuffix(path, filepath.Ext(path))

	candidates := []string{path}
	for _, ext := range audioExts {
		if c := base + ext; c != path {
			candidates = append(candidates, c)
		}
	}
	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() && isAudio(c) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: no audio for %s", query.ErrNoMedia, media)
}

func isAudio(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range audioExts {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (f *FFmpeg) fingerprint(path string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fp, ok := f.fingerprints[path]; ok {
		return fp, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open media: %w", err)
	}
	defer file.Close()
	fp, err := Blake3HashFromFile(file)
	if err != nil {
		return "", err
	}

	if f.fingerprints == nil {
		f.fingerprints = make(map[string]string)
	}
	f.fingerprints[path] = fp
	return fp, nil
}

// Blake3HashFromFile returns the hex blake3 digest of r.
func Blake3HashFromFile(r io.Reader) (string, error) {
	h := blake3.New(32, nil)
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("calculating blake3 hash from file: %w", err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// ExtractSegment writes the mono WAV of [start, end] seconds of h. A
// segment already cut from the same audio is reused.
func (f *FFmpeg) ExtractSegment(ctx context.Context, h query.AudioHandle, start, end float64) (query.Waveform, error) {
	if end <= start {
		return query.Waveform{}, fmt.Errorf("empty segment %v-%v", start, end)
	}
	dir, err := f.tmpDir()
	if err != nil {
		return query.Waveform{}, err
	}

	from := decimal.NewFromFloat(start).StringFixed(3)
	to := decimal.NewFromFloat(end).StringFixed(3)
	key := h.Fingerprint
	if len(key) > 16 {
		key = key[:16]
	}
	out := filepath.Join(dir, fmt.Sprintf("%s_%s_%s.wav", key, from, to))
	w := query.Waveform{Path: out, Start: start, End: end}
	if info, err := os.Stat(out); err == nil && info.Size() > 0 {
		return w, nil
	}

	bin := f.Bin
	if bin == "" {
		bin = "ffmpeg"
	}
	// ffmpeg -y -ss start -to end -i input -ac 1 -f wav output
	cmd := exec.CommandContext(ctx, bin,
		"-y", "-loglevel", "error",
		"-ss", from, "-to", to,
		"-i", h.Path,
		"-ac", "1",
		"-f", "wav",
		out,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		os.Remove(out)
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return query.Waveform{}, fmt.Errorf("ffmpeg: %w: %s", err, msg)
		}
		return query.Waveform{}, fmt.Errorf("ffmpeg: %w", err)
	}
	return w, nil
}

func (f *FFmpeg) tmpDir() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.TmpDir != "" {
		return f.TmpDir, os.MkdirAll(f.TmpDir, 0o755)
	}
	dir, err := os.MkdirTemp("", "speech-query-*")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	f.TmpDir = dir
	f.ownTmp = true
	return dir, nil
}

// Close removes the segment files when the temp dir was created by f.
func (f *FFmpeg) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.ownTmp {
		return nil
	}
	f.ownTmp = false
	dir := f.TmpDir
	f.TmpDir = ""
	return os.RemoveAll(dir)
}
