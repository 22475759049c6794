package extractor

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"mediagate/pkg/config"
	apperrors "mediagate/pkg/errors"
	"mediagate/pkg/logger"
)

// Media describes a finished download
type Media struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Thumbnail   string `json:"thumbnail"`
	FilePath    string `json:"filepath"`
}

// Progress is one parsed progress line
type Progress struct {
	Percent float64
	Line    string
}

// ProgressFunc receives progress while a download runs
type ProgressFunc func(Progress)

// Extractor downloads the media behind a URL
type Extractor interface {
	Extract(ctx context.Context, url string, onProgress ProgressFunc) (*Media, error)
}

// printTemplate makes yt-dlp emit one JSON object once the file is in place
const printTemplate = "after_move:%(.{id,title,description,thumbnail,filepath})j"

var progressPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)%`)

// YtDlp runs the yt-dlp binary
type YtDlp struct {
	binary         string
	outputDir      string
	format         string
	outputTemplate string
	logger         logger.Logger
}

// New creates a yt-dlp extractor from the media configuration
func New(cfg config.MediaConfig, log logger.Logger) *YtDlp {
	if log == nil {
		log = logger.GetLogger()
	}
	return &YtDlp{
		binary:         cfg.YtDlpPath,
		outputDir:      cfg.OutputDir,
		format:         cfg.Format,
		outputTemplate: cfg.OutputTemplate,
		logger:         log.WithField("component", "extractor"),
	}
}

// Args returns the yt-dlp arguments used for url
func (y *YtDlp) Args(url string) []string {
	return []string{
		"--newline",
		"--progress",
		"--no-warnings",
		"--no-playlist",
		"--no-mtime",
		"-f", y.format,
		"-o", filepath.Join(y.outputDir, y.outputTemplate),
		"--print", printTemplate,
		url,
	}
}

// Extract downloads url into the output directory. Progress lines are
// reported as they arrive; a non-zero exit is a collaborator failure that
// carries the last line yt-dlp printed.
func (y *YtDlp) Extract(ctx context.Context, url string, onProgress ProgressFunc) (*Media, error) {
	if err := os.MkdirAll(y.outputDir, 0755); err != nil {
		return nil, apperrors.Internal("failed to create output directory", err)
	}

	cmd := exec.CommandContext(ctx, y.binary, y.Args(url)...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, apperrors.Internal("failed to create stdout pipe", err)
	}
	cmd.Stderr = cmd.Stdout
	cmd.WaitDelay = 2 * time.Second

	log := y.logger.WithField("url", url)
	if err := cmd.Start(); err != nil {
		log.WithError(err).Error("Failed to start yt-dlp")
		return nil, apperrors.Upstream("Media extraction failed", err)
	}
	log.Debug("yt-dlp process started")

	media, lastLine, scanErr := y.scan(stdout, onProgress)
	waitErr := cmd.Wait()

	switch {
	case ctx.Err() != nil:
		return nil, apperrors.Upstream("Media extraction cancelled", ctx.Err())
	case waitErr != nil:
		log.WithError(waitErr).WarnWithFields("yt-dlp failed", map[string]interface{}{
			"last_line": lastLine,
		})
		return nil, apperrors.Upstream("Media extraction failed", fmt.Errorf("%w: %s", waitErr, lastLine))
	case scanErr != nil:
		return nil, apperrors.Upstream("Media extraction failed", scanErr)
	case media == nil:
		return nil, apperrors.Upstream("Media extraction failed", errors.New("yt-dlp reported no output file"))
	}

	return media, nil
}

// scan reads combined yt-dlp output until EOF
func (y *YtDlp) scan(r io.Reader, onProgress ProgressFunc) (*Media, string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var media *Media
	var lastLine string
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lastLine = line

		if m, ok := ParseMediaLine(line); ok {
			media = m
			continue
		}
		if p, ok := ParseProgress(line); ok && onProgress != nil {
			onProgress(p)
		}
	}
	return media, lastLine, scanner.Err()
}

// ParseProgress extracts the percentage from a [download] line
func ParseProgress(line string) (Progress, bool) {
	if !strings.HasPrefix(line, "[download]") {
		return Progress{}, false
	}
	m := progressPattern.FindStringSubmatch(line)
	if m == nil {
		return Progress{}, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Progress{}, false
	}
	return Progress{Percent: pct, Line: line}, true
}

// ParseMediaLine decodes the JSON object printed after the file is moved
// into place
func ParseMediaLine(line string) (*Media, bool) {
	if !strings.HasPrefix(line, "{") {
		return nil, false
	}
	var m Media
	if err := json.Unmarshal([]byte(line), &m); err != nil || m.FilePath == "" {
		return nil, false
	}
	return &m, true
}
