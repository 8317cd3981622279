package processing

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner runs the external media tool.
type CommandRunner interface {
	// LookPath resolves the tool binary, returning an error when it is absent.
	LookPath(name string) (string, error)
	// Run executes the tool and returns an error on a non-zero exit.
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) LookPath(name string) (string, error) {
	return exec.LookPath(name)
}

// Run executes the command, capturing stderr into the returned error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, lastLines(stderr.String(), 20))
	}
	return nil
}

// lastLines keeps the tail of ffmpeg's diagnostics, which is where the actual
// error is printed.
func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}

// imageConcatDescriptor renders the concat-demuxer input for the image
// sequence. Each entry is shown for its duration and the final file is listed
// once more so the last frame is not cut short.
func imageConcatDescriptor(paths []string, durations []float64) string {
	var b strings.Builder
	for i, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(p))
		fmt.Fprintf(&b, "duration %s\n", formatSeconds(durations[i]))
	}
	if len(paths) > 0 {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(paths[len(paths)-1]))
	}
	return b.String()
}

// audioConcatDescriptor renders the concat-demuxer input for narration tracks.
func audioConcatDescriptor(paths []string) string {
	var b strings.Builder
	for _, p := range paths {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(p))
	}
	return b.String()
}

// escapeConcatPath quotes a path for a single-quoted concat directive.
func escapeConcatPath(p string) string {
	return strings.ReplaceAll(p, "'", `'\''`)
}

func formatSeconds(d float64) string {
	return strconv.FormatFloat(d, 'f', 3, 64)
}

// audioConcatArgs joins narration tracks with a stream copy.
func audioConcatArgs(listPath, outPath string) []string {
	return []string{
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", listPath,
		"-c", "copy",
		outPath,
	}
}

// silenceArgs renders a silent mp3 of the given length. The format matches
// the narration tracks so the concat can stream-copy.
func silenceArgs(seconds float64, outPath string) []string {
	return []string{
		"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=24000:cl=mono",
		"-t", formatSeconds(seconds),
		"-c:a", "libmp3lame",
		"-b:a", "64k",
		outPath,
	}
}

// videoArgs builds the mux invocation. An empty audioPath produces the
// video-only variant.
func videoArgs(imageListPath, audioPath, outPath string) []string {
	args := []string{
		"-y",
		"-f", "concat", "-safe", "0",
		"-i", imageListPath,
	}
	if audioPath != "" {
		args = append(args, "-i", audioPath)
	}
	args = append(args,
		"-c:v", "libx264",
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2",
		"-pix_fmt", "yuv420p",
	)
	if audioPath != "" {
		args = append(args, "-c:a", "aac", "-shortest")
	}
	return append(args, outPath)
}
