package processing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
)

// DefaultMediaTool is the binary used for muxing when none is configured.
const DefaultMediaTool = "ffmpeg"

var errAssemblyInProgress = errors.New("assembly already running for this output")

// Assembler muxes slide images and narration into a single mp4 file.
type Assembler struct {
	runner    CommandRunner
	tool      string
	outputDir string

	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewAssembler creates an assembler writing finished videos to outputDir.
func NewAssembler(runner CommandRunner, tool, outputDir string) *Assembler {
	if runner == nil {
		runner = ExecRunner{}
	}
	if tool == "" {
		tool = DefaultMediaTool
	}
	return &Assembler{
		runner:    runner,
		tool:      tool,
		outputDir: outputDir,
		inflight:  make(map[string]struct{}),
	}
}

// Available reports whether the media tool can be found on the host.
func (a *Assembler) Available() bool {
	_, err := a.runner.LookPath(a.tool)
	return err == nil
}

// Assemble builds the video for assets and returns the path of the durable
// output file named outputName. All intermediate files live in a per-call
// temporary directory that is removed before returning.
func (a *Assembler) Assemble(ctx context.Context, assets []SlideAsset, outputName string) (string, error) {
	if len(assets) == 0 {
		return "", ErrNoSlides
	}
	if outputName == "" || filepath.Base(outputName) != outputName {
		return "", fmt.Errorf("invalid output name %q", outputName)
	}

	tool, err := a.runner.LookPath(a.tool)
	if err != nil {
		log.Printf("[ASSEMBLER] %s not found, cannot assemble video", a.tool)
		return "", fmt.Errorf("%w: %v", ErrMediaToolUnavailable, err)
	}

	if !anyImage(assets) {
		log.Printf("[ASSEMBLER] No valid images to assemble")
		return "", ErrNoImages
	}

	if err := a.acquire(outputName); err != nil {
		return "", err
	}
	defer a.release(outputName)

	workDir, err := os.MkdirTemp("", "lessonreel-assembly-*")
	if err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	var (
		imagePaths []string
		durations  []float64
		audioPaths = make([]string, len(assets))
		narrated   int
	)
	for i, asset := range assets {
		image := asset.Image
		if !asset.HasImage() {
			// Keep the slide and its timing; only the visual is substituted.
			log.Printf("[ASSEMBLER] Slide %d has no image, using placeholder", asset.SlideIndex)
			image = PlaceholderImage(i)
		}
		imgPath := filepath.Join(workDir, fmt.Sprintf("slide_%d.png", asset.SlideIndex))
		if err := os.WriteFile(imgPath, image, 0o644); err != nil {
			return "", fmt.Errorf("write slide image %d: %w", asset.SlideIndex, err)
		}
		imagePaths = append(imagePaths, imgPath)

		duration := asset.DurationSeconds
		if duration <= 0 {
			duration = DefaultSlideDuration
		}
		durations = append(durations, duration)

		if asset.HasAudio() {
			audioPath := filepath.Join(workDir, fmt.Sprintf("audio_%d.mp3", asset.SlideIndex))
			if err := os.WriteFile(audioPath, asset.Audio, 0o644); err != nil {
				return "", fmt.Errorf("write slide audio %d: %w", asset.SlideIndex, err)
			}
			audioPaths[i] = audioPath
			narrated++
		}
	}

	imageList := filepath.Join(workDir, "images.txt")
	if err := os.WriteFile(imageList, []byte(imageConcatDescriptor(imagePaths, durations)), 0o644); err != nil {
		return "", fmt.Errorf("write image list: %w", err)
	}

	combinedAudio := ""
	if narrated > 0 {
		combinedAudio, err = a.narrationTrack(ctx, tool, workDir, audioPaths, durations)
		if err != nil {
			log.Printf("[ASSEMBLER] Audio concat failed, continuing without audio: %v", err)
			combinedAudio = ""
		}
	}
	if combinedAudio == "" {
		log.Printf("[ASSEMBLER] Creating video without audio")
	}

	tmpOutput := filepath.Join(workDir, outputName)
	if err := a.runner.Run(ctx, tool, videoArgs(imageList, combinedAudio, tmpOutput)...); err != nil {
		return "", fmt.Errorf("mux video: %w", err)
	}

	finalPath, err := a.persist(tmpOutput, outputName)
	if err != nil {
		return "", err
	}
	log.Printf("[ASSEMBLER] Assembled %d slides (%d narrated) into %s", len(assets), narrated, finalPath)
	return finalPath, nil
}

// narrationTrack fills the gaps left by unnarrated slides with silence of the
// slide's duration so each track lines up with its image, then joins them.
// If the silence cannot be made, the present tracks are joined in slide order
// without gaps.
func (a *Assembler) narrationTrack(ctx context.Context, tool, workDir string, audioPaths []string, durations []float64) (string, error) {
	tracks := make([]string, len(audioPaths))
	for i, p := range audioPaths {
		if p != "" {
			tracks[i] = p
			continue
		}
		silence := filepath.Join(workDir, fmt.Sprintf("silence_%d.mp3", i+1))
		if err := a.runner.Run(ctx, tool, silenceArgs(durations[i], silence)...); err != nil {
			log.Printf("[ASSEMBLER] Silence for slide %d failed, joining narrated slides only: %v", i+1, err)
			return a.concatAudio(ctx, tool, workDir, presentTracks(audioPaths))
		}
		tracks[i] = silence
	}
	return a.concatAudio(ctx, tool, workDir, tracks)
}

func presentTracks(audioPaths []string) []string {
	var present []string
	for _, p := range audioPaths {
		if p != "" {
			present = append(present, p)
		}
	}
	return present
}

func (a *Assembler) concatAudio(ctx context.Context, tool, workDir string, audioPaths []string) (string, error) {
	listPath := filepath.Join(workDir, "audio_list.txt")
	if err := os.WriteFile(listPath, []byte(audioConcatDescriptor(audioPaths)), 0o644); err != nil {
		return "", fmt.Errorf("write audio list: %w", err)
	}
	combined := filepath.Join(workDir, "combined_audio.mp3")
	if err := a.runner.Run(ctx, tool, audioConcatArgs(listPath, combined)...); err != nil {
		return "", err
	}
	if _, err := os.Stat(combined); err != nil {
		return "", fmt.Errorf("combined audio missing: %w", err)
	}
	return combined, nil
}

// persist copies the produced file out of the work dir into outputDir.
func (a *Assembler) persist(src, outputName string) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("media tool produced no output: %w", err)
	}
	if err := os.MkdirAll(a.outputDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	finalPath, err := filepath.Abs(filepath.Join(a.outputDir, outputName))
	if err != nil {
		return "", fmt.Errorf("resolve output path: %w", err)
	}
	partial := finalPath + ".part"
	if err := copyFile(src, partial); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("copy video to output dir: %w", err)
	}
	if err := os.Rename(partial, finalPath); err != nil {
		os.Remove(partial)
		return "", fmt.Errorf("move video into place: %w", err)
	}
	return finalPath, nil
}

func (a *Assembler) acquire(outputName string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, busy := a.inflight[outputName]; busy {
		return fmt.Errorf("%w: %s", errAssemblyInProgress, outputName)
	}
	a.inflight[outputName] = struct{}{}
	return nil
}

func (a *Assembler) release(outputName string) {
	a.mu.Lock()
	delete(a.inflight, outputName)
	a.mu.Unlock()
}

func anyImage(assets []SlideAsset) bool {
	for _, asset := range assets {
		if asset.HasImage() {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
