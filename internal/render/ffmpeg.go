package render

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/adityabisht-lab/reddit-video-generator/internal/config"
	"github.com/adityabisht-lab/reddit-video-generator/internal/storage"
	"github.com/adityabisht-lab/reddit-video-generator/internal/types"
)

// FFmpegRenderer synthesizes narration per line, composes a timed text slide
// for each line, concatenates the slides, muxes in the narration and persists
// the result through the artifact store.
//
// TTS runs through an external command. Set TTS_COMMAND to a binary or .py
// script accepting --text and --output; without it, edge-tts is used.
type FFmpegRenderer struct {
	cfg   *config.Config
	store *storage.LocalStorage
}

func NewFFmpegRenderer(cfg *config.Config, store *storage.LocalStorage) *FFmpegRenderer {
	return &FFmpegRenderer{cfg: cfg, store: store}
}

func (r *FFmpegRenderer) Render(ctx context.Context, jobID string, script *types.Script) (string, error) {
	log.Printf("[render] job %s: rendering %d lines", jobID, len(script.Lines))

	workDir, err := os.MkdirTemp("", "render_"+jobID+"_")
	if err != nil {
		return "", fmt.Errorf("%w: workdir: %v", ErrRender, err)
	}
	defer os.RemoveAll(workDir)

	var audioFiles, slideFiles []string
	for i, line := range script.Lines {
		audioFile := filepath.Join(workDir, fmt.Sprintf("line_%03d.mp3", i))
		if err := r.synthesize(ctx, line.Text, audioFile); err != nil {
			return "", fmt.Errorf("%w: tts line %d: %v", ErrRender, i, err)
		}
		dur, err := probeDuration(ctx, audioFile)
		if err != nil {
			return "", fmt.Errorf("%w: probe line %d: %v", ErrRender, i, err)
		}

		slideFile := filepath.Join(workDir, fmt.Sprintf("slide_%03d.mp4", i))
		if err := r.composeSlide(ctx, line, dur, workDir, slideFile); err != nil {
			return "", fmt.Errorf("%w: slide line %d: %v", ErrRender, i, err)
		}
		audioFiles = append(audioFiles, audioFile)
		slideFiles = append(slideFiles, slideFile)
		log.Printf("[render] job %s: line %d/%d done (%.1fs)", jobID, i+1, len(script.Lines), dur)
	}

	narration := filepath.Join(workDir, "narration.mp3")
	if err := concat(ctx, audioFiles, workDir, "audio_concat.txt", narration, "-c", "copy"); err != nil {
		return "", fmt.Errorf("%w: concat audio: %v", ErrRender, err)
	}
	silent := filepath.Join(workDir, "slides.mp4")
	if err := concat(ctx, slideFiles, workDir, "video_concat.txt", silent, "-c", "copy"); err != nil {
		return "", fmt.Errorf("%w: concat slides: %v", ErrRender, err)
	}

	final := filepath.Join(workDir, "final.mp4")
	if err := mux(ctx, silent, narration, final); err != nil {
		return "", fmt.Errorf("%w: mux: %v", ErrRender, err)
	}

	ref := r.store.NewRef(jobID)
	if err := r.store.Save(final, ref); err != nil {
		return "", fmt.Errorf("%w: persist: %v", ErrRender, err)
	}
	log.Printf("[render] job %s: artifact ready: %s", jobID, ref)
	return ref, nil
}

// synthesize runs the TTS command for one narration line, retrying transient
// engine hiccups a few times before giving up.
func (r *FFmpegRenderer) synthesize(ctx context.Context, text, outFile string) error {
	ttsCmd := strings.TrimSpace(os.Getenv("TTS_COMMAND"))
	if ttsCmd == "" {
		if _, err := exec.LookPath("edge-tts"); err != nil {
			return fmt.Errorf("no TTS engine: set TTS_COMMAND or install edge-tts")
		}
		ttsCmd = "edge-tts"
	}

	var err error
	for attempt := 1; attempt <= 3; attempt++ {
		var cmd *exec.Cmd
		switch {
		case ttsCmd == "edge-tts":
			cmd = exec.CommandContext(ctx, "edge-tts",
				"--voice", r.cfg.Render.Voice,
				"--text", text,
				"--write-media", outFile,
			)
		case strings.HasSuffix(ttsCmd, ".py"):
			cmd = exec.CommandContext(ctx, "python3", ttsCmd,
				"--text", text,
				"--output", outFile,
			)
		default:
			cmd = exec.CommandContext(ctx, ttsCmd,
				"--text", text,
				"--output", outFile,
			)
		}
		cmd.Stderr = os.Stderr

		if err = cmd.Run(); err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Printf("[render] TTS attempt %d failed: %v, retrying", attempt, err)
		time.Sleep(time.Duration(attempt) * 2 * time.Second)
	}
	return err
}

// composeSlide builds one solid-background clip with the narration text drawn
// centered, timed to the synthesized audio.
func (r *FFmpegRenderer) composeSlide(ctx context.Context, line types.ScriptLine, duration float64, workDir, outFile string) error {
	// drawtext does not wrap on its own; pre-wrap into a text file so no
	// shell escaping of the narration is needed either
	textFile := filepath.Join(workDir, fmt.Sprintf("text_%03d.txt", line.Index))
	wrapped := wrapText(line.Text, 48)
	if err := os.WriteFile(textFile, []byte(wrapped), 0644); err != nil {
		return err
	}

	drawtext := fmt.Sprintf(
		"drawtext=textfile=%s:fontcolor=white:fontsize=%d:line_spacing=14:"+
			"box=1:boxcolor=black@0.45:boxborderw=24:x=(w-text_w)/2:y=(h-text_h)/2",
		textFile, r.cfg.Render.FontSize,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=%s:s=%dx%d:d=%.3f:r=%d",
			r.cfg.Render.Background, r.cfg.Render.Width, r.cfg.Render.Height,
			duration, r.cfg.Render.FPS),
		"-vf", drawtext,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg slide: %w", err)
	}
	return nil
}

// concat joins media files in order using the ffmpeg concat demuxer.
func concat(ctx context.Context, files []string, workDir, listName, outFile string, codecArgs ...string) error {
	listFile := filepath.Join(workDir, listName)
	var lines []string
	for _, f := range files {
		lines = append(lines, fmt.Sprintf("file '%s'", f))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}

	args := []string{"-y", "-f", "concat", "-safe", "0", "-i", listFile}
	args = append(args, codecArgs...)
	args = append(args, outFile)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg concat: %w", err)
	}
	return nil
}

// mux combines the silent slide video and the narration audio into one MP4.
func mux(ctx context.Context, videoFile, audioFile, outFile string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoFile,
		"-i", audioFile,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg mux: %w", err)
	}
	return nil
}

// probeDuration reads a media file's duration in seconds via ffprobe.
func probeDuration(ctx context.Context, file string) (float64, error) {
	out, err := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		file,
	).Output()
	if err != nil {
		return 0, err
	}
	var dur float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur)
	return dur, err
}

// wrapText breaks s into lines of at most width characters at word boundaries.
func wrapText(s string, width int) string {
	words := strings.Fields(s)
	var b strings.Builder
	lineLen := 0
	for _, w := range words {
		if lineLen > 0 && lineLen+1+len(w) > width {
			b.WriteByte('\n')
			lineLen = 0
		} else if lineLen > 0 {
			b.WriteByte(' ')
			lineLen++
		}
		b.WriteString(w)
		lineLen += len(w)
	}
	return b.String()
}
