// Package audioinfo inspects captured WAV chunks before they are
// handed to a transcription backend.
package audioinfo

import (
	"fmt"
	"os"
	"time"

	"github.com/youpy/go-wav"
)

// Info describes a WAV file's audio stream.
type Info struct {
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Probe opens path and reads its WAV header. It rejects files that are
// missing, empty, or not parseable as WAV, so a bad chunk fails fast
// instead of wasting a transcription call.
func Probe(path string) (Info, error) {
	file, err := os.Open(path)
	if err != nil {
		return Info{}, fmt.Errorf("open audio file: %w", err)
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		return Info{}, fmt.Errorf("stat audio file: %w", err)
	}
	if stat.Size() == 0 {
		return Info{}, fmt.Errorf("audio file %q is empty", path)
	}

	reader := wav.NewReader(file)
	format, err := reader.Format()
	if err != nil {
		return Info{}, fmt.Errorf("parse WAV header of %q: %w", path, err)
	}
	if format.SampleRate == 0 || format.NumChannels == 0 {
		return Info{}, fmt.Errorf("invalid WAV format in %q", path)
	}

	info := Info{
		SampleRate: int(format.SampleRate),
		Channels:   int(format.NumChannels),
	}
	if duration, err := reader.Duration(); err == nil {
		info.Duration = duration
	}
	return info, nil
}

// Check is a probe suitable for the transcription pipeline: it cares
// only whether the file is usable.
func Check(path string) error {
	_, err := Probe(path)
	return err
}

// CheckRate additionally verifies the file was recorded at wantRate.
// A rate of 0 disables the check and degrades to Check.
func CheckRate(path string, wantRate int) error {
	info, err := Probe(path)
	if err != nil {
		return err
	}
	if wantRate > 0 && info.SampleRate != wantRate {
		return fmt.Errorf("audio file %q has sample rate %d, want %d", path, info.SampleRate, wantRate)
	}
	return nil
}
