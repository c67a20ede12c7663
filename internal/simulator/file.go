package simulator

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/okian/kinetica/internal/domain/model"
)

const directoryPermission = 0o750

// WriteFrames writes frames as JSON lines.
func WriteFrames(w io.Writer, frames []model.Frame) error {
	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i, f := range frames {
		if err := enc.Encode(f); err != nil {
			return fmt.Errorf("failed to encode frame %d: %w", i, err)
		}
	}
	return bw.Flush()
}

// ReadFrames reads JSON-lines frames until EOF.
func ReadFrames(r io.Reader) ([]model.Frame, error) {
	dec := json.NewDecoder(r)
	var frames []model.Frame
	for {
		var f model.Frame
		err := dec.Decode(&f)
		if err == io.EOF {
			return frames, nil
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode frame %d: %w", len(frames), err)
		}
		frames = append(frames, f)
	}
}

// SaveFrames writes frames to path, creating its directory.
func SaveFrames(path string, frames []model.Frame) (err error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if cerr := file.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("failed to close file: %w", cerr)
		}
	}()
	return WriteFrames(file, frames)
}

// LoadFrames reads a file written by SaveFrames.
func LoadFrames(path string) ([]model.Frame, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()
	return ReadFrames(file)
}
