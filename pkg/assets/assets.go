// Package assets holds the static payloads served by the control surface.
package assets

import (
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// File names inside an asset directory.
const (
	IndexFile = "index.html"
	ImageFile = "us.jpg"
)

// ErrEmptyPayload is returned when an asset file is empty.
var ErrEmptyPayload = errors.New("empty asset payload")

//go:embed static/index.html static/us.jpg
var staticFiles embed.FS

// Bundle is the pair of payloads served at "/" and "/us.jpg".
type Bundle struct {
	Index []byte
	Image []byte
}

// Default returns the payloads compiled into the binary.
func Default() Bundle {
	index, err := staticFiles.ReadFile("static/" + IndexFile)
	if err != nil {
		panic(err)
	}
	image, err := staticFiles.ReadFile("static/" + ImageFile)
	if err != nil {
		panic(err)
	}
	return Bundle{Index: index, Image: image}
}

// LoadDir reads index.html and us.jpg from dir.
func LoadDir(dir string) (Bundle, error) {
	index, err := readPayload(filepath.Join(dir, IndexFile))
	if err != nil {
		return Bundle{}, err
	}
	image, err := readPayload(filepath.Join(dir, ImageFile))
	if err != nil {
		return Bundle{}, err
	}
	return Bundle{Index: index, Image: image}, nil
}

func readPayload(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read asset: %w", err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyPayload, path)
	}
	return data, nil
}
