package storybook

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"path"
	"strings"
)

// MaxFaceImageBytes caps uploaded face photos at 15MB.
const MaxFaceImageBytes = 15 << 20

var allowedExts = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".webp": true,
}

// ValidateFaceImage checks size, extension, and that the bytes actually
// decode as an image of the claimed format.
func ValidateFaceImage(filename string, data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("face image is empty")
	}
	if len(data) > MaxFaceImageBytes {
		return fmt.Errorf("face image exceeds %dMB limit", MaxFaceImageBytes>>20)
	}
	ext := strings.ToLower(path.Ext(filename))
	if !allowedExts[ext] {
		return fmt.Errorf("unsupported face image type %q", ext)
	}
	if ext == ".webp" {
		// No stdlib webp decoder, so check the RIFF container magic.
		if len(data) < 12 || string(data[:4]) != "RIFF" || string(data[8:12]) != "WEBP" {
			return fmt.Errorf("file is not a valid webp image")
		}
		return nil
	}
	if _, _, err := image.DecodeConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("decode face image: %w", err)
	}
	return nil
}
