// Package snapshot handles the still images the engine retains: the
// calibration reference picture and captures taken at warning moments.
package snapshot

import (
	"errors"
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DefaultMaxWidth bounds retained snapshots; anything wider is downscaled.
const DefaultMaxWidth = 640

// ErrEmptyImage is returned for data that decodes to an empty image.
var ErrEmptyImage = errors.New("snapshot: empty image")

// Validate checks that the data is a decodable, non-empty JPEG.
func Validate(jpeg []byte) error {
	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return fmt.Errorf("snapshot: decode: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return ErrEmptyImage
	}
	return nil
}

// Normalize decodes a JPEG, downscales it to at most maxWidth preserving
// aspect ratio, and re-encodes it. Images already within bounds are
// re-encoded as-is, which also strips any trailing garbage.
func Normalize(jpeg []byte, maxWidth int) ([]byte, error) {
	if maxWidth <= 0 {
		maxWidth = DefaultMaxWidth
	}

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decode: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyImage
	}

	if img.Cols() > maxWidth {
		scale := float64(maxWidth) / float64(img.Cols())
		height := int(float64(img.Rows()) * scale)

		resized := gocv.NewMat()
		defer resized.Close()

		gocv.Resize(img, &resized, image.Pt(maxWidth, height), 0, 0, gocv.InterpolationArea)
		return encode(resized)
	}

	return encode(img)
}

func encode(img gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("snapshot: encode: %w", err)
	}
	defer buf.Close()

	out := make([]byte, len(buf.GetBytes()))
	copy(out, buf.GetBytes())
	return out, nil
}
