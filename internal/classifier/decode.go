package classifier

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // register gif decoder
	_ "image/jpeg" // register jpeg decoder
	_ "image/png"  // register png decoder
	"io"

	_ "golang.org/x/image/bmp"  // register bmp decoder
	_ "golang.org/x/image/tiff" // register tiff decoder
	_ "golang.org/x/image/webp" // register webp decoder
)

// MaxImageSize caps the number of bytes read from a single frame.
const MaxImageSize = 16 << 20

// ErrImageTooLarge is returned when a frame exceeds MaxImageSize.
var ErrImageTooLarge = errors.New("image exceeds size limit")

// Decode reads one frame and returns the decoded image with its format name.
func Decode(r io.Reader) (image.Image, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, "", fmt.Errorf("read image: %w", err)
	}

	return DecodeBytes(data)
}

// DecodeBytes decodes an in-memory frame.
func DecodeBytes(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", ErrNoImage
	}

	if len(data) > MaxImageSize {
		return nil, "", ErrImageTooLarge
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decode image: %w", err)
	}

	return img, format, nil
}
