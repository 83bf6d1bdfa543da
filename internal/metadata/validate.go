package metadata

import (
	"bytes"
	"image"
	_ "image/gif"  // register GIF
	_ "image/jpeg" // register JPEG
	_ "image/png"  // register PNG

	"github.com/rotisserie/eris"
	_ "golang.org/x/image/bmp"  // register BMP
	_ "golang.org/x/image/tiff" // register TIFF
	_ "golang.org/x/image/webp" // register WebP

	"github.com/sells-group/attribution-cli/internal/model"
)

// Validate checks that data decodes as a supported image and returns its
// format name. Anything else is model.ErrInvalidImage.
func Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", eris.Wrap(model.ErrInvalidImage, "empty upload")
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", eris.Wrapf(model.ErrInvalidImage, "decode: %v", err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", eris.Wrap(model.ErrInvalidImage, "zero dimensions")
	}
	return format, nil
}
