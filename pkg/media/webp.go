package media

import (
	"image"
	"io"

	"github.com/chai2010/webp"
	// Registers WebP decoding with image.Decode for inbound
	// attachments; imaging covers jpeg/png/gif/bmp itself.
	_ "golang.org/x/image/webp"
)

// webpQuality is the fixed re-encode quality for stored images.
const webpQuality = 85

func encodeWebP(w io.Writer, img image.Image) error {
	return webp.Encode(w, img, &webp.Options{Quality: webpQuality})
}
