package download

import (
	"bytes"
	"image"
	_ "image/jpeg" // tile decoders
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// Texture is a decoded tile image, ready to be handed to a renderer
type Texture struct {
	Image  image.Image
	Format string
	// Size of the encoded data in bytes
	Size int
}

// NewTexture decodes png, jpeg or webp data
func NewTexture(data []byte) (*Texture, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return &Texture{
		Image:  img,
		Format: format,
		Size:   len(data),
	}, nil
}

func (t *Texture) Bounds() image.Rectangle {
	return t.Image.Bounds()
}
