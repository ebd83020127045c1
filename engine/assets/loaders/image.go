package loaders

import (
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"

	"github.com/penumbra-engine/penumbra/engine/resources"
)

// ImageLoader decodes PNG, JPEG and BMP files into tightly packed RGBA8
// pixel data ready for texture upload.
type ImageLoader struct{}

func (il *ImageLoader) Load(path string, params interface{}) (*resources.Asset, error) {
	flipY := false
	if p, ok := params.(*resources.ImageParams); ok && p != nil {
		flipY = p.FlipY
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode image %s: %w", path, err)
	}

	// Re-draw into an RGBA image so every source format ends up as four
	// channels with a predictable stride.
	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)

	width := rgba.Bounds().Dx()
	height := rgba.Bounds().Dy()
	pixels := rgba.Pix
	if flipY {
		pixels = flipVertically(pixels, width, height)
	}

	data := &resources.ImageData{
		Width:        uint32(width),
		Height:       uint32(height),
		ChannelCount: 4,
		Pixels:       pixels,
	}

	return &resources.Asset{
		Name:     assetName(path),
		FullPath: path,
		DataSize: uint64(len(pixels)),
		Data:     data,
	}, nil
}

func flipVertically(pixels []uint8, width, height int) []uint8 {
	stride := width * 4
	out := make([]uint8, len(pixels))
	for y := 0; y < height; y++ {
		copy(out[(height-1-y)*stride:(height-y)*stride], pixels[y*stride:(y+1)*stride])
	}
	return out
}
