package loaders

import (
	"fmt"
	"unsafe"

	"github.com/fzipp/bmfont"

	"github.com/penumbra-engine/penumbra/engine/resources"
)

// loadBitmapFont parses an AngelCode .fnt descriptor. Page images are
// not loaded here; their file names are recorded so the pages can be
// requested as textures.
func loadBitmapFont(path string) (*resources.Asset, error) {
	desc, err := bmfont.LoadDescriptor(path)
	if err != nil {
		return nil, fmt.Errorf("load bitmap font %s: %w", path, err)
	}

	font := &resources.Font{
		Name:       assetName(path),
		Type:       resources.FontTypeBitmap,
		Face:       desc.Info.Face,
		Size:       uint32(desc.Info.Size),
		LineHeight: int32(desc.Common.LineHeight),
		Baseline:   int32(desc.Common.Base),
		AtlasSizeX: uint32(desc.Common.ScaleW),
		AtlasSizeY: uint32(desc.Common.ScaleH),
		Glyphs:     make([]resources.FontGlyph, 0, len(desc.Chars)),
		Kernings:   make([]resources.FontKerning, 0, len(desc.Kerning)),
		PageFiles:  make([]string, 0, len(desc.Pages)),
	}

	for _, p := range desc.Pages {
		font.PageFiles = append(font.PageFiles, p.File)
	}
	for _, g := range desc.Chars {
		font.Glyphs = append(font.Glyphs, resources.FontGlyph{
			Codepoint: g.ID,
			X:         uint16(g.X),
			Y:         uint16(g.Y),
			Width:     uint16(g.Width),
			Height:    uint16(g.Height),
			OffsetX:   int16(g.XOffset),
			OffsetY:   int16(g.YOffset),
			Advance:   int16(g.XAdvance),
			PageID:    uint8(g.Page),
		})
	}
	for pair, k := range desc.Kerning {
		font.Kernings = append(font.Kernings, resources.FontKerning{
			Codepoint0: pair.First,
			Codepoint1: pair.Second,
			Amount:     int16(k.Amount),
		})
	}

	return &resources.Asset{
		Name:     font.Name,
		FullPath: path,
		DataSize: uint64(len(font.Glyphs)) * uint64(unsafe.Sizeof(resources.FontGlyph{})),
		Data:     font,
	}, nil
}
