package imagegen

import (
	"bytes"
	"context"
	"fmt"
	"hash/fnv"
	"image/color"
	"sync/atomic"

	"github.com/disintegration/imaging"
)

// DefaultPlaceholderSize is the edge length of placeholder images in pixels.
const DefaultPlaceholderSize = 256

// Placeholder renders solid-colour PNG images locally. It is used when no
// image service is configured so the whole flow can be exercised offline.
// Colours derive from the prompt, and successive calls shift the hue, so the
// images of one product are distinguishable.
type Placeholder struct {
	size  int
	calls atomic.Uint64
}

// NewPlaceholder creates a Placeholder producing size x size images.
func NewPlaceholder(size int) *Placeholder {
	if size <= 0 {
		size = DefaultPlaceholderSize
	}
	return &Placeholder{size: size}
}

// Generate renders one image. It honours ctx cancellation but never fails otherwise.
func (p *Placeholder) Generate(ctx context.Context, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(prompt))
	seed := h.Sum32() + uint32(p.calls.Add(1))*0x9E3779B9

	fill := color.NRGBA{
		R: uint8(seed >> 16),
		G: uint8(seed >> 8),
		B: uint8(seed),
		A: 0xFF,
	}
	img := imaging.New(p.size, p.size, fill)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return "", fmt.Errorf("placeholder: encode: %w", err)
	}
	return EncodeDataURI("image/png", buf.Bytes()), nil
}
