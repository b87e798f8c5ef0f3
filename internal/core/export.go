package core

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/JonMunkholm/ImageFinder/internal/imagegen"
)

// ExportExtension is appended to every exported filename.
const ExportExtension = ".png"

// Artifact is one downloadable file produced by Export.
type Artifact struct {
	ItemID   int    `json:"item_id"`
	ItemName string `json:"item_name"`
	ImageID  string `json:"image_id"`
	Filename string `json:"filename"`
	url      string
}

// Export produces one artifact per selection. An empty input yields an
// empty result.
func Export(selections []Selection) []Artifact {
	artifacts := make([]Artifact, 0, len(selections))
	for _, sel := range selections {
		artifacts = append(artifacts, Artifact{
			ItemID:   sel.Item.ID,
			ItemName: sel.Item.Name,
			ImageID:  sel.Image.ID,
			Filename: SanitizeFilename(sel.Item.Name, sel.Item.ID),
			url:      sel.Image.URL,
		})
	}
	return artifacts
}

// SanitizeFilename lower-cases name, keeps only ASCII letters and digits and
// adds the export extension. Names with nothing left fall back to item-{id}.
func SanitizeFilename(name string, id int) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return fmt.Sprintf("item-%d%s", id, ExportExtension)
	}
	return b.String() + ExportExtension
}

// Render writes the artifact's image to w as PNG.
func (a Artifact) Render(w io.Writer) error {
	img, err := decodeImage(a.url)
	if err != nil {
		return fmt.Errorf("render %s: %w", a.Filename, err)
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("render %s: %w", a.Filename, err)
	}
	return nil
}

// RenderThumbnail writes a JPEG of the image scaled to fit within size x size.
func RenderThumbnail(w io.Writer, url string, size int) error {
	img, err := decodeImage(url)
	if err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}
	thumb := imaging.Fit(img, size, size, imaging.Lanczos)
	if err := imaging.Encode(w, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return fmt.Errorf("thumbnail: %w", err)
	}
	return nil
}

func decodeImage(url string) (image.Image, error) {
	_, data, err := imagegen.DecodeDataURI(url)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}
