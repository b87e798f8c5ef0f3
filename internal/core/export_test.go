package core

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"

	"github.com/JonMunkholm/ImageFinder/internal/imagegen"
)

func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 30, B: 30, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return imagegen.EncodeDataURI("image/png", buf.Bytes())
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name string
		id   int
		want string
	}{
		{"Widget", 0, "widget.png"},
		{"Blue Widget 2000", 1, "bluewidget2000.png"},
		{"Crème brûlée (6-pack)", 2, "crmebrle6pack.png"},
		{"../../etc/passwd", 3, "etcpasswd.png"},
		{"日本語", 4, "item-4.png"},
		{"!!!", 5, "item-5.png"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.name, tt.id); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestExport_OnePerSelection(t *testing.T) {
	if got := Export(nil); len(got) != 0 {
		t.Errorf("Export(nil) = %v, want empty", got)
	}

	sels := []Selection{
		{Item: WorkItem{ID: 0, Name: "Widget"}, Image: ImageResult{ID: "0-1", URL: "data:a"}},
		{Item: WorkItem{ID: 4, Name: "Gadget Pro"}, Image: ImageResult{ID: "4-0", URL: "data:b"}},
	}
	got := Export(sels)
	if len(got) != 2 {
		t.Fatalf("len(Export()) = %d, want 2", len(got))
	}
	if got[0].Filename != "widget.png" || got[0].ImageID != "0-1" {
		t.Errorf("artifact[0] = %+v", got[0])
	}
	if got[1].Filename != "gadgetpro.png" || got[1].ItemID != 4 {
		t.Errorf("artifact[1] = %+v", got[1])
	}
}

func TestArtifactRender(t *testing.T) {
	a := Export([]Selection{{
		Item:  WorkItem{ID: 0, Name: "Widget"},
		Image: ImageResult{ID: "0-0", URL: pngDataURI(t, 8, 4)},
	}})[0]

	var buf bytes.Buffer
	if err := a.Render(&buf); err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	img, format, err := image.Decode(&buf)
	if err != nil {
		t.Fatalf("image.Decode() error = %v", err)
	}
	if format != "png" {
		t.Errorf("format = %q, want png", format)
	}
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 4 {
		t.Errorf("bounds = %v, want 8x4", img.Bounds())
	}
}

func TestArtifactRender_InvalidData(t *testing.T) {
	a := Export([]Selection{{
		Item:  WorkItem{ID: 0, Name: "Widget"},
		Image: ImageResult{ID: "0-0", URL: "data:image/png;base64,bm90IGFuIGltYWdl"},
	}})[0]
	if err := a.Render(&bytes.Buffer{}); err == nil {
		t.Error("Render() of garbage: expected error")
	}
}

func TestRenderThumbnail(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderThumbnail(&buf, pngDataURI(t, 400, 200), 100); err != nil {
		t.Fatalf("RenderThumbnail() error = %v", err)
	}
	img, format, err := image.Decode(&buf)
	if err != nil {
		t.Fatalf("image.Decode() error = %v", err)
	}
	if format != "jpeg" {
		t.Errorf("format = %q, want jpeg", format)
	}
	if img.Bounds().Dx() != 100 || img.Bounds().Dy() != 50 {
		t.Errorf("bounds = %v, want 100x50", img.Bounds())
	}
}
