// Package imagegen requests generated product photographs from an external
// image service.
//
// The package exposes two layers:
//
//   - [Generator] produces a single image for a prompt. [Gemini] talks to the
//     Google Generative Language API; [Placeholder] renders local solid-colour
//     images for development and tests.
//   - [Client] implements the per-product contract used by the batch engine:
//     validate the name, build the prompt, request N images one after another,
//     and classify any failure as rate limited or generic.
//
// Images travel as inline data URIs so they can be rendered and exported
// without any intermediate storage.
package imagegen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultImagesPerProduct is how many images are requested per product.
const DefaultImagesPerProduct = 3

// ErrEmptyName is returned before any external call when the product name is
// blank. The record builder filters such names, so seeing this is a bug upstream.
var ErrEmptyName = errors.New("product name cannot be empty")

// Generator produces one image for a prompt and returns it as a data URI.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Fetcher returns an ordered list of image references for a product name.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]string, error)
}

// Client issues the image requests for a product strictly in sequence, so at
// most one external call per product is outstanding at any time.
type Client struct {
	gen   Generator
	count int
}

// NewClient creates a Client that asks gen for count images per product.
func NewClient(gen Generator, count int) *Client {
	if count <= 0 {
		count = DefaultImagesPerProduct
	}
	return &Client{gen: gen, count: count}
}

// ImagesPerProduct returns how many images Fetch returns on success.
func (c *Client) ImagesPerProduct() int {
	return c.count
}

// Fetch generates the images for one product. It stops at the first failed
// call; partial results are discarded and the error is returned as a
// *FetchError carrying its classification.
func (c *Client) Fetch(ctx context.Context, name string) ([]string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	prompt := Prompt(name)
	logger := slog.Default().With("product", name)
	start := time.Now()

	images := make([]string, 0, c.count)
	for i := 0; i < c.count; i++ {
		url, err := c.gen.Generate(ctx, prompt)
		if err != nil {
			ferr := asFetchError(err)
			logger.Warn("image generation failed",
				"attempt", i+1,
				"failure", ferr.Kind,
				"error", err,
			)
			return nil, ferr
		}
		images = append(images, url)
	}

	logger.Debug("images generated", "count", len(images), "duration_ms", time.Since(start).Milliseconds())
	return images, nil
}

// Prompt builds the natural-language request sent for a product.
func Prompt(name string) string {
	return fmt.Sprintf(
		`A professional, clean, high-resolution product photograph of a "%s" on a plain white background, studio lighting.`,
		name,
	)
}
