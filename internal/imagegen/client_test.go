package imagegen

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
)

type stubGenerator struct {
	mu      sync.Mutex
	prompts []string
	failAt  int // 1-based call that fails; 0 never fails
	err     error
}

func (s *stubGenerator) Generate(_ context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prompts = append(s.prompts, prompt)
	n := len(s.prompts)
	if s.failAt != 0 && n == s.failAt {
		return "", s.err
	}
	return fmt.Sprintf("data:image/png;base64,img%d", n), nil
}

func TestClientFetch_ReturnsImagesInOrder(t *testing.T) {
	gen := &stubGenerator{}
	c := NewClient(gen, 3)

	images, err := c.Fetch(context.Background(), "  Widget ")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if len(images) != 3 {
		t.Fatalf("len(images) = %d, want 3", len(images))
	}
	for i, img := range images {
		want := fmt.Sprintf("data:image/png;base64,img%d", i+1)
		if img != want {
			t.Errorf("images[%d] = %q, want %q", i, img, want)
		}
	}

	want := `A professional, clean, high-resolution product photograph of a "Widget" on a plain white background, studio lighting.`
	for i, p := range gen.prompts {
		if p != want {
			t.Errorf("prompt[%d] = %q, want %q", i, p, want)
		}
	}
}

func TestClientFetch_EmptyNameMakesNoCalls(t *testing.T) {
	gen := &stubGenerator{}
	c := NewClient(gen, 3)

	for _, name := range []string{"", "   ", "\t"} {
		_, err := c.Fetch(context.Background(), name)
		if !errors.Is(err, ErrEmptyName) {
			t.Errorf("Fetch(%q) error = %v, want ErrEmptyName", name, err)
		}
	}
	if len(gen.prompts) != 0 {
		t.Errorf("generator called %d times, want 0", len(gen.prompts))
	}
}

func TestClientFetch_StopsAtFirstFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"quota status", &StatusError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED"}, FailureRateLimited},
		{"quota text", errors.New("You exceeded your current quota"), FailureRateLimited},
		{"exhausted text", errors.New("rpc error: RESOURCE_EXHAUSTED"), FailureRateLimited},
		{"server error", &StatusError{StatusCode: 500, Status: "INTERNAL"}, FailureGeneric},
		{"no data", ErrNoImageData, FailureGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{failAt: 2, err: tt.err}
			c := NewClient(gen, 3)

			images, err := c.Fetch(context.Background(), "Gadget")
			if images != nil {
				t.Errorf("images = %v, want nil", images)
			}
			var ferr *FetchError
			if !errors.As(err, &ferr) {
				t.Fatalf("error = %T, want *FetchError", err)
			}
			if ferr.Kind != tt.want {
				t.Errorf("Kind = %q, want %q", ferr.Kind, tt.want)
			}
			if !errors.Is(err, tt.err) {
				t.Errorf("error does not wrap the generator error")
			}
			if len(gen.prompts) != 2 {
				t.Errorf("generator called %d times, want 2", len(gen.prompts))
			}
		})
	}
}

func TestNewClient_DefaultCount(t *testing.T) {
	c := NewClient(&stubGenerator{}, 0)
	if got := c.ImagesPerProduct(); got != DefaultImagesPerProduct {
		t.Errorf("ImagesPerProduct() = %d, want %d", got, DefaultImagesPerProduct)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureKind
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), FailureGeneric},
		{"quota mixed case", errors.New("Quota exceeded"), FailureRateLimited},
		{"wrapped status", fmt.Errorf("call: %w", &StatusError{StatusCode: 429}), FailureRateLimited},
		{"preclassified", &FetchError{Kind: FailureGeneric, Err: errors.New("quota")}, FailureGeneric},
		{"canceled", context.Canceled, FailureGeneric},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &StatusError{StatusCode: 429, Status: "RESOURCE_EXHAUSTED", Message: "slow down"}
	got := err.Error()
	for _, part := range []string{"429", "RESOURCE_EXHAUSTED", "slow down"} {
		if !strings.Contains(got, part) {
			t.Errorf("Error() = %q, missing %q", got, part)
		}
	}
}
