package core

import (
	"errors"
	"fmt"

	"github.com/JonMunkholm/ImageFinder/internal/imagegen"
)

// WorkItem is one product to generate images for. Items are built once per
// session and never change afterwards.
type WorkItem struct {
	ID   int    `json:"id"`   // 0-based data row position before filtering
	Name string `json:"name"` // trimmed, never empty
}

// ImageResult is one generated image of an item.
type ImageResult struct {
	ID  string `json:"id"`  // "{itemID}-{index}"
	URL string `json:"url"` // inline data URI
}

// StatusKind names the variants of ItemStatus.
type StatusKind string

const (
	StatusPending StatusKind = "pending"
	StatusLoading StatusKind = "loading"
	StatusDone    StatusKind = "done"
	StatusFailed  StatusKind = "failed"
)

// ItemStatus is the processing state of a single WorkItem. The set of
// implementations is closed: Pending, Loading, Done and Failed.
type ItemStatus interface {
	Kind() StatusKind
	isItemStatus()
}

// Pending means the item has not been dispatched yet.
type Pending struct{}

// Loading means a fetch for the item is in flight.
type Loading struct{}

// Done holds the generated images of an item and the one currently selected.
// The zero value is not valid; use NewDone.
type Done struct {
	images   []ImageResult
	selected int // index into images, -1 when nothing is selected
}

// Failed records why the item's fetch did not succeed.
type Failed struct {
	Reason  string               // user-facing message
	Failure imagegen.FailureKind // classification
}

func (Pending) Kind() StatusKind { return StatusPending }
func (Loading) Kind() StatusKind { return StatusLoading }
func (Done) Kind() StatusKind    { return StatusDone }
func (Failed) Kind() StatusKind  { return StatusFailed }

func (Pending) isItemStatus() {}
func (Loading) isItemStatus() {}
func (Done) isItemStatus()    {}
func (Failed) isItemStatus()  {}

// ErrNoImages is returned by NewDone when a fetch produced nothing.
var ErrNoImages = errors.New("done status requires at least one image")

// NewDone builds the Done status for itemID from the fetched image
// references. The first image is selected.
func NewDone(itemID int, urls []string) (Done, error) {
	if len(urls) == 0 {
		return Done{}, ErrNoImages
	}
	images := make([]ImageResult, len(urls))
	for i, url := range urls {
		images[i] = ImageResult{ID: fmt.Sprintf("%d-%d", itemID, i), URL: url}
	}
	return Done{images: images, selected: 0}, nil
}

// Images returns a copy of the item's images in fetch order.
func (d Done) Images() []ImageResult {
	out := make([]ImageResult, len(d.images))
	copy(out, d.images)
	return out
}

// Selected returns the selected image, if any.
func (d Done) Selected() (ImageResult, bool) {
	if d.selected < 0 || d.selected >= len(d.images) {
		return ImageResult{}, false
	}
	return d.images[d.selected], true
}

// Image looks up one of the item's images by id.
func (d Done) Image(imageID string) (ImageResult, bool) {
	for _, img := range d.images {
		if img.ID == imageID {
			return img, true
		}
	}
	return ImageResult{}, false
}

// withSelected returns a copy of d selecting imageID. ok is false when the
// image does not belong to this item.
func (d Done) withSelected(imageID string) (Done, bool) {
	for i, img := range d.images {
		if img.ID == imageID {
			d.selected = i
			return d, true
		}
	}
	return d, false
}

// Failure reasons shown on an item's status badge.
const (
	ReasonRateLimited = "Rate limit exceeded"
	ReasonFailed      = "API Failed"
)

// failedFrom converts a fetch error into a terminal Failed status.
func failedFrom(err error) Failed {
	kind := imagegen.Classify(err)
	if kind == imagegen.FailureRateLimited {
		return Failed{Reason: ReasonRateLimited, Failure: kind}
	}
	return Failed{Reason: ReasonFailed, Failure: imagegen.FailureGeneric}
}

// ItemView is the serialisable form of an item and its status.
type ItemView struct {
	ID       int                  `json:"id"`
	Name     string               `json:"name"`
	Status   StatusKind           `json:"status"`
	Images   []ImageResult        `json:"images,omitempty"`
	Selected string               `json:"selected_image_id,omitempty"`
	Error    string               `json:"error,omitempty"`
	Failure  imagegen.FailureKind `json:"failure,omitempty"`
}

// viewOf flattens an item and its status.
func viewOf(item WorkItem, st ItemStatus) ItemView {
	v := ItemView{ID: item.ID, Name: item.Name, Status: st.Kind()}
	switch s := st.(type) {
	case Done:
		v.Images = s.Images()
		if sel, ok := s.Selected(); ok {
			v.Selected = sel.ID
		}
	case Failed:
		v.Error = s.Reason
		v.Failure = s.Failure
	}
	return v
}

// SelectedImage returns the selected image of the view, if any.
func (v ItemView) SelectedImage() (ImageResult, bool) {
	if v.Selected == "" {
		return ImageResult{}, false
	}
	for _, img := range v.Images {
		if img.ID == v.Selected {
			return img, true
		}
	}
	return ImageResult{}, false
}

// Snapshot is a consistent view of a processor's state.
type Snapshot struct {
	Items     []ItemView `json:"items"`
	Total     int        `json:"total"`
	Processed int        `json:"processed"`
	Selected  int        `json:"selected"`
	Cursor    int        `json:"cursor"`
	HasNext   bool       `json:"has_next"`
	InFlight  bool       `json:"in_flight"`
}

// ItemEvent describes one status transition.
type ItemEvent struct {
	SessionID string   `json:"session_id,omitempty"`
	Item      ItemView `json:"item"`
}
