package core

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/ImageFinder/internal/csv"
	"github.com/JonMunkholm/ImageFinder/internal/imagegen"
)

// Defaults for ServiceConfig.
const (
	DefaultSessionTTL   = 2 * time.Hour
	DefaultPreviewRows  = 5
	listenerBufferSize  = 64
	eventPublishTimeout = 5 * time.Second
)

// EventSink receives every item transition, e.g. to publish it on a bus.
type EventSink interface {
	ItemChanged(ctx context.Context, ev ItemEvent) error
}

// ServiceConfig tunes a Service. Zero values select the defaults.
type ServiceConfig struct {
	WindowSize    int
	SessionTTL    time.Duration
	MaxConcurrent int           // parallel upload parses
	MaxUploadWait time.Duration // wait for a parse slot
	PreviewRows   int
}

// Service manages upload sessions. A session holds one parsed file, the
// chosen product column and the batch processor built from it.
type Service struct {
	fetcher imagegen.Fetcher
	cfg     ServiceConfig
	limiter *UploadLimiter
	sink    EventSink

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id        string
	fileName  string
	header    []string
	rows      [][]string
	createdAt time.Time

	mu         sync.Mutex
	column     int // -1 until chosen
	processor  *Processor
	lastAccess time.Time

	listenerMu sync.Mutex
	listeners  []chan ItemEvent
}

// NewService creates a Service fetching images with fetcher.
func NewService(fetcher imagegen.Fetcher, cfg ServiceConfig) *Service {
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = DefaultWindowSize
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.PreviewRows <= 0 {
		cfg.PreviewRows = DefaultPreviewRows
	}
	return &Service{
		fetcher:  fetcher,
		cfg:      cfg,
		limiter:  NewUploadLimiter(cfg.MaxConcurrent, cfg.MaxUploadWait),
		sessions: make(map[string]*session),
	}
}

// WithEventSink forwards item transitions to sink.
func (s *Service) WithEventSink(sink EventSink) *Service {
	s.sink = sink
	return s
}

// IngestResult describes a newly created session.
type IngestResult struct {
	SessionID string     `json:"session_id"`
	FileName  string     `json:"file_name"`
	Headers   []string   `json:"headers"`
	RowCount  int        `json:"row_count"`
	Preview   [][]string `json:"preview"`
}

// SessionInfo is the read-only description of a session.
type SessionInfo struct {
	ID        string     `json:"session_id"`
	FileName  string     `json:"file_name"`
	Headers   []string   `json:"headers"`
	RowCount  int        `json:"row_count"`
	Column    int        `json:"column"` // -1 until chosen
	Preview   [][]string `json:"preview"`
	CreatedAt time.Time  `json:"created_at"`
}

// IsCSV reports whether an upload looks like a CSV file. The declared
// content type wins; a generic or missing type falls back to the extension.
func IsCSV(fileName, contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = ""
	}
	switch mediaType {
	case "text/csv":
		return true
	case "", "application/octet-stream", "application/vnd.ms-excel":
		return strings.EqualFold(filepath.Ext(fileName), ".csv")
	}
	return false
}

// Ingest parses an uploaded file and opens a session for it. Nothing is
// kept when the file is rejected.
func (s *Service) Ingest(ctx context.Context, fileName, contentType string, r io.Reader) (*IngestResult, error) {
	if !IsCSV(fileName, contentType) {
		return nil, fmt.Errorf("%w: %q (%s) is not a CSV file", ErrUnsupportedInput, fileName, contentType)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	start := time.Now()
	rows, err := csv.Decode(r)
	if err != nil {
		return nil, err
	}
	header, data, ok := csv.SplitHeader(rows)
	if !ok {
		return nil, ErrParseDegenerate
	}

	now := time.Now()
	sess := &session{
		id:         uuid.NewString(),
		fileName:   fileName,
		header:     header,
		rows:       data,
		createdAt:  now,
		column:     -1,
		lastAccess: now,
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	slog.Info("file ingested",
		"session_id", sess.id,
		"file", fileName,
		"columns", len(header),
		"rows", len(data),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return &IngestResult{
		SessionID: sess.id,
		FileName:  fileName,
		Headers:   header,
		RowCount:  len(data),
		Preview:   s.preview(data),
	}, nil
}

// Session returns the description of a session.
func (s *Service) Session(id string) (SessionInfo, error) {
	sess, err := s.get(id)
	if err != nil {
		return SessionInfo{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return SessionInfo{
		ID:        sess.id,
		FileName:  sess.fileName,
		Headers:   sess.header,
		RowCount:  len(sess.rows),
		Column:    sess.column,
		Preview:   s.preview(sess.rows),
		CreatedAt: sess.createdAt,
	}, nil
}

func (s *Service) preview(rows [][]string) [][]string {
	if len(rows) > s.cfg.PreviewRows {
		return rows[:s.cfg.PreviewRows]
	}
	return rows
}

// WindowSize returns the number of products dispatched per window.
func (s *Service) WindowSize() int {
	return s.cfg.WindowSize
}

// ChooseColumn fixes the product column, builds the work list and
// dispatches the first window.
func (s *Service) ChooseColumn(ctx context.Context, id string, column int) (Snapshot, error) {
	sess, err := s.get(id)
	if err != nil {
		return Snapshot{}, err
	}

	sess.mu.Lock()
	if sess.processor != nil {
		sess.mu.Unlock()
		return Snapshot{}, ErrColumnAlreadyChosen
	}
	items, err := BuildWorkItems(sess.rows, sess.header, column)
	if err != nil {
		sess.mu.Unlock()
		return Snapshot{}, err
	}
	proc, err := NewProcessor(items, s.fetcher, s.cfg.WindowSize)
	if err != nil {
		sess.mu.Unlock()
		return Snapshot{}, err
	}
	proc.WithObserver(s.observe(sess))
	sess.column = column
	sess.processor = proc
	sess.mu.Unlock()

	slog.Info("product column chosen",
		"session_id", id,
		"column", column,
		"header", sess.header[column],
		"items", len(items),
		"skipped", len(sess.rows)-len(items),
	)

	proc.AdvanceWindow(ctx)
	return proc.Snapshot(), nil
}

// Advance requests the next window. dispatched is false when a window is
// still in flight or the list is exhausted.
func (s *Service) Advance(ctx context.Context, id string) (snap Snapshot, dispatched bool, err error) {
	proc, err := s.processor(id)
	if err != nil {
		return Snapshot{}, false, err
	}
	w := proc.AdvanceWindow(ctx)
	return proc.Snapshot(), w != nil, nil
}

// State returns the current processing snapshot.
func (s *Service) State(id string) (Snapshot, error) {
	proc, err := s.processor(id)
	if err != nil {
		return Snapshot{}, err
	}
	return proc.Snapshot(), nil
}

// Select makes imageID the selection of itemID. Selecting an image that
// does not belong to a finished item leaves the state unchanged.
func (s *Service) Select(id string, itemID int, imageID string) (ItemView, error) {
	proc, err := s.processor(id)
	if err != nil {
		return ItemView{}, err
	}
	item, ok := proc.Item(itemID)
	if !ok {
		return ItemView{}, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	if !proc.SelectImage(itemID, imageID) {
		slog.Debug("selection ignored", "session_id", id, "item_id", itemID, "image_id", imageID)
	}
	st, _ := proc.Status(itemID)
	return viewOf(item, st), nil
}

// Export returns one artifact per item with a selected image.
func (s *Service) Export(id string) ([]Artifact, error) {
	proc, err := s.processor(id)
	if err != nil {
		return nil, err
	}
	return Export(proc.Selections()), nil
}

// Artifact returns the export artifact of a single item.
func (s *Service) Artifact(id string, itemID int) (Artifact, error) {
	proc, err := s.processor(id)
	if err != nil {
		return Artifact{}, err
	}
	item, ok := proc.Item(itemID)
	if !ok {
		return Artifact{}, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	st, _ := proc.Status(itemID)
	done, ok := st.(Done)
	if !ok {
		return Artifact{}, ErrNoSelection
	}
	img, ok := done.Selected()
	if !ok {
		return Artifact{}, ErrNoSelection
	}
	return Export([]Selection{{Item: item, Image: img}})[0], nil
}

// Image looks up one generated image of an item.
func (s *Service) Image(id string, itemID int, imageID string) (ImageResult, error) {
	proc, err := s.processor(id)
	if err != nil {
		return ImageResult{}, err
	}
	st, ok := proc.Status(itemID)
	if !ok {
		return ImageResult{}, fmt.Errorf("%w: %d", ErrItemNotFound, itemID)
	}
	done, ok := st.(Done)
	if !ok {
		return ImageResult{}, fmt.Errorf("%w: image %s", ErrItemNotFound, imageID)
	}
	img, ok := done.Image(imageID)
	if !ok {
		return ImageResult{}, fmt.Errorf("%w: image %s", ErrItemNotFound, imageID)
	}
	return img, nil
}

// Subscribe returns a channel receiving the session's item transitions and
// a function that ends the subscription. Slow listeners miss updates rather
// than block processing. The channel is closed when the session ends.
func (s *Service) Subscribe(id string) (<-chan ItemEvent, func(), error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, nil, err
	}

	ch := make(chan ItemEvent, listenerBufferSize)
	sess.listenerMu.Lock()
	sess.listeners = append(sess.listeners, ch)
	sess.listenerMu.Unlock()

	var once sync.Once
	unsubscribe := func() {
		once.Do(func() { sess.removeListener(ch) })
	}
	return ch, unsubscribe, nil
}

// Close ends a session. Fetches still in flight finish but their results
// are discarded.
func (s *Service) Close(id string) error {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.closeListeners()
	slog.Info("session closed", "session_id", id)
	return nil
}

// Wait blocks until no session has a window in flight or ctx is done.
func (s *Service) Wait(ctx context.Context) error {
	s.mu.RLock()
	procs := make([]*Processor, 0, len(s.sessions))
	for _, sess := range s.sessions {
		sess.mu.Lock()
		if sess.processor != nil {
			procs = append(procs, sess.processor)
		}
		sess.mu.Unlock()
	}
	s.mu.RUnlock()

	for _, p := range procs {
		if err := p.Wait(ctx); err != nil {
			return err
		}
	}
	return s.limiter.WaitForDrain(ctx)
}

// ActiveUploads returns how many files are being parsed right now.
func (s *Service) ActiveUploads() int {
	return s.limiter.Active()
}

// Len returns the number of open sessions.
func (s *Service) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Service) get(id string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	sess.mu.Lock()
	sess.lastAccess = time.Now()
	sess.mu.Unlock()
	return sess, nil
}

func (s *Service) processor(id string) (*Processor, error) {
	sess, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.processor == nil {
		return nil, ErrColumnNotChosen
	}
	return sess.processor, nil
}

// observe builds the processor observer for a session.
func (s *Service) observe(sess *session) Observer {
	return func(item WorkItem, st ItemStatus) {
		ev := ItemEvent{SessionID: sess.id, Item: viewOf(item, st)}
		sess.notify(ev)

		if s.sink == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), eventPublishTimeout)
		defer cancel()
		if err := s.sink.ItemChanged(ctx, ev); err != nil {
			slog.Warn("publish item event failed", "session_id", sess.id, "item_id", item.ID, "error", err)
		}
	}
}

// notify sends ev to all listeners without blocking.
func (sess *session) notify(ev ItemEvent) {
	sess.listenerMu.Lock()
	defer sess.listenerMu.Unlock()

	for _, ch := range sess.listeners {
		select {
		case ch <- ev:
		default:
			// Listener is slow, skip this update
		}
	}
}

func (sess *session) removeListener(ch chan ItemEvent) {
	sess.listenerMu.Lock()
	defer sess.listenerMu.Unlock()

	for i, l := range sess.listeners {
		if l == ch {
			sess.listeners = append(sess.listeners[:i], sess.listeners[i+1:]...)
			close(ch)
			return
		}
	}
}

// closeListeners closes all listener channels.
func (sess *session) closeListeners() {
	sess.listenerMu.Lock()
	defer sess.listenerMu.Unlock()

	for _, ch := range sess.listeners {
		close(ch)
	}
	sess.listeners = nil
}
