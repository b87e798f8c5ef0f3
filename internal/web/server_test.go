package web

import (
	"archive/zip"
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image/jpeg"
	"image/png"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JonMunkholm/ImageFinder/internal/config"
	"github.com/JonMunkholm/ImageFinder/internal/core"
	"github.com/JonMunkholm/ImageFinder/internal/imagegen"
)

func testConfig() *config.Config {
	return &config.Config{
		Server:   config.ServerConfig{RequestTimeout: 5 * time.Second},
		Upload:   config.UploadConfig{MaxFileSize: 1 << 20},
		Security: config.SecurityConfig{EnableCSP: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *core.Service) {
	t.Helper()
	client := imagegen.NewClient(imagegen.NewPlaceholder(16), 3)
	svc := core.NewService(client, core.ServiceConfig{WindowSize: 2})
	srv, err := NewServer(cfg, svc)
	if err != nil {
		t.Fatalf("NewServer() error = %v", err)
	}
	t.Cleanup(func() { srv.Shutdown(context.Background()) })
	return srv, svc
}

func multipartBody(t *testing.T, filename, body string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatal(err)
	}
	io.WriteString(fw, body)
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func do(t *testing.T, srv *Server, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

func createSession(t *testing.T, srv *Server, csv string) core.IngestResult {
	t.Helper()
	body, ct := multipartBody(t, "products.csv", csv)
	rec := do(t, srv, http.MethodPost, "/api/sessions", body, ct)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create session status = %d, body %s", rec.Code, rec.Body)
	}
	return decode[core.IngestResult](t, rec)
}

func TestAPI_FullFlow(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())
	res := createSession(t, srv, "SKU,Name\n1,Widget\n2,Gadget\n3,\n4,Lamp\n")

	if res.RowCount != 4 || len(res.Headers) != 2 {
		t.Fatalf("ingest = %+v", res)
	}
	base := "/api/sessions/" + res.SessionID

	rec := do(t, srv, http.MethodPost, base+"/column", strings.NewReader(`{"column":1}`), "application/json")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("column status = %d, body %s", rec.Code, rec.Body)
	}
	if err := svc.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	got := decode[SessionResponse](t, do(t, srv, http.MethodGet, base, nil, ""))
	if got.State == nil || got.State.Total != 3 || got.State.Processed != 2 || !got.State.HasNext {
		t.Fatalf("state after first window = %+v", got.State)
	}

	rec = do(t, srv, http.MethodPost, base+"/next", nil, "")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("next status = %d", rec.Code)
	}
	if err := svc.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}
	next := decode[NextResponse](t, do(t, srv, http.MethodPost, base+"/next", nil, ""))
	if next.Dispatched || next.State.Processed != 3 {
		t.Errorf("exhausted next = %+v", next)
	}

	view := decode[core.ItemView](t, do(t, srv, http.MethodPost, base+"/items/3/select",
		strings.NewReader(`{"image_id":"3-2"}`), "application/json"))
	if view.Selected != "3-2" {
		t.Errorf("selected = %q, want 3-2", view.Selected)
	}

	export := decode[ExportResponse](t, do(t, srv, http.MethodGet, base+"/export", nil, ""))
	if export.Count != 3 {
		t.Fatalf("export count = %d, want 3", export.Count)
	}
	if export.Artifacts[2].Filename != "lamp.png" || export.Artifacts[2].ImageID != "3-2" {
		t.Errorf("artifact = %+v", export.Artifacts[2])
	}
	if export.Artifacts[0].DownloadURL != base+"/items/0/download" {
		t.Errorf("download url = %q", export.Artifacts[0].DownloadURL)
	}

	rec = do(t, srv, http.MethodGet, export.Artifacts[0].DownloadURL, nil, "")
	if rec.Code != http.StatusOK || rec.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("download status = %d type %q", rec.Code, rec.Header().Get("Content-Type"))
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, `filename="widget.png"`) {
		t.Errorf("Content-Disposition = %q", cd)
	}
	if _, err := png.Decode(rec.Body); err != nil {
		t.Errorf("download is not a PNG: %v", err)
	}

	rec = do(t, srv, http.MethodGet, base+"/items/0/images/0-1/thumb?size=8", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("thumb status = %d", rec.Code)
	}
	thumb, err := jpeg.Decode(rec.Body)
	if err != nil {
		t.Fatalf("thumb is not a JPEG: %v", err)
	}
	if b := thumb.Bounds(); b.Dx() != 8 || b.Dy() != 8 {
		t.Errorf("thumb size = %v, want 8x8", b)
	}

	rec = do(t, srv, http.MethodGet, base+"/export.zip", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("archive status = %d", rec.Code)
	}
	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	var names []string
	for _, f := range zr.File {
		names = append(names, f.Name)
	}
	if strings.Join(names, ",") != "widget.png,gadget.png,lamp.png" {
		t.Errorf("archive entries = %v", names)
	}

	if rec := do(t, srv, http.MethodDelete, base, nil, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d", rec.Code)
	}
	if rec := do(t, srv, http.MethodGet, base, nil, ""); rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestAPI_Errors(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	tests := []struct {
		name     string
		method   string
		path     string
		body     func() (io.Reader, string)
		wantCode int
		wantErr  string
	}{
		{
			name: "not a csv", method: http.MethodPost, path: "/api/sessions",
			body:     func() (io.Reader, string) { return multipartBody(t, "photo.png", "x") },
			wantCode: http.StatusUnsupportedMediaType, wantErr: "FILE002",
		},
		{
			name: "header only", method: http.MethodPost, path: "/api/sessions",
			body:     func() (io.Reader, string) { return multipartBody(t, "a.csv", "Name\n") },
			wantCode: http.StatusUnprocessableEntity, wantErr: "FILE003",
		},
		{
			name: "no file", method: http.MethodPost, path: "/api/sessions",
			body:     func() (io.Reader, string) { return strings.NewReader("x"), "text/plain" },
			wantCode: http.StatusBadRequest, wantErr: "FILE004",
		},
		{
			name: "unknown session", method: http.MethodGet, path: "/api/sessions/nope",
			body:     func() (io.Reader, string) { return nil, "" },
			wantCode: http.StatusNotFound, wantErr: "SES001",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, ct := tt.body()
			rec := do(t, srv, tt.method, tt.path, body, ct)
			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d (%s)", rec.Code, tt.wantCode, rec.Body)
			}
			if got := decode[ErrorResponse](t, rec); got.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", got.Code, tt.wantErr)
			}
		})
	}
}

func TestAPI_ColumnErrors(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())
	res := createSession(t, srv, "Name\nWidget\n")
	base := "/api/sessions/" + res.SessionID

	rec := do(t, srv, http.MethodPost, base+"/next", nil, "")
	if rec.Code != http.StatusConflict || decode[ErrorResponse](t, rec).Code != "VAL003" {
		t.Errorf("next before column = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodPost, base+"/column", strings.NewReader(`{}`), "application/json")
	if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Code != "VAL004" {
		t.Errorf("missing column = %d %s", rec.Code, rec.Body)
	}

	rec = do(t, srv, http.MethodPost, base+"/column", strings.NewReader(`{"column":4}`), "application/json")
	if rec.Code != http.StatusBadRequest || decode[ErrorResponse](t, rec).Code != "VAL001" {
		t.Errorf("column out of range = %d %s", rec.Code, rec.Body)
	}

	do(t, srv, http.MethodPost, base+"/column", strings.NewReader(`{"column":0}`), "application/json")
	rec = do(t, srv, http.MethodPost, base+"/column", strings.NewReader(`{"column":0}`), "application/json")
	if rec.Code != http.StatusConflict || decode[ErrorResponse](t, rec).Code != "VAL002" {
		t.Errorf("second column = %d %s", rec.Code, rec.Body)
	}
	svc.Wait(context.Background())

	rec = do(t, srv, http.MethodGet, base+"/items/abc/download", nil, "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad item id status = %d", rec.Code)
	}
	rec = do(t, srv, http.MethodGet, base+"/items/0/images/9-9/thumb", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("foreign image status = %d", rec.Code)
	}
}

func TestAPI_UploadTooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 256
	srv, _ := newTestServer(t, cfg)

	body, ct := multipartBody(t, "big.csv", "Name\n"+strings.Repeat("Widget\n", 200))
	rec := do(t, srv, http.MethodPost, "/api/sessions", body, ct)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (%s)", rec.Code, rec.Body)
	}
	if got := decode[ErrorResponse](t, rec).Code; got != "FILE001" {
		t.Errorf("code = %q, want FILE001", got)
	}
}

func TestPages_FormFlow(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())

	rec := do(t, srv, http.MethodGet, "/", nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("index status = %d", rec.Code)
	}
	if csp := rec.Header().Get("Content-Security-Policy"); !strings.Contains(csp, "img-src 'self' data:") {
		t.Errorf("CSP = %q", csp)
	}

	body, ct := multipartBody(t, "products.csv", "Name,Price\nWidget,9\nGadget,3\nLamp,1\n")
	rec = do(t, srv, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("upload status = %d (%s)", rec.Code, rec.Body)
	}
	sessionPath := rec.Header().Get("Location")
	if !strings.HasPrefix(sessionPath, "/session/") {
		t.Fatalf("Location = %q", sessionPath)
	}

	doc := page(t, srv, sessionPath)
	if got := doc.Find("input[name=column]").Length(); got != 2 {
		t.Fatalf("column choices = %d, want 2", got)
	}

	rec = do(t, srv, http.MethodPost, sessionPath+"/column", strings.NewReader("column=0"), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("column form status = %d (%s)", rec.Code, rec.Body)
	}
	if err := svc.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc = page(t, srv, sessionPath)
	if got := doc.Find("#progress").Text(); got != "2 of 3 processed" {
		t.Errorf("progress = %q", got)
	}
	if got := doc.Find(`article[data-status="pending"] .status`).Text(); got != "Queued" {
		t.Errorf("third item status = %q", got)
	}
	if got := doc.Find("#item-0 button.selected").AttrOr("value", ""); got != "0-0" {
		t.Errorf("default selection = %q, want 0-0", got)
	}

	rec = do(t, srv, http.MethodPost, sessionPath+"/items/0/select", strings.NewReader("image_id=0-2"), "application/x-www-form-urlencoded")
	if rec.Code != http.StatusSeeOther || !strings.HasSuffix(rec.Header().Get("Location"), "#item-0") {
		t.Fatalf("select form = %d %q", rec.Code, rec.Header().Get("Location"))
	}

	do(t, srv, http.MethodPost, sessionPath+"/next", nil, "")
	if err := svc.Wait(context.Background()); err != nil {
		t.Fatal(err)
	}

	doc = page(t, srv, sessionPath)
	if got := doc.Find("#item-0 button.selected").AttrOr("value", ""); got != "0-2" {
		t.Errorf("selection after form = %q, want 0-2", got)
	}
	if got := doc.Find("#download").Text(); got != "Download (3)" {
		t.Errorf("download = %q", got)
	}
	if _, disabled := doc.Find("#next").Attr("disabled"); !disabled {
		t.Error("next enabled after the last window")
	}

	rec = do(t, srv, http.MethodPost, sessionPath+"/reset", nil, "")
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/" {
		t.Errorf("reset = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	if svc.Len() != 0 {
		t.Errorf("sessions after reset = %d", svc.Len())
	}
}

func TestPages_UploadRejected(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())

	body, ct := multipartBody(t, "notes.txt", "hello")
	rec := do(t, srv, http.MethodPost, "/upload", body, ct)
	if rec.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("status = %d", rec.Code)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Find(".alert").Text(), "FILE002") {
		t.Errorf("alert = %q", doc.Find(".alert").Text())
	}
	if doc.Find("form[action='/upload']").Length() != 1 {
		t.Error("upload form not shown again")
	}
}

func TestPages_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := do(t, srv, http.MethodGet, "/session/missing", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Content-Type = %q", rec.Header().Get("Content-Type"))
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(doc.Find(".code").Text(), "SES001") {
		t.Errorf("error page code = %q", doc.Find(".code").Text())
	}
}

func page(t *testing.T, srv *Server, path string) *goquery.Document {
	t.Helper()
	rec := do(t, srv, http.MethodGet, path, nil, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("GET %s status = %d (%s)", path, rec.Code, rec.Body)
	}
	doc, err := goquery.NewDocumentFromReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

type sseEvent struct {
	name string
	data string
}

func readEvent(t *testing.T, r *bufio.Reader) sseEvent {
	t.Helper()
	var ev sseEvent
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read event: %v", err)
		}
		line = strings.TrimRight(line, "\n")
		switch {
		case line == "" && ev.name != "":
			return ev
		case strings.HasPrefix(line, "event: "):
			ev.name = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			ev.data = strings.TrimPrefix(line, "data: ")
		}
	}
}

func TestEvents_Stream(t *testing.T) {
	srv, svc := newTestServer(t, testConfig())
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	res := createSession(t, srv, "Name\nWidget\n")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/sessions/"+res.SessionID+"/events", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("Content-Type = %q", ct)
	}
	r := bufio.NewReader(resp.Body)

	if ev := readEvent(t, r); ev.name != "snapshot" {
		t.Fatalf("first event = %q, want snapshot", ev.name)
	}

	if _, err := svc.ChooseColumn(context.Background(), res.SessionID, 0); err != nil {
		t.Fatal(err)
	}
	ev := readEvent(t, r)
	if ev.name != "item" || !strings.Contains(ev.data, `"status":"loading"`) {
		t.Fatalf("event = %+v, want loading item", ev)
	}
	ev = readEvent(t, r)
	if ev.name != "item" || !strings.Contains(ev.data, `"status":"done"`) {
		t.Fatalf("event = %+v, want done item", ev)
	}

	if err := svc.Close(res.SessionID); err != nil {
		t.Fatal(err)
	}
	if ev := readEvent(t, r); ev.name != "closed" {
		t.Errorf("last event = %q, want closed", ev.name)
	}
}

func TestShutdown_EndsEventStreams(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	served := make(chan error, 1)
	go func() { served <- srv.Serve(ln) }()

	res := createSession(t, srv, "Name\nWidget\n")
	resp, err := http.Get("http://" + ln.Addr().String() + "/api/sessions/" + res.SessionID + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	r := bufio.NewReader(resp.Body)
	if ev := readEvent(t, r); ev.name != "snapshot" {
		t.Fatalf("first event = %q, want snapshot", ev.name)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Shutdown() took %v with an open event stream", elapsed)
	}
	if _, err := io.ReadAll(r); err != nil {
		t.Errorf("stream not ended cleanly: %v", err)
	}
	if err := <-served; err != http.ErrServerClosed {
		t.Errorf("Serve() error = %v, want ErrServerClosed", err)
	}
}

func TestEvents_UnknownSession(t *testing.T) {
	srv, _ := newTestServer(t, testConfig())
	rec := do(t, srv, http.MethodGet, "/api/sessions/nope/events", nil, "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestNewServer_BadTrustedProxy(t *testing.T) {
	cfg := testConfig()
	cfg.Security.TrustedProxies = []string{"not-a-cidr"}
	if _, err := NewServer(cfg, core.NewService(imagegen.NewClient(imagegen.NewPlaceholder(8), 1), core.ServiceConfig{})); err == nil {
		t.Error("NewServer() expected error for invalid proxy")
	}
}
