package httpapi

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/arenaduel/battle-server/internal/battle"
	"github.com/arenaduel/battle-server/internal/models"
)

type noopDispatcher struct{}

func (noopDispatcher) HandleConnect(*battle.Session)                  {}
func (noopDispatcher) Dispatch(*battle.Session, battle.ClientCommand) {}
func (noopDispatcher) HandleDisconnect(*battle.Session)               {}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	store, err := models.Open(t.TempDir() + "/models.db")
	if err != nil {
		t.Fatalf("models.Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	uploadsDir := t.TempDir() + "/uploads/models"
	logger := log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel})
	return NewServer(noopDispatcher{}, store, uploadsDir, battle.DefaultLivenessProbeInterval, battle.DefaultLivenessTimeout, logger)
}

func multipartUpload(t *testing.T, fieldName, fileName string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	w := multipart.NewWriter(body)
	part, err := w.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatalf("CreateFormFile() failed: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart writer failed: %v", err)
	}
	return body, w.FormDataContentType()
}

func TestHandleUploadModelAcceptsGLB(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartUpload(t, "file", "avatar.glb", []byte("glb-bytes"))

	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.handleUploadModel(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp uploadModelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response failed: %v", err)
	}
	if resp.ModelID == "" || resp.FileName != "avatar.glb" || resp.FileSize != int64(len("glb-bytes")) {
		t.Errorf("response = %+v", resp)
	}

	list, err := s.models.ListUnused()
	if err != nil {
		t.Fatalf("ListUnused() failed: %v", err)
	}
	if len(list) != 1 || list[0].ID != resp.ModelID {
		t.Errorf("ListUnused() = %+v, want the uploaded model", list)
	}
}

func TestHandleUploadModelRejectsDisallowedType(t *testing.T) {
	s := newTestServer(t)
	// CreateFormFile would label the part application/octet-stream, which
	// is an accepted MIME type, so the part header is built by hand.
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	partHeader := textproto.MIMEHeader{}
	partHeader.Set("Content-Disposition", `form-data; name="file"; filename="malware.exe"`)
	partHeader.Set("Content-Type", "application/x-msdownload")
	part, err := mw.CreatePart(partHeader)
	if err != nil {
		t.Fatalf("CreatePart() failed: %v", err)
	}
	if _, err := part.Write([]byte("nope")); err != nil {
		t.Fatalf("write form file failed: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer failed: %v", err)
	}
	contentType := mw.FormDataContentType()

	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()

	s.handleUploadModel(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleUploadModelRejectsGetMethod(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/models/upload", nil)
	rec := httptest.NewRecorder()

	s.handleUploadModel(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestHandleListModelsReturnsOnlyUnused(t *testing.T) {
	s := newTestServer(t)
	body, contentType := multipartUpload(t, "file", "used.gltf", []byte("gltf-json"))
	req := httptest.NewRequest(http.MethodPost, "/api/models/upload", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handleUploadModel(rec, req)

	var uploaded uploadModelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
		t.Fatalf("decode upload response failed: %v", err)
	}
	if err := s.models.MarkUsed(uploaded.ModelID); err != nil {
		t.Fatalf("MarkUsed() failed: %v", err)
	}

	listReq := httptest.NewRequest(http.MethodGet, "/api/models", nil)
	listRec := httptest.NewRecorder()
	s.handleListModels(listRec, listReq)

	var list []models.Model3D
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list response failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("ListModels = %+v, want empty once the only model is used", list)
	}
}

func TestSanitizeFilenameStripsDirectoryComponents(t *testing.T) {
	cases := map[string]string{
		"../../etc/passwd": "passwd",
		"  avatar.glb  ":   "avatar.glb",
		"/abs/path/x.gltf": "x.gltf",
	}
	for in, want := range cases {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
}
