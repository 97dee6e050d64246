package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arenaduel/battle-server/internal/models"
)

// maxUploadSize matches the original_source handler's 50MB GLB/glTF
// ceiling (src/handlers/model_upload.rs).
const maxUploadSize = 50 << 20

var allowedMimeTypes = map[string]bool{
	"model/gltf-binary":        true,
	"application/octet-stream": true,
	"model/gltf+json":          true,
}

type uploadModelResponse struct {
	ModelID  string `json:"model_id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Error: message})
}

// handleUploadModel implements POST /api/models/upload: a single
// multipart field carrying a .glb/.gltf asset, stored under
// uploadsDir/<model_id>.<ext> and registered in the model store with
// is_used=0. Grounded on original_source's upload_model handler,
// translated from actix-multipart to net/http's multipart reader.
func (s *Server) handleUploadModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeJSONError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("file size exceeds %d MB limit", maxUploadSize>>20))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer file.Close()

	fileName := sanitizeFilename(header.Filename)
	if fileName == "" {
		writeJSONError(w, http.StatusBadRequest, "no file provided")
		return
	}

	contentType := header.Header.Get("Content-Type")
	ext := strings.ToLower(filepath.Ext(fileName))
	isGLB := ext == ".glb"
	isGLTF := ext == ".gltf"
	if !isGLB && !isGLTF && !allowedMimeTypes[contentType] {
		writeJSONError(w, http.StatusBadRequest, fmt.Sprintf("invalid file type %q; allowed: .glb/.gltf files or recognized glTF MIME types", contentType))
		return
	}

	modelID := uuid.NewString()
	storageExt := strings.TrimPrefix(ext, ".")
	if storageExt == "" {
		storageExt = "bin"
	}
	storageFileName := fmt.Sprintf("%s.%s", modelID, storageExt)
	filePath := filepath.Join(s.uploadsDir, storageFileName)

	if err := os.MkdirAll(s.uploadsDir, 0o755); err != nil {
		s.logger.Error("create uploads dir", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save file")
		return
	}
	out, err := os.Create(filePath)
	if err != nil {
		s.logger.Error("create upload file", "path", filePath, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save file")
		return
	}
	written, err := io.Copy(out, file)
	out.Close()
	if err != nil {
		os.Remove(filePath)
		s.logger.Error("write upload file", "path", filePath, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save file")
		return
	}

	err = s.models.Register(models.Model3D{
		ID:         modelID,
		FileName:   fileName,
		FilePath:   filePath,
		FileSize:   written,
		MimeType:   contentType,
		UploadedAt: time.Now().UTC(),
	})
	if err != nil {
		os.Remove(filePath)
		s.logger.Error("register model", "model_id", modelID, "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to save model metadata")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(uploadModelResponse{
		ModelID:  modelID,
		FileName: fileName,
		FileSize: written,
	})
}

// handleListModels implements GET /api/models: every model not yet
// claimed via Ready.
func (s *Server) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	list, err := s.models.ListUnused()
	if err != nil {
		s.logger.Error("list unused models", "err", err)
		writeJSONError(w, http.StatusInternalServerError, "failed to list models")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(list)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) {
		return ""
	}
	return name
}
