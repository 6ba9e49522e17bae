package handler

import (
	"encoding/base64"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Rrens/zara-ai/internal/api/response"
	"github.com/Rrens/zara-ai/internal/domain"
)

// DefaultMaxAttachmentBytes is the upload limit when none is configured
const DefaultMaxAttachmentBytes = 20 << 20

var allowedMIMEPrefixes = []string{"image/", "audio/", "video/", "text/", "application/pdf"}

// UploadHandler turns uploaded files into message attachments
type UploadHandler struct {
	maxBytes int64
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(maxBytes int64) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &UploadHandler{maxBytes: maxBytes}
}

// Attachment reads the multipart "file" field and returns it base64 encoded
func (h *UploadHandler) Attachment(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+1<<20)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		response.Error(w, http.StatusRequestEntityTooLarge, "file too large or malformed upload")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		response.BadRequest(w, "no file uploaded")
		return
	}
	defer file.Close()

	if header.Size > h.maxBytes {
		response.Error(w, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		response.InternalError(w, "failed to read file")
		return
	}

	mimeType := detectMIME(header.Header.Get("Content-Type"), data)
	if !allowedMIME(mimeType) {
		response.BadRequest(w, "unsupported file type: "+mimeType)
		return
	}

	response.OK(w, map[string]any{
		"attachment": domain.Attachment{
			Data:     base64.StdEncoding.EncodeToString(data),
			MIMEType: mimeType,
		},
		"original_name": header.Filename,
		"size":          len(data),
	})
}

// detectMIME trusts the declared type unless it is missing or generic
func detectMIME(declared string, data []byte) string {
	if declared != "" {
		if mediaType, _, err := mime.ParseMediaType(declared); err == nil && mediaType != "application/octet-stream" {
			return mediaType
		}
	}
	mediaType, _, _ := mime.ParseMediaType(http.DetectContentType(data))
	return mediaType
}

func allowedMIME(mimeType string) bool {
	for _, prefix := range allowedMIMEPrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return true
		}
	}
	return false
}
