package response_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Rrens/zara-ai/internal/api/response"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) response.Response {
	t.Helper()
	var resp response.Response
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestOK(t *testing.T) {
	rec := httptest.NewRecorder()
	response.OK(rec, map[string]string{"status": "ok"})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"status": "ok"}, resp.Data)
}

func TestErrorCodes(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w http.ResponseWriter)
		status int
		code   string
	}{
		{"bad request", func(w http.ResponseWriter) { response.BadRequest(w, "bad") }, http.StatusBadRequest, "bad_request"},
		{"not found", func(w http.ResponseWriter) { response.NotFound(w, "gone") }, http.StatusNotFound, "not_found"},
		{"conflict", func(w http.ResponseWriter) { response.Conflict(w, "busy") }, http.StatusConflict, "conflict"},
		{"internal", func(w http.ResponseWriter) { response.InternalError(w, "oops") }, http.StatusInternalServerError, "internal_server_error"},
		{"too large", func(w http.ResponseWriter) { response.Error(w, http.StatusRequestEntityTooLarge, "big") }, http.StatusRequestEntityTooLarge, "request_entity_too_large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
			assert.Empty(t, resp.Error.Fields)
		})
	}
}

func TestValidationFailed(t *testing.T) {
	rec := httptest.NewRecorder()
	response.ValidationFailed(rec, map[string]string{"Title": "field is required"})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decode(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "validation_failed", resp.Error.Code)
	assert.Equal(t, "field is required", resp.Error.Fields["Title"])
}

func TestNoContent(t *testing.T) {
	rec := httptest.NewRecorder()
	response.NoContent(rec)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.Bytes())
}
