package app

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"promptdeck/api/internal/export"
)

type HTTPServer struct {
	service    *Service
	corsOrigin string
}

func NewHTTPServer(service *Service, corsOrigin string) *HTTPServer {
	return &HTTPServer{service: service, corsOrigin: corsOrigin}
}

func (s *HTTPServer) Handler() http.Handler {
	return s.withMiddleware(http.HandlerFunc(s.handle))
}

func (s *HTTPServer) handle(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodOptions {
		writeJSON(w, http.StatusNoContent, map[string]any{})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/health" {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}

	if (r.Method == http.MethodGet || r.Method == http.MethodHead) && r.URL.Path == "/api/ready" {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		status := "ready"
		statusCode := http.StatusOK
		checks := map[string]any{
			"sessions": map[string]any{"status": "ok"},
		}

		if err := s.service.Ping(ctx); err != nil {
			status = "not_ready"
			statusCode = http.StatusServiceUnavailable
			checks["sessions"] = map[string]any{
				"status": "error",
				"error":  err.Error(),
			}
		}

		writeJSON(w, statusCode, map[string]any{
			"ok":     status == "ready",
			"status": status,
			"checks": checks,
		})
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == "/api/categories" {
		writeJSON(w, http.StatusOK, map[string]any{"categories": s.service.Categories()})
		return
	}

	if r.Method == http.MethodPost && r.URL.Path == "/api/sessions" {
		sessionID, err := s.service.CreateSession(r.Context())
		if err != nil {
			log.Printf("http: create session: %v", err)
			status, code, message, details := mapError(err)
			writeError(w, status, code, message, details)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"sessionId": sessionID})
		return
	}

	parts := splitPath(r.URL.Path)
	if len(parts) >= 3 && parts[0] == "api" && parts[1] == "sessions" {
		s.handleSession(w, r, parts[2], parts[3:])
		return
	}

	writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
}

// handleSession dispatches everything under /api/sessions/{sessionID}.
func (s *HTTPServer) handleSession(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	switch {
	case len(rest) == 0 && r.Method == http.MethodGet:
		view, err := s.service.View(r.Context(), sessionID)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, view)

	case len(rest) == 0 && r.Method == http.MethodDelete:
		if err := s.service.EndSession(r.Context(), sessionID); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) >= 1 && rest[0] == "categories":
		s.handleCategory(w, r, sessionID, rest[1:])

	case len(rest) >= 1 && rest[0] == "combined":
		s.handleDraft(w, r, sessionID, "combined", rest[1:])

	case len(rest) == 1 && rest[0] == "preview" && r.Method == http.MethodGet:
		display, err := s.service.Preview(r.Context(), sessionID)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"preview": display})

	case len(rest) == 1 && rest[0] == "send" && r.Method == http.MethodPost:
		result, err := s.service.Send(r.Context(), sessionID)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)

	case len(rest) == 1 && rest[0] == "conversation" && r.Method == http.MethodGet:
		turns, err := s.service.Conversation(r.Context(), sessionID)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"turns": turns})

	case len(rest) == 2 && rest[0] == "conversation" && rest[1] == "search" && r.Method == http.MethodGet:
		q := strings.TrimSpace(r.URL.Query().Get("q"))
		limit := 20
		if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 || parsed > 100 {
				writeError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "limit must be between 1 and 100", nil)
				return
			}
			limit = parsed
		}
		resp, err := s.service.SearchConversation(r.Context(), sessionID, q, limit)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)

	case len(rest) == 1 && rest[0] == "export" && r.Method == http.MethodGet:
		format := export.Format(strings.TrimSpace(r.URL.Query().Get("format")))
		if format == "" {
			format = export.FormatHTML
		}
		result, err := s.service.ExportTranscript(r.Context(), sessionID, format)
		if err != nil {
			s.fail(w, err)
			return
		}
		// The middleware presets JSON; exports override it.
		w.Header().Set("Content-Type", result.MimeType)
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(result.Data)

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// handleCategory dispatches /api/sessions/{id}/categories/{categoryID}...
func (s *HTTPServer) handleCategory(w http.ResponseWriter, r *http.Request, sessionID string, rest []string) {
	if len(rest) == 0 {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
		return
	}
	categoryID := rest[0]

	switch {
	case len(rest) == 1 && r.Method == http.MethodPost:
		if err := s.service.ActivateCategory(r.Context(), sessionID, categoryID); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 1 && r.Method == http.MethodDelete:
		if err := s.service.DeactivateCategory(r.Context(), sessionID, categoryID); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		s.handleDraft(w, r, sessionID, categoryID, rest[1:])
	}
}

// handleDraft serves the text and file operations shared by category
// drafts and the combined draft.
func (s *HTTPServer) handleDraft(w http.ResponseWriter, r *http.Request, sessionID, categoryID string, rest []string) {
	switch {
	case len(rest) == 1 && rest[0] == "text" && r.Method == http.MethodPut:
		var body struct {
			Text string `json:"text"`
		}
		if err := decodeBody(r, &body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		var err error
		if categoryID == "combined" {
			err = s.service.SetCombinedText(r.Context(), sessionID, body.Text)
		} else {
			err = s.service.SetCategoryText(r.Context(), sessionID, categoryID, body.Text)
		}
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	case len(rest) == 1 && rest[0] == "files" && r.Method == http.MethodPost:
		uploads, err := readUploads(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", err.Error(), nil)
			return
		}
		outcomes, notices, err := s.service.AttachFiles(r.Context(), sessionID, categoryID, uploads)
		if err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"files": outcomes, "notices": notices})

	case len(rest) == 2 && rest[0] == "files" && r.Method == http.MethodDelete:
		if err := s.service.RemoveFile(r.Context(), sessionID, categoryID, rest[1]); err != nil {
			s.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})

	default:
		writeError(w, http.StatusNotFound, "NOT_FOUND", "Not found", nil)
	}
}

// readUploads extracts the "files" parts from a multipart form.
func readUploads(r *http.Request) ([]Upload, error) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return nil, fmt.Errorf("invalid multipart body")
	}
	if r.MultipartForm == nil || len(r.MultipartForm.File["files"]) == 0 {
		return nil, fmt.Errorf("no files provided")
	}

	var uploads []Upload
	for _, header := range r.MultipartForm.File["files"] {
		part, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("read file %s", header.Filename)
		}
		content, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, fmt.Errorf("read file %s", header.Filename)
		}
		uploads = append(uploads, Upload{
			Name:     header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
			Content:  content,
		})
	}
	return uploads, nil
}

func (s *HTTPServer) fail(w http.ResponseWriter, err error) {
	status, code, message, details := mapError(err)
	writeError(w, status, code, message, details)
}

func (s *HTTPServer) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = randomRequestID()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := time.Now()
		writer := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		setCORSHeaders(writer.Header(), s.corsOrigin)
		writer.Header().Set("X-Request-ID", requestID)

		next.ServeHTTP(writer, r)

		log.Printf(`{"request_id":"%s","method":"%s","path":"%s","status":%d,"duration_ms":%d}`,
			requestID,
			r.Method,
			r.URL.Path,
			writer.status,
			time.Since(started).Milliseconds(),
		)
	})
}

type requestIDKey struct{}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func randomRequestID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return hex.EncodeToString(buf)
}

func setCORSHeaders(header http.Header, corsOrigin string) {
	header.Set("Access-Control-Allow-Origin", corsOrigin)
	header.Set("Access-Control-Allow-Headers", "Content-Type, X-Request-ID")
	header.Set("Access-Control-Allow-Methods", "GET,POST,PUT,DELETE,OPTIONS")
	header.Set("Cache-Control", "no-store")
	header.Set("Content-Type", "application/json")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, code, message string, details any) {
	response := map[string]any{
		"code":  code,
		"error": message,
	}
	if details != nil {
		response["details"] = details
	}
	writeJSON(w, status, response)
}

func decodeBody(r *http.Request, target any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, http.ErrBodyReadAfterClose) {
			return nil
		}
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return nil
	}
	return strings.Split(trimmed, "/")
}

func mapError(err error) (status int, code, message string, details any) {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Status, domainErr.Code, domainErr.Message, domainErr.Details
	}
	if errors.Is(err, export.ErrUnsupportedFormat) {
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", "Unsupported export format", nil
	}
	if errors.Is(err, export.ErrPDFDependencyMissing) || errors.Is(err, export.ErrDOCXDependencyMissing) {
		return http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "Export dependency not installed", nil
	}
	return http.StatusInternalServerError, "SERVER_ERROR", "Server error", nil
}
