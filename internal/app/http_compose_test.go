package app

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"promptdeck/api/internal/relay"
)

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var response map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("parse response %q: %v", rr.Body.String(), err)
	}
	return response
}

func createSessionHTTP(t *testing.T, handler http.Handler) string {
	t.Helper()
	rr := doJSON(t, handler, http.MethodPost, "/api/sessions", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create session: status %d: %s", rr.Code, rr.Body.String())
	}
	sessionID, _ := decodeJSON(t, rr)["sessionId"].(string)
	if sessionID == "" {
		t.Fatal("missing sessionId in response")
	}
	return sessionID
}

func TestCategoriesEndpoint(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeSubmitter{})
	handler := NewHTTPServer(svc, "*").Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/categories", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status %d", rr.Code)
	}
	categories, ok := decodeJSON(t, rr)["categories"].([]any)
	if !ok || len(categories) != 3 {
		t.Fatalf("categories = %v", categories)
	}
	first, _ := categories[0].(map[string]any)
	if first["id"] != "role" || first["label"] != "Role" {
		t.Fatalf("first category = %v", first)
	}
}

func TestComposeFlowOverHTTP(t *testing.T) {
	sub := &fakeSubmitter{submitFn: func(_ context.Context, req relay.Request) (string, error) {
		return "Reply text", nil
	}}
	svc := newTestService(&fakeRegistry{}, sub)
	handler := NewHTTPServer(svc, "*").Handler()
	sessionID := createSessionHTTP(t, handler)
	base := "/api/sessions/" + sessionID

	// Activate a category and draft some text.
	if rr := doJSON(t, handler, http.MethodPost, base+"/categories/role", nil); rr.Code != http.StatusOK {
		t.Fatalf("activate: status %d: %s", rr.Code, rr.Body.String())
	}
	if rr := doJSON(t, handler, http.MethodPut, base+"/categories/role/text", map[string]string{"text": "You are an assistant."}); rr.Code != http.StatusOK {
		t.Fatalf("set text: status %d: %s", rr.Code, rr.Body.String())
	}

	// Preview shows what a submission would look like.
	rr := doJSON(t, handler, http.MethodGet, base+"/preview", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("preview: status %d", rr.Code)
	}
	if preview := decodeJSON(t, rr)["preview"]; preview != "Role:\nYou are an assistant.\n" {
		t.Fatalf("preview = %q", preview)
	}

	// Send and check the recorded turns.
	rr = doJSON(t, handler, http.MethodPost, base+"/send", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("send: status %d: %s", rr.Code, rr.Body.String())
	}
	sendResponse := decodeJSON(t, rr)
	if sendResponse["delivered"] != true {
		t.Fatalf("send response = %v", sendResponse)
	}

	rr = doJSON(t, handler, http.MethodGet, base+"/conversation", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("conversation: status %d", rr.Code)
	}
	turns, _ := decodeJSON(t, rr)["turns"].([]any)
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	userTurn, _ := turns[0].(map[string]any)
	if userTurn["isFromUser"] != true || userTurn["text"] != "Role:\nYou are an assistant.\n" {
		t.Fatalf("user turn = %v", userTurn)
	}
	assistantTurn, _ := turns[1].(map[string]any)
	if assistantTurn["isFromUser"] != false || assistantTurn["text"] != "Reply text" {
		t.Fatalf("assistant turn = %v", assistantTurn)
	}
}

func TestCombinedTextOverHTTP(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeSubmitter{})
	handler := NewHTTPServer(svc, "*").Handler()
	sessionID := createSessionHTTP(t, handler)
	base := "/api/sessions/" + sessionID

	if rr := doJSON(t, handler, http.MethodPut, base+"/combined/text", map[string]string{"text": "hello"}); rr.Code != http.StatusOK {
		t.Fatalf("set combined text: status %d", rr.Code)
	}

	rr := doJSON(t, handler, http.MethodGet, base, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("view: status %d", rr.Code)
	}
	combined, _ := decodeJSON(t, rr)["combined"].(map[string]any)
	if combined["text"] != "hello" {
		t.Fatalf("combined = %v", combined)
	}
}

func TestFileUploadOverHTTP(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeSubmitter{})
	handler := NewHTTPServer(svc, "*").Handler()
	sessionID := createSessionHTTP(t, handler)
	base := "/api/sessions/" + sessionID

	if rr := doJSON(t, handler, http.MethodPost, base+"/categories/context", nil); rr.Code != http.StatusOK {
		t.Fatalf("activate: status %d", rr.Code)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, file := range []struct {
		name, mimeType, content string
	}{
		{"brief.pdf", "application/pdf", "%PDF-1.4"},
		{"photo.png", "image/png", "PNG"},
	} {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="files"; filename=%q`, file.name))
		header.Set("Content-Type", file.mimeType)
		part, err := writer.CreatePart(header)
		if err != nil {
			t.Fatalf("create part: %v", err)
		}
		part.Write([]byte(file.content))
	}
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, base+"/categories/context/files", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("upload: status %d: %s", rr.Code, rr.Body.String())
	}
	response := decodeJSON(t, rr)
	files, _ := response["files"].([]any)
	if len(files) != 2 {
		t.Fatalf("got %d file outcomes, want 2", len(files))
	}
	accepted, _ := files[0].(map[string]any)
	if accepted["accepted"] != true {
		t.Fatalf("brief.pdf outcome = %v", accepted)
	}
	rejected, _ := files[1].(map[string]any)
	if rejected["accepted"] != false || rejected["reason"] != "unsupported type" {
		t.Fatalf("photo.png outcome = %v", rejected)
	}

	// Remove the accepted file by id.
	fileInfo, _ := accepted["file"].(map[string]any)
	fileID, _ := fileInfo["id"].(string)
	if fileID == "" {
		t.Fatalf("missing file id in outcome: %v", accepted)
	}
	if rr := doJSON(t, handler, http.MethodDelete, base+"/categories/context/files/"+fileID, nil); rr.Code != http.StatusOK {
		t.Fatalf("remove file: status %d: %s", rr.Code, rr.Body.String())
	}
}

func TestSendEmptyOverHTTP(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeSubmitter{})
	handler := NewHTTPServer(svc, "*").Handler()
	sessionID := createSessionHTTP(t, handler)

	rr := doJSON(t, handler, http.MethodPost, "/api/sessions/"+sessionID+"/send", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status %d, want 422", rr.Code)
	}
	if code := decodeJSON(t, rr)["code"]; code != "EMPTY_INPUT" {
		t.Fatalf("code = %v", code)
	}
}

func TestUnknownSessionOverHTTP(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeSubmitter{})
	handler := NewHTTPServer(svc, "*").Handler()

	rr := doJSON(t, handler, http.MethodGet, "/api/sessions/sess_missing", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status %d, want 404", rr.Code)
	}
	if code := decodeJSON(t, rr)["code"]; code != "SESSION_NOT_FOUND" {
		t.Fatalf("code = %v", code)
	}
}

func TestConversationSearchOverHTTP(t *testing.T) {
	sub := &fakeSubmitter{submitFn: func(context.Context, relay.Request) (string, error) {
		return "searchable reply", nil
	}}
	svc := newTestService(&fakeRegistry{}, sub)
	handler := NewHTTPServer(svc, "*").Handler()
	sessionID := createSessionHTTP(t, handler)
	base := "/api/sessions/" + sessionID

	if rr := doJSON(t, handler, http.MethodPut, base+"/combined/text", map[string]string{"text": "searchable question"}); rr.Code != http.StatusOK {
		t.Fatalf("set combined: status %d", rr.Code)
	}
	if rr := doJSON(t, handler, http.MethodPost, base+"/send", nil); rr.Code != http.StatusOK {
		t.Fatalf("send: status %d", rr.Code)
	}

	rr := doJSON(t, handler, http.MethodGet, base+"/conversation/search?q=searchable", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("search: status %d: %s", rr.Code, rr.Body.String())
	}
	response := decodeJSON(t, rr)
	if response["total"] != float64(2) {
		t.Fatalf("total = %v, want 2", response["total"])
	}

	// Limit bounds are validated.
	rr = doJSON(t, handler, http.MethodGet, base+"/conversation/search?q=x&limit=0", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("limit=0: status %d, want 422", rr.Code)
	}
}

func TestExportHTMLOverHTTP(t *testing.T) {
	sub := &fakeSubmitter{submitFn: func(context.Context, relay.Request) (string, error) {
		return "export me", nil
	}}
	svc := newTestService(&fakeRegistry{}, sub)
	handler := NewHTTPServer(svc, "*").Handler()
	sessionID := createSessionHTTP(t, handler)
	base := "/api/sessions/" + sessionID

	if rr := doJSON(t, handler, http.MethodPut, base+"/combined/text", map[string]string{"text": "hello"}); rr.Code != http.StatusOK {
		t.Fatalf("set combined: status %d", rr.Code)
	}
	if rr := doJSON(t, handler, http.MethodPost, base+"/send", nil); rr.Code != http.StatusOK {
		t.Fatalf("send: status %d", rr.Code)
	}

	rr := doJSON(t, handler, http.MethodGet, base+"/export?format=html", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("export: status %d: %s", rr.Code, rr.Body.String())
	}
	if contentType := rr.Header().Get("Content-Type"); !strings.HasPrefix(contentType, "text/html") {
		t.Fatalf("content type = %q", contentType)
	}
	if disposition := rr.Header().Get("Content-Disposition"); !strings.Contains(disposition, ".html") {
		t.Fatalf("content disposition = %q", disposition)
	}
	if !strings.Contains(rr.Body.String(), "export me") {
		t.Fatal("export body missing conversation text")
	}

	// Unknown formats are rejected.
	rr = doJSON(t, handler, http.MethodGet, base+"/export?format=epub", nil)
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("epub export: status %d, want 422", rr.Code)
	}
}

func TestEndSessionOverHTTP(t *testing.T) {
	svc := newTestService(&fakeRegistry{}, &fakeSubmitter{})
	handler := NewHTTPServer(svc, "*").Handler()
	sessionID := createSessionHTTP(t, handler)

	if rr := doJSON(t, handler, http.MethodDelete, "/api/sessions/"+sessionID, nil); rr.Code != http.StatusOK {
		t.Fatalf("end session: status %d", rr.Code)
	}
	if rr := doJSON(t, handler, http.MethodGet, "/api/sessions/"+sessionID, nil); rr.Code != http.StatusNotFound {
		t.Fatalf("view after end: status %d, want 404", rr.Code)
	}
}
