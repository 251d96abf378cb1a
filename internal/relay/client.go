// Package relay delivers assembled submissions to the configured webhook
// and normalizes whatever the webhook answers into a single reply string.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
)

// ackReply is the generic acknowledgement shown when the webhook answers
// with valid JSON that carries no usable output text.
const ackReply = "Request received."

// File is one attachment to post alongside the text fields. Field encodes
// the file's origin and position, e.g. "combined_file_0" or "context_file_1".
type File struct {
	Field    string
	Name     string
	MimeType string
	Content  []byte
}

// Request is a fully assembled submission.
type Request struct {
	CombinedInput  string
	SessionID      string
	CategoryInputs map[string]string
	Files          []File
}

// SubmissionError wraps any delivery or response failure with a short
// cause suitable for user-facing notices.
type SubmissionError struct {
	Cause string
	Err   error
}

func (e *SubmissionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("submission failed: %s: %v", e.Cause, e.Err)
	}
	return "submission failed: " + e.Cause
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Client posts submissions to a single webhook URL.
type Client struct {
	webhookURL string
	httpClient *http.Client
}

// New returns a relay client for the given webhook. The HTTP client
// carries no timeout: a submission stays in flight for as long as the
// webhook takes to answer, and the caller decides how long to wait.
func New(webhookURL string) *Client {
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{},
	}
}

// Submit posts the request as multipart/form-data and returns the
// normalized reply text. Any failure is returned as a *SubmissionError.
func (c *Client) Submit(ctx context.Context, req Request) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	if err := writer.WriteField("combinedChatInput", req.CombinedInput); err != nil {
		return "", &SubmissionError{Cause: "could not encode request", Err: err}
	}
	if err := writer.WriteField("sessionId", req.SessionID); err != nil {
		return "", &SubmissionError{Cause: "could not encode request", Err: err}
	}
	categoryInputs := req.CategoryInputs
	if categoryInputs == nil {
		categoryInputs = map[string]string{}
	}
	encodedInputs, err := json.Marshal(categoryInputs)
	if err != nil {
		return "", &SubmissionError{Cause: "could not encode request", Err: err}
	}
	if err := writer.WriteField("categoryInputs", string(encodedInputs)); err != nil {
		return "", &SubmissionError{Cause: "could not encode request", Err: err}
	}

	for _, file := range req.Files {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.Field, file.Name))
		contentType := file.MimeType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		header.Set("Content-Type", contentType)
		part, err := writer.CreatePart(header)
		if err != nil {
			return "", &SubmissionError{Cause: "could not encode request", Err: err}
		}
		if _, err := part.Write(file.Content); err != nil {
			return "", &SubmissionError{Cause: "could not encode request", Err: err}
		}
	}
	if err := writer.Close(); err != nil {
		return "", &SubmissionError{Cause: "could not encode request", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, &body)
	if err != nil {
		return "", &SubmissionError{Cause: "could not encode request", Err: err}
	}
	httpReq.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", &SubmissionError{Cause: "webhook unreachable", Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &SubmissionError{Cause: "could not read response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &SubmissionError{Cause: fmt.Sprintf("webhook returned status %d", resp.StatusCode)}
	}
	return normalizeReply(raw)
}

type replyObject struct {
	Output string `json:"output"`
}

// normalizeReply extracts reply text from a successful webhook response.
// Recognized shapes are a JSON array of objects whose first element has a
// non-blank "output" field, and a single such object. Any other valid
// JSON, or an empty body, collapses to a generic acknowledgement.
func normalizeReply(raw []byte) (string, error) {
	if strings.TrimSpace(string(raw)) == "" {
		return ackReply, nil
	}
	if !json.Valid(raw) {
		return "", &SubmissionError{Cause: "malformed response body", Err: fmt.Errorf("invalid JSON")}
	}

	var asList []replyObject
	if err := json.Unmarshal(raw, &asList); err == nil {
		if len(asList) > 0 && strings.TrimSpace(asList[0].Output) != "" {
			return asList[0].Output, nil
		}
		return ackReply, nil
	}

	var asObject replyObject
	if err := json.Unmarshal(raw, &asObject); err == nil {
		if strings.TrimSpace(asObject.Output) != "" {
			return asObject.Output, nil
		}
	}
	return ackReply, nil
}
