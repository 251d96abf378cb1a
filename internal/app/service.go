// Package app wires the composer, relay, and supporting stores behind the
// HTTP surface and orchestrates the submission lifecycle.
package app

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"promptdeck/api/internal/blob"
	"promptdeck/api/internal/composer"
	"promptdeck/api/internal/config"
	"promptdeck/api/internal/export"
	"promptdeck/api/internal/relay"
	"promptdeck/api/internal/search"
	"promptdeck/api/internal/util"
)

// fallbackReply is appended as the assistant's turn when a submission
// fails. The raw error only travels in the notice, never the transcript.
const fallbackReply = "Sorry, something went wrong while sending your prompt. Please try again."

// Notice severities surfaced to the UI.
const (
	SeveritySuccess = "success"
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityError   = "error"
)

// Notice is a transient user-facing message.
type Notice struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

// submitter delivers an assembled submission and returns the reply text.
type submitter interface {
	Submit(ctx context.Context, req relay.Request) (string, error)
}

// sessionRegistry tracks which session ids are alive.
type sessionRegistry interface {
	SaveSession(ctx context.Context, sessionID string, ttl time.Duration) error
	TouchSession(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	LookupSession(ctx context.Context, sessionID string) (bool, error)
	RevokeSession(ctx context.Context, sessionID string) error
	Ping(ctx context.Context) error
}

// composerState pairs a composer with the lock that serializes access to
// it. The lock is held across Send's bookkeeping but never across the
// webhook round trip.
type composerState struct {
	mu   sync.Mutex
	comp *composer.Composer
}

// Service owns all live composer sessions.
type Service struct {
	cfg      config.Config
	catalog  *composer.Catalog
	registry sessionRegistry
	blobs    blob.Store
	relay    submitter
	search   *search.Service
	exporter *export.Service

	mu        sync.RWMutex
	composers map[string]*composerState
}

func NewService(cfg config.Config, catalog *composer.Catalog, registry sessionRegistry, blobs blob.Store, relaySubmitter submitter, searchService *search.Service, exporter *export.Service) *Service {
	return &Service{
		cfg:       cfg,
		catalog:   catalog,
		registry:  registry,
		blobs:     blobs,
		relay:     relaySubmitter,
		search:    searchService,
		exporter:  exporter,
		composers: make(map[string]*composerState),
	}
}

// Upload is one file received from the HTTP layer.
type Upload struct {
	Name     string
	MimeType string
	Size     int64
	Content  []byte
}

// FileOutcome reports the per-file result of an upload batch.
type FileOutcome struct {
	Name     string                 `json:"name"`
	Accepted bool                   `json:"accepted"`
	Reason   string                 `json:"reason,omitempty"`
	File     *composer.AttachedFile `json:"file,omitempty"`
}

// SessionView is the full composer state returned to the UI.
type SessionView struct {
	SessionID string                    `json:"sessionId"`
	Active    []composer.Category       `json:"activeCategories"`
	Drafts    map[string]composer.Draft `json:"drafts"`
	Combined  composer.Draft            `json:"combined"`
	Sending   bool                      `json:"sending"`
}

// SendResult is the outcome of one submission.
type SendResult struct {
	UserTurn      composer.Turn `json:"userTurn"`
	AssistantTurn composer.Turn `json:"assistantTurn"`
	Delivered     bool          `json:"delivered"`
	Notices       []Notice      `json:"notices"`
}

// Categories returns the startup-fixed catalog.
func (s *Service) Categories() []composer.Category {
	return s.catalog.List()
}

// CreateSession registers a fresh session and its empty composer.
func (s *Service) CreateSession(ctx context.Context) (string, error) {
	sessionID := util.NewID("sess")
	if err := s.registry.SaveSession(ctx, sessionID, s.cfg.SessionTTL); err != nil {
		return "", fmt.Errorf("register session: %w", err)
	}

	s.mu.Lock()
	s.composers[sessionID] = &composerState{comp: composer.New(s.catalog)}
	s.mu.Unlock()
	return sessionID, nil
}

// state resolves a session id to its composer, sliding the registry TTL.
func (s *Service) state(ctx context.Context, sessionID string) (*composerState, error) {
	s.mu.RLock()
	st, ok := s.composers[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
	}

	alive, err := s.registry.TouchSession(ctx, sessionID, s.cfg.SessionTTL)
	if err != nil {
		return nil, fmt.Errorf("touch session: %w", err)
	}
	if !alive {
		s.dropSession(ctx, sessionID)
		return nil, domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Session expired", nil)
	}
	return st, nil
}

// EndSession revokes the registry entry and discards all session state.
func (s *Service) EndSession(ctx context.Context, sessionID string) error {
	s.mu.RLock()
	_, ok := s.composers[sessionID]
	s.mu.RUnlock()
	if !ok {
		return domainError(http.StatusNotFound, "SESSION_NOT_FOUND", "Session not found", nil)
	}
	if err := s.registry.RevokeSession(ctx, sessionID); err != nil {
		log.Printf("app: revoke session %s: %v", sessionID, err)
	}
	s.dropSession(ctx, sessionID)
	return nil
}

// dropSession discards a session's composer, attachments, and search
// entries.
func (s *Service) dropSession(ctx context.Context, sessionID string) {
	s.mu.Lock()
	st, ok := s.composers[sessionID]
	delete(s.composers, sessionID)
	s.mu.Unlock()
	if !ok {
		return
	}

	var turnIDs []string
	st.mu.Lock()
	for _, turn := range st.comp.Turns() {
		turnIDs = append(turnIDs, turn.ID)
	}
	st.mu.Unlock()

	if err := s.blobs.DeletePrefix(ctx, blob.SessionPrefix(sessionID)); err != nil {
		log.Printf("app: delete blobs for session %s: %v", sessionID, err)
	}
	s.search.RemoveSession(sessionID, turnIDs)
}

// Sweep drops sessions whose registry entries have expired. Runs on a
// timer from main; uses the non-extending lookup so the sweep itself
// never keeps sessions alive.
func (s *Service) Sweep(ctx context.Context) {
	s.mu.RLock()
	ids := make([]string, 0, len(s.composers))
	for id := range s.composers {
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range ids {
		alive, err := s.registry.LookupSession(ctx, id)
		if err != nil {
			log.Printf("app: sweep lookup %s: %v", id, err)
			continue
		}
		if !alive {
			log.Printf("app: sweeping expired session %s", id)
			s.dropSession(ctx, id)
		}
	}
}

// View returns the composer state for the UI.
func (s *Service) View(ctx context.Context, sessionID string) (SessionView, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return SessionView{}, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	snap := st.comp.Snapshot()
	return SessionView{
		SessionID: sessionID,
		Active:    snap.Active,
		Drafts:    snap.Drafts,
		Combined:  snap.Combined,
		Sending:   st.comp.Sending(),
	}, nil
}

// ActivateCategory adds a category to the session's active set.
func (s *Service) ActivateCategory(ctx context.Context, sessionID, categoryID string) error {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.comp.Activate(categoryID); err != nil {
		return domainError(http.StatusNotFound, "UNKNOWN_CATEGORY", "Unknown category", map[string]any{"categoryId": categoryID})
	}
	return nil
}

// DeactivateCategory removes a category, discarding its draft and
// releasing its attachment blobs.
func (s *Service) DeactivateCategory(ctx context.Context, sessionID, categoryID string) error {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	removed := st.comp.Deactivate(categoryID)
	st.mu.Unlock()

	for _, file := range removed {
		if err := s.blobs.Delete(ctx, file.BlobKey); err != nil {
			log.Printf("app: delete blob %s: %v", file.BlobKey, err)
		}
	}
	return nil
}

// SetCategoryText replaces a category draft's text.
func (s *Service) SetCategoryText(ctx context.Context, sessionID, categoryID, text string) error {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if err := st.comp.SetText(categoryID, text); err != nil {
		log.Printf("app: set text for inactive category %s in session %s", categoryID, sessionID)
		return domainError(http.StatusConflict, "CATEGORY_NOT_ACTIVE", "Category is not active", map[string]any{"categoryId": categoryID})
	}
	return nil
}

// SetCombinedText replaces the combined draft's text.
func (s *Service) SetCombinedText(ctx context.Context, sessionID, text string) error {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	st.comp.SetCombinedText(text)
	return nil
}

// AttachFiles validates and stores a batch of uploads against a category
// draft or the combined draft. Files are independent: one rejection never
// blocks the others.
func (s *Service) AttachFiles(ctx context.Context, sessionID, categoryID string, uploads []Upload) ([]FileOutcome, []Notice, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}

	combined := categoryID == composer.CombinedOrigin
	if !combined {
		st.mu.Lock()
		active := st.comp.Active(categoryID)
		st.mu.Unlock()
		if !active {
			return nil, nil, domainError(http.StatusConflict, "CATEGORY_NOT_ACTIVE", "Category is not active", map[string]any{"categoryId": categoryID})
		}
	}

	outcomes := make([]FileOutcome, 0, len(uploads))
	notices := make([]Notice, 0, len(uploads))
	for _, upload := range uploads {
		if rejection := composer.Validate(upload.Name, upload.MimeType, upload.Size); rejection != nil {
			outcomes = append(outcomes, FileOutcome{Name: upload.Name, Reason: rejection.Reason})
			notices = append(notices, Notice{
				Message:  fmt.Sprintf("%s was not attached: %s", rejection.Name, rejection.Reason),
				Severity: SeverityError,
			})
			continue
		}

		file := composer.AttachedFile{
			ID:        util.NewID("file"),
			Name:      upload.Name,
			SizeBytes: upload.Size,
			MimeType:  upload.MimeType,
		}
		file.BlobKey = blob.Key(sessionID, file.ID)

		if err := s.blobs.Put(ctx, file.BlobKey, upload.Content, upload.MimeType); err != nil {
			log.Printf("app: store blob %s: %v", file.BlobKey, err)
			outcomes = append(outcomes, FileOutcome{Name: upload.Name, Reason: "storage failed"})
			notices = append(notices, Notice{
				Message:  fmt.Sprintf("%s was not attached: storage failed", upload.Name),
				Severity: SeverityError,
			})
			continue
		}

		var addErr error
		st.mu.Lock()
		if combined {
			st.comp.AddCombinedFile(file)
		} else {
			addErr = st.comp.AddFile(categoryID, file)
		}
		st.mu.Unlock()
		if addErr != nil {
			// Category deactivated mid-batch; release the orphaned blob.
			if delErr := s.blobs.Delete(ctx, file.BlobKey); delErr != nil {
				log.Printf("app: delete orphaned blob %s: %v", file.BlobKey, delErr)
			}
			return outcomes, notices, domainError(http.StatusConflict, "CATEGORY_NOT_ACTIVE", "Category is not active", map[string]any{"categoryId": categoryID})
		}

		attached := file
		outcomes = append(outcomes, FileOutcome{Name: upload.Name, Accepted: true, File: &attached})
		notices = append(notices, Notice{
			Message:  fmt.Sprintf("%s attached", upload.Name),
			Severity: SeveritySuccess,
		})
	}
	return outcomes, notices, nil
}

// RemoveFile detaches one file from a draft and releases its blob.
func (s *Service) RemoveFile(ctx context.Context, sessionID, categoryID, fileID string) error {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return err
	}

	var removed composer.AttachedFile
	var removeErr error
	st.mu.Lock()
	if categoryID == composer.CombinedOrigin {
		removed, removeErr = st.comp.RemoveCombinedFile(fileID)
	} else {
		removed, removeErr = st.comp.RemoveFile(categoryID, fileID)
	}
	st.mu.Unlock()

	if removeErr != nil {
		return domainError(http.StatusNotFound, "FILE_NOT_FOUND", "File not found", map[string]any{"fileId": fileID})
	}
	if err := s.blobs.Delete(ctx, removed.BlobKey); err != nil {
		log.Printf("app: delete blob %s: %v", removed.BlobKey, err)
	}
	return nil
}

// Preview returns the display string a submission would produce right now.
func (s *Service) Preview(ctx context.Context, sessionID string) (string, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return "", err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return composer.BuildDisplay(st.comp.Snapshot()), nil
}

// Conversation returns the session's conversation log.
func (s *Service) Conversation(ctx context.Context, sessionID string) ([]composer.Turn, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.comp.Turns(), nil
}

// SearchConversation runs a full-text query over the session's turns.
func (s *Service) SearchConversation(ctx context.Context, sessionID, text string, limit int) (search.Response, error) {
	if _, err := s.state(ctx, sessionID); err != nil {
		return search.Response{}, err
	}
	return s.search.Search(search.Query{SessionID: sessionID, Text: text, Limit: limit}), nil
}

// ExportTranscript renders the session's conversation in the requested
// format.
func (s *Service) ExportTranscript(ctx context.Context, sessionID string, format export.Format) (*export.Result, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	turns := st.comp.Turns()
	st.mu.Unlock()

	transcript := export.Transcript{
		SessionID:  sessionID,
		ExportedAt: time.Now(),
	}
	for _, turn := range turns {
		sender := "Assistant"
		if turn.IsFromUser {
			sender = "User"
		}
		transcript.Turns = append(transcript.Turns, export.Turn{
			Sender:    sender,
			Text:      turn.Text,
			CreatedAt: turn.CreatedAt,
		})
	}
	return s.exporter.Export(transcript, format)
}

// Send runs one submission end to end: snapshot, format, deliver, record.
// The composer lock is released while the webhook call is in flight; the
// sending flag keeps a second submission out in the meantime.
func (s *Service) Send(ctx context.Context, sessionID string) (SendResult, error) {
	st, err := s.state(ctx, sessionID)
	if err != nil {
		return SendResult{}, err
	}

	st.mu.Lock()
	if !st.comp.BeginSend() {
		st.mu.Unlock()
		return SendResult{}, domainError(http.StatusConflict, "ALREADY_SENDING", "A submission is already in flight", nil)
	}

	snap := st.comp.Snapshot()
	payload, err := composer.BuildPayload(util.NewID("sub"), snap)
	if err != nil {
		st.comp.EndSend()
		st.mu.Unlock()
		return SendResult{}, domainError(http.StatusUnprocessableEntity, "EMPTY_INPUT", "Nothing to send", nil)
	}

	display := composer.BuildDisplay(snap)
	userTurn := st.comp.AppendTurn(display, true)
	// The combined draft clears as soon as the submission leaves, and is
	// not restored if delivery fails; the text survives in the user turn.
	clearedFiles := st.comp.ClearCombined()
	st.mu.Unlock()

	s.indexTurn(sessionID, userTurn)

	// The submission keeps going even if the caller disconnects.
	reply, sendErr := s.deliver(context.WithoutCancel(ctx), payload)

	result := SendResult{UserTurn: userTurn}
	st.mu.Lock()
	st.comp.EndSend()
	if sendErr != nil {
		log.Printf("app: submission failed for session %s: %v", sessionID, sendErr)
		result.AssistantTurn = st.comp.AppendTurn(fallbackReply, false)
		result.Notices = append(result.Notices, Notice{
			Message:  "Sending failed: " + sendErr.Error(),
			Severity: SeverityError,
		})
	} else {
		result.Delivered = true
		result.AssistantTurn = st.comp.AppendTurn(reply, false)
		result.Notices = append(result.Notices, Notice{Message: "Prompt sent", Severity: SeveritySuccess})
	}
	st.mu.Unlock()

	cleanupCtx := context.WithoutCancel(ctx)
	for _, file := range clearedFiles {
		if err := s.blobs.Delete(cleanupCtx, file.BlobKey); err != nil {
			log.Printf("app: delete blob %s: %v", file.BlobKey, err)
		}
	}

	s.indexTurn(sessionID, result.AssistantTurn)
	return result, nil
}

// deliver loads attachment bytes and posts the payload to the webhook.
func (s *Service) deliver(ctx context.Context, payload composer.Payload) (string, error) {
	files := make([]relay.File, 0, len(payload.Files))
	for _, part := range payload.Files {
		content, err := s.blobs.Get(ctx, part.BlobKey)
		if err != nil {
			return "", &relay.SubmissionError{Cause: fmt.Sprintf("attachment %s unavailable", part.Name), Err: err}
		}
		files = append(files, relay.File{
			Field:    fmt.Sprintf("%s_file_%d", part.Origin, part.Index),
			Name:     part.Name,
			MimeType: part.MimeType,
			Content:  content,
		})
	}

	return s.relay.Submit(ctx, relay.Request{
		CombinedInput:  payload.Message,
		SessionID:      payload.SubmissionID,
		CategoryInputs: payload.CategoryInputs,
		Files:          files,
	})
}

func (s *Service) indexTurn(sessionID string, turn composer.Turn) {
	sender := "assistant"
	if turn.IsFromUser {
		sender = "user"
	}
	s.search.IndexTurn(search.TurnRecord{
		ID:        turn.ID,
		SessionID: sessionID,
		Body:      turn.Text,
		Sender:    sender,
		CreatedAt: turn.CreatedAt.Unix(),
	})
}

// Ping reports readiness of the session registry backend.
func (s *Service) Ping(ctx context.Context) error {
	return s.registry.Ping(ctx)
}
