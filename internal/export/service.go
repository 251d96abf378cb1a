package export

import "fmt"

// Service renders transcripts into downloadable documents.
type Service struct{}

// NewService creates a new export service
func NewService() *Service {
	return &Service{}
}

// Export generates a transcript export in the requested format
func (s *Service) Export(transcript Transcript, format Format) (*Result, error) {
	turns := make([]TemplateTurn, 0, len(transcript.Turns))
	for _, turn := range transcript.Turns {
		turns = append(turns, TemplateTurn{
			Sender:    turn.Sender,
			Text:      turn.Text,
			CreatedAt: turn.CreatedAt,
		})
	}

	html, err := RenderTranscriptHTML(TemplateData{
		SessionID:  transcript.SessionID,
		ExportedAt: transcript.ExportedAt,
		Turns:      turns,
	})
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	basename := "conversation-" + sanitizeFilename(transcript.SessionID)

	switch format {
	case FormatHTML:
		return &Result{
			Data:     []byte(html),
			Filename: basename + ".html",
			MimeType: "text/html; charset=utf-8",
		}, nil
	case FormatPDF:
		return exportPDF(html, basename)
	case FormatDOCX:
		return exportDOCX(html, basename)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}
