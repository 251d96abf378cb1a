package composer

import (
	"errors"
	"strings"
)

// ErrEmpty signals that the combined draft and every active category draft
// are simultaneously blank and file-less; there is nothing to submit.
var ErrEmpty = errors.New("nothing to send")

// CombinedOrigin tags payload files that come from the combined draft
// rather than a category.
const CombinedOrigin = "combined"

// FilePart identifies one attachment inside a payload, tagged with its
// origin (a category id or CombinedOrigin) and its position within that
// origin's file sequence, so the receiver can reconstruct attribution.
type FilePart struct {
	Origin   string
	Index    int
	Name     string
	MimeType string
	BlobKey  string
}

// Payload is the machine-readable submission handed to the relay.
type Payload struct {
	Message        string
	SubmissionID   string
	CategoryInputs map[string]string
	Files          []FilePart
}

// BuildDisplay renders a snapshot into the human-readable string recorded
// as the user's conversation turn: the combined input first, then one block
// per active category in activation order, blocks separated by a single
// blank line. Drafts that are blank and file-less are skipped entirely and
// leave no blank line behind.
func BuildDisplay(snap Snapshot) string {
	var blocks []string
	if block, ok := draftBlock("", snap.Combined); ok {
		blocks = append(blocks, block)
	}
	for _, category := range snap.Active {
		if block, ok := draftBlock(category.Label, snap.Drafts[category.ID]); ok {
			blocks = append(blocks, block)
		}
	}
	return strings.Join(blocks, "\n")
}

// draftBlock renders one draft as newline-terminated lines, or reports
// false when the draft contributes nothing.
func draftBlock(label string, draft Draft) (string, bool) {
	if draft.Empty() {
		return "", false
	}
	var lines []string
	if label != "" {
		lines = append(lines, label+":")
	}
	if strings.TrimSpace(draft.Text) != "" {
		lines = append(lines, draft.Text)
	}
	if len(draft.Files) > 0 {
		names := make([]string, len(draft.Files))
		for i, file := range draft.Files {
			names[i] = file.Name
		}
		lines = append(lines, "Files: "+strings.Join(names, ", "))
	}
	return strings.Join(lines, "\n") + "\n", true
}

// BuildPayload shapes a snapshot into the machine payload. The submission
// id must be unique per submission. Returns ErrEmpty when there is nothing
// to send.
func BuildPayload(submissionID string, snap Snapshot) (Payload, error) {
	empty := snap.Combined.Empty()
	categoryInputs := make(map[string]string, len(snap.Active))
	for _, category := range snap.Active {
		draft := snap.Drafts[category.ID]
		categoryInputs[category.ID] = draft.Text
		if !draft.Empty() {
			empty = false
		}
	}
	if empty {
		return Payload{}, ErrEmpty
	}

	var files []FilePart
	for i, file := range snap.Combined.Files {
		files = append(files, FilePart{
			Origin:   CombinedOrigin,
			Index:    i,
			Name:     file.Name,
			MimeType: file.MimeType,
			BlobKey:  file.BlobKey,
		})
	}
	for _, category := range snap.Active {
		for i, file := range snap.Drafts[category.ID].Files {
			files = append(files, FilePart{
				Origin:   category.ID,
				Index:    i,
				Name:     file.Name,
				MimeType: file.MimeType,
				BlobKey:  file.BlobKey,
			})
		}
	}

	return Payload{
		Message:        snap.Combined.Text,
		SubmissionID:   submissionID,
		CategoryInputs: categoryInputs,
		Files:          files,
	}, nil
}
