package composer

import "fmt"

// MaxFileSizeBytes is the attachment size ceiling: 10 MiB.
const MaxFileSizeBytes = 10 * 1024 * 1024

// Rejection reasons shown verbatim to the user.
const (
	ReasonUnsupportedType = "unsupported type"
	ReasonTooLarge        = "too large"
)

// allowedMimeTypes is the fixed attachment allow-list: PDF, plain text,
// and legacy/modern Word documents.
var allowedMimeTypes = map[string]struct{}{
	"application/pdf":    {},
	"text/plain":         {},
	"application/msword": {},
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": {},
}

// Rejection explains why an upload was refused. It implements error.
type Rejection struct {
	Name   string
	Reason string
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s rejected: %s", r.Name, r.Reason)
}

// Validate applies the attachment policy in order, short-circuiting on the
// first failure: MIME allow-list, then size cap. A nil return means the
// file is accepted. Only declared metadata is checked; content is never
// inspected.
func Validate(name, mimeType string, sizeBytes int64) *Rejection {
	if _, ok := allowedMimeTypes[mimeType]; !ok {
		return &Rejection{Name: name, Reason: ReasonUnsupportedType}
	}
	if sizeBytes > MaxFileSizeBytes {
		return &Rejection{Name: name, Reason: ReasonTooLarge}
	}
	return nil
}
