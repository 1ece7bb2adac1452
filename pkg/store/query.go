package store

import "strings"

// QueryMode is resolved once at ingress instead of re-inspecting the
// query fields at every dispatch point.
type QueryMode int

const (
	QueryTextOnly QueryMode = iota
	QueryImageOnly
	QueryTextAndImage
)

// Query is the client-facing unit of work. Image may be a URL or a
// base64 data URI; at least one of Text/Image must be present.
type Query struct {
	Text  string `json:"text,omitempty"`
	Image string `json:"image,omitempty"`
}

func (q Query) HasText() bool {
	return strings.TrimSpace(q.Text) != ""
}

func (q Query) HasImage() bool {
	return strings.TrimSpace(q.Image) != ""
}

// Mode resolves the modality variant. Returns ErrEmptyQuery when the
// query carries neither text nor an image.
func (q Query) Mode() (QueryMode, error) {
	switch {
	case q.HasText() && q.HasImage():
		return QueryTextAndImage, nil
	case q.HasImage():
		return QueryImageOnly, nil
	case q.HasText():
		return QueryTextOnly, nil
	default:
		return 0, ErrEmptyQuery
	}
}
