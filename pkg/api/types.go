package api

import (
	"encoding/json"
	"fmt"
	"time"
)

// timestampLayouts are tried in order; the backend omits the zone on some endpoints.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// Timestamp is a creation time as sent by the backend.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON accepts RFC 3339 with or without a zone offset. Zone-less values are UTC.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("timestamp: unrecognised format %q", s)
}

// MarshalJSON writes RFC 3339.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// User is the authenticated account behind the API key.
type User struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	Username string   `json:"username"`
	Verified bool     `json:"verified"`
	Roles    []string `json:"roles"`
}

// Pagination describes one page of a list endpoint.
type Pagination struct {
	Count  int `json:"count"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// NarrationStyleTag is a single descriptive tag of a narration style.
type NarrationStyleTag struct {
	Name string `json:"name"`
}

// NarrationStyle is a named delivery style attached to a voice.
// Name is derived from the tags when the voice list is fetched.
type NarrationStyle struct {
	ID        string              `json:"id"`
	IsDefault bool                `json:"is_default"`
	Tags      []NarrationStyleTag `json:"tags"`
	Name      string              `json:"name,omitempty"`
}

// Voice is a target voice with its narration styles.
type Voice struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	NarrationStyles []NarrationStyle `json:"narration_styles"`
}

// VoiceList is one page of GET /api/v2/voices.
type VoiceList struct {
	List       []Voice    `json:"list"`
	Pagination Pagination `json:"pagination"`
}

// Project groups folders; it is owned by a user.
type Project struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Owner     string    `json:"owner"`
	Slug      string    `json:"slug"`
	CreatedAt Timestamp `json:"created_at"`
}

// ProjectList is one page of GET /api/projects.
type ProjectList struct {
	List       []Project  `json:"list"`
	Pagination Pagination `json:"pagination"`
}

// Folder groups recordings inside a project.
type Folder struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ProjectID string    `json:"project_id"`
	CreatedAt Timestamp `json:"created_at"`
}

// FolderList is one page of GET /api/folders.
type FolderList struct {
	List       []Folder   `json:"list"`
	Pagination Pagination `json:"pagination"`
}

// RecordingState is the processing state of a recording.
type RecordingState string

const (
	StateProcessing     RecordingState = "processing"
	StatePostprocessing RecordingState = "postprocessing"
	StateDone           RecordingState = "done"
	StateError          RecordingState = "error"
)

// Terminal reports whether no further state change is expected.
func (s RecordingState) Terminal() bool {
	return s == StateDone || s == StateError
}

// RecordingType distinguishes submitted text from generated audio.
type RecordingType string

const (
	TypeOriginal  RecordingType = "original"
	TypeConverted RecordingType = "converted"
)

// Recording is either an original text submission or a converted audio artifact.
type Recording struct {
	ID             string         `json:"id"`
	ProjectID      string         `json:"project_id"`
	ParentFolderID string         `json:"parent_folder_id"`
	Type           RecordingType  `json:"type"`
	State          RecordingState `json:"state"`
	URL            *string        `json:"url"`
	Text           *string        `json:"text"`
	Error          *string        `json:"error"`
	CreatedAt      Timestamp      `json:"created_at"`
}

// Order links an original recording to the conversion it spawned.
type Order struct {
	ID           string    `json:"id"`
	OriginalID   string    `json:"original_id"`
	ConversionID string    `json:"conversion_id"`
	CreatedAt    Timestamp `json:"created_at"`
}

// Conversion is one voice/style pair requested in an order.
type Conversion struct {
	VoiceID          string `json:"voice_id"`
	NarrationStyleID string `json:"narration_style_id"`
}

type createProjectRequest struct {
	Owner  string         `json:"owner"`
	Name   string         `json:"name,omitempty"`
	Models map[string]any `json:"models"`
}

type createFolderRequest struct {
	ProjectID string `json:"project_id"`
	Name      string `json:"name,omitempty"`
}

type createOriginalRequest struct {
	ParentFolderID string `json:"parent_folder_id"`
	Text           string `json:"text"`
	TextLanguage   string `json:"text_language,omitempty"`
}

type orderRequest struct {
	OriginalID  string       `json:"original_id"`
	Conversions []Conversion `json:"conversions"`
}

// deref returns the pointed-to string or "".
func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// URLString returns the recording URL or "" when the backend sent null.
func (r *Recording) URLString() string { return deref(r.URL) }

// ErrorString returns the backend error message or "".
func (r *Recording) ErrorString() string { return deref(r.Error) }
