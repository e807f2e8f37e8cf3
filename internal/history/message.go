package history

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Role identifies who spoke a turn.
type Role string

const (
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
)

var ErrInvalidRole = errors.New("role must be Doctor or Patient")

// ParseRole accepts the role name in any letter case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "doctor":
		return RoleDoctor, nil
	case "patient":
		return RolePatient, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

// Counterpart returns the other party of the conversation.
func (r Role) Counterpart() Role {
	if r == RoleDoctor {
		return RolePatient
	}
	return RoleDoctor
}

// Message is a single chat turn. Rows are never updated once written.
type Message struct {
	ID             int64     `json:"id"`
	Role           Role      `json:"role"`
	OriginalText   string    `json:"original_text"`
	TranslatedText string    `json:"translated_text"`
	AudioPath      string    `json:"audio_path,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// HasAudio reports whether the turn references a stored recording.
func (m Message) HasAudio() bool { return m.AudioPath != "" }

// timestamp layouts written by this package and by older databases that used
// the CURRENT_TIMESTAMP column default.
var timestampLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// sqlTime scans the timestamp column whether the driver hands back text or
// an already converted time.Time.
type sqlTime struct{ time.Time }

func (t *sqlTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		t.Time = time.Time{}
		return nil
	}
	return fmt.Errorf("history: cannot scan %T into timestamp", src)
}

func (t *sqlTime) parse(s string) error {
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("history: unrecognised timestamp %q", s)
}
