// Package lang lists the languages a turn can be translated into.
package lang

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/language/display"

	"github.com/comigor/meditranslate-go/internal/history"
)

var ErrUnsupported = errors.New("unsupported target language")

// Language is a translation target. Name is the English display name that is
// placed into prompts.
type Language struct {
	Tag  language.Tag `json:"-"`
	Code string       `json:"code"`
	Name string       `json:"name"`
}

func newLanguage(tag language.Tag) Language {
	return Language{Tag: tag, Code: tag.String(), Name: display.English.Languages().Name(tag)}
}

// ISO639 returns the two letter code, used as a transcription hint.
func (l Language) ISO639() string {
	base, _ := l.Tag.Base()
	return base.String()
}

var (
	patientLanguages = []Language{
		newLanguage(language.Spanish),
		newLanguage(language.French),
		newLanguage(language.Hindi),
		newLanguage(language.Chinese),
		newLanguage(language.German),
		newLanguage(language.Telugu),
		newLanguage(language.Tamil),
	}
	english = newLanguage(language.English)
)

// Targets returns the languages a speaker in role may translate into. A
// doctor writes for the patient; a patient always writes for the doctor in
// English.
func Targets(role history.Role) []Language {
	if role == history.RoleDoctor {
		out := make([]Language, len(patientLanguages))
		copy(out, patientLanguages)
		return out
	}
	return []Language{english}
}

// Default returns the preselected target for role.
func Default(role history.Role) Language {
	if role == history.RoleDoctor {
		return patientLanguages[2]
	}
	return english
}

// Lookup finds a catalog language by display name or BCP 47 code, ignoring case.
func Lookup(name string) (Language, error) {
	name = strings.TrimSpace(name)
	for _, l := range append([]Language{english}, patientLanguages...) {
		if strings.EqualFold(name, l.Name) || strings.EqualFold(name, l.Code) {
			return l, nil
		}
	}
	return Language{}, fmt.Errorf("%w: %q", ErrUnsupported, name)
}

// Allowed reports whether role may translate into l.
func Allowed(role history.Role, l Language) bool {
	for _, t := range Targets(role) {
		if t.Tag == l.Tag {
			return true
		}
	}
	return false
}

// Resolve looks name up and checks it is a valid target for role.
func Resolve(role history.Role, name string) (Language, error) {
	l, err := Lookup(name)
	if err != nil {
		return Language{}, err
	}
	if !Allowed(role, l) {
		return Language{}, fmt.Errorf("%w: %s cannot translate into %s", ErrUnsupported, role, l.Name)
	}
	return l, nil
}
