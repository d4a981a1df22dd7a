package models

// TaxonomyKind selects one of the reference lists offered in the tutor form.
type TaxonomyKind string

const (
	KindSubject  TaxonomyKind = "subject"
	KindLanguage TaxonomyKind = "language"
)

// Valid reports whether k is a known kind.
func (k TaxonomyKind) Valid() bool {
	return k == KindSubject || k == KindLanguage
}

// Plural is used in table names and messages.
func (k TaxonomyKind) Plural() string {
	switch k {
	case KindSubject:
		return "subjects"
	case KindLanguage:
		return "languages"
	}
	return ""
}

// TaxonomyEntry is one subject or language.
type TaxonomyEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
