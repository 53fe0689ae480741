package models

// CVRecord is the structured result of parsing a résumé. RawText and Filename
// come from extraction and are never overridden by enrichment; the remaining
// fields are optional and may be augmented by an LLM step.
type CVRecord struct {
	RawText  string `json:"raw_text"`
	Filename string `json:"filename"`

	Name           string   `json:"name,omitempty"`
	Email          string   `json:"email,omitempty"`
	Phone          string   `json:"phone,omitempty"`
	Skills         []string `json:"skills,omitempty"`
	Education      []string `json:"education,omitempty"`
	Experience     []string `json:"experience,omitempty"`
	Certifications []string `json:"certifications,omitempty"`
	Languages      []string `json:"languages,omitempty"`
}
