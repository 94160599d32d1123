package models

import "time"

// TranslationRecord is a translated copy of a document.
// At most one exists per (DocumentID, LanguageCode).
type TranslationRecord struct {
	DocumentID      string    `json:"document_id"`
	LanguageCode    string    `json:"language_code"`
	TranslatedTitle string    `json:"translated_title"`
	TranslatedBody  string    `json:"translated_body"`
	CreatedAt       time.Time `json:"created_at"`
}

// TranslationID is the storage key of a translation record.
func TranslationID(documentID, languageCode string) string {
	return documentID + "_" + languageCode
}
