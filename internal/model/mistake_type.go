package model

// MistakeType is one entry of the fixed mistake-classification catalog.
type MistakeType struct {
	ID          int64  `json:"id"`
	Label       string `json:"label"`
	Description string `json:"description"`
}
