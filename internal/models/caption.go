package models

// SizeLevel is the discrete display tier assigned to a rendered word.
type SizeLevel string

const (
	SizeSmall  SizeLevel = "small"
	SizeNormal SizeLevel = "normal"
	SizeLarge  SizeLevel = "large"
)

// ScoredWord is one displayable word with its prominence score.
// Once appended as a final word (Interim=false) its fields are never mutated;
// interim words are replaced wholesale on every interim result.
type ScoredWord struct {
	Text    string  `json:"text"`
	Score   float64 `json:"prominenceScore"`
	Interim bool    `json:"isInterim"`
}

// RenderWord is the shape handed to renderer clients after classification.
type RenderWord struct {
	Text      string    `json:"text"`
	SizeLevel SizeLevel `json:"sizeLevel"`
	IsInterim bool      `json:"isInterim"`
}

// CaptionInterim is the event published when the interim word list is replaced.
type CaptionInterim struct {
	EventType   string `json:"eventType"`
	SessionID   string `json:"sessionId"`
	UtteranceID string `json:"utteranceId"`
	TimestampMs int64  `json:"timestamp"`
	Text        string `json:"text"`
}

// CaptionWord is the outbound shape of one finalized word: its prominence
// score plus the size tier in effect at publish time.
type CaptionWord struct {
	Text      string    `json:"text"`
	Score     float64   `json:"prominenceScore"`
	SizeLevel SizeLevel `json:"sizeLevel"`
}

// CaptionFinal is the event published when a finalized word batch is scored.
type CaptionFinal struct {
	EventType   string        `json:"eventType"`
	SessionID   string        `json:"sessionId"`
	UtteranceID string        `json:"utteranceId"`
	TimestampMs int64         `json:"timestamp"`
	Words       []CaptionWord `json:"words"`
	Confidence  float64       `json:"confidence"`
}
