package model

// SchemaLinear tags results whose range is a character range in a single
// transcription.
const SchemaLinear = "LINEAR"

// Range is a half-open rune range [Start, End) in a group transcription.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// QueryResult is one pattern match, reported whether or not measurements
// could be listed for it.
type QueryResult struct {
	RecordID    string `json:"record_id,omitempty"`
	RecordIndex int    `json:"record_index"`
	Schema      string `json:"schema"`
	Tier        string `json:"tier"`
	GroupIndex  int    `json:"group_index"`
	Range       Range  `json:"range"`
	Value       string `json:"value"`
}
