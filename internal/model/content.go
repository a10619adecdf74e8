package model

// GeneratedContent is the card copy produced by the generation backend. The
// json field names and the validate constraints mirror the backend schema
// exactly; both sides must stay in sync for compatibility.
type GeneratedContent struct {
	SubjectID string `json:"-"`

	ShortBio string `json:"short_bio" validate:"required|minLen:150|maxLen:250"`
	LongBio  string `json:"long_bio" validate:"required|minLen:900|maxLen:1100"`

	Tags []string `json:"tags" validate:"required|len:6"`

	Buff        string `json:"buff" validate:"required|maxLen:30"`
	Weakness    string `json:"weakness" validate:"required|maxLen:30"`
	Vibe        string `json:"vibe" validate:"required|maxLen:30"`
	SpecialMove string `json:"special_move" validate:"required|maxLen:30"`

	FlavorText string `json:"flavor_text" validate:"required|minLen:30|maxLen:60"`

	BuffDescription        string `json:"buff_description" validate:"required|maxLen:100"`
	WeaknessDescription    string `json:"weakness_description" validate:"required|maxLen:100"`
	VibeDescription        string `json:"vibe_description" validate:"required|maxLen:100"`
	SpecialMoveDescription string `json:"special_move_description" validate:"required|maxLen:100"`
}
