package domain

// ActionKind kind of inbound user input
type ActionKind string

// inbound action kinds
const (
	ActionText    ActionKind = "text"    // free text, slash commands and menu labels
	ActionPhoto   ActionKind = "photo"   // photo payload in Media
	ActionVideo   ActionKind = "video"   // video payload in Media
	ActionControl ActionKind = "control" // button press carrying Data
)

// Valid reports whether k is a known kind
func (k ActionKind) Valid() bool {
	switch k {
	case ActionText, ActionPhoto, ActionVideo, ActionControl:
		return true
	}
	return false
}

// Action one inbound user action
type Action struct {
	UserID      string
	DisplayName string
	Kind        ActionKind
	Text        string
	Data        string
	Media       []byte
}
