// Package frontdesk implements the conversation session state machine
// and handoff protocol for the office's automated attendant. The desk
// decides, for every inbound or operator-authored message, what state a
// conversation is in, whether the automated flow should respond, and
// when control passes between the bot and the humans behind it.
package frontdesk

// Mode says who is handling a conversation.
type Mode string

const (
	// ModeAutomated means the scripted flow is responding.
	ModeAutomated Mode = "automated"

	// ModeManual means a human is handling the conversation and the
	// automated flow must stay silent.
	ModeManual Mode = "manual"
)

// Persona identifies which of the two fixed human identities the
// automated flow is currently speaking as.
type Persona string

const (
	// PersonaJonathan is the primary attorney persona.
	PersonaJonathan Persona = "jonathan"

	// PersonaIngrid is the secretary persona.
	PersonaIngrid Persona = "ingrid"
)

// Stages of the automated flow.
const (
	// StageMenu is the initial menu. Option replies are interpreted here.
	StageMenu = 1

	// StageCaseLookup is waiting for a case number or holder name.
	StageCaseLookup = 2

	// StageScheduling is waiting for the customer's availability.
	StageScheduling = 3

	// StageSecretary means the secretary persona has the conversation.
	StageSecretary = 4
)

// Session is the persisted record of where a conversation stands.
// A conversation with no Session has never been engaged: the next
// customer message starts a fresh automated flow.
type Session struct {
	// Mode says whether the bot or a human is responding.
	Mode Mode `json:"mode"`

	// Stage is the current scripted step. Only meaningful while
	// Mode is automated.
	Stage int `json:"stage,omitempty"`

	// Persona is the identity currently attributed to the conversation.
	// Retained across a manual handoff so a later hand-back restores it.
	Persona Persona `json:"persona,omitempty"`
}

// Valid reports whether the session record is structurally sound.
// Absent or invalid mode/stage on disk is treated as "no session"
// rather than raising: the flow simply restarts.
func (s *Session) Valid() bool {
	if s == nil {
		return false
	}
	switch s.Mode {
	case ModeManual:
		return true
	case ModeAutomated:
		return s.Stage >= StageMenu && s.Stage <= StageSecretary
	default:
		return false
	}
}
