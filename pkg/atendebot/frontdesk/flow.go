package frontdesk

import "strings"

// Actor says who authored the message being handled.
type Actor string

const (
	// ActorCustomer is the person chatting with the office.
	ActorCustomer Actor = "customer"

	// ActorOperator is the office side: any message authored by the
	// linked account itself. Detected by authorship, never by content.
	ActorOperator Actor = "operator"
)

// Recognized keywords. Compared against trimmed, case-folded text.
const (
	kwTerminate  = "encerrar"
	kwReactivate = "automatico"
	kwMenu       = "menu"

	tokenIngrid   = "@ingrid"
	tokenJonathan = "@jonathan"
)

// Decision is the outcome of running one message through the state
// machine: the session to store (nil if none), whether to remove the
// existing record, and at most one reply to send.
type Decision struct {
	// Session is the next session state to store. Nil means the store
	// should not be written (and, together with Delete, that no session
	// remains).
	Session *Session

	// Delete removes the existing record. Termination is absorbing:
	// afterwards the conversation is "never engaged" again.
	Delete bool

	// Reply is the text to send back, empty for silence.
	Reply string

	// Persona is the identity the reply is attributed to.
	Persona Persona
}

// Normalize prepares message text for keyword matching.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Decide computes the next state for one message. Text must already be
// normalized. sess is the current session or nil for a conversation that
// was never engaged. Dedup and the business-hours gate run before this,
// in the desk.
func Decide(actor Actor, text string, sess *Session) Decision {
	if actor == ActorOperator {
		return decideOperator(text, sess)
	}
	return decideCustomer(text, sess)
}

// decideCustomer applies the customer-side transition rules, in
// precedence order.
func decideCustomer(text string, sess *Session) Decision {
	// First contact: engage before interpreting anything. The content
	// of the first message is deliberately not inspected.
	if sess == nil {
		return Decision{
			Session: &Session{Mode: ModeAutomated, Stage: StageMenu, Persona: PersonaJonathan},
			Reply:   msgWelcome,
			Persona: PersonaJonathan,
		}
	}

	// A human is handling this conversation. Stay silent, touch nothing.
	if sess.Mode == ModeManual {
		return Decision{}
	}

	if text == kwTerminate {
		return Decision{Delete: true, Reply: msgClosed, Persona: sess.Persona}
	}

	// Persona switches are only honored from the counterpart persona;
	// asking for the persona already attributed is a plain stage input.
	if text == tokenIngrid && sess.Persona == PersonaJonathan {
		next := *sess
		next.Persona = PersonaIngrid
		next.Stage = StageSecretary
		return Decision{Session: &next, Reply: msgIngridTakeover, Persona: PersonaIngrid}
	}
	if text == tokenJonathan && sess.Persona == PersonaIngrid {
		next := *sess
		next.Persona = PersonaJonathan
		next.Stage = StageMenu
		return Decision{Session: &next, Reply: msgJonathanTakeover, Persona: PersonaJonathan}
	}

	if text == kwMenu {
		next := *sess
		next.Stage = StageMenu
		return Decision{Session: &next, Reply: msgMenu, Persona: next.Persona}
	}

	return decideStage(text, sess)
}

// decideStage dispatches on the current automated stage.
func decideStage(text string, sess *Session) Decision {
	next := *sess

	switch sess.Stage {
	case StageMenu:
		switch text {
		case "1":
			next.Stage = StageCaseLookup
			return Decision{Session: &next, Reply: msgAskCase, Persona: PersonaJonathan}
		case "2":
			// Fee info keeps the customer at the menu.
			return Decision{Session: &next, Reply: msgFee, Persona: PersonaJonathan}
		case "3":
			next.Stage = StageScheduling
			return Decision{Session: &next, Reply: msgAskAvailability, Persona: PersonaJonathan}
		case "4":
			next.Stage = StageSecretary
			next.Persona = PersonaIngrid
			return Decision{Session: &next, Reply: msgIngridGreeting, Persona: PersonaIngrid}
		default:
			return Decision{Session: &next, Reply: msgInvalidOption, Persona: next.Persona}
		}

	case StageCaseLookup:
		next.Stage = StageMenu
		return Decision{Session: &next, Reply: msgCaseAck, Persona: PersonaJonathan}

	case StageScheduling:
		next.Stage = StageMenu
		return Decision{Session: &next, Reply: msgSchedulingAck, Persona: PersonaJonathan}

	case StageSecretary:
		// Acknowledge and return to the menu; Ingrid keeps the
		// conversation until someone explicitly switches back.
		next.Stage = StageMenu
		return Decision{Session: &next, Reply: msgIngridAck, Persona: PersonaIngrid}
	}

	// Unreachable for valid sessions; restart the menu defensively.
	next.Stage = StageMenu
	return Decision{Session: &next, Reply: msgMenu, Persona: next.Persona}
}

// decideOperator applies the operator-side rules. Operator messages
// never produce an automated reply.
func decideOperator(text string, sess *Session) Decision {
	// Reactivation: delete the record entirely so the next customer
	// message starts a fresh automated flow. Not a mode toggle.
	if text == kwTerminate || text == kwReactivate {
		if sess != nil {
			return Decision{Delete: true}
		}
		return Decision{}
	}

	// Any other operator-authored message is a takeover signal.
	if sess != nil {
		if sess.Mode == ModeAutomated {
			next := *sess
			next.Mode = ModeManual
			return Decision{Session: &next, Persona: next.Persona}
		}
		// Already manual: nothing to do.
		return Decision{}
	}

	// Operator-initiated contact starts manual — human-initiated
	// conversations are never auto-engaged.
	return Decision{Session: &Session{Mode: ModeManual}}
}
