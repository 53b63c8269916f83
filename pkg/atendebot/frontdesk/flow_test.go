package frontdesk

import (
	"strings"
	"testing"
)

func TestFirstContact(t *testing.T) {
	t.Run("creates automated session at the menu", func(t *testing.T) {
		dec := Decide(ActorCustomer, "oi", nil)

		if dec.Session == nil {
			t.Fatal("expected a session to be created")
		}
		if dec.Session.Mode != ModeAutomated {
			t.Errorf("expected automated mode, got %s", dec.Session.Mode)
		}
		if dec.Session.Stage != StageMenu {
			t.Errorf("expected stage %d, got %d", StageMenu, dec.Session.Stage)
		}
		if dec.Session.Persona != PersonaJonathan {
			t.Errorf("expected persona jonathan, got %s", dec.Session.Persona)
		}
		if dec.Reply != msgWelcome {
			t.Errorf("expected welcome message, got %q", dec.Reply)
		}
	})

	t.Run("first message content is not interpreted", func(t *testing.T) {
		// Even a keyword as first contact just triggers the welcome.
		for _, text := range []string{"encerrar", "menu", "1", "@ingrid"} {
			dec := Decide(ActorCustomer, text, nil)
			if dec.Reply != msgWelcome {
				t.Errorf("first message %q: expected welcome, got %q", text, dec.Reply)
			}
			if dec.Delete {
				t.Errorf("first message %q: unexpected delete", text)
			}
		}
	})
}

func TestManualModeIsSilent(t *testing.T) {
	sess := &Session{Mode: ModeManual}

	for _, text := range []string{"oi", "1", "menu", "@ingrid", "qualquer coisa"} {
		dec := Decide(ActorCustomer, text, sess)
		if dec.Reply != "" {
			t.Errorf("manual session replied to %q: %q", text, dec.Reply)
		}
		if dec.Session != nil || dec.Delete {
			t.Errorf("manual session mutated by %q", text)
		}
	}
}

func TestTerminationIsAbsorbing(t *testing.T) {
	states := map[string]*Session{
		"menu":       {Mode: ModeAutomated, Stage: StageMenu, Persona: PersonaJonathan},
		"lookup":     {Mode: ModeAutomated, Stage: StageCaseLookup, Persona: PersonaJonathan},
		"scheduling": {Mode: ModeAutomated, Stage: StageScheduling, Persona: PersonaJonathan},
		"secretary":  {Mode: ModeAutomated, Stage: StageSecretary, Persona: PersonaIngrid},
	}

	for name, sess := range states {
		t.Run("customer from "+name, func(t *testing.T) {
			dec := Decide(ActorCustomer, "encerrar", sess)
			if !dec.Delete {
				t.Error("expected session deletion")
			}
			if dec.Reply != msgClosed {
				t.Errorf("expected closing message, got %q", dec.Reply)
			}
		})
	}

	t.Run("operator from manual", func(t *testing.T) {
		dec := Decide(ActorOperator, "encerrar", &Session{Mode: ModeManual})
		if !dec.Delete {
			t.Error("expected session deletion")
		}
		if dec.Reply != "" {
			t.Errorf("operator commands are silent, got %q", dec.Reply)
		}
	})

	t.Run("operator alternate keyword", func(t *testing.T) {
		dec := Decide(ActorOperator, "automatico", &Session{Mode: ModeManual})
		if !dec.Delete {
			t.Error("expected session deletion")
		}
	})

	t.Run("operator with no session is a no-op", func(t *testing.T) {
		dec := Decide(ActorOperator, "encerrar", nil)
		if dec.Delete || dec.Session != nil {
			t.Error("expected no mutation")
		}
	})
}

func TestPersonaSwitch(t *testing.T) {
	t.Run("to ingrid while jonathan", func(t *testing.T) {
		sess := &Session{Mode: ModeAutomated, Stage: StageMenu, Persona: PersonaJonathan}
		dec := Decide(ActorCustomer, "@ingrid", sess)

		if dec.Session == nil {
			t.Fatal("expected mutation")
		}
		if dec.Session.Persona != PersonaIngrid {
			t.Errorf("expected persona ingrid, got %s", dec.Session.Persona)
		}
		if dec.Session.Stage != StageSecretary {
			t.Errorf("expected stage %d, got %d", StageSecretary, dec.Session.Stage)
		}
		if dec.Reply != msgIngridTakeover {
			t.Errorf("expected ingrid takeover message, got %q", dec.Reply)
		}
	})

	t.Run("to jonathan while ingrid", func(t *testing.T) {
		sess := &Session{Mode: ModeAutomated, Stage: StageSecretary, Persona: PersonaIngrid}
		dec := Decide(ActorCustomer, "@jonathan", sess)

		if dec.Session == nil {
			t.Fatal("expected mutation")
		}
		if dec.Session.Persona != PersonaJonathan {
			t.Errorf("expected persona jonathan, got %s", dec.Session.Persona)
		}
		if dec.Session.Stage != StageMenu {
			t.Errorf("expected stage %d, got %d", StageMenu, dec.Session.Stage)
		}
		if dec.Reply != msgJonathanTakeover {
			t.Errorf("expected jonathan takeover message, got %q", dec.Reply)
		}
	})

	t.Run("switch to already attributed persona is a stage input", func(t *testing.T) {
		sess := &Session{Mode: ModeAutomated, Stage: StageMenu, Persona: PersonaJonathan}
		dec := Decide(ActorCustomer, "@jonathan", sess)

		// Falls through to stage-1 dispatch: invalid option.
		if dec.Reply != msgInvalidOption {
			t.Errorf("expected invalid-option notice, got %q", dec.Reply)
		}
		if dec.Session.Persona != PersonaJonathan {
			t.Errorf("persona changed unexpectedly to %s", dec.Session.Persona)
		}
	})
}

func TestMenuStage(t *testing.T) {
	base := func() *Session {
		return &Session{Mode: ModeAutomated, Stage: StageMenu, Persona: PersonaJonathan}
	}

	tests := []struct {
		name      string
		text      string
		wantStage int
		wantReply string
		persona   Persona
	}{
		{"option 1 asks for case", "1", StageCaseLookup, msgAskCase, PersonaJonathan},
		{"option 2 keeps menu", "2", StageMenu, msgFee, PersonaJonathan},
		{"option 3 asks availability", "3", StageScheduling, msgAskAvailability, PersonaJonathan},
		{"option 4 hands to ingrid", "4", StageSecretary, msgIngridGreeting, PersonaIngrid},
		{"unknown text gets notice", "bom dia", StageMenu, msgInvalidOption, PersonaJonathan},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dec := Decide(ActorCustomer, tt.text, base())
			if dec.Session == nil {
				t.Fatal("expected a session")
			}
			if dec.Session.Stage != tt.wantStage {
				t.Errorf("stage = %d, want %d", dec.Session.Stage, tt.wantStage)
			}
			if dec.Session.Persona != tt.persona {
				t.Errorf("persona = %s, want %s", dec.Session.Persona, tt.persona)
			}
			if dec.Reply != tt.wantReply {
				t.Errorf("reply = %q, want %q", dec.Reply, tt.wantReply)
			}
		})
	}
}

func TestMenuKeywordResetsStage(t *testing.T) {
	sess := &Session{Mode: ModeAutomated, Stage: StageScheduling, Persona: PersonaJonathan}
	dec := Decide(ActorCustomer, "menu", sess)

	if dec.Session.Stage != StageMenu {
		t.Errorf("stage = %d, want %d", dec.Session.Stage, StageMenu)
	}
	if dec.Reply != msgMenu {
		t.Errorf("expected menu, got %q", dec.Reply)
	}
}

func TestCaseLookupScenario(t *testing.T) {
	// oi → welcome, 1 → case prompt, 12345 → ack, encerrar → closed.
	dec := Decide(ActorCustomer, "oi", nil)
	sess := dec.Session

	dec = Decide(ActorCustomer, "1", sess)
	if dec.Session.Stage != StageCaseLookup {
		t.Fatalf("after option 1, stage = %d", dec.Session.Stage)
	}
	sess = dec.Session

	dec = Decide(ActorCustomer, "12345", sess)
	if dec.Reply != msgCaseAck {
		t.Errorf("expected case acknowledgment, got %q", dec.Reply)
	}
	if dec.Session.Stage != StageMenu {
		t.Errorf("after lookup, stage = %d, want %d", dec.Session.Stage, StageMenu)
	}
	sess = dec.Session

	dec = Decide(ActorCustomer, "encerrar", sess)
	if !dec.Delete {
		t.Error("expected termination")
	}
	if dec.Reply != msgClosed {
		t.Errorf("expected closing message, got %q", dec.Reply)
	}
}

func TestSecretaryScenario(t *testing.T) {
	sess := &Session{Mode: ModeAutomated, Stage: StageMenu, Persona: PersonaJonathan}

	dec := Decide(ActorCustomer, "4", sess)
	if dec.Session.Persona != PersonaIngrid || dec.Session.Stage != StageSecretary {
		t.Fatalf("after option 4: persona=%s stage=%d", dec.Session.Persona, dec.Session.Stage)
	}
	sess = dec.Session

	// Free text while with the secretary: ack, back to menu, persona kept.
	dec = Decide(ActorCustomer, "preciso de uma certidão", sess)
	if dec.Reply != msgIngridAck {
		t.Errorf("expected ingrid acknowledgment, got %q", dec.Reply)
	}
	if dec.Session.Stage != StageMenu {
		t.Errorf("stage = %d, want %d", dec.Session.Stage, StageMenu)
	}
	if dec.Session.Persona != PersonaIngrid {
		t.Errorf("persona = %s, want ingrid", dec.Session.Persona)
	}
	sess = dec.Session

	dec = Decide(ActorCustomer, "@jonathan", sess)
	if dec.Session.Persona != PersonaJonathan || dec.Session.Stage != StageMenu {
		t.Errorf("after switch back: persona=%s stage=%d", dec.Session.Persona, dec.Session.Stage)
	}
	if dec.Reply != msgJonathanTakeover {
		t.Errorf("expected jonathan takeover, got %q", dec.Reply)
	}
}

func TestSchedulingScenario(t *testing.T) {
	sess := &Session{Mode: ModeAutomated, Stage: StageMenu, Persona: PersonaJonathan}

	dec := Decide(ActorCustomer, "3", sess)
	if dec.Session.Stage != StageScheduling {
		t.Fatalf("after option 3, stage = %d", dec.Session.Stage)
	}
	sess = dec.Session

	dec = Decide(ActorCustomer, "terça de manhã", sess)
	if dec.Reply != msgSchedulingAck {
		t.Errorf("expected scheduling acknowledgment, got %q", dec.Reply)
	}
	if dec.Session.Stage != StageMenu {
		t.Errorf("stage = %d, want %d", dec.Session.Stage, StageMenu)
	}
}

func TestOperatorTakeover(t *testing.T) {
	t.Run("converts automated to manual", func(t *testing.T) {
		sess := &Session{Mode: ModeAutomated, Stage: StageCaseLookup, Persona: PersonaJonathan}
		dec := Decide(ActorOperator, "deixa que eu respondo", sess)

		if dec.Session == nil {
			t.Fatal("expected mutation")
		}
		if dec.Session.Mode != ModeManual {
			t.Errorf("mode = %s, want manual", dec.Session.Mode)
		}
		if dec.Reply != "" {
			t.Errorf("operator takeover must be silent, got %q", dec.Reply)
		}
	})

	t.Run("already manual is a no-op", func(t *testing.T) {
		dec := Decide(ActorOperator, "ainda aqui", &Session{Mode: ModeManual})
		if dec.Session != nil || dec.Delete {
			t.Error("expected no mutation")
		}
	})

	t.Run("operator-initiated conversation starts manual", func(t *testing.T) {
		dec := Decide(ActorOperator, "olá, tudo bem?", nil)
		if dec.Session == nil {
			t.Fatal("expected a session")
		}
		if dec.Session.Mode != ModeManual {
			t.Errorf("mode = %s, want manual", dec.Session.Mode)
		}
		if dec.Reply != "" {
			t.Errorf("expected silence, got %q", dec.Reply)
		}
	})
}

func TestNormalize(t *testing.T) {
	if got := Normalize("  Encerrar \n"); got != "encerrar" {
		t.Errorf("Normalize = %q", got)
	}
	if got := Normalize("MENU"); got != "menu" {
		t.Errorf("Normalize = %q", got)
	}
}

func TestFooterOnMenuCapableReplies(t *testing.T) {
	for name, reply := range map[string]string{
		"fee":        msgFee,
		"case ack":   msgCaseAck,
		"sched ack":  msgSchedulingAck,
		"ingrid ack": msgIngridAck,
	} {
		if !strings.Contains(reply, "*menu*") || !strings.Contains(reply, "*encerrar*") {
			t.Errorf("%s reply missing keyword footer", name)
		}
	}
}
