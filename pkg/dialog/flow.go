// Package dialog implements the fixed-order lead-qualification interview:
// the dialogue state machine and the heuristic field extractor that turns
// noisy transcribed speech into clean field values.
package dialog

import (
	"fmt"
	"strings"
)

// State is a step in the interview. States only advance forward; the only
// way back to StateStart is a brand-new Flow.
type State string

const (
	StateStart       State = "start"
	StateAskName     State = "ask_name"
	StateAskCompany  State = "ask_company"
	StateAskBudget   State = "ask_budget"
	StateAskInterest State = "ask_interest"
	StateHandoff     State = "handoff"
)

// Mode selects what happens once the interview completes.
type Mode string

const (
	// ModeEnd closes the conversation after qualification.
	ModeEnd Mode = "end"

	// ModeContinue keeps the session open for free-form chat after
	// qualification.
	ModeContinue Mode = "continue"
)

// FieldOrder is the interview order of the collected fields.
var FieldOrder = []string{"name", "company", "budget", "interest"}

// Flow is the per-session interview state machine. It is not safe for
// concurrent use; every session owns exactly one Flow.
type Flow struct {
	state  State
	mode   Mode
	fields map[string]string
}

// NewFlow starts a fresh interview in the given mode.
func NewFlow(mode Mode) *Flow {
	if mode != ModeContinue {
		mode = ModeEnd
	}
	return &Flow{state: StateStart, mode: mode, fields: make(map[string]string)}
}

// State returns the current interview state.
func (f *Flow) State() State { return f.state }

// Mode returns the termination mode the flow was created with.
func (f *Flow) Mode() Mode { return f.mode }

// IsQualified reports whether all fields have been collected.
func (f *Flow) IsQualified() bool { return f.state == StateHandoff }

// NextPrompt consumes the caller's (already extracted) input, advances the
// state machine and returns the next prompt to speak. Input is ignored in
// StateStart and StateHandoff. Handoff is terminal but re-enterable:
// further calls return a short mode-dependent acknowledgment and never
// touch the stored fields.
func (f *Flow) NextPrompt(input string) string {
	switch f.state {
	case StateStart:
		f.state = StateAskName
		return "Hi there! May I know your name?"

	case StateAskName:
		f.store("name", input)
		f.state = StateAskCompany
		return fmt.Sprintf("Nice to meet you %s! Which company are you representing?", input)

	case StateAskCompany:
		f.store("company", input)
		f.state = StateAskBudget
		return "Got it. What's your estimated budget for this project or service?"

	case StateAskBudget:
		f.store("budget", input)
		f.state = StateAskInterest
		return "Great. Could you tell me briefly what service you're interested in?"

	case StateAskInterest:
		f.store("interest", input)
		f.state = StateHandoff
		summary := fmt.Sprintf(
			"Thanks %s! I've noted your interest in %s with a budget of %s. A sales rep will follow up shortly.",
			f.fields["name"], f.fields["interest"], f.fields["budget"])
		if f.mode == ModeEnd {
			return summary + " Bye!"
		}
		return summary + " Feel free to tell me more in the meantime."

	default: // StateHandoff
		if f.mode == ModeEnd {
			return "We're all set. Bye!"
		}
		return "I already have your information. Would you like me to connect you with our team?"
	}
}

// store writes a field once; a value already present is never overwritten.
func (f *Flow) store(field, value string) {
	if _, ok := f.fields[field]; ok {
		return
	}
	f.fields[field] = value
}

// LeadData returns a snapshot of the collected fields, normalized for
// storage: the budget keeps digits only, with any leading currency symbol
// stripped. May be partial before qualification; callers should check
// IsQualified first.
func (f *Flow) LeadData() map[string]string {
	out := make(map[string]string, len(f.fields))
	for k, v := range f.fields {
		if k == "budget" {
			v = strings.TrimPrefix(v, "$")
		}
		out[k] = v
	}
	return out
}
