package dialog

import (
	"reflect"
	"strings"
	"testing"
)

func TestFlowWalksInterviewInOrder(t *testing.T) {
	f := NewFlow(ModeEnd)

	if got := f.State(); got != StateStart {
		t.Fatalf("initial state = %q, want %q", got, StateStart)
	}

	prompt := f.NextPrompt("")
	if prompt != "Hi there! May I know your name?" {
		t.Fatalf("opening prompt = %q", prompt)
	}
	if f.State() != StateAskName {
		t.Fatalf("state = %q, want %q", f.State(), StateAskName)
	}

	prompt = f.NextPrompt("Shahid")
	if prompt != "Nice to meet you Shahid! Which company are you representing?" {
		t.Fatalf("name prompt = %q", prompt)
	}

	steps := []struct {
		input string
		state State
	}{
		{"Tech Terror Technologies", StateAskBudget},
		{"$50000", StateAskInterest},
		{"a chatbot website", StateHandoff},
	}
	for _, step := range steps {
		f.NextPrompt(step.input)
		if f.State() != step.state {
			t.Fatalf("after %q state = %q, want %q", step.input, f.State(), step.state)
		}
	}

	if !f.IsQualified() {
		t.Fatal("flow not qualified at handoff")
	}
}

func TestFlowCanonicalLeadData(t *testing.T) {
	f := NewFlow(ModeEnd)
	f.NextPrompt("")
	for _, input := range []string{"Shahid", "Tech Terror Technologies", "$50,000", "a chatbot website"} {
		f.NextPrompt(ExtractForState(f.State(), input))
	}

	want := map[string]string{
		"name":     "Shahid",
		"company":  "Tech Terror Technologies",
		"budget":   "50000",
		"interest": "a chatbot website",
	}
	if got := f.LeadData(); !reflect.DeepEqual(got, want) {
		t.Fatalf("LeadData() = %v, want %v", got, want)
	}
}

func TestFlowSummaryClosingByMode(t *testing.T) {
	run := func(mode Mode) string {
		f := NewFlow(mode)
		f.NextPrompt("")
		f.NextPrompt("Shahid")
		f.NextPrompt("Acme")
		f.NextPrompt("50000")
		return f.NextPrompt("a chatbot")
	}

	summary := run(ModeEnd)
	if !strings.HasPrefix(summary, "Thanks Shahid! I've noted your interest in a chatbot with a budget of 50000.") {
		t.Fatalf("summary = %q", summary)
	}
	if !strings.HasSuffix(summary, " Bye!") {
		t.Fatalf("end-mode summary missing farewell: %q", summary)
	}

	if got := run(ModeContinue); strings.HasSuffix(got, " Bye!") {
		t.Fatalf("continue-mode summary says goodbye: %q", got)
	}
}

func TestFlowHandoffIsIdempotent(t *testing.T) {
	f := NewFlow(ModeContinue)
	f.NextPrompt("")
	f.NextPrompt("Shahid")
	f.NextPrompt("Acme")
	f.NextPrompt("50000")
	f.NextPrompt("a chatbot")

	before := f.LeadData()
	for _, junk := range []string{"", "change my name to Bob", "$999999"} {
		reply := f.NextPrompt(junk)
		if reply == "" {
			t.Fatal("handoff re-entry returned empty acknowledgment")
		}
		if f.State() != StateHandoff {
			t.Fatalf("state left handoff: %q", f.State())
		}
	}
	if after := f.LeadData(); !reflect.DeepEqual(before, after) {
		t.Fatalf("handoff re-entry mutated fields: %v -> %v", before, after)
	}
}

func TestFlowFieldsWrittenOnce(t *testing.T) {
	f := NewFlow(ModeEnd)
	f.store("name", "Shahid")
	f.store("name", "Bob")
	if f.fields["name"] != "Shahid" {
		t.Fatalf("name = %q, want first write kept", f.fields["name"])
	}
}

func TestFlowUnknownModeDefaultsToEnd(t *testing.T) {
	if f := NewFlow(Mode("whatever")); f.Mode() != ModeEnd {
		t.Fatalf("mode = %q, want %q", f.Mode(), ModeEnd)
	}
}
