package agent

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shahid-ali2134/voice-lead-bot/pkg/dialog"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/lead"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/llm"
	"github.com/shahid-ali2134/voice-lead-bot/pkg/voice/stt"
)

type fakeTranscriber struct {
	texts []string
	calls int
	fail  int // fail this many calls before succeeding
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, wav []byte) (string, error) {
	if f.fail > 0 {
		f.fail--
		return "", &stt.TranscriptionError{Message: "backend down"}
	}
	if f.calls >= len(f.texts) {
		return "", nil
	}
	text := f.texts[f.calls]
	f.calls++
	return text, nil
}

type fakeResponder struct {
	reply string
}

func (f *fakeResponder) StreamGenerate(ctx context.Context, prompt string) (*llm.Stream, error) {
	return llm.NewStaticStream(f.reply), nil
}

type fakeSynthesizer struct {
	calls int
}

func (f *fakeSynthesizer) SynthesizeToMemory(ctx context.Context, text string) ([]byte, error) {
	f.calls++
	return []byte("RIFFfakewav:" + text), nil
}

func newTestOrchestrator(t *testing.T, mode dialog.Mode, tr *fakeTranscriber, re *fakeResponder) (*Orchestrator, *lead.Store) {
	t.Helper()
	store := lead.NewStore(filepath.Join(t.TempDir(), "leads.json"))
	logger := slog.New(slog.DiscardHandler)
	orch := New(tr, re, &fakeSynthesizer{}, store, logger, Config{Mode: mode})
	return orch, store
}

func runInterview(t *testing.T, orch *Orchestrator) *Turn {
	t.Helper()
	ctx := context.Background()

	if _, err := orch.Opening(ctx); err != nil {
		t.Fatalf("Opening() error = %v", err)
	}

	var last *Turn
	for _, wav := range [][]byte{[]byte("a"), []byte("b"), []byte("c"), []byte("d")} {
		turn, err := orch.ProcessUtterance(ctx, wav)
		if err != nil {
			t.Fatalf("ProcessUtterance() error = %v", err)
		}
		last = turn
	}
	return last
}

func canonicalTranscriber() *fakeTranscriber {
	return &fakeTranscriber{texts: []string{
		"my name is Shahid",
		"I am from Tech Terror Technologies.",
		"$50,000 or so",
		"I need a chatbot website",
	}}
}

func TestInterviewCapturesAndPersistsLead(t *testing.T) {
	orch, store := newTestOrchestrator(t, dialog.ModeEnd, canonicalTranscriber(), &fakeResponder{})

	last := runInterview(t, orch)
	if last.Lead == nil {
		t.Fatal("qualifying turn carries no lead")
	}
	if last.LeadSaveErr != nil {
		t.Fatalf("lead save error = %v", last.LeadSaveErr)
	}
	if last.State != dialog.StateHandoff {
		t.Fatalf("state = %q", last.State)
	}
	if !strings.HasSuffix(last.ReplyText, " Bye!") {
		t.Fatalf("end-mode reply = %q", last.ReplyText)
	}

	want := map[string]string{
		"name":     "Shahid",
		"company":  "Tech Terror Technologies",
		"budget":   "50000",
		"interest": "a chatbot website",
	}
	for k, v := range want {
		if got := last.Lead.Fields[k]; got != v {
			t.Errorf("lead[%q] = %q, want %q", k, got, v)
		}
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("store holds %d records, want 1", len(records))
	}
}

func TestLeadPersistedOnce(t *testing.T) {
	tr := canonicalTranscriber()
	tr.texts = append(tr.texts, "are we done?", "hello again")
	orch, store := newTestOrchestrator(t, dialog.ModeContinue, tr, &fakeResponder{reply: "Sure thing."})

	runInterview(t, orch)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		turn, err := orch.ProcessUtterance(ctx, []byte("x"))
		if err != nil {
			t.Fatalf("post-qualification turn error = %v", err)
		}
		if turn.Lead != nil {
			t.Fatal("lead emitted again after qualification")
		}
		if turn.ReplyText != "Sure thing." {
			t.Fatalf("free-chat reply = %q", turn.ReplyText)
		}
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("store holds %d records, want 1", len(records))
	}
}

func TestEndModeReEntryAnswersWithFarewell(t *testing.T) {
	tr := canonicalTranscriber()
	tr.texts = append(tr.texts, "are we done?")
	orch, store := newTestOrchestrator(t, dialog.ModeEnd, tr, &fakeResponder{reply: "LLM free chat reply."})

	runInterview(t, orch)

	// After qualification end mode never consults the responder; the
	// state machine answers with its farewell.
	turn, err := orch.ProcessUtterance(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("post-qualification turn error = %v", err)
	}
	if turn.ReplyText != "We're all set. Bye!" {
		t.Fatalf("re-entry reply = %q, want farewell", turn.ReplyText)
	}
	if turn.State != dialog.StateHandoff {
		t.Fatalf("state = %q", turn.State)
	}
	if turn.Lead != nil {
		t.Fatal("lead emitted again after qualification")
	}

	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("store holds %d records, want 1", len(records))
	}
}

func TestEmptyTranscriptIsRetryableSignal(t *testing.T) {
	orch, _ := newTestOrchestrator(t, dialog.ModeEnd, &fakeTranscriber{}, &fakeResponder{})

	state := orch.Flow().State()
	_, err := orch.ProcessUtterance(context.Background(), []byte("x"))
	if !errors.Is(err, ErrEmptyTranscript) {
		t.Fatalf("err = %v, want ErrEmptyTranscript", err)
	}
	if orch.Flow().State() != state {
		t.Fatal("empty transcript advanced the flow")
	}
}

func TestGatewayRetriesAreBounded(t *testing.T) {
	tr := &fakeTranscriber{texts: []string{"my name is Shahid"}, fail: 1}
	orch, _ := newTestOrchestrator(t, dialog.ModeEnd, tr, &fakeResponder{})
	orch.flow.NextPrompt("") // move to ask_name

	turn, err := orch.ProcessUtterance(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("retry did not recover: %v", err)
	}
	if turn.UserText != "my name is Shahid" {
		t.Fatalf("user text = %q", turn.UserText)
	}

	// More failures than the retry budget must surface the error.
	tr2 := &fakeTranscriber{texts: []string{"hi"}, fail: 10}
	orch2, _ := newTestOrchestrator(t, dialog.ModeEnd, tr2, &fakeResponder{})
	var terr *stt.TranscriptionError
	if _, err := orch2.ProcessUtterance(context.Background(), []byte("x")); !errors.As(err, &terr) {
		t.Fatalf("err = %v, want *TranscriptionError", err)
	}
}

func TestFreeChatReplyTruncated(t *testing.T) {
	// The cap counts characters; byte length must not matter.
	cases := []struct {
		name      string
		reply     string
		wantRunes int
		truncated bool
	}{
		{"ascii over budget", strings.Repeat("x", 400), 303, true},
		{"multibyte over budget", strings.Repeat("é", 400), 303, true},
		{"multibyte under budget", strings.Repeat("é", 200), 200, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			tr := canonicalTranscriber()
			tr.texts = append(tr.texts, "tell me everything")
			orch, _ := newTestOrchestrator(t, dialog.ModeContinue, tr, &fakeResponder{reply: c.reply})

			runInterview(t, orch)

			turn, err := orch.ProcessUtterance(context.Background(), []byte("x"))
			if err != nil {
				t.Fatalf("free-chat turn error = %v", err)
			}
			if got := len([]rune(turn.ReplyText)); got != c.wantRunes {
				t.Fatalf("reply length = %d runes, want %d", got, c.wantRunes)
			}
			if c.truncated != strings.HasSuffix(turn.ReplyText, "...") {
				t.Fatalf("truncated = %v, reply tail %q", !c.truncated, turn.ReplyText[len(turn.ReplyText)-9:])
			}
		})
	}
}

func TestResetStartsFreshInterview(t *testing.T) {
	orch, store := newTestOrchestrator(t, dialog.ModeEnd, canonicalTranscriber(), &fakeResponder{})
	runInterview(t, orch)

	orch.Reset()
	if orch.Flow().State() != dialog.StateStart {
		t.Fatalf("state after reset = %q", orch.Flow().State())
	}

	// A second interview must persist a second record.
	orch.transcriber = canonicalTranscriber()
	last := runInterview(t, orch)
	if last.Lead == nil {
		t.Fatal("second interview captured no lead")
	}
	records, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("store holds %d records, want 2", len(records))
	}
}
