package server

import (
	"errors"
	"testing"
)

func TestDecodeClientMessageAudio(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"audio","b64":"UklGRg=="}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	a, ok := msg.(ClientAudio)
	if !ok {
		t.Fatalf("decoded %T, want ClientAudio", msg)
	}
	if a.B64 != "UklGRg==" {
		t.Fatalf("b64 = %q", a.B64)
	}
}

func TestDecodeClientMessageReset(t *testing.T) {
	msg, err := DecodeClientMessage([]byte(`{"type":"reset"}`))
	if err != nil {
		t.Fatalf("DecodeClientMessage() error = %v", err)
	}
	if _, ok := msg.(ClientReset); !ok {
		t.Fatalf("decoded %T, want ClientReset", msg)
	}
}

func TestDecodeClientMessageErrors(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		code string
	}{
		{"not json", "this is not json", CodeMalformed},
		{"missing type", `{"b64":"x"}`, CodeMalformed},
		{"missing b64", `{"type":"audio"}`, CodeMalformed},
		{"unknown type", `{"type":"video"}`, CodeUnknownType},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := DecodeClientMessage([]byte(c.raw))
			var de *DecodeError
			if !errors.As(err, &de) {
				t.Fatalf("err = %v, want *DecodeError", err)
			}
			if de.Code != c.code {
				t.Fatalf("code = %q, want %q", de.Code, c.code)
			}
		})
	}
}
