// Package server exposes the turn loop to remote clients over a JSON
// WebSocket protocol and serves the surrounding HTTP endpoints.
package server

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	CodeMalformed   = "malformed"
	CodeUnknownType = "unknown_type"
)

// DecodeError describes a client message the server could not accept.
// Always recoverable: the session answers with an error message and keeps
// the connection open.
type DecodeError struct {
	Code    string
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func malformed(message, param string) *DecodeError {
	return &DecodeError{Code: CodeMalformed, Message: message, Param: param}
}

// ClientAudio carries one utterance clip as base64 WAV.
type ClientAudio struct {
	Type string `json:"type"`
	B64  string `json:"b64"`
}

// ClientReset discards the session's interview and starts over.
type ClientReset struct {
	Type string `json:"type"`
}

// DecodeClientMessage parses an inbound frame into one of the client
// message types, or a *DecodeError for anything else.
func DecodeClientMessage(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, malformed("expected JSON message", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, malformed("missing type", "type")
	}

	switch typ {
	case "audio":
		var msg ClientAudio
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, malformed("invalid audio message", "")
		}
		if strings.TrimSpace(msg.B64) == "" {
			return nil, malformed("audio.b64 is required", "b64")
		}
		return msg, nil
	case "reset":
		return ClientReset{Type: typ}, nil
	default:
		return nil, &DecodeError{Code: CodeUnknownType, Message: "unknown message type", Param: "type"}
	}
}

// Server → client envelopes.

type ServerState struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type ServerAgentText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type ServerAgentSpeaking struct {
	Type  string `json:"type"`
	Value bool   `json:"value"`
}

type ServerTTSAudio struct {
	Type string `json:"type"`
	MIME string `json:"mime"`
	B64  string `json:"b64"`
}

type ServerUserText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// ServerVAD signals a skipped turn; Value is "no_speech" or
// "empty_transcript".
type ServerVAD struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type ServerLead struct {
	Type string            `json:"type"`
	Data map[string]string `json:"data"`
}

type ServerTell struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type ServerErrorMsg struct {
	Type    string `json:"type"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

func stateMsg(value string) ServerState        { return ServerState{Type: "state", Value: value} }
func agentTextMsg(text string) ServerAgentText { return ServerAgentText{Type: "agent_text", Text: text} }
func speakingMsg(on bool) ServerAgentSpeaking {
	return ServerAgentSpeaking{Type: "agent_speaking", Value: on}
}
func ttsAudioMsg(b64 string) ServerTTSAudio {
	return ServerTTSAudio{Type: "tts_audio", MIME: "audio/wav", B64: b64}
}
func userTextMsg(text string) ServerUserText { return ServerUserText{Type: "user_text", Text: text} }
func vadMsg(value string) ServerVAD          { return ServerVAD{Type: "vad", Value: value} }
func leadMsg(data map[string]string) ServerLead {
	return ServerLead{Type: "lead", Data: data}
}
func tellMsg(message string) ServerTell { return ServerTell{Type: "tell", Message: message} }
func errorMsg(code, message string) ServerErrorMsg {
	return ServerErrorMsg{Type: "error", Code: code, Message: message}
}
