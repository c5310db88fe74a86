// Package remote provides a websocket client for a remote recognition
// engine. Control messages are JSON, audio travels as binary frames.
package remote

import (
	"encoding/json"
	"fmt"
)

// Client → server control messages.

type startMessage struct {
	Type   string      `json:"type"`
	Config startConfig `json:"config"`
}

type startConfig struct {
	Language   string `json:"language"`
	SampleRate int    `json:"sampleRate"`
}

type stopMessage struct {
	Type string `json:"type"`
}

type pingMessage struct {
	Type string `json:"type"`
}

// WordTiming is the per-word timing block attached to result messages.
// The alignment pipeline does not consume these yet; they are carried for a
// future precision upgrade over uniform back-projection.
type WordTiming struct {
	Word       string  `json:"word"`
	StartTime  float64 `json:"startTime"`
	EndTime    float64 `json:"endTime"`
	Confidence float64 `json:"confidence"`
}

// serverEvent is the closed set of messages a recognition server may send.
// The wire "type" discriminator is resolved exactly once, in decodeServer;
// everything past the decoder dispatches on the concrete type.
type serverEvent interface {
	isServerEvent()
}

type startedEvent struct{}

type pongEvent struct{}

type resultEvent struct {
	Transcript string
	Words      []WordTiming
	IsFinal    bool
	Confidence float64
}

type errorEvent struct {
	Message string
}

func (startedEvent) isServerEvent() {}
func (pongEvent) isServerEvent()    {}
func (resultEvent) isServerEvent()  {}
func (errorEvent) isServerEvent()   {}

// rawServerMessage is the superset wire shape used only during decoding.
type rawServerMessage struct {
	Type       string       `json:"type"`
	Transcript string       `json:"transcript"`
	Words      []WordTiming `json:"words"`
	IsFinal    bool         `json:"isFinal"`
	Confidence float64      `json:"confidence"`
	Message    string       `json:"message"`
}

// decodeServer parses one text frame into a tagged event. Unknown types and
// malformed payloads are errors; the caller logs and keeps the connection.
func decodeServer(data []byte) (serverEvent, error) {
	var raw rawServerMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("malformed server message: %w", err)
	}

	switch raw.Type {
	case "started":
		return startedEvent{}, nil
	case "pong":
		return pongEvent{}, nil
	case "result":
		return resultEvent{
			Transcript: raw.Transcript,
			Words:      raw.Words,
			IsFinal:    raw.IsFinal,
			Confidence: raw.Confidence,
		}, nil
	case "error":
		return errorEvent{Message: raw.Message}, nil
	default:
		return nil, fmt.Errorf("unknown server message type %q", raw.Type)
	}
}
