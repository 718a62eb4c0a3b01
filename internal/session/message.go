package session

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Inbound text frame types
const (
	TypeMediaChunk = "mediaChunk"
	TypeTranscript = "transcript"
)

// inbound is the JSON envelope of a text frame
type inbound struct {
	Type string `json:"type"`
	Data string `json:"data,omitempty"` // mediaChunk: data URL or bare base64
	Text string `json:"text,omitempty"` // transcript
}

// segment is one unit of work for the session's ingest loop
type segment struct {
	audio  []byte
	text   string
	isText bool
}

// parseText decodes a text frame into a segment
func parseText(raw []byte) (segment, error) {
	var msg inbound
	if err := json.Unmarshal(raw, &msg); err != nil {
		return segment{}, fmt.Errorf("invalid message: %w", err)
	}

	switch msg.Type {
	case TypeMediaChunk:
		audio, err := DecodeDataURL(msg.Data)
		if err != nil {
			return segment{}, err
		}
		return segment{audio: audio}, nil
	case TypeTranscript:
		return segment{text: msg.Text, isText: true}, nil
	default:
		return segment{}, fmt.Errorf("unknown message type %q", msg.Type)
	}
}

// DecodeDataURL returns the payload of a base64 data URL. A bare base64
// string without the data: prefix is accepted too.
func DecodeDataURL(s string) ([]byte, error) {
	payload := strings.TrimSpace(s)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 {
			return nil, fmt.Errorf("malformed data URL")
		}
		if !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, fmt.Errorf("data URL is not base64 encoded")
		}
		payload = payload[comma+1:]
	}
	if payload == "" {
		return nil, fmt.Errorf("empty media chunk")
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("decode media chunk: %w", err)
	}
	return data, nil
}
