package transcribe

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"
)

// TextTranscriber treats each segment as UTF-8 text. Useful for development
// clients that send already transcribed speech as binary frames.
type TextTranscriber struct{}

var errNotText = errors.New("segment is not valid UTF-8")

func (TextTranscriber) Name() string {
	return "text"
}

func (TextTranscriber) Transcribe(_ context.Context, _ string, audio []byte) (string, error) {
	if !utf8.Valid(audio) {
		return "", errNotText
	}
	return strings.TrimSpace(string(audio)), nil
}
