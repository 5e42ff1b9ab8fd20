// Package backend is the reference service behind the capture client's
// upload endpoint. It accepts the two-part form, transcribes the question,
// asks a vision model about the photo and returns the reply as text plus
// base64 MP3 speech.
package backend

import (
	"context"
	"strings"
)

// Inferencer runs the model steps of a request.
type Inferencer interface {
	// Transcribe converts recorded audio into text.
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)

	// Describe answers question about the JPEG image.
	Describe(ctx context.Context, question string, image []byte) (string, error)

	// Speak synthesizes text into MP3 audio.
	Speak(ctx context.Context, text string) ([]byte, error)

	// Health checks API connectivity.
	Health(ctx context.Context) error
}

// Prompt builds the vision instruction around the transcribed question.
func Prompt(question string) string {
	var b strings.Builder
	b.WriteString("Here's the question: ")
	b.WriteString(strings.TrimSpace(question))
	b.WriteString(". Make the response quick and concise. ONLY and ONLY tell what the main thing the image is or what I asked for. ")
	b.WriteString("Make it human like and make it maximum 2-3 sentences of a response unless more is needed.")
	return b.String()
}
