// Package formdata builds the two-part form body the inference backend
// accepts: an m4a recording named "audio" and a JPEG named "image".
//
// The layout is fixed byte for byte:
//
//	--B CRLF
//	Content-Disposition: form-data; name="audio"; filename="recording.m4a" CRLF
//	Content-Type: audio/m4a CRLF CRLF
//	<audio> CRLF
//	--B CRLF
//	Content-Disposition: form-data; name="image"; filename="image.jpg" CRLF
//	Content-Type: image/jpeg CRLF CRLF
//	<image> CRLF
//	--B-- CRLF
package formdata

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"strings"

	"github.com/google/uuid"
)

// Part names, filenames and content types of the wire contract.
const (
	AudioField       = "audio"
	AudioFilename    = "recording.m4a"
	AudioContentType = "audio/m4a"

	ImageField       = "image"
	ImageFilename    = "image.jpg"
	ImageContentType = "image/jpeg"
)

const crlf = "\r\n"

// maxBoundaryLen is the RFC 2046 limit.
const maxBoundaryLen = 70

var (
	// ErrInvalidBoundary is returned for an empty, too long or ill-formed boundary.
	ErrInvalidBoundary = errors.New("formdata: invalid boundary")

	// ErrBoundaryCollision is returned when a payload contains the delimiter.
	ErrBoundaryCollision = errors.New("formdata: boundary occurs in payload")
)

// NewBoundary returns a fresh random boundary token.
func NewBoundary() string {
	return strings.ToUpper(uuid.NewString())
}

// ContentType returns the request Content-Type header for boundary.
func ContentType(boundary string) string {
	return "multipart/form-data; boundary=" + boundary
}

// ValidateBoundary checks boundary against the RFC 2046 bchars set.
// Spaces are rejected outright since the header value is not quoted.
func ValidateBoundary(boundary string) error {
	if boundary == "" || len(boundary) > maxBoundaryLen {
		return fmt.Errorf("%w: length %d", ErrInvalidBoundary, len(boundary))
	}
	for _, r := range boundary {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		case strings.ContainsRune("'()+_,-./:=?", r):
		default:
			return fmt.Errorf("%w: character %q", ErrInvalidBoundary, r)
		}
	}
	return nil
}

// Encode builds the request body for one audio clip and one still.
func Encode(audio, image []byte, boundary string) ([]byte, error) {
	if err := ValidateBoundary(boundary); err != nil {
		return nil, err
	}
	delimiter := []byte("--" + boundary)
	if bytes.Contains(audio, delimiter) || bytes.Contains(image, delimiter) {
		return nil, ErrBoundaryCollision
	}

	var buf bytes.Buffer
	buf.Grow(len(audio) + len(image) + 4*len(boundary) + 256)

	writePart(&buf, boundary, AudioField, AudioFilename, AudioContentType, audio)
	writePart(&buf, boundary, ImageField, ImageFilename, ImageContentType, image)
	buf.WriteString("--" + boundary + "--" + crlf)

	return buf.Bytes(), nil
}

func writePart(buf *bytes.Buffer, boundary, name, filename, contentType string, data []byte) {
	buf.WriteString("--" + boundary + crlf)
	fmt.Fprintf(buf, "Content-Disposition: form-data; name=%q; filename=%q%s", name, filename, crlf)
	buf.WriteString("Content-Type: " + contentType + crlf + crlf)
	buf.Write(data)
	buf.WriteString(crlf)
}

// Part is one decoded form part.
type Part struct {
	Name        string
	Filename    string
	ContentType string
	Data        []byte
}

// Parse decodes a multipart body produced by Encode (or any compliant writer).
func Parse(body []byte, boundary string) ([]Part, error) {
	reader := multipart.NewReader(bytes.NewReader(body), boundary)

	var parts []Part
	for {
		p, err := reader.NextRawPart()
		if err == io.EOF {
			return parts, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read part: %w", err)
		}

		data, err := io.ReadAll(p)
		if err != nil {
			return nil, fmt.Errorf("read part %q: %w", p.FormName(), err)
		}
		parts = append(parts, Part{
			Name:        p.FormName(),
			Filename:    p.FileName(),
			ContentType: p.Header.Get("Content-Type"),
			Data:        data,
		})
		_ = p.Close()
	}
}
