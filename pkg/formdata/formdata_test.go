package formdata

import (
	"bytes"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeExactBytes(t *testing.T) {
	audio := []byte("a.m4a")
	image := []byte("b.jpg")

	body, err := Encode(audio, image, "XYZ")
	require.NoError(t, err)

	want := "--XYZ\r\n" +
		"Content-Disposition: form-data; name=\"audio\"; filename=\"recording.m4a\"\r\n" +
		"Content-Type: audio/m4a\r\n\r\n" +
		"a.m4a\r\n" +
		"--XYZ\r\n" +
		"Content-Disposition: form-data; name=\"image\"; filename=\"image.jpg\"\r\n" +
		"Content-Type: image/jpeg\r\n\r\n" +
		"b.jpg\r\n" +
		"--XYZ--\r\n"
	assert.Equal(t, want, string(body))
}

func TestEncodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 50; i++ {
		audio := make([]byte, rng.Intn(4096))
		image := make([]byte, rng.Intn(8192))
		rng.Read(audio)
		rng.Read(image)
		boundary := NewBoundary()

		body, err := Encode(audio, image, boundary)
		require.NoError(t, err)

		parts, err := Parse(body, boundary)
		require.NoError(t, err)
		require.Len(t, parts, 2)

		assert.Equal(t, AudioField, parts[0].Name)
		assert.Equal(t, AudioFilename, parts[0].Filename)
		assert.Equal(t, AudioContentType, parts[0].ContentType)
		assert.True(t, bytes.Equal(audio, parts[0].Data), "audio mismatch on iteration %d", i)

		assert.Equal(t, ImageField, parts[1].Name)
		assert.Equal(t, ImageFilename, parts[1].Filename)
		assert.Equal(t, ImageContentType, parts[1].ContentType)
		assert.True(t, bytes.Equal(image, parts[1].Data), "image mismatch on iteration %d", i)
	}
}

func TestEncodeEmptyPayloads(t *testing.T) {
	body, err := Encode(nil, nil, "b")
	require.NoError(t, err)

	parts, err := Parse(body, "b")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Empty(t, parts[0].Data)
	assert.Empty(t, parts[1].Data)
}

func TestEncodeRejectsBadBoundary(t *testing.T) {
	for _, b := range []string{"", "has space", "semi;colon", string(make([]byte, 71))} {
		_, err := Encode([]byte("a"), []byte("b"), b)
		assert.ErrorIs(t, err, ErrInvalidBoundary, "boundary %q", b)
	}
}

func TestEncodeRejectsCollision(t *testing.T) {
	_, err := Encode([]byte("xx--XYZ"), []byte("img"), "XYZ")
	assert.ErrorIs(t, err, ErrBoundaryCollision)
}

func TestNewBoundary(t *testing.T) {
	a, b := NewBoundary(), NewBoundary()
	assert.NotEqual(t, a, b)
	assert.NoError(t, ValidateBoundary(a))
	assert.Equal(t, "multipart/form-data; boundary="+a, ContentType(a))
}
