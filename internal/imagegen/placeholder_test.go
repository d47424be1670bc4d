package imagegen

import (
	"bytes"
	"context"
	"image/png"
	"strings"
	"testing"

	"github.com/abdulachik/etrimage/internal/pipeline"
	"github.com/abdulachik/etrimage/internal/prompt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceholder_Render(t *testing.T) {
	p := NewPlaceholder()
	req := pipeline.RenderRequest{
		Prompt:      "A photorealistic photo of a man boarding a city bus. Simple gray background.",
		Style:       prompt.StyleComic,
		Temperature: 0.4,
	}

	data, err := p.Render(context.Background(), req)
	require.NoError(t, err)
	require.True(t, IsPNG(data))

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, PlaceholderWidth, img.Bounds().Dx())
	assert.Equal(t, PlaceholderHeight, img.Bounds().Dy())

	t.Run("deterministic", func(t *testing.T) {
		again, err := p.Render(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, data, again)
	})

	t.Run("prompt changes the image", func(t *testing.T) {
		other := req
		other.Prompt = "A cat sleeping on a sofa."
		different, err := p.Render(context.Background(), other)
		require.NoError(t, err)
		assert.NotEqual(t, data, different)
	})

	t.Run("very long prompt", func(t *testing.T) {
		long := req
		long.Prompt = strings.Repeat("Mężczyzna wchodzi do autobusu. ", 200)
		_, err := p.Render(context.Background(), long)
		assert.NoError(t, err)
	})

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := p.Render(ctx, req)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestASCIIFold(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{input: "Mężczyzna wchodzi do autobusu.", expected: "Mezczyzna wchodzi do autobusu."},
		{input: "Łódź, żółć, źdźbło", expected: "Lodz, zolc, zdzblo"},
		{input: "„cytat” – koniec…", expected: "\"cytat\" - koniec..."},
		{input: "line\nbreak", expected: "line break"},
		{input: "emoji 🚌", expected: "emoji ?"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ASCIIFold(tt.input))
		})
	}
}

func TestWrap(t *testing.T) {
	assert.Equal(t, []string{"A man", "boarding", "a bus."}, wrap("A man boarding a bus.", 8))
	assert.Equal(t, []string{"abcde", "fghij", "k"}, wrap("abcdefghijk", 5))
	assert.Nil(t, wrap("   ", 10))
	assert.Nil(t, wrap("text", 0))

	for _, line := range wrap(strings.Repeat("word ", 100), 20) {
		assert.LessOrEqual(t, len(line), 20)
	}
}

func TestFitLines(t *testing.T) {
	lines := []string{"one", "two", "three", "four"}

	assert.Equal(t, lines, fitLines(lines, 10))
	assert.Equal(t, []string{"one", "two..."}, fitLines(lines, 2))
	assert.Nil(t, fitLines(lines, 0))
}
