package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xhad/ragflow/pkg/processor"
)

func TestProcessor_Chunk(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:    50,
		ChunkOverlap: 10,
	})

	text := "This is a test document.   It contains several\nsentences to demonstrate text processing. Short one! Done?"
	chunks := p.Chunk(text)

	assert.Equal(t, []string{
		"This is a test document.",
		"document. It contains several sentences to demonstrate text processing.",
		"Short one! Done?",
	}, chunks)
}

func TestProcessor_ChunkFitsInOne(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 1000, ChunkOverlap: 200})

	assert.Equal(t, []string{"One. Two."}, p.Chunk("One.\n\nTwo."))
}

func TestProcessor_ChunkEmptyAndInvalid(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	assert.Nil(t, p.Chunk("   \n\t "))
	assert.Equal(t, []string{"ab"}, p.Chunk("a\xffb"))
}

func TestProcessor_ChunkStripsNUL(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{})

	chunks := p.Chunk("Page \x00one.\x00 Two.\x00\x00")
	assert.Equal(t, []string{"Page one. Two."}, chunks)
	for _, c := range chunks {
		assert.NotContains(t, c, "\x00")
	}
	assert.Nil(t, p.Chunk("\x00\x00"))
}

func TestProcessor_MinChunkLength(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{ChunkSize: 20, ChunkOverlap: 0, MinChunkLength: 10})

	chunks := p.Chunk("A longer sentence here. Hi.")
	for _, c := range chunks {
		assert.GreaterOrEqual(t, len(c), 10)
	}
	assert.Contains(t, strings.Join(chunks, " "), "A longer sentence here.")
}
