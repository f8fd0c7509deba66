package quiz

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleQuestions() []Question {
	why := "Water boils at 100 degrees at sea level."
	return []Question{
		{ID: 1, QuestionText: "Boiling point of water?", QuestionType: TypeMultipleChoice, Options: []string{"90", "100", "110"}, CorrectAnswer: "100", Explanation: &why, Points: 2},
		{ID: 2, QuestionText: "Ice is frozen water.", QuestionType: TypeTrueFalse, CorrectAnswer: "true", Points: 1},
		{ID: 3, QuestionText: "Name the symbol for sodium.", QuestionType: TypeShortAnswer, CorrectAnswer: "Na", Points: 1},
	}
}

func TestRenderDocument(t *testing.T) {
	doc := renderDocument("Chem: Week 1!", []string{"Chemistry"}, sampleQuestions(), true)

	assert.Equal(t, MimeType, doc.MimeType)
	assert.Regexp(t, `^chem-week-1-[0-9a-f]{8}\.txt$`, doc.Filename)

	raw, err := base64.StdEncoding.DecodeString(doc.Content)
	require.NoError(t, err)
	want := "Chem: Week 1!\n" +
		"=============\n\n" +
		"Subjects: Chemistry\n" +
		"Questions: 3\n" +
		"\n1. Boiling point of water? (2 points)\n" +
		"   A) 90\n" +
		"   B) 100\n" +
		"   C) 110\n" +
		"\n2. Ice is frozen water. (1 point)\n" +
		"   True / False\n" +
		"\n3. Name the symbol for sodium. (1 point)\n" +
		"   Answer: ____________________\n" +
		"\nAnswer key\n----------\n" +
		"1. B) 100\n" +
		"   Water boils at 100 degrees at sea level.\n" +
		"2. true\n" +
		"3. Na\n"
	assert.Equal(t, want, string(raw))
}

func TestRenderDocument_Deterministic(t *testing.T) {
	a := renderDocument("Quiz", nil, sampleQuestions(), false)
	b := renderDocument("Quiz", nil, sampleQuestions(), false)
	assert.Equal(t, a, b)

	withKey := renderDocument("Quiz", nil, sampleQuestions(), true)
	assert.NotEqual(t, a.Filename, withKey.Filename, "the hash covers the content")

	raw, err := base64.StdEncoding.DecodeString(a.Content)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "Answer key")
}

func TestSlug(t *testing.T) {
	tests := map[string]string{
		"Quiz":                 "quiz",
		"  Hello,  World  ":    "hello-world",
		"Ünïcode Only":         "n-code-only",
		"!!!":                  "quiz",
		"Biology 101 - Cells.": "biology-101-cells",
	}
	for in, want := range tests {
		assert.Equal(t, want, slug(in), in)
	}
}

func TestOptionLabel(t *testing.T) {
	assert.Equal(t, "A", optionLabel(0))
	assert.Equal(t, "Z", optionLabel(25))
	assert.Equal(t, "AA", optionLabel(26))
	assert.Equal(t, "AB", optionLabel(27))
}
