package quiz

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"
)

// MimeType of every rendered quiz document.
const MimeType = "text/plain"

// Document is a rendered quiz ready for download. Content is base64.
type Document struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Content  string `json:"content"`
}

// renderDocument renders the quiz as plain text. The same quiz, subjects and
// questions always produce the same bytes and therefore the same filename.
func renderDocument(title string, subjects []string, questions []Question, includeAnswers bool) Document {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(strings.Repeat("=", len([]rune(title))))
	b.WriteString("\n\n")
	if len(subjects) > 0 {
		fmt.Fprintf(&b, "Subjects: %s\n", strings.Join(subjects, ", "))
	}
	fmt.Fprintf(&b, "Questions: %d\n", len(questions))

	for i, q := range questions {
		fmt.Fprintf(&b, "\n%d. %s (%s)\n", i+1, q.QuestionText, pointsLabel(q.Points))
		switch q.QuestionType {
		case TypeMultipleChoice:
			for j, opt := range q.Options {
				fmt.Fprintf(&b, "   %s) %s\n", optionLabel(j), opt)
			}
		case TypeTrueFalse:
			b.WriteString("   True / False\n")
		default:
			b.WriteString("   Answer: ____________________\n")
		}
	}

	if includeAnswers {
		b.WriteString("\nAnswer key\n----------\n")
		for i, q := range questions {
			fmt.Fprintf(&b, "%d. %s\n", i+1, answerLabel(q))
			if q.Explanation != nil && *q.Explanation != "" {
				fmt.Fprintf(&b, "   %s\n", *q.Explanation)
			}
		}
	}

	content := []byte(b.String())
	sum := sha256.Sum256(content)
	return Document{
		Filename: fmt.Sprintf("%s-%s.txt", slug(title), hex.EncodeToString(sum[:])[:8]),
		MimeType: MimeType,
		Content:  base64.StdEncoding.EncodeToString(content),
	}
}

func pointsLabel(points int) string {
	if points == 1 {
		return "1 point"
	}
	return fmt.Sprintf("%d points", points)
}

// optionLabel is A, B, ... Z, then AA, AB and so on.
func optionLabel(i int) string {
	label := ""
	for i >= 0 {
		label = string(rune('A'+i%26)) + label
		i = i/26 - 1
	}
	return label
}

func answerLabel(q Question) string {
	if q.QuestionType == TypeMultipleChoice {
		for j, opt := range q.Options {
			if opt == q.CorrectAnswer {
				return optionLabel(j) + ") " + opt
			}
		}
	}
	return q.CorrectAnswer
}

// slug lowercases title and joins its ASCII letters and digits with dashes.
func slug(title string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(title) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	if b.Len() == 0 {
		return "quiz"
	}
	return b.String()
}
