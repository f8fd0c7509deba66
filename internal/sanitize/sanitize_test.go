package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "  plain  ", want: "plain"},
		{in: "<b>Bold</b> move", want: "Bold move"},
		{in: `<script>alert("x")</script>Serve`, want: "Serve"},
		{in: "Tom &amp; Jerry", want: "Tom & Jerry"},
		{in: "line one\nline two", want: "line one\nline two"},
		{in: "5 < 6", want: "5 < 6"},
		{in: "&lt;script&gt;alert(1)&lt;/script&gt;", want: ""},
		{in: "&lt;b&gt;hi&lt;/b&gt; there", want: "hi there"},
		{in: "&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;ok", want: "ok"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}

func TestPtr(t *testing.T) {
	assert.Nil(t, Ptr(nil))

	s := "<i>note</i>"
	got := Ptr(&s)
	if assert.NotNil(t, got) {
		assert.Equal(t, "note", *got)
	}
	assert.Equal(t, "<i>note</i>", s, "input is not modified")
}

func TestText_NoLiveMarkup(t *testing.T) {
	inputs := []string{
		"&lt;img src=x onerror=alert(1)&gt;",
		"&#60;iframe src=evil&#62;&#60;/iframe&#62;",
		"<<b>script>alert(1)<</b>/script>",
	}
	for _, in := range inputs {
		out := Text(in)
		assert.NotContains(t, out, "<img", in)
		assert.NotContains(t, out, "<iframe", in)
		assert.NotContains(t, out, "<script", in)
	}
}
