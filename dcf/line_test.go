// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dcf

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Line
	}{
		{
			name:  "Empty",
			input: "",
			want:  Line{Kind: KindBlank},
		},
		{
			name:  "Whitespace only",
			input: " \t \r",
			want:  Line{Kind: KindBlank, Raw: " \t \r"},
		},
		{
			name:  "Tagged",
			input: "Package: foo",
			want:  Line{Kind: KindTagged, Raw: "Package: foo", Text: "Package: foo", Tag: "Package", Value: "foo"},
		},
		{
			name:  "Tagged without space",
			input: "Package:foo",
			want:  Line{Kind: KindTagged, Raw: "Package:foo", Text: "Package:foo", Tag: "Package", Value: "foo"},
		},
		{
			name:  "Tagged with trailing whitespace",
			input: "Version:\t 1.0  \r",
			want:  Line{Kind: KindTagged, Raw: "Version:\t 1.0  \r", Text: "Version:\t 1.0", Tag: "Version", Value: "1.0"},
		},
		{
			name:  "Tagged empty value",
			input: "Description:",
			want:  Line{Kind: KindTagged, Raw: "Description:", Text: "Description:", Tag: "Description"},
		},
		{
			name:  "Tagged value with colons",
			input: "Homepage: https://example.org:8080/",
			want: Line{
				Kind:  KindTagged,
				Raw:   "Homepage: https://example.org:8080/",
				Text:  "Homepage: https://example.org:8080/",
				Tag:   "Homepage",
				Value: "https://example.org:8080/",
			},
		},
		{
			name:  "Continuation containing colon",
			input: " Key: value",
			want:  Line{Kind: KindContinuation, Raw: " Key: value", Text: " Key: value"},
		},
		{
			name:  "Continuation with tab",
			input: "\tmore text ",
			want:  Line{Kind: KindContinuation, Raw: "\tmore text ", Text: "\tmore text"},
		},
		{
			name:  "Empty continuation marker",
			input: " .",
			want:  Line{Kind: KindContinuation, Raw: " .", Text: " .", Empty: true},
		},
		{
			name:  "Empty continuation marker with trailing space",
			input: "  . ",
			want:  Line{Kind: KindContinuation, Raw: "  . ", Text: "  .", Empty: true},
		},
		{
			name:  "Dot with text is not marker",
			input: " ..",
			want:  Line{Kind: KindContinuation, Raw: " ..", Text: " .."},
		},
		{
			name:  "No colon",
			input: "not a tagged line",
			want:  Line{Kind: KindMalformed, Raw: "not a tagged line", Text: "not a tagged line"},
		},
		{
			name:  "Leading colon",
			input: ":value",
			want:  Line{Kind: KindMalformed, Raw: ":value", Text: ":value"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestLineContent(t *testing.T) {
	l := Classify(" \t folded text  ")
	assert.Equal(t, "folded text", l.Content())
	assert.Equal(t, " \t folded text  ", l.rawContent())

	l = Classify("Key:  spaced  ")
	assert.Equal(t, "spaced", l.Value)
	assert.Equal(t, " spaced  ", l.rawValue())
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "blank", KindBlank.String())
	assert.Equal(t, "continuation", KindContinuation.String())
	assert.Equal(t, "tagged", KindTagged.String())
	assert.Equal(t, "malformed", KindMalformed.String())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", truncate("", 20))
	assert.Equal(t, "short", truncate("short", 20))
	assert.Equal(t, "abcde", truncate("abcdefgh", 5))
	assert.Equal(t, "ééé", truncate("éééé", 3))
}
