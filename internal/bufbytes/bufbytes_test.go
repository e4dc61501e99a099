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

package bufbytes

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBufBytesWrite(t *testing.T) {
	tests := []struct {
		name     string
		size     int
		inputs   []string
		expected []byte
		failed   int
	}{
		{
			name:     "Empty write",
			size:     10,
			inputs:   []string{},
			expected: nil,
		},
		{
			name:     "Single fit",
			size:     5,
			inputs:   []string{"hello"},
			expected: []byte("hello"),
		},
		{
			name:     "Unlimited",
			size:     0,
			inputs:   []string{"hello", "world", "!"},
			expected: []byte("helloworld!"),
		},
		{
			name:     "Single write exceeds capacity",
			size:     5,
			inputs:   []string{"helloworld"},
			expected: nil,
			failed:   1,
		},
		{
			name:     "Multiple inputs within capacity",
			size:     10,
			inputs:   []string{"hello", "world"},
			expected: []byte("helloworld"),
		},
		{
			name:     "Multiple inputs exceed capacity",
			size:     8,
			inputs:   []string{"hello", "world", "foo"},
			expected: []byte("hellofoo"),
			failed:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New(tt.size)
			var failed int
			for _, input := range tt.inputs {
				if err := b.Write([]byte(input)); err != nil {
					assert.ErrorIs(t, err, ErrExceeded)
					failed++
				}
			}
			assert.Equal(t, tt.expected, b.buf)
			assert.Equal(t, tt.failed, failed)
		})
	}
}

func TestBufBytesReset(t *testing.T) {
	b := New(4)
	assert.NoError(t, b.WriteString("abcd"))
	assert.ErrorIs(t, b.WriteByte('e'), ErrExceeded)
	assert.Equal(t, "abcd", b.Text())

	b.Reset()
	assert.Equal(t, 0, b.Len())
	assert.NoError(t, b.WriteByte('x'))
	assert.Equal(t, "x", b.Text())
	assert.Equal(t, 4, b.Size())
}
