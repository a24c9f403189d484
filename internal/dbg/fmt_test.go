// Copyright 2025 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package dbg_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nyuiela/sub0cre-sub000/internal/dbg"
)

func TestDict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		prefix any
		kv     []any
		want   string
	}{
		{kv: nil, want: "{}"},
		{prefix: "field", kv: []any{"number", 1, "type", "varint"}, want: "field{number: 1, type: varint}"},
		{prefix: "x", kv: []any{"a", nil, "b", 2}, want: "x{b: 2}"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, fmt.Sprint(dbg.Dict(tt.prefix, tt.kv...)))
	}
}

func TestFprintf(t *testing.T) {
	t.Parallel()

	calls := 0
	f := dbg.Formatter(func(s fmt.State) {
		calls++
		fmt.Fprint(s, "ok")
	})
	lazy := dbg.Fprintf("value %v", f)
	assert.Equal(t, 0, calls)
	assert.Equal(t, "value ok", lazy.String())
	assert.Equal(t, 1, calls)
	assert.Equal(t, "%!d(dbg.Formatter)", fmt.Sprintf("%d", lazy))
}
