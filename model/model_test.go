/*
Copyright 2024 Sureboda Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateUUIDWithSuffix(t *testing.T) {
	id := GenerateUUIDWithSuffix("dlv")
	assert.True(t, strings.HasPrefix(id, "dlv_"))
	assert.NotEqual(t, id, GenerateUUIDWithSuffix("dlv"))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "local format with leading zero", input: "0712345678", want: "254712345678"},
		{name: "already international", input: "254712345678", want: "254712345678"},
		{name: "international with plus", input: "+254712345678", want: "254712345678"},
		{name: "bare subscriber number", input: "712345678", want: "254712345678"},
		{name: "surrounding whitespace", input: " 0712345678 ", want: "254712345678"},
		{name: "empty", input: "", wantErr: true},
		{name: "only plus", input: "+", wantErr: true},
		{name: "letters", input: "07123A5678", wantErr: true},
		{name: "spaces inside", input: "0712 345 678", wantErr: true},
		{name: "too short", input: "0712345", wantErr: true},
		{name: "too long", input: "07123456789012", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePhone(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmountFromValue(t *testing.T) {
	tests := []struct {
		name    string
		input   interface{}
		want    int64
		wantErr bool
	}{
		{name: "float from json number", input: float64(150), want: 150},
		{name: "float with decimals truncates", input: float64(150.75), want: 150},
		{name: "int64", input: int64(99), want: 99},
		{name: "int", input: 42, want: 42},
		{name: "numeric string", input: "1500", want: 1500},
		{name: "decimal string", input: "1500.00", want: 1500},
		{name: "non numeric string", input: "abc", wantErr: true},
		{name: "unsupported type", input: []string{"150"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := AmountFromValue(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
