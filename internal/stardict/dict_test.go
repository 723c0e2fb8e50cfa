// Copyright 2021 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package stardict

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/youginil/beluga/internal/testutil"
)

func TestDecodeArticle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name             string
		data             []*testutil.Data
		sametypesequence string
		want             []*Data
	}{
		{
			name: "single text",
			data: []*testutil.Data{
				{Type: 'm', Data: []byte("hoge")},
			},
			want: []*Data{
				{Type: UTFTextType, Data: []byte("hoge")},
			},
		},
		{
			name: "mixed types",
			data: []*testutil.Data{
				{Type: 't', Data: []byte("hɒɡe")},
				{Type: 'P', Data: []byte{0x89, 'P', 'N', 'G'}},
				{Type: 'h', Data: []byte("<b>hoge</b>")},
			},
			want: []*Data{
				{Type: PhoneticType, Data: []byte("hɒɡe")},
				{Type: PictureType, Data: []byte{0x89, 'P', 'N', 'G'}},
				{Type: HTMLType, Data: []byte("<b>hoge</b>")},
			},
		},
		{
			name: "sametypesequence",
			data: []*testutil.Data{
				{Type: 't', Data: []byte("fuga")},
				{Type: 'm', Data: []byte("piyo")},
			},
			sametypesequence: "tm",
			want: []*Data{
				{Type: PhoneticType, Data: []byte("fuga")},
				{Type: UTFTextType, Data: []byte("piyo")},
			},
		},
		{
			name: "sametypesequence file last",
			data: []*testutil.Data{
				{Type: 'm', Data: []byte("fuga")},
				{Type: 'W', Data: []byte("RIFF")},
			},
			sametypesequence: "mW",
			want: []*Data{
				{Type: UTFTextType, Data: []byte("fuga")},
				{Type: WavType, Data: []byte("RIFF")},
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			b := testutil.MakeArticle(t, test.data, test.sametypesequence)
			var sts []DataType
			for _, r := range test.sametypesequence {
				sts = append(sts, DataType(r))
			}
			got, err := decodeArticle(b, sts)
			if err != nil {
				t.Fatalf("decodeArticle: %v", err)
			}
			if diff := cmp.Diff(test.want, got); diff != "" {
				t.Fatalf("decodeArticle (-want, +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeArticle_errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		err  error
	}{
		{
			name: "invalid type",
			data: []byte{'Z', 'a', 0},
			err:  errInvalidType,
		},
		{
			name: "short size",
			data: []byte{'P', 0, 0},
			err:  errTruncatedArticle,
		},
		{
			name: "short data",
			data: []byte{'P', 0, 0, 0, 9, 'a'},
			err:  errTruncatedArticle,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if _, err := decodeArticle(test.data, nil); !errors.Is(err, test.err) {
				t.Fatalf("decodeArticle: want error %v, got %v", test.err, err)
			}
		})
	}
}

func TestData_String(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data *Data
		want string
	}{
		{
			name: "text",
			data: &Data{Type: UTFTextType, Data: []byte("plain")},
			want: "plain",
		},
		{
			name: "html",
			data: &Data{Type: HTMLType, Data: []byte("<b>bold</b> text")},
			want: "bold text",
		},
		{
			name: "binary",
			data: &Data{Type: WavType, Data: []byte("RIFF")},
			want: "",
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			if diff := cmp.Diff(test.want, test.data.String()); diff != "" {
				t.Fatalf("String (-want, +got):\n%s", diff)
			}
		})
	}
}
