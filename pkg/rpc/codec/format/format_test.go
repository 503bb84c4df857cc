package format

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestNewFormat(t *testing.T) {
	type fields struct {
		code uint8
	}
	tests := []struct {
		name        string
		fields      fields
		want        string
		wantSubtype string
		wantValid   bool
	}{
		{
			name:        "FlatBuffer",
			fields:      fields{code: flatBuffer},
			want:        "FlatBuffer",
			wantSubtype: "flatbuffers",
			wantValid:   true,
		},
		{
			name:        "ProtoBuffer",
			fields:      fields{code: protoBuffer},
			want:        "ProtoBuffer",
			wantSubtype: "proto",
			wantValid:   true,
		},
		{
			name:        "JSON",
			fields:      fields{code: json},
			want:        "JSON",
			wantSubtype: "json",
			wantValid:   true,
		},
		{
			name:   "Unknown",
			fields: fields{code: unknown},
			want:   "Unknown",
		},
		{
			name:   "Unknown code",
			fields: fields{code: 42},
			want:   "Unknown",
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			f := NewFormat(tt.fields.code)

			re.Equal(tt.want, f.String())
			re.Equal(tt.wantSubtype, f.ContentSubtype())
			re.Equal(tt.wantValid, f.Valid())
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Format
		wantErr bool
	}{
		{name: "flatbuffer", in: "flatbuffer", want: FlatBuffer()},
		{name: "upper case", in: "FlatBuffer", want: FlatBuffer()},
		{name: "proto", in: "proto", want: ProtoBuffer()},
		{name: "protobuffer with spaces", in: " protobuffer ", want: ProtoBuffer()},
		{name: "json", in: "JSON", want: JSON()},
		{name: "empty", in: "", want: NewFormat(0), wantErr: true},
		{name: "unknown", in: "xml", want: NewFormat(0), wantErr: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			re := require.New(t)

			got, err := Parse(tt.in)
			if tt.wantErr {
				re.ErrorContains(err, "unknown format")
			} else {
				re.NoError(err)
			}
			re.Equal(tt.want, got)
		})
	}
}
