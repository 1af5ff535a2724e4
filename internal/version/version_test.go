package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		in      string
		want    Version
		wantErr bool
	}{
		{in: "1.2.0", want: Version{Major: 1, Minor: 2, Patch: 0, raw: "1.2.0"}},
		{in: "0.0.1", want: Version{Patch: 1, raw: "0.0.1"}},
		{in: "1.2.3.4", want: Version{Major: 1, Minor: 2, Patch: 3, Build: 4, raw: "1.2.3.4"}},
		{in: "10.20.30", want: Version{Major: 10, Minor: 20, Patch: 30, raw: "10.20.30"}},
		{in: "", wantErr: true},
		{in: "1", wantErr: true},
		{in: "1.2", wantErr: true},
		{in: "1.2.3.4.5", wantErr: true},
		{in: "1.2.x", wantErr: true},
		{in: "v1.2.3", wantErr: true},
		{in: "1.2.3-beta", wantErr: true},
		{in: "1..3", wantErr: true},
		{in: " 1.2.3", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := Parse(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.in, got.String())
		})
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1.2.0", "1.2.0", 0},
		{"1.2.0", "1.3.0", -1},
		{"1.3.0", "1.2.9", 1},
		{"2.0.0", "1.99.99", 1},
		{"1.2.3", "1.2.3.0", 0}, // absent build == 0
		{"1.2.3", "1.2.3.1", -1},
		{"1.2.3.2", "1.2.3.1", 1},
		{"0.9.0", "1.0.0", -1},
	}

	for _, tt := range tests {
		a, err := Parse(tt.a)
		require.NoError(t, err)
		b, err := Parse(tt.b)
		require.NoError(t, err)

		assert.Equal(t, tt.want, a.Compare(b), "%s vs %s", tt.a, tt.b)
		assert.Equal(t, tt.want <= 0, a.LessOrEqual(b))
	}
}
