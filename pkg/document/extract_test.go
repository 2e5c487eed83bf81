package document

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		want    string
		wantErr error
	}{
		{
			name: "plain text passes through normalized",
			data: []byte("Jane Doe  \r\nBackend Engineer\r\n\r\n\r\nGo, Postgres\n"),
			want: "Jane Doe\nBackend Engineer\n\nGo, Postgres",
		},
		{
			name:    "empty",
			data:    []byte("   \n"),
			wantErr: ErrEmpty,
		},
		{
			name:    "binary is unsupported",
			data:    []byte{0xff, 0xfe, 0x00, 0x81},
			wantErr: ErrUnsupported,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractText(tt.data)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractTextCorruptPDF(t *testing.T) {
	_, err := ExtractText([]byte("%PDF-1.4\nthis is not a real pdf"))
	assert.Error(t, err)
}
