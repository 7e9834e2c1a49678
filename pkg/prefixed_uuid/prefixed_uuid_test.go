package prefixed_uuid //nolint:revive // var-naming: using underscores for domain clarity

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	p := New("session")
	assert.Equal(t, "session", p.Prefix)
	assert.NotEqual(t, uuid.Nil, p.UUID)
	assert.False(t, p.IsZero())
	assert.Equal(t, "session-"+p.UUID.String(), p.String())
}

func TestFromString(t *testing.T) {
	tests := []struct {
		name       string
		input      string
		wantPrefix string
		wantUUID   string
		wantErr    bool
	}{
		{
			name:       "valid prefix",
			input:      "session-123e4567-e89b-12d3-a456-426614174000",
			wantPrefix: "session",
			wantUUID:   "123e4567-e89b-12d3-a456-426614174000",
		},
		{
			name:       "underscore prefix",
			input:      "chat_session-123e4567-e89b-12d3-a456-426614174000",
			wantPrefix: "chat_session",
			wantUUID:   "123e4567-e89b-12d3-a456-426614174000",
		},
		{name: "missing dash separator", input: "session123e4567e89b12d3a456426614174000", wantErr: true},
		{name: "invalid UUID", input: "session-not-a-valid-uuid", wantErr: true},
		{name: "empty string", input: "", wantErr: true},
		{name: "offline client id", input: "offline_1712345678901", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FromString(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPrefix, got.Prefix)
			assert.Equal(t, tt.wantUUID, got.UUID.String())
		})
	}
}

func TestParse(t *testing.T) {
	id := New("session").String()

	_, err := Parse("session", id)
	assert.NoError(t, err)

	_, err = Parse("user", id)
	assert.Error(t, err)
}

func TestJSON(t *testing.T) {
	type payload struct {
		ID PrefixedUUID `json:"id"`
	}
	in := payload{ID: New("session")}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"`+in.ID.String()+`"}`, string(data))

	var out payload
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.ID, out.ID)

	assert.Error(t, json.Unmarshal([]byte(`{"id":42}`), &out))
}
