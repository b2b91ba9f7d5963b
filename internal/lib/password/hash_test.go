package password

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetHash_RoundTrip(t *testing.T) {
	for _, pw := range []string{"password123", "p@ssw0rd!@#$%^&*()", "short", "пароль-кириллицей"} {
		t.Run(pw, func(t *testing.T) {
			hash, err := GetHash(pw)
			require.NoError(t, err)
			assert.NotEqual(t, pw, hash)
			assert.NoError(t, CompareHash(hash, pw))
		})
	}
}

func TestCompareHash(t *testing.T) {
	correctHash, err := GetHash("correct_password")
	require.NoError(t, err)

	tests := []struct {
		name         string
		hash         string
		password     string
		wantMismatch bool
		wantErr      bool
	}{
		{name: "matching password", hash: correctHash, password: "correct_password"},
		{name: "wrong password", hash: correctHash, password: "wrong_password", wantMismatch: true, wantErr: true},
		{name: "empty password", hash: correctHash, password: "", wantMismatch: true, wantErr: true},
		{name: "garbage hash", hash: "not-a-hash", password: "correct_password", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CompareHash(tt.hash, tt.password)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantMismatch, errors.Is(err, ErrMismatch))
		})
	}
}
