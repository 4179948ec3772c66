package certificate

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSigner(t *testing.T) {
	_, err := NewSigner("")
	assert.Error(t, err)
}

func TestSigner_TokenVerify(t *testing.T) {
	signer, err := NewSigner("secret")
	require.NoError(t, err)
	signer.nowFunc = func() time.Time { return time.Date(2021, time.March, 1, 12, 30, 15, 500, time.UTC) }

	cert := signer.Issue("U1", "C1", 87.5)
	assert.NotEmpty(t, cert.ID)
	assert.Equal(t, time.Date(2021, time.March, 1, 12, 30, 15, 0, time.UTC), cert.IssuedAt)

	validToken, err := signer.Token(cert)
	require.NoError(t, err)

	other, err := NewSigner("other secret")
	require.NoError(t, err)
	foreignToken, err := other.Token(cert)
	require.NoError(t, err)

	parts := strings.SplitN(validToken, ".", 2)
	forged := cert
	forged.Score = 100
	forgedPayload, err := signer.Token(forged)
	require.NoError(t, err)
	tamperedToken := strings.SplitN(forgedPayload, ".", 2)[0] + "." + parts[1]

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{name: "no token", wantErr: ErrInvalidToken},
		{name: "invalid parts len", token: "lmaooolol", wantErr: ErrInvalidToken},
		{name: "invalid signature", token: parts[0] + ".sigsig", wantErr: ErrInvalidToken},
		{name: "tampered payload", token: tamperedToken, wantErr: ErrInvalidToken},
		{name: "foreign key", token: foreignToken, wantErr: ErrInvalidToken},
		{name: "valid token", token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := signer.Verify(tt.token)
			if tt.wantErr != nil {
				assert.Equal(t, tt.wantErr, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, cert, got)
		})
	}
}
