package social

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStateManager_EncryptDecrypt(t *testing.T) {
	sm := NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("fedcba9876543210fedcba9876543210"),
		10*time.Minute,
	)

	state := &OAuthState{
		Provider:     "google",
		Next:         "/settings",
		CodeVerifier: "test-verifier",
	}

	encoded, err := sm.Encode(state)
	require.NoError(t, err)

	decoded, err := sm.Decode(encoded)
	require.NoError(t, err)

	assert.Equal(t, state.Provider, decoded.Provider)
	assert.Equal(t, state.Next, decoded.Next)
	assert.Equal(t, state.CodeVerifier, decoded.CodeVerifier)
	assert.NotEmpty(t, decoded.Nonce)
}

func TestStateManager_ExpiredState(t *testing.T) {
	sm := NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("fedcba9876543210fedcba9876543210"),
		-1*time.Minute,
	)

	encoded, err := sm.Encode(&OAuthState{Provider: "google"})
	require.NoError(t, err)

	_, err = sm.Decode(encoded)
	assert.ErrorIs(t, err, ErrStateExpired)
}

func TestStateManager_Tampered(t *testing.T) {
	sm := NewStateManagerFromSecret("secret", time.Minute)

	encoded, err := sm.Encode(&OAuthState{Provider: "google"})
	require.NoError(t, err)

	b := []byte(encoded)
	if b[10] == 'A' {
		b[10] = 'B'
	} else {
		b[10] = 'A'
	}
	tampered := string(b)

	_, err = sm.Decode(tampered)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = sm.Decode("not base64 !!")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStateManager_ForeignSecretRejected(t *testing.T) {
	encoded, err := NewStateManagerFromSecret("one", time.Minute).Encode(&OAuthState{Provider: "google"})
	require.NoError(t, err)

	_, err = NewStateManagerFromSecret("two", time.Minute).Decode(encoded)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestCodeChallengeIsURLSafe(t *testing.T) {
	verifier, err := GenerateCodeVerifier()
	require.NoError(t, err)

	challenge := CodeChallenge(verifier)
	assert.Len(t, challenge, 43)
	assert.False(t, strings.ContainsAny(challenge, "+/="))
}
