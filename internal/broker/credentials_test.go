package broker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"terminal_bridge/internal/config"
)

func TestCredentialStore_Resolve(t *testing.T) {
	enc, err := NewEncryptor("this-is-a-valid-32-character-key")
	require.NoError(t, err)

	ciphertext, nonce, err := enc.EncryptString("s3cret", "shared")
	require.NoError(t, err)

	store, err := NewCredentialStore(map[string]config.CredentialConfig{
		"shared": {PasswordEnc: ciphertext, Nonce: nonce},
		"other":  {Password: "plain", Server: "Other-Server"},
	}, "Main-Server", enc)
	require.NoError(t, err)

	cred, err := store.Resolve("shared")
	require.NoError(t, err)
	assert.Equal(t, Credential{Password: "s3cret", Server: "Main-Server"}, cred)

	cred, err = store.Resolve("other")
	require.NoError(t, err)
	assert.Equal(t, "Other-Server", cred.Server)

	_, err = store.Resolve("missing")
	assert.True(t, errors.Is(err, ErrUnknownCredential))
}

func TestCredentialStore_EncryptedWithoutSecret(t *testing.T) {
	_, err := NewCredentialStore(map[string]config.CredentialConfig{
		"shared": {PasswordEnc: "AAAA", Nonce: "AAAA"},
	}, "", nil)
	assert.ErrorContains(t, err, "ENCRYPTION_SECRET")
}

func TestCredentialStore_WrongSecret(t *testing.T) {
	enc1, _ := NewEncryptor("this-is-a-valid-32-character-key")
	enc2, _ := NewEncryptor("another-valid-32-character-key!!")

	ciphertext, nonce, _ := enc1.EncryptString("s3cret", "shared")

	_, err := NewCredentialStore(map[string]config.CredentialConfig{
		"shared": {PasswordEnc: ciphertext, Nonce: nonce},
	}, "", enc2)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDealNames(t *testing.T) {
	assert.Equal(t, "buy", DealTypeName(DealTypeBuy))
	assert.Equal(t, "balance", DealTypeName(DealTypeBalance))
	assert.Equal(t, "other", DealTypeName(99))
	assert.Equal(t, "out", DealEntryName(DealEntryOut))
	assert.Equal(t, "unknown", DealEntryName(-1))
}
