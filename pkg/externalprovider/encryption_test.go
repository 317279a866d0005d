package externalprovider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptionService_RoundTrip(t *testing.T) {
	service, err := NewEncryptionService("test-encryption-key-32-chars!!")
	require.NoError(t, err)

	plaintext := "gh-secret-value"
	encrypted, err := service.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, encrypted)

	decrypted, err := service.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEncryptionService_EmptyStringPassesThrough(t *testing.T) {
	service, err := NewEncryptionService("test-encryption-key-32-chars!!")
	require.NoError(t, err)

	encrypted, err := service.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, encrypted)

	decrypted, err := service.Decrypt("")
	require.NoError(t, err)
	assert.Empty(t, decrypted)
}

func TestEncryptionService_NonceVariesPerCall(t *testing.T) {
	service, err := NewEncryptionService("test-encryption-key-32-chars!!")
	require.NoError(t, err)

	first, err := service.Encrypt("same-secret")
	require.NoError(t, err)
	second, err := service.Encrypt("same-secret")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestEncryptionService_WrongKeyFails(t *testing.T) {
	service, err := NewEncryptionService("test-encryption-key-32-chars!!")
	require.NoError(t, err)
	other, err := NewEncryptionService("a-different-key-entirely-here!")
	require.NoError(t, err)

	encrypted, err := service.Encrypt("gh-secret-value")
	require.NoError(t, err)

	_, err = other.Decrypt(encrypted)
	assert.Error(t, err)
}

func TestEncryptionService_RejectsShortKey(t *testing.T) {
	_, err := NewEncryptionService("too-short")
	assert.Error(t, err)
}

func TestEncryptionService_RejectsGarbage(t *testing.T) {
	service, err := NewEncryptionService("test-encryption-key-32-chars!!")
	require.NoError(t, err)

	_, err = service.Decrypt("not-base64!!!")
	assert.Error(t, err)

	_, err = service.Decrypt("c2hvcnQ=")
	assert.Error(t, err)
}
