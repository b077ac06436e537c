package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6a1b2c3d4e5f6a7b8c9d0e1f2a3b4c5d6"

func newTestVault(t *testing.T) *Vault {
	v, err := NewVault(testKey, "hmac-secret")
	require.NoError(t, err)
	return v
}

func TestVault_SealOpen(t *testing.T) {
	v := newTestVault(t)

	encPAN, encAadhaar, tag, err := v.Seal("ABCDE1234F", "123412341234")
	require.NoError(t, err)
	assert.NotContains(t, encPAN, "ABCDE1234F")
	assert.NotEqual(t, "123412341234", encAadhaar)

	pan, aadhaar, err := v.Open(encPAN, encAadhaar, tag)
	require.NoError(t, err)
	assert.Equal(t, "ABCDE1234F", pan)
	assert.Equal(t, "123412341234", aadhaar)
}

func TestVault_EncryptIsRandomized(t *testing.T) {
	v := newTestVault(t)

	a, err := v.Encrypt("ABCDE1234F")
	require.NoError(t, err)
	b, err := v.Encrypt("ABCDE1234F")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestVault_TamperDetected(t *testing.T) {
	v := newTestVault(t)

	encPAN, encAadhaar, _, err := v.Seal("ABCDE1234F", "123412341234")
	require.NoError(t, err)

	_, _, err = v.Open(encPAN, encAadhaar, v.Tag("ZZZZZ9999Z", "123412341234"))
	assert.ErrorIs(t, err, ErrIntegrity)

	tampered := []byte(encPAN)
	if tampered[len(tampered)-1] == '0' {
		tampered[len(tampered)-1] = '1'
	} else {
		tampered[len(tampered)-1] = '0'
	}
	_, err = v.Decrypt(string(tampered))
	assert.Error(t, err)
}

func TestVault_EmptyValues(t *testing.T) {
	v := newTestVault(t)

	encPAN, encAadhaar, tag, err := v.Seal("", "")
	require.NoError(t, err)
	assert.Empty(t, encPAN)
	assert.Empty(t, encAadhaar)

	pan, aadhaar, err := v.Open(encPAN, encAadhaar, tag)
	require.NoError(t, err)
	assert.Empty(t, pan)
	assert.Empty(t, aadhaar)
}

func TestNewVault_InvalidKey(t *testing.T) {
	_, err := NewVault("not-hex", "s")
	assert.Error(t, err)

	_, err = NewVault("a1b2", "s")
	assert.Error(t, err)

	_, err = NewVault(testKey, "")
	assert.Error(t, err)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "XXXXXX234F", Mask("ABCDE1234F"))
	assert.Equal(t, "XXXXXXXX1234", Mask("123412341234"))
	assert.Equal(t, "12", Mask("12"))
}
