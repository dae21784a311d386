package envseal

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billyfs "github.com/sluiceworks/sluice/fs/billy"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	salt, err := GenerateSalt()
	require.NoError(t, err)
	key, err := DeriveKey("correct horse battery staple", salt)
	require.NoError(t, err)
	return key
}

func TestDeriveKey(t *testing.T) {
	salt := []byte("0123456789abcdef")

	key1, err := DeriveKey("password", salt)
	require.NoError(t, err)
	assert.Len(t, key1, KeySize)

	// Same inputs derive the same key.
	key2, err := DeriveKey("password", salt)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	// A different salt derives a different key.
	key3, err := DeriveKey("password", []byte("fedcba9876543210"))
	require.NoError(t, err)
	assert.NotEqual(t, key1, key3)

	// A different password derives a different key.
	key4, err := DeriveKey("hunter2", salt)
	require.NoError(t, err)
	assert.NotEqual(t, key1, key4)
}

func TestDeriveKeyRejectsBadSalt(t *testing.T) {
	_, err := DeriveKey("password", []byte("short"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidSalt)

	_, err = DeriveKey("password", make([]byte, SaltSize+1))
	assert.ErrorIs(t, err, ErrInvalidSalt)
}

func TestGenerateSalt(t *testing.T) {
	salt1, err := GenerateSalt()
	require.NoError(t, err)
	assert.Len(t, salt1, SaltSize)

	salt2, err := GenerateSalt()
	require.NoError(t, err)
	assert.NotEqual(t, salt1, salt2)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("DB_PASSWORD=s3cret\nAPI_TOKEN=abc123\n")

	env, err := Encrypt(plaintext, key)
	require.NoError(t, err)

	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	require.NoError(t, err)
	assert.Len(t, nonce, NonceSize)

	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	require.NoError(t, err)
	assert.Len(t, tag, tagSize)

	got, err := Decrypt(env, key)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestEncryptEmptyPlaintext(t *testing.T) {
	key := testKey(t)

	env, err := Encrypt(nil, key)
	require.NoError(t, err)

	got, err := Decrypt(env, key)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestEncryptRejectsBadKey(t *testing.T) {
	_, err := Encrypt([]byte("data"), []byte("too-short"))
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestDecryptWrongKey(t *testing.T) {
	env, err := Encrypt([]byte("secret material"), testKey(t))
	require.NoError(t, err)

	otherKey, err := DeriveKey("wrong password", []byte("0123456789abcdef"))
	require.NoError(t, err)

	_, err = Decrypt(env, otherKey)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	key := testKey(t)
	env, err := Encrypt([]byte("secret material"), key)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	require.NoError(t, err)
	raw[0] ^= 0xff
	env.Ciphertext = base64.StdEncoding.EncodeToString(raw)

	_, err = Decrypt(env, key)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptTamperedTag(t *testing.T) {
	key := testKey(t)
	env, err := Encrypt([]byte("secret material"), key)
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(env.Tag)
	require.NoError(t, err)
	raw[0] ^= 0xff
	env.Tag = base64.StdEncoding.EncodeToString(raw)

	_, err = Decrypt(env, key)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestDecryptMalformedEnvelope(t *testing.T) {
	key := testKey(t)

	_, err := Decrypt(&Envelope{Ciphertext: "not base64!", Nonce: "", Tag: ""}, key)
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = Decrypt(&Envelope{
		Ciphertext: base64.StdEncoding.EncodeToString([]byte("x")),
		Nonce:      base64.StdEncoding.EncodeToString([]byte("short")),
		Tag:        base64.StdEncoding.EncodeToString(make([]byte, tagSize)),
	}, key)
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestUnmarshalEnvelope(t *testing.T) {
	env, err := UnmarshalEnvelope([]byte(`{"ciphertext":"YQ==","nonce":"Yg==","tag":"Yw=="}`))
	require.NoError(t, err)
	assert.Equal(t, "YQ==", env.Ciphertext)

	_, err = UnmarshalEnvelope([]byte(`not json`))
	assert.ErrorIs(t, err, ErrDecrypt)

	_, err = UnmarshalEnvelope([]byte(`{}`))
	assert.ErrorIs(t, err, ErrDecrypt)
}

func TestFileRoundTrip(t *testing.T) {
	fsys := billyfs.NewInMemoryFS()
	key := testKey(t)

	plaintext := []byte("TOKEN=tok_123\n")
	require.NoError(t, fsys.WriteFile(".env", plaintext, 0o600))

	require.NoError(t, EncryptFile(fsys, ".env", ".env.enc", key))

	// The sealed file is a JSON envelope, not the plaintext.
	sealed, err := fsys.ReadFile(".env.enc")
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "tok_123")
	_, err = UnmarshalEnvelope(sealed)
	require.NoError(t, err)

	require.NoError(t, DecryptFile(fsys, ".env.enc", ".env.out", key))
	got, err := fsys.ReadFile(".env.out")
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestKeyFileRoundTrip(t *testing.T) {
	fsys := billyfs.NewInMemoryFS()
	key := testKey(t)

	require.NoError(t, SaveKey(fsys, "sluice.key", key))

	got, err := LoadKey(fsys, "sluice.key")
	require.NoError(t, err)
	assert.Equal(t, key, got)
}

func TestLoadKeyRejectsBadSize(t *testing.T) {
	fsys := billyfs.NewInMemoryFS()
	require.NoError(t, fsys.WriteFile("bad.key", []byte("short"), 0o600))

	_, err := LoadKey(fsys, "bad.key")
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestSealedAndUnsealedNames(t *testing.T) {
	assert.Equal(t, ".env.enc", SealedName(".env"))
	assert.Equal(t, ".env", UnsealedName(".env.enc"))
	assert.Equal(t, "plain.out", UnsealedName("plain"))
}
