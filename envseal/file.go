package envseal

import (
	"fmt"
	"strings"

	"github.com/sluiceworks/sluice/fs"
)

// EncryptFile seals the contents of inputPath under key and writes the JSON
// envelope to outputPath.
func EncryptFile(fsys fs.Filesystem, inputPath, outputPath string, key []byte) error {
	data, err := fsys.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrEncrypt, inputPath, err)
	}

	env, err := Encrypt(data, key)
	if err != nil {
		return err
	}

	out, err := MarshalEnvelope(env)
	if err != nil {
		return err
	}

	if err := fsys.WriteFile(outputPath, out, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrEncrypt, outputPath, err)
	}
	return nil
}

// DecryptFile opens the JSON envelope at inputPath under key and writes the
// plaintext to outputPath.
func DecryptFile(fsys fs.Filesystem, inputPath, outputPath string, key []byte) error {
	plaintext, err := DecryptFileBytes(fsys, inputPath, key)
	if err != nil {
		return err
	}

	if err := fsys.WriteFile(outputPath, plaintext, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %w", ErrDecrypt, outputPath, err)
	}
	return nil
}

// DecryptFileBytes opens the JSON envelope at inputPath under key and
// returns the plaintext without writing it anywhere. Callers that feed
// secrets straight into a process environment use this to keep plaintext
// off disk.
func DecryptFileBytes(fsys fs.Filesystem, inputPath string, key []byte) ([]byte, error) {
	data, err := fsys.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrDecrypt, inputPath, err)
	}

	env, err := UnmarshalEnvelope(data)
	if err != nil {
		return nil, err
	}
	return Decrypt(env, key)
}

// LoadKey reads a raw AES-256 key from a key file. Key files produced by
// SaveKey hold exactly the key bytes with no encoding.
func LoadKey(fsys fs.Filesystem, path string) ([]byte, error) {
	key, err := fsys.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read key file %s: %w", ErrInvalidKey, path, err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: key file %s holds %d bytes, expected %d", ErrInvalidKey, path, len(key), KeySize)
	}
	return key, nil
}

// SaveKey writes a raw AES-256 key to a key file with owner-only
// permissions.
func SaveKey(fsys fs.Filesystem, path string, key []byte) error {
	if len(key) != KeySize {
		return fmt.Errorf("%w: expected %d-byte key, got %d", ErrInvalidKey, KeySize, len(key))
	}
	if err := fsys.WriteFile(path, key, 0o600); err != nil {
		return fmt.Errorf("%w: write key file %s: %w", ErrInvalidKey, path, err)
	}
	return nil
}

// SealedName returns the conventional output name for a sealed file:
// the input name with an ".enc" suffix appended.
func SealedName(path string) string {
	return path + ".enc"
}

// UnsealedName returns the conventional output name for an unsealed file:
// the input name with a trailing ".enc" removed. Inputs without the suffix
// gain a ".out" suffix instead so the source is never overwritten silently.
func UnsealedName(path string) string {
	if strings.HasSuffix(path, ".enc") {
		return strings.TrimSuffix(path, ".enc")
	}
	return path + ".out"
}
