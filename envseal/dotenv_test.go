package envseal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	billyfs "github.com/sluiceworks/sluice/fs/billy"
)

func TestParseEnv(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Var
	}{
		{
			name:  "simple pairs",
			input: "FOO=bar\nBAZ=qux\n",
			want:  []Var{{"FOO", "bar"}, {"BAZ", "qux"}},
		},
		{
			name:  "comments and blanks skipped",
			input: "# header\n\nFOO=bar\n   \n# trailing\n",
			want:  []Var{{"FOO", "bar"}},
		},
		{
			name:  "export prefix",
			input: "export FOO=bar\n",
			want:  []Var{{"FOO", "bar"}},
		},
		{
			name:  "empty value",
			input: "FOO=\n",
			want:  []Var{{"FOO", ""}},
		},
		{
			name:  "single quotes are literal",
			input: `FOO='a "b" \n c'`,
			want:  []Var{{"FOO", `a "b" \n c`}},
		},
		{
			name:  "double quotes unescape",
			input: `FOO="line1\nline2\t\"quoted\""`,
			want:  []Var{{"FOO", "line1\nline2\t\"quoted\""}},
		},
		{
			name:  "inline comment on unquoted value",
			input: "FOO=bar # not part of the value\n",
			want:  []Var{{"FOO", "bar"}},
		},
		{
			name:  "hash inside quotes kept",
			input: `FOO="bar # still value"`,
			want:  []Var{{"FOO", "bar # still value"}},
		},
		{
			name:  "value containing equals",
			input: "DSN=postgres://u:p@h/db?sslmode=disable\n",
			want:  []Var{{"DSN", "postgres://u:p@h/db?sslmode=disable"}},
		},
		{
			name:  "order preserved",
			input: "B=2\nA=1\nC=3\n",
			want:  []Var{{"B", "2"}, {"A", "1"}, {"C", "3"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseEnv([]byte(tt.input))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseEnvErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{name: "missing equals", input: "JUST_A_KEY\n"},
		{name: "invalid key", input: "1BAD=value\n"},
		{name: "key with spaces", input: "BAD KEY=value\n"},
		{name: "unterminated double quote", input: `FOO="oops`},
		{name: "unterminated single quote", input: `FOO='oops`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseEnv([]byte(tt.input))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedEnv)
		})
	}
}

func TestOpenEnvFile(t *testing.T) {
	fsys := billyfs.NewInMemoryFS()
	key := testKey(t)

	plaintext := "# sealed secrets\nDB_PASSWORD=s3cret\nAPI_TOKEN=abc123\n"
	require.NoError(t, fsys.WriteFile(".env", []byte(plaintext), 0o600))
	require.NoError(t, EncryptFile(fsys, ".env", ".env.enc", key))

	vars, err := OpenEnvFile(fsys, ".env.enc", key)
	require.NoError(t, err)
	assert.Equal(t, []Var{
		{"DB_PASSWORD", "s3cret"},
		{"API_TOKEN", "abc123"},
	}, vars)
}

func TestOpenEnvFileWrongKey(t *testing.T) {
	fsys := billyfs.NewInMemoryFS()
	key := testKey(t)

	require.NoError(t, fsys.WriteFile(".env", []byte("A=1\n"), 0o600))
	require.NoError(t, EncryptFile(fsys, ".env", ".env.enc", key))

	other, err := DeriveKey("other", []byte("0123456789abcdef"))
	require.NoError(t, err)

	_, err = OpenEnvFile(fsys, ".env.enc", other)
	assert.ErrorIs(t, err, ErrDecrypt)
}
