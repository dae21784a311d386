package main

import (
	"flag"
	"fmt"

	"github.com/sluiceworks/sluice/envseal"
	"github.com/sluiceworks/sluice/fs"
	billyfs "github.com/sluiceworks/sluice/fs/billy"
)

// keyFlags is the shared key material selection for seal, unseal, and
// keygen: either an existing key file, or a password with a salt file.
type keyFlags struct {
	keyFile  string
	password string
	saltFile string
}

func (k *keyFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&k.keyFile, "key-file", "", "file holding the encryption key")
	fs.StringVar(&k.password, "password", "", "password to derive the key from")
	fs.StringVar(&k.saltFile, "salt-file", "", "file holding the key derivation salt (created if absent)")
}

// resolve produces the key the flags describe. Password derivation reads
// the salt file, generating and saving a fresh salt when the file does
// not exist yet.
func (k *keyFlags) resolve(fsys fs.Filesystem) ([]byte, error) {
	switch {
	case k.keyFile != "" && k.password != "":
		return nil, usagef("-key-file and -password are mutually exclusive")

	case k.keyFile != "":
		key, err := envseal.LoadKey(fsys, hostPath(k.keyFile))
		if err != nil {
			return nil, fmt.Errorf("loading key file: %w", err)
		}
		return key, nil

	case k.password != "":
		if k.saltFile == "" {
			return nil, usagef("-password requires -salt-file")
		}
		salt, err := loadOrCreateSalt(fsys, hostPath(k.saltFile))
		if err != nil {
			return nil, err
		}
		return envseal.DeriveKey(k.password, salt)

	default:
		return nil, usagef("either -key-file or -password is required")
	}
}

func loadOrCreateSalt(fsys fs.Filesystem, path string) ([]byte, error) {
	exists, err := fsys.Exists(path)
	if err != nil {
		return nil, err
	}
	if exists {
		return fsys.ReadFile(path)
	}

	salt, err := envseal.GenerateSalt()
	if err != nil {
		return nil, err
	}
	if err := fsys.WriteFile(path, salt, 0o600); err != nil {
		return nil, fmt.Errorf("writing salt file: %w", err)
	}
	return salt, nil
}

func sealCommand(args []string) error {
	fs := flag.NewFlagSet("seal", flag.ExitOnError)
	in := fs.String("in", "", "env file to encrypt")
	out := fs.String("out", "", "output file (default: <in>.enc)")
	var keys keyFlags
	keys.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *in == "" {
		return usagef("-in is required")
	}
	if *out == "" {
		*out = envseal.SealedName(*in)
	}

	hostFS := billyfs.NewOSFS("/")
	key, err := keys.resolve(hostFS)
	if err != nil {
		return err
	}

	if err := envseal.EncryptFile(hostFS, hostPath(*in), hostPath(*out), key); err != nil {
		return err
	}

	fmt.Printf("sealed %s -> %s\n", *in, *out)
	return nil
}

func unsealCommand(args []string) error {
	fs := flag.NewFlagSet("unseal", flag.ExitOnError)
	in := fs.String("in", "", "sealed env file to decrypt")
	out := fs.String("out", "", "output file (default: <in> without its .enc suffix)")
	var keys keyFlags
	keys.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *in == "" {
		return usagef("-in is required")
	}
	if *out == "" {
		*out = envseal.UnsealedName(*in)
	}

	hostFS := billyfs.NewOSFS("/")
	key, err := keys.resolve(hostFS)
	if err != nil {
		return err
	}

	if err := envseal.DecryptFile(hostFS, hostPath(*in), hostPath(*out), key); err != nil {
		return err
	}

	fmt.Printf("unsealed %s -> %s\n", *in, *out)
	return nil
}

func keygenCommand(args []string) error {
	fs := flag.NewFlagSet("keygen", flag.ExitOnError)
	out := fs.String("out", "", "key file to write")
	var keys keyFlags
	keys.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" {
		return usagef("-out is required")
	}

	hostFS := billyfs.NewOSFS("/")

	var key []byte
	var err error
	if keys.password == "" && keys.keyFile == "" {
		key, err = envseal.GenerateKey()
	} else {
		key, err = keys.resolve(hostFS)
	}
	if err != nil {
		return err
	}

	if err := envseal.SaveKey(hostFS, hostPath(*out), key); err != nil {
		return err
	}

	fmt.Printf("wrote key file %s\n", *out)
	return nil
}
