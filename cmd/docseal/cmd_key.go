package main

import (
	"flag"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/iov-one/docseal/crypto"
	"golang.org/x/crypto/ed25519"
)

func defaultKeyPath() string {
	return env("DOCSEAL_PRIV_KEY", os.Getenv("HOME")+"/.docseal.priv.key")
}

// keyFlag registers the -key flag shared by every command that acts on
// behalf of a user.
func keyFlag(fl *flag.FlagSet, role string) *string {
	return fl.String("key", defaultKeyPath(), fmt.Sprintf("Path to the %s. Defaults to DOCSEAL_PRIV_KEY when set.", role))
}

func cmdKeygen(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Create an ed25519 key and store it, raw, at the -key path. An existing file
is never replaced. The address of the new key is printed.
`)
		fl.PrintDefaults()
	}
	path := keyFlag(fl, "file the new key is written to")
	fl.Parse(args)

	if _, err := os.Stat(*path); err == nil {
		return fmt.Errorf("refusing to overwrite %q", *path)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot stat %q: %s", *path, err)
	}
	_, raw, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("generate key: %s", err)
	}
	if err := ioutil.WriteFile(*path, raw, 0600); err != nil {
		return fmt.Errorf("store key: %s", err)
	}
	return printAddress(output, &crypto.PrivateKey{Ed25519: raw})
}

func cmdKeyaddr(input io.Reader, output io.Writer, args []string) error {
	fl := flag.NewFlagSet("", flag.ExitOnError)
	fl.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), `
Print the address of a stored key.
`)
		fl.PrintDefaults()
	}
	path := keyFlag(fl, "key file")
	fl.Parse(args)

	key, err := loadKey(*path)
	if err != nil {
		return err
	}
	return printAddress(output, key)
}

func printAddress(w io.Writer, key *crypto.PrivateKey) error {
	_, err := fmt.Fprintln(w, key.PublicKey().Address())
	return err
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	raw, err := ioutil.ReadFile(path)
	switch {
	case err != nil:
		return nil, fmt.Errorf("load key: %s", err)
	case len(raw) != ed25519.PrivateKeySize:
		return nil, fmt.Errorf("%s: want %d key bytes, got %d", path, ed25519.PrivateKeySize, len(raw))
	}
	return &crypto.PrivateKey{Ed25519: raw}, nil
}
