package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"wagerchain/cmd/internal/passphrase"
	"wagerchain/crypto"
	"wagerchain/services/casinod/server"
)

const (
	keygenCommand  = "keygen"
	addressCommand = "address"
	tokenCommand   = "token"
	defaultPassEnv = "WAGER_AUTHORITY_PASS"
	defaultSecret  = "CASINOD_JWT_SECRET"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case keygenCommand:
		err = runKeygen(os.Args[2:])
	case addressCommand:
		err = runAddress(os.Args[2:])
	case tokenCommand:
		err = runToken(os.Args[2:])
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runKeygen(args []string) error {
	fs := flag.NewFlagSet(keygenCommand, flag.ExitOnError)
	out := fs.String("out", "authority.keystore", "Output path for the keystore file")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	light := fs.Bool("light", false, "Use light scrypt parameters (development only)")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	fs.Parse(args)

	if _, err := os.Stat(*out); err == nil && !*force {
		return fmt.Errorf("%s already exists (use -force to overwrite)", *out)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	pass, err := passphrase.NewSource(*passEnv, "Enter new keystore passphrase: ").Get()
	if err != nil {
		return err
	}
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return fmt.Errorf("generate key: %w", err)
	}
	strength := crypto.StandardScrypt
	if *light {
		strength = crypto.LightScrypt
	}
	if err := crypto.SaveKeyFile(*out, key, pass, strength); err != nil {
		return fmt.Errorf("save keystore: %w", err)
	}
	fmt.Printf("Keystore written to %s\n", *out)
	fmt.Printf("Identity: %s\n", key.PubKey().Address().String())
	return nil
}

func runAddress(args []string) error {
	fs := flag.NewFlagSet(addressCommand, flag.ExitOnError)
	keystore := fs.String("keystore", "authority.keystore", "Keystore file to inspect")
	label := fs.String("derive", "", "Print the identity derived from a label instead")
	fs.Parse(args)

	if strings.TrimSpace(*label) != "" {
		fmt.Println(crypto.FormatIdentity(crypto.DeriveIdentity(*label)))
		return nil
	}
	id, err := crypto.KeyFileIdentity(*keystore)
	if err != nil {
		return err
	}
	fmt.Println(crypto.FormatIdentity(id))
	return nil
}

// runToken mints a bearer token. Tokens for a keystore identity require the
// passphrase so only the key holder can act as the house authority.
func runToken(args []string) error {
	fs := flag.NewFlagSet(tokenCommand, flag.ExitOnError)
	identity := fs.String("identity", "", "Bech32 identity for the subject claim")
	keystore := fs.String("keystore", "", "Keystore whose identity becomes the subject")
	passEnv := fs.String("pass-env", defaultPassEnv, "Environment variable containing the keystore passphrase")
	secretEnv := fs.String("secret-env", defaultSecret, "Environment variable containing the HMAC secret")
	issuer := fs.String("issuer", "", "Issuer claim")
	audience := fs.String("audience", "", "Audience claim")
	ttl := fs.Duration("ttl", time.Hour, "Token lifetime")
	fs.Parse(args)

	var subject [20]byte
	switch {
	case *keystore != "":
		pass, err := passphrase.NewSource(*passEnv, "").Get()
		if err != nil {
			return err
		}
		key, err := crypto.LoadKeyFile(*keystore, pass)
		if err != nil {
			return fmt.Errorf("unlock keystore: %w", err)
		}
		subject = key.PubKey().Address().Identity()
	case *identity != "":
		id, err := crypto.ParseIdentity(*identity)
		if err != nil {
			return err
		}
		subject = id
	default:
		return errors.New("one of -identity or -keystore is required")
	}

	secret := strings.TrimSpace(os.Getenv(*secretEnv))
	if secret == "" {
		return fmt.Errorf("%s must be set", *secretEnv)
	}
	token, err := server.IssueToken(server.AuthConfig{HMACSecret: secret, Issuer: *issuer, Audience: *audience}, subject, *ttl, time.Now())
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: casinoctl <command> [options]\n\n")
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  %s   Generate an encrypted authority keystore\n", keygenCommand)
	fmt.Fprintf(os.Stderr, "  %s  Print the identity of a keystore or label\n", addressCommand)
	fmt.Fprintf(os.Stderr, "  %s    Mint an API bearer token\n", tokenCommand)
}
