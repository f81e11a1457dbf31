package crypto

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/google/uuid"
)

var (
	errNilKey       = errors.New("crypto: nil private key")
	errEmptyPath    = errors.New("crypto: empty keystore path")
	errKeystoreAddr = errors.New("crypto: keystore address mismatch")
)

// ScryptStrength selects the key derivation cost for an encrypted key file.
type ScryptStrength int

const (
	// StandardScrypt matches the go-ethereum defaults.
	StandardScrypt ScryptStrength = iota
	// LightScrypt is cheap enough for tests and throwaway dev keys.
	LightScrypt
)

func (s ScryptStrength) params() (int, int) {
	if s == LightScrypt {
		return keystore.LightScryptN, keystore.LightScryptP
	}
	return keystore.StandardScryptN, keystore.StandardScryptP
}

// SaveKeyFile encrypts key into a v3 key file at path. The file is written
// next to its destination and renamed into place.
func SaveKeyFile(path string, key *PrivateKey, passphrase string, strength ScryptStrength) error {
	if key == nil {
		return errNilKey
	}
	if path == "" {
		return errEmptyPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	id, err := uuid.NewRandom()
	if err != nil {
		return err
	}
	n, p := strength.params()
	encrypted, err := keystore.EncryptKey(&keystore.Key{
		Id:         id,
		Address:    ethAddress(key),
		PrivateKey: key.PrivateKey,
	}, passphrase, n, p)
	if err != nil {
		return fmt.Errorf("crypto: encrypt key: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, encrypted, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// LoadKeyFile decrypts a v3 key file and checks the embedded address.
func LoadKeyFile(path, passphrase string) (*PrivateKey, error) {
	if path == "" {
		return nil, errEmptyPath
	}
	keyJSON, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	decrypted, err := keystore.DecryptKey(keyJSON, passphrase)
	if err != nil {
		return nil, err
	}
	key := &PrivateKey{PrivateKey: decrypted.PrivateKey}
	if decrypted.Address != ethAddress(key) {
		return nil, errKeystoreAddr
	}
	return key, nil
}

// KeyFileIdentity reads the plaintext address from a key file without
// decrypting it.
func KeyFileIdentity(path string) ([20]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return [20]byte{}, err
	}
	var header struct {
		Address string `json:"address"`
	}
	if err := json.Unmarshal(raw, &header); err != nil {
		return [20]byte{}, fmt.Errorf("crypto: parse key file: %w", err)
	}
	decoded, err := decodeHexIdentity(header.Address)
	if err != nil {
		return [20]byte{}, err
	}
	return decoded, nil
}
