// Package hostkey loads or generates the SSH server's persistent host key.
package hostkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"

	"golang.org/x/crypto/ssh"
)

// LoadOrGenerate reads an ed25519 private key from path and parses it as an
// SSH signer. If the file does not exist, a new key is generated and
// persisted to path (mode 0600) before being returned.
func LoadOrGenerate(path string) (ssh.Signer, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		signer, err := ssh.ParsePrivateKey(data)
		if err != nil {
			return nil, fmt.Errorf("parse host key %s: %w", path, err)
		}
		return signer, nil
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read host key %s: %w", path, err)
	}

	signer, pemBytes, err := generate()
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}

	if err := os.WriteFile(path, pemBytes, 0o600); err != nil {
		return nil, fmt.Errorf("persist host key %s: %w", path, err)
	}

	return signer, nil
}

func generate() (ssh.Signer, []byte, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	der, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return nil, nil, err
	}

	block := &pem.Block{Type: "PRIVATE KEY", Bytes: der}
	pemBytes := pem.EncodeToMemory(block)

	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, nil, err
	}

	_ = pub // the public key is derivable from the signer; not persisted separately
	return signer, pemBytes, nil
}
