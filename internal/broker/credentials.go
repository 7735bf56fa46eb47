package broker

import (
	"errors"
	"fmt"

	"terminal_bridge/internal/config"
)

// ErrUnknownCredential indicates a credential reference with no entry.
var ErrUnknownCredential = errors.New("unknown credential reference")

// CredentialStore resolves credential references to decrypted credentials.
// Everything is decrypted once at startup so a bad secret fails fast.
type CredentialStore struct {
	creds map[string]Credential
}

// NewCredentialStore decrypts the configured credentials. enc may be nil when
// no entry is encrypted. defaultServer fills entries without a server.
func NewCredentialStore(entries map[string]config.CredentialConfig, defaultServer string, enc *Encryptor) (*CredentialStore, error) {
	store := &CredentialStore{creds: make(map[string]Credential, len(entries))}

	for ref, entry := range entries {
		password := entry.Password
		if entry.PasswordEnc != "" {
			if enc == nil {
				return nil, fmt.Errorf("credential %q is encrypted but ENCRYPTION_SECRET is not set", ref)
			}
			plain, err := enc.DecryptString(entry.PasswordEnc, entry.Nonce, ref)
			if err != nil {
				return nil, fmt.Errorf("decrypting credential %q: %w", ref, err)
			}
			password = plain
		}

		server := entry.Server
		if server == "" {
			server = defaultServer
		}
		store.creds[ref] = Credential{Password: password, Server: server}
	}

	return store, nil
}

// Resolve returns the credential for a reference.
func (s *CredentialStore) Resolve(ref string) (Credential, error) {
	cred, ok := s.creds[ref]
	if !ok {
		return Credential{}, fmt.Errorf("%w: %q", ErrUnknownCredential, ref)
	}
	return cred, nil
}
