package credentials

import (
	"os"
	"strings"
	"time"
)

const envPrefix = "MEDIAGATE_CREDENTIAL_"

// EnvironmentStore is read-only. A credential named foo is read from
// MEDIAGATE_CREDENTIAL_FOO; the YouTube key is also read from API_KEY.
type EnvironmentStore struct {
	lookup func(string) (string, bool)
}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{lookup: os.LookupEnv}
}

func (e *EnvironmentStore) Store(*Credential) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Retrieve(name string) (*Credential, error) {
	if name == "" {
		return nil, ErrInvalidCredential
	}

	secret := e.value(name)
	if secret == "" {
		return nil, ErrCredentialNotFound
	}
	return &Credential{Name: name, Secret: secret, LastModified: time.Now()}, nil
}

func (e *EnvironmentStore) List() ([]*Credential, error) {
	var creds []*Credential
	if cred, err := e.Retrieve(YouTubeAPIKey); err == nil {
		creds = append(creds, cred)
	}
	return creds, nil
}

func (e *EnvironmentStore) Delete(string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return name != "" && e.value(name) != ""
}

func (e *EnvironmentStore) value(name string) string {
	if v, ok := e.lookup(envPrefix + strings.ToUpper(name)); ok && v != "" {
		return v
	}
	if name == YouTubeAPIKey {
		if v, ok := e.lookup("API_KEY"); ok {
			return v
		}
	}
	return ""
}
