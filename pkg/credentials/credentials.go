package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"time"
)

// YouTubeAPIKey is the name the YouTube Data API key is stored under
const YouTubeAPIKey = "youtube"

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)

// Credential is a named secret for an upstream service
type Credential struct {
	Name         string    `json:"name"`
	Secret       string    `json:"secret"`
	LastModified time.Time `json:"last_modified"`
}

// Store is the interface for storing and retrieving credentials
type Store interface {
	Store(cred *Credential) error
	Retrieve(name string) (*Credential, error)
	List() ([]*Credential, error)
	Delete(name string) error
	Exists(name string) bool
}

// Manager tries its stores in order: the first store that accepts a write
// wins, and reads fall through until one store has the credential.
type Manager struct {
	stores []Store
}

// NewManager builds the default chain: system keyring when available, an
// encrypted file under configDir, then the environment
func NewManager(configDir string) (*Manager, error) {
	if configDir == "" {
		dir, err := ConfigDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get config directory: %w", err)
		}
		configDir = dir
	}

	var stores []Store
	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a manager over an explicit chain
func NewManagerWithStores(stores ...Store) *Manager {
	return &Manager{stores: stores}
}

func (m *Manager) Store(cred *Credential) error {
	if cred == nil || cred.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidCredential)
	}
	if cred.Secret == "" {
		return fmt.Errorf("%w: secret is required", ErrInvalidCredential)
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credential: %w", lastErr)
	}
	return ErrStoreUnavailable
}

func (m *Manager) Retrieve(name string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(name); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialNotFound, name)
}

// Secret returns only the secret for name, or "" when no store has it
func (m *Manager) Secret(name string) string {
	cred, err := m.Retrieve(name)
	if err != nil {
		return ""
	}
	return cred.Secret
}

// List merges every store, keeping the most recently modified copy of each
// name
func (m *Manager) List() ([]*Credential, error) {
	byName := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byName[cred.Name]; !ok || cred.LastModified.After(existing.LastModified) {
				byName[cred.Name] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(byName))
	for _, cred := range byName {
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result, nil
}

// Delete removes name from every store that holds it
func (m *Manager) Delete(name string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(name); err == nil {
			deleted = true
		} else {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil && !errors.Is(lastErr, ErrCredentialNotFound) && !errors.Is(lastErr, ErrStoreUnavailable) {
		return fmt.Errorf("failed to delete credential: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialNotFound, name)
}

// ConfigDir returns the per-user configuration directory, creating it
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "mediagate")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "mediagate")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "mediagate")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "mediagate")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// Sanitize returns a copy of cred with the secret masked
func Sanitize(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}
	return &Credential{
		Name:         cred.Name,
		Secret:       Mask(cred.Secret),
		LastModified: cred.LastModified,
	}
}

// Mask keeps the first and last four characters of s
func Mask(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}
