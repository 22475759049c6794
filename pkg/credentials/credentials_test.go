package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func newEncryptedStore(t *testing.T) *EncryptedFileStore {
	t.Helper()
	t.Setenv(PassphraseEnv, "test-passphrase")
	store, err := NewEncryptedFileStore(filepath.Join(t.TempDir(), "creds", "credentials.enc"))
	require.NoError(t, err)
	return store
}

func envStore(vars map[string]string) *EnvironmentStore {
	return &EnvironmentStore{lookup: func(k string) (string, bool) {
		v, ok := vars[k]
		return v, ok
	}}
}

func TestEncryptedFileStore(t *testing.T) {
	store := newEncryptedStore(t)

	_, err := store.Retrieve(YouTubeAPIKey)
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	require.NoError(t, store.Store(&Credential{Name: YouTubeAPIKey, Secret: "AIza-secret-value"}))
	assert.True(t, store.Exists(YouTubeAPIKey))

	content, err := os.ReadFile(store.path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "AIza-secret-value")

	cred, err := store.Retrieve(YouTubeAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "AIza-secret-value", cred.Secret)

	require.NoError(t, store.Store(&Credential{Name: "other", Secret: "x"}))
	creds, err := store.List()
	require.NoError(t, err)
	assert.Len(t, creds, 2)

	require.NoError(t, store.Delete("other"))
	require.NoError(t, store.Delete(YouTubeAPIKey))
	_, err = os.Stat(store.path)
	assert.True(t, os.IsNotExist(err), "file should be removed with the last credential")

	assert.ErrorIs(t, store.Delete(YouTubeAPIKey), ErrCredentialNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	store := newEncryptedStore(t)
	require.NoError(t, store.Store(&Credential{Name: YouTubeAPIKey, Secret: "secret"}))

	other := &EncryptedFileStore{path: store.path, passphrase: "something else"}
	_, err := other.Retrieve(YouTubeAPIKey)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialNotFound)
}

func TestGeneratedPassphraseIsReused(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	first, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	require.NoError(t, first.Store(&Credential{Name: "a", Secret: "b"}))

	second, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)
	cred, err := second.Retrieve("a")
	require.NoError(t, err)
	assert.Equal(t, "b", cred.Secret)
}

func TestEnvironmentStore(t *testing.T) {
	store := envStore(map[string]string{"API_KEY": "from-api-key"})
	cred, err := store.Retrieve(YouTubeAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "from-api-key", cred.Secret)

	store = envStore(map[string]string{
		"API_KEY":                      "from-api-key",
		"MEDIAGATE_CREDENTIAL_YOUTUBE": "preferred",
	})
	cred, err = store.Retrieve(YouTubeAPIKey)
	require.NoError(t, err)
	assert.Equal(t, "preferred", cred.Secret)

	_, err = store.Retrieve("missing")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	assert.ErrorIs(t, store.Store(&Credential{Name: "x", Secret: "y"}), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("x"), ErrStoreUnavailable)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Name: YouTubeAPIKey, Secret: "k"}))
	assert.True(t, store.Exists(YouTubeAPIKey))

	creds, err := store.List()
	require.NoError(t, err)
	require.Len(t, creds, 1)
	assert.Equal(t, "k", creds[0].Secret)

	require.NoError(t, store.Delete(YouTubeAPIKey))
	_, err = store.Retrieve(YouTubeAPIKey)
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	assert.ErrorIs(t, store.Delete(YouTubeAPIKey), ErrCredentialNotFound)
}

func TestManagerFallsThrough(t *testing.T) {
	encrypted := newEncryptedStore(t)
	env := envStore(map[string]string{"API_KEY": "env-key"})
	manager := NewManagerWithStores(env, encrypted)

	// the environment store refuses writes, so the encrypted file takes it
	require.NoError(t, manager.Store(&Credential{Name: "other", Secret: "file-secret"}))
	assert.True(t, encrypted.Exists("other"))

	assert.Equal(t, "env-key", manager.Secret(YouTubeAPIKey))
	assert.Equal(t, "file-secret", manager.Secret("other"))
	assert.Equal(t, "", manager.Secret("missing"))

	creds, err := manager.List()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "other", creds[0].Name)
	assert.Equal(t, YouTubeAPIKey, creds[1].Name)

	require.NoError(t, manager.Delete("other"))
	assert.ErrorIs(t, manager.Delete("other"), ErrCredentialNotFound)
}

func TestManagerValidation(t *testing.T) {
	manager := NewManagerWithStores(newEncryptedStore(t))
	assert.ErrorIs(t, manager.Store(&Credential{Secret: "x"}), ErrInvalidCredential)
	assert.ErrorIs(t, manager.Store(&Credential{Name: "x"}), ErrInvalidCredential)
	assert.ErrorIs(t, NewManagerWithStores().Store(&Credential{Name: "x", Secret: "y"}), ErrStoreUnavailable)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "********", Mask("short"))
	assert.Equal(t, "AIza...wxyz", Mask("AIza0123456789wxyz"))

	s := Sanitize(&Credential{Name: "n", Secret: "AIza0123456789wxyz"})
	assert.Equal(t, "n", s.Name)
	assert.Equal(t, "AIza...wxyz", s.Secret)
	assert.Nil(t, Sanitize(nil))
}
