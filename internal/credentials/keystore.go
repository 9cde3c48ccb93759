// Package credentials holds the Gemini API key used by live and text sessions, and the flow that
// asks a person to choose one.
package credentials

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	ErrNoKey      = errors.New("no api key selected")
	ErrNoSelector = errors.New("no key selector configured")
	ErrInvalidKey = errors.New("api key is empty")
)

// Selector asks a person to choose a key, for example by prompting on a terminal or notifying a
// browser. It returns once the request has been made; the choice may land later via Select.
type Selector func(ctx context.Context) error

// KeyStore resolves the key from memory, then the key file, then the environment.
type KeyStore struct {
	file   string
	envKey string
	log    logrus.FieldLogger

	mu  sync.RWMutex
	key string
}

func NewKeyStore(file, envKey string, log logrus.FieldLogger) *KeyStore {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &KeyStore{file: file, envKey: strings.TrimSpace(envKey), log: log}
}

// Select stores key in memory and, when a key file is configured, persists it there.
func (k *KeyStore) Select(_ context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrInvalidKey
	}

	k.mu.Lock()
	k.key = key
	k.mu.Unlock()

	if k.file == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(k.file), 0o700); err != nil {
		return err
	}
	return os.WriteFile(k.file, []byte(key+"\n"), 0o600)
}

// APIKey returns the selected key or ErrNoKey.
func (k *KeyStore) APIKey(_ context.Context) (string, error) {
	k.mu.RLock()
	key := k.key
	k.mu.RUnlock()
	if key != "" {
		return key, nil
	}

	if k.file != "" {
		b, err := os.ReadFile(k.file)
		switch {
		case err == nil:
			if key = strings.TrimSpace(string(b)); key != "" {
				return key, nil
			}
		case !errors.Is(err, os.ErrNotExist):
			k.log.WithError(err).Warn("read key file")
		}
	}

	if k.envKey != "" {
		return k.envKey, nil
	}
	return "", ErrNoKey
}

func (k *KeyStore) HasSelectedKey(ctx context.Context) (bool, error) {
	_, err := k.APIKey(ctx)
	if errors.Is(err, ErrNoKey) {
		return false, nil
	}
	return err == nil, err
}

// Clear forgets the in-memory key.
func (k *KeyStore) Clear() {
	k.mu.Lock()
	k.key = ""
	k.mu.Unlock()
}

// Gate binds the store to a selection flow.
func (k *KeyStore) Gate(sel Selector) *Gate {
	return &Gate{store: k, selector: sel}
}

// Gate is a KeyStore plus the selection flow of one client.
type Gate struct {
	store    *KeyStore
	selector Selector
}

func (g *Gate) HasSelectedKey(ctx context.Context) (bool, error) {
	return g.store.HasSelectedKey(ctx)
}

func (g *Gate) OpenSelectKey(ctx context.Context) error {
	if g.selector == nil {
		return ErrNoSelector
	}
	return g.selector(ctx)
}
