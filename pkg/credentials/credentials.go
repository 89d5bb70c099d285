package credentials

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/zumanm1/device-audit-win-sub002/pkg/models"
)

// Resolver looks up login material for a device. Credential storage and
// encryption at rest live behind this interface; the engine only consumes
// the lookup contract.
type Resolver interface {
	Resolve(device models.Device) (models.Credentials, error)
}

// FileStore resolves credentials from a JSON file keyed by credential
// reference
type FileStore struct {
	entries map[string]models.Credentials
}

// NewFileStore loads a credential store from a JSON file
func NewFileStore(filePath string) (*FileStore, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("reading credential store: %w", err)
	}

	var entries map[string]models.Credentials
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing credential store: %w", err)
	}

	return &FileStore{entries: entries}, nil
}

// Resolve returns the credentials registered under the device's credential
// reference
func (s *FileStore) Resolve(device models.Device) (models.Credentials, error) {
	if device.CredentialRef == "" {
		return models.Credentials{}, fmt.Errorf("device %s has no credential reference", device.Hostname)
	}
	creds, ok := s.entries[device.CredentialRef]
	if !ok {
		return models.Credentials{}, fmt.Errorf("no credentials registered under %q", device.CredentialRef)
	}
	return creds, nil
}

// Static is an in-memory resolver keyed by credential reference
type Static map[string]models.Credentials

// Resolve returns the credentials registered under the device's credential
// reference
func (s Static) Resolve(device models.Device) (models.Credentials, error) {
	creds, ok := s[device.CredentialRef]
	if !ok {
		return models.Credentials{}, fmt.Errorf("no credentials registered under %q", device.CredentialRef)
	}
	return creds, nil
}
