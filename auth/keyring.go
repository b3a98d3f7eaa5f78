// Package auth provides a high-level API for persisting and retrieving per-source credentials from the system keyring.
package auth

import (
	"github.com/zalando/go-keyring"

	"github.com/multidl-cli/multidl/source"
)

const service = "multidl-cli"

func user(id source.ID) string {
	return id.Key() + "-token"
}

// SetToken persists the access token of a source to the system keyring.
func SetToken(id source.ID, token string) error {
	return keyring.Set(service, user(id), token)
}

// GetToken retrieves the access token of a source from the system keyring.
func GetToken(id source.ID) (string, error) {
	return keyring.Get(service, user(id))
}

// DeleteToken removes the access token of a source from the system keyring.
func DeleteToken(id source.ID) error {
	return keyring.Delete(service, user(id))
}
