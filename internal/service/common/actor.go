//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"errors"
	"fmt"
	"os"
	"os/user"
	"strings"

	domain "github.com/proximity-lock/proximity-lock/internal/domain/session"
)

// errUnknownUser is returned when neither the user database nor the environment name a user.
var errUnknownUser = errors.New("cannot determine current user")

// DetectActor gathers host and user information for the session record.
// The user falls back to $USER or $USERNAME when the user database is unavailable.
func DetectActor() (*domain.Actor, error) {
	hostname, err := os.Hostname()
	if err != nil {
		return nil, fmt.Errorf("hostname: %w", err)
	}

	username, err := currentUsername()
	if err != nil {
		return nil, err
	}

	return &domain.Actor{
		Hostname: hostname,
		Username: username,
	}, nil
}

func currentUsername() (string, error) {
	if current, err := user.Current(); err == nil && current.Username != "" {
		return trimDomain(current.Username), nil
	}

	for _, key := range []string{"USER", "USERNAME"} {
		if name := os.Getenv(key); name != "" {
			return name, nil
		}
	}

	return "", errUnknownUser
}

// trimDomain drops the DOMAIN\ prefix of Windows account names.
func trimDomain(username string) string {
	if i := strings.LastIndexByte(username, '\\'); i >= 0 {
		return username[i+1:]
	}

	return username
}
