package validation

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/MarcosBrendonDePaula/DST-Server-Kit/internal/errors"
)

var (
	// instanceNameRegex validates instance names. A name doubles as the
	// cluster directory name, so it must be a safe path component.
	instanceNameRegex = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9 _.-]*$`)

	// modIDRegex validates Steam Workshop ids
	modIDRegex = regexp.MustCompile(`^[0-9]+$`)
)

// InstanceName validates an instance name for use as a cluster directory name.
func InstanceName(name string) error {
	if name == "" {
		return errors.InvalidName(name, "cannot be empty")
	}

	if len(name) > 64 {
		return errors.InvalidName(name, "too long (max 64 characters)")
	}

	if name != strings.TrimSpace(name) {
		return errors.InvalidName(name, "leading or trailing whitespace")
	}

	if !instanceNameRegex.MatchString(name) {
		return errors.InvalidName(name, "must contain only letters, numbers, spaces, '_', '.', '-'")
	}

	// Reject anything that resolves to a different path component
	if name == "." || name == ".." || filepath.Base(name) != name {
		return errors.InvalidName(name, "not a valid path component")
	}

	return nil
}

// SameName reports whether two instance names collide. Uniqueness is
// case-insensitive so clusters stay distinct on case-insensitive filesystems.
func SameName(a, b string) bool {
	return strings.EqualFold(a, b)
}

// PortNumber validates a single port number
func PortNumber(port int) error {
	if port <= 0 || port > 65535 {
		return errors.InvalidPort(port, "must be between 1 and 65535")
	}
	return nil
}

// PortTriple validates the game/master/auth port set of one instance.
// The three ports must be valid and pairwise distinct.
func PortTriple(game, master, auth int) error {
	for _, p := range []int{game, master, auth} {
		if err := PortNumber(p); err != nil {
			return err
		}
	}

	if game == master || game == auth || master == auth {
		return errors.InvalidPort(game, "game, master and authentication ports must be distinct")
	}

	return nil
}

// ModID validates a Steam Workshop mod id
func ModID(id string) error {
	if id == "" {
		return errors.ValidationFailed("mod_id", id, "cannot be empty")
	}

	if !modIDRegex.MatchString(id) {
		return errors.ValidationFailed("mod_id", id, "must be a numeric workshop id")
	}

	return nil
}

// SettingString validates a free-form settings value destined for a single
// configuration line. Control characters would let a value break out of its
// line and corrupt the file, so they are rejected before anything is written.
func SettingString(field, value string) error {
	for _, r := range value {
		if r < 0x20 || r == 0x7f {
			return errors.ValidationFailed(field, value, "control characters are not allowed")
		}
	}
	return nil
}

// ClusterToken validates a cluster token before an instance may start.
func ClusterToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return errors.New(errors.ErrMissingToken, "cluster token cannot be empty")
	}
	return nil
}

// Path validates and cleans a file path to prevent traversal attacks
func Path(path string) (string, error) {
	if path == "" {
		return "", errors.InvalidPath(path, "cannot be empty")
	}

	// Clean the path to prevent traversal
	cleaned := filepath.Clean(path)

	// Check for path traversal attempts by checking if the cleaned path
	// tries to go outside the current directory hierarchy
	if strings.HasPrefix(cleaned, "../") || cleaned == ".." || strings.Contains(cleaned, "/../") {
		return "", errors.InvalidPath(path, "path traversal detected")
	}

	if strings.Contains(path, "../") {
		return "", errors.InvalidPath(path, "path traversal detected")
	}

	return cleaned, nil
}

// NonEmptyString validates that a string is not empty or only whitespace
func NonEmptyString(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.ValidationFailed("string", s, "cannot be empty or only whitespace")
	}
	return nil
}
