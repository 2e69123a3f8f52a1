package web

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadUsers reads the basic-auth credential mapping, a small JSON object of
// username to password. An empty path disables authentication.
func LoadUsers(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read basic auth file: %w", err)
	}

	var users map[string]string
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("decode basic auth file: %w", err)
	}

	return users, nil
}
