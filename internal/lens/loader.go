package lens

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/LarjGit/edinburgh-finds-sub000/internal/core"
)

// =============================================================================
// LOADER
// Loads a lens file by id from the search root, validates it against the
// gates and returns the frozen contract plus its content hash.
// =============================================================================

// Load reads, parses and validates the lens with the given id.
// The file is looked up as <root>/<id>.yaml, then <root>/<id>.yml.
// registeredConnectors is the set of valid connector names for gate 6.
func Load(root, id string, registeredConnectors []string) (*Contract, string, error) {
	if id == "" {
		return nil, "", core.ConfigError("lens id is required")
	}

	path, err := resolvePath(root, id)
	if err != nil {
		return nil, "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", core.ConfigError("read lens %q: %v", id, err)
	}

	contract, err := Parse(data)
	if err != nil {
		return nil, "", err
	}

	if err := Validate(contract, registeredConnectors); err != nil {
		return nil, "", err
	}

	return contract, Hash(contract), nil
}

// Parse decodes a lens contract from YAML without validating it.
func Parse(data []byte) (*Contract, error) {
	var contract Contract
	if err := yaml.Unmarshal(data, &contract); err != nil {
		return nil, core.ConfigError("parse lens: %v", err)
	}
	return &contract, nil
}

// Hash returns the SHA-256 hex digest of the contract's canonical JSON form.
func Hash(c *Contract) string {
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func resolvePath(root, id string) (string, error) {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(root, id+ext)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", core.ConfigError("lens %q not found under %s", id, root)
}
