package discovery

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role is which piece of the vibin-go engine a discovered device plays.
type Role string

const (
	RoleStreamer    Role = "streamer"
	RoleMediaServer Role = "media_server"
	RoleAmplifier   Role = "amplifier"
)

// Adapter names the adapter package that knows how to talk to a device
// once it's been classified, e.g. "streammagic", "cxnv2", "asset", "hegel".
type Adapter string

// ClassificationRule maps a model name (matched as a case-insensitive
// substring of modelName) to the role and adapter it should be treated
// as. Devices whose description doesn't match any rule are left
// unclassified; Classify then falls back to matching on
// DeviceType alone.
type ClassificationRule struct {
	ModelContains string  `yaml:"model_contains"`
	Role          Role    `yaml:"role"`
	Adapter       Adapter `yaml:"adapter"`
}

// ClassificationTable is the full set of rules, loaded from the YAML file
// named by config.DeviceClassificationPath. An empty table is valid; it
// simply means every device falls back to DeviceType-based classification.
type ClassificationTable struct {
	Rules []ClassificationRule `yaml:"rules"`
}

// LoadClassificationTable reads and parses a classification file. An empty
// path returns an empty table rather than an error, since classification
// by model name is optional.
func LoadClassificationTable(path string) (ClassificationTable, error) {
	if path == "" {
		return ClassificationTable{}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return ClassificationTable{}, fmt.Errorf("reading classification table %s: %w", path, err)
	}

	var table ClassificationTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return ClassificationTable{}, fmt.Errorf("parsing classification table %s: %w", path, err)
	}

	return table, nil
}

// Classify returns the role and adapter for desc, first by model-name
// rule, then falling back to a guess from DeviceType.
func (t ClassificationTable) Classify(desc *DeviceDescription) (Role, Adapter, bool) {
	for _, rule := range t.Rules {
		if rule.ModelContains != "" && containsFold(desc.ModelName, rule.ModelContains) {
			return rule.Role, rule.Adapter, true
		}
	}

	switch {
	case containsFold(desc.DeviceType, "MediaRenderer"):
		return RoleStreamer, "", false
	case containsFold(desc.DeviceType, "MediaServer"):
		return RoleMediaServer, "", false
	default:
		return "", "", false
	}
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
