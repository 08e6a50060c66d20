package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/goodCoderXD/cync/internal/model"
)

// userConfigRelPath is the user settings file location under the home
// directory.
const userConfigRelPath = ".config/cync/config.yaml"

// projectConfigName is the per-project override file looked up in the
// watch root.
const projectConfigName = ".cync.jsonc"

// defaultExtensions is the stock allow-list of file extensions that are
// mirrored. Everything else is filtered out by the classifier.
var defaultExtensions = []string{
	"j2", "py", "sh", "yml", "json", "yaml", "txt", "md", "toml", "conf", "service",
}

// Settings holds the resolved cync configuration.
//
// The yaml tags serve the user config file, the json tags the project
// JSONC file, and the env tags the CYNC_* environment variables — one
// struct, three decoders.
type Settings struct {
	// Extensions is the allow-list of file extensions (without leading
	// dot) that events must match to be mirrored.
	Extensions []string `yaml:"extensions" json:"extensions" env:"CYNC_EXTENSIONS"`

	// Ignore lists extra path markers skipped in addition to the fixed
	// blacklist (build artifacts, virtualenvs, caches, packaging
	// metadata).
	Ignore []string `yaml:"ignore" json:"ignore" env:"CYNC_IGNORE"`

	// Aliases maps short target names to full target descriptors, so
	// `cync . c` can stand in for a long host:path descriptor.
	Aliases map[string]string `yaml:"aliases" json:"aliases"`

	// ScriptSuffix marks uploads that receive a follow-up chmod +x on
	// the target. Defaults to ".sh".
	ScriptSuffix string `yaml:"scriptSuffix" json:"scriptSuffix" env:"CYNC_SCRIPT_SUFFIX"`
}

// Defaults returns the built-in settings used when no config file or
// environment override is present.
func Defaults() Settings {
	return Settings{
		Extensions:   append([]string(nil), defaultExtensions...),
		ScriptSuffix: ".sh",
	}
}

// Load resolves settings for a run rooted at watchRoot.
//
// Missing files are not errors — most runs have no config at all and
// use the defaults. A file that exists but fails to parse is a
// configuration error (ExitConfigError), since silently ignoring a
// half-written config would mirror the wrong set of files.
func Load(watchRoot string) (Settings, error) {
	s := Defaults()

	if home, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(home, userConfigRelPath)
		if err := loadYAML(userPath, &s); err != nil {
			return Settings{}, err
		}
	}

	if err := loadJSONC(filepath.Join(watchRoot, projectConfigName), &s); err != nil {
		return Settings{}, err
	}

	if err := env.Parse(&s); err != nil {
		return Settings{}, model.WrapCLIError(model.ExitConfigError,
			"invalid CYNC_* environment variable", err)
	}

	return s, nil
}

// loadYAML decodes a YAML settings file into s if it exists.
func loadYAML(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("read config %s", path), err)
	}

	if err := yaml.Unmarshal(data, s); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("parse config %s", path), err)
	}
	return nil
}

// loadJSONC decodes a JSONC settings file into s if it exists.
// Comments and trailing commas are stripped before decoding, so the
// project file can document its overrides inline.
func loadJSONC(path string, s *Settings) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("read config %s", path), err)
	}

	if err := json.Unmarshal(jsonc.ToJSON(data), s); err != nil {
		return model.WrapCLIError(model.ExitConfigError,
			fmt.Sprintf("parse config %s", path), err)
	}
	return nil
}

// ExpandTarget replaces a descriptor with its alias expansion, if one
// is configured. Unknown descriptors pass through unchanged.
func (s Settings) ExpandTarget(descriptor string) string {
	if full, ok := s.Aliases[descriptor]; ok {
		return full
	}
	return descriptor
}

// SplitList parses a comma-separated flag value into a clean slice,
// dropping empty entries and surrounding whitespace. Used for the
// -e/--extensions flag which overrides the configured allow-list.
func SplitList(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
