package config

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/knadh/koanf/parsers/toml/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
)

const (
	// StarterFilename is the name written by WriteStarter.
	StarterFilename = "luatags.toml"

	starterFileMode = 0o644
)

const starterConfig = `# luatags configuration

# Directory that github and url sources are synced into.
output = ".luatags"

# Tag file written by "luatags index", relative to this file.
tag_file = "tags"

# ctags or json
format = "ctags"

# Emit class tags, which are file-scoped.
file_scope = true

kinds = ["function", "class"]
parallel = 4

[sources.project]
type = "dir"
path = "."
patterns = ["**/*.lua"]

# [sources.lplus]
# type = "github"
# repo = "owner/repo"
# ref = "main"
# patterns = ["scripts/**/*.lua"]

# [sources.single]
# type = "url"
# url = "https://example.com/module.lua"
`

func configFilenames() []string {
	return []string{"luatags.toml", ".luatags.toml"}
}

func Load(configPath string) (*Config, error) {
	resolvedPath, err := resolveConfigPath(configPath)
	if err != nil {
		return nil, err
	}

	absConfigPath, err := filepath.Abs(resolvedPath)
	if err != nil {
		return nil, oops.Wrapf(err, "resolving absolute config path")
	}

	cfg := &Config{}
	k := koanf.New(".")

	if loadErr := k.Load(file.Provider(absConfigPath), toml.Parser()); loadErr != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("path", absConfigPath).
			Hint("Fix TOML syntax in your config").
			Wrapf(loadErr, "loading config from %q", absConfigPath)
	}

	if unmarshalErr := k.Unmarshal("", cfg); unmarshalErr != nil {
		return nil, oops.
			Code("CONFIG_INVALID").
			With("path", absConfigPath).
			Hint("Fix config structure to match the luatags schema").
			Wrapf(unmarshalErr, "decoding config from %q", absConfigPath)
	}

	cfg.ConfigDir = filepath.Dir(absConfigPath)
	cfg.ApplyDefaults()

	if valErr := cfg.Validate(); valErr != nil {
		return nil, valErr
	}

	if !filepath.IsAbs(cfg.Output) {
		cfg.Output = filepath.Clean(filepath.Join(cfg.ConfigDir, cfg.Output))
	}

	return cfg, nil
}

func FindConfigFile() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", oops.Wrapf(err, "getting working directory")
	}

	for {
		foundPath, found, findErr := findConfigInDirectory(dir)
		if findErr != nil {
			return "", findErr
		}

		if found {
			return foundPath, nil
		}

		parentDir := filepath.Dir(dir)
		if parentDir == dir {
			return "", oops.
				Code("CONFIG_NOT_FOUND").
				Hint("Run 'luatags init' to create a config file").
				Errorf("no luatags.toml or .luatags.toml found in any parent directory")
		}

		dir = parentDir
	}
}

// WriteStarter writes a commented starter config to path. An existing file
// is only replaced when force is set.
func WriteStarter(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return oops.
				Code("CONFIG_EXISTS").
				With("path", path).
				Hint("Pass --force to overwrite it").
				Errorf("config file %q already exists", path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return oops.Wrapf(err, "checking config file %q", path)
		}
	}

	if err := os.WriteFile(path, []byte(starterConfig), starterFileMode); err != nil {
		return oops.
			With("path", path).
			Wrapf(err, "writing config file")
	}

	return nil
}

func resolveConfigPath(configPath string) (string, error) {
	if configPath != "" {
		if _, err := os.Stat(configPath); err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", oops.
					Code("CONFIG_NOT_FOUND").
					With("path", configPath).
					Hint("Create the file or pass a valid --config path").
					Errorf("config file %q does not exist", configPath)
			}

			return "", oops.Wrapf(err, "checking config file %q", configPath)
		}

		return configPath, nil
	}

	return FindConfigFile()
}

func findConfigInDirectory(dir string) (string, bool, error) {
	for _, name := range configFilenames() {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, oops.Wrapf(err, "checking for config file at %q", path)
		}
	}

	return "", false, nil
}
