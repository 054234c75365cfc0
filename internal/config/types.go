package config

import (
	"errors"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/samber/oops"

	"github.com/g5becks/luatags/internal/parser"
)

const (
	DefaultOutput           = ".luatags"
	DefaultTagFile          = "tags"
	DefaultParallel         = 4
	DefaultDisplayLimit     = 50
	FormatCTags             = "ctags"
	FormatJSON              = "json"
	DisplayFormatTable      = "table"
	SourceTypeDir           = "dir"
	SourceTypeGitHub        = "github"
	SourceTypeURL           = "url"
	repoPartCount           = 2
	validationTagRequiredIf = "required_if"
)

func DefaultPatterns() []string {
	return []string{"**/*.lua"}
}

// DefaultExcludes are applied to every dir and github source.
func DefaultExcludes() []string {
	return []string{
		".git/**",
		"**/node_modules/**",
		"**/.luarocks/**",
		"**/lua_modules/**",
	}
}

func DefaultKinds() []string {
	return []string{"function", "class"}
}

type Config struct {
	Output      string            `koanf:"output"`
	TagFile     string            `koanf:"tag_file"`
	Format      string            `koanf:"format"`
	FileScope   *bool             `koanf:"file_scope"`
	Kinds       []string          `koanf:"kinds"`
	Parallel    int               `koanf:"parallel"`
	GitHubToken string            `koanf:"github_token"`
	Excludes    []string          `koanf:"excludes"`
	Display     Display           `koanf:"display"`
	Sources     map[string]Source `koanf:"sources"`
	ConfigDir   string            `koanf:"-"`
}

type Display struct {
	DefaultLimit int    `koanf:"default_limit" validate:"omitempty,min=0"`
	Format       string `koanf:"format"        validate:"omitempty,oneof=table json csv"`
}

type Source struct {
	Type     string   `koanf:"type"     validate:"required,oneof=dir github url"`
	Repo     string   `koanf:"repo"     validate:"required_if=Type github,omitempty,github_repo"`
	Path     string   `koanf:"path"     validate:"required_if=Type dir"`
	Ref      string   `koanf:"ref"`
	Patterns []string `koanf:"patterns"`
	Exclude  []string `koanf:"exclude"`
	URL      string   `koanf:"url"      validate:"required_if=Type url,omitempty,url"`
	Filename string   `koanf:"filename"`
	Out      string   `koanf:"out"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	_ = v.RegisterValidation("github_repo", func(fl validator.FieldLevel) bool {
		return isValidRepo(fl.Field().String())
	})

	return v
}

func (c *Config) ApplyDefaults() {
	if c.Output == "" {
		c.Output = DefaultOutput
	}

	if c.TagFile == "" {
		c.TagFile = DefaultTagFile
	}

	if c.Format == "" {
		c.Format = FormatCTags
	}

	if c.FileScope == nil {
		includeFileScope := true
		c.FileScope = &includeFileScope
	}

	if len(c.Kinds) == 0 {
		c.Kinds = DefaultKinds()
	}

	if c.Parallel == 0 {
		c.Parallel = DefaultParallel
	}

	if c.Display.DefaultLimit == 0 {
		c.Display.DefaultLimit = DefaultDisplayLimit
	}

	if c.Display.Format == "" {
		c.Display.Format = DisplayFormatTable
	}

	for sourceName, sourceCfg := range c.Sources {
		c.Sources[sourceName] = applySourceDefaults(sourceCfg, c.Excludes)
	}
}

func applySourceDefaults(sourceCfg Source, globalExcludes []string) Source {
	if sourceCfg.Type == "" {
		sourceCfg.Type = inferSourceType(sourceCfg)
	}

	if sourceCfg.Type == SourceTypeURL {
		return sourceCfg
	}

	if len(sourceCfg.Patterns) == 0 {
		sourceCfg.Patterns = DefaultPatterns()
	}

	sourceCfg.Exclude = mergeExcludes(append(DefaultExcludes(), globalExcludes...), sourceCfg.Exclude)
	return sourceCfg
}

func inferSourceType(sourceCfg Source) string {
	switch {
	case sourceCfg.Repo != "":
		return SourceTypeGitHub
	case sourceCfg.URL != "":
		return SourceTypeURL
	case sourceCfg.Path != "":
		return SourceTypeDir
	default:
		return ""
	}
}

func mergeExcludes(global []string, source []string) []string {
	seen := make(map[string]struct{}, len(global)+len(source))
	var merged []string

	for _, pattern := range slices.Concat(source, global) {
		if _, dup := seen[pattern]; dup {
			continue
		}

		seen[pattern] = struct{}{}
		merged = append(merged, pattern)
	}

	return merged
}

func (c *Config) Validate() error {
	v := newValidator()

	if valErr := v.Var(c.Format, "omitempty,oneof=ctags json"); valErr != nil {
		return oops.
			Code("CONFIG_INVALID").
			With("field", "format").
			With("value", c.Format).
			Hint("Supported formats: ctags, json").
			Errorf("unknown tag file format %q", c.Format)
	}

	if valErr := v.Struct(c.Display); valErr != nil {
		return oops.
			Code("CONFIG_INVALID").
			With("field", "display").
			Hint("display.format must be one of table, json, csv").
			Wrapf(valErr, "validating display section")
	}

	if c.Parallel < 0 {
		return oops.
			Code("CONFIG_INVALID").
			With("field", "parallel").
			With("value", c.Parallel).
			Errorf("parallel must be positive, got %d", c.Parallel)
	}

	if _, kindErr := parser.ParseKinds(c.Kinds); kindErr != nil {
		return oops.
			Code("CONFIG_INVALID").
			With("field", "kinds").
			Wrapf(kindErr, "validating kinds")
	}

	for _, sourceName := range c.SourceNames() {
		sourceCfg := c.Sources[sourceName]
		valErr := v.Struct(sourceCfg)
		if valErr == nil {
			continue
		}

		var validationErrors validator.ValidationErrors
		if !errors.As(valErr, &validationErrors) {
			return oops.
				Code("CONFIG_INVALID").
				With("source", sourceName).
				Wrapf(valErr, "validating source %q", sourceName)
		}

		for _, fe := range validationErrors {
			return mapValidationError(sourceName, sourceCfg, fe)
		}
	}

	return nil
}

func mapValidationError(sourceName string, sourceCfg Source, fe validator.FieldError) error {
	field := strings.ToLower(fe.Field())

	switch {
	case fe.Tag() == "required" && field == "type":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			Hint("Set type, or one of repo, url, path so the type can be inferred").
			Errorf("source %q has no type and none could be inferred", sourceName)

	case fe.Tag() == "oneof" && field == "type":
		return oops.
			Code("UNKNOWN_SOURCE_TYPE").
			With("source", sourceName).
			With("type", sourceCfg.Type).
			Hint("Supported types: dir, github, url").
			Errorf("unknown source type %q for source %q", sourceCfg.Type, sourceName)

	case fe.Tag() == validationTagRequiredIf && field == "repo":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "repo").
			Hint("Set repo in owner/repo format for github sources").
			Errorf("missing repo for source %q", sourceName)

	case fe.Tag() == "github_repo":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "repo").
			With("value", sourceCfg.Repo).
			Hint("Expected repo format: owner/repo").
			Errorf("invalid repo format %q for source %q", sourceCfg.Repo, sourceName)

	case fe.Tag() == validationTagRequiredIf && field == "path":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "path").
			Hint("Set path to a local directory containing Lua files").
			Errorf("missing path for source %q", sourceName)

	case fe.Tag() == validationTagRequiredIf && field == "url":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "url").
			Hint("Set url for url sources").
			Errorf("missing url for source %q", sourceName)

	case fe.Tag() == "url":
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", "url").
			With("value", sourceCfg.URL).
			Errorf("invalid url %q for source %q", sourceCfg.URL, sourceName)

	default:
		return oops.
			Code("CONFIG_INVALID").
			With("source", sourceName).
			With("field", field).
			With("tag", fe.Tag()).
			Errorf("validation failed for field %q in source %q", field, sourceName)
	}
}

// SourceNames returns configured source names in sorted order.
func (c *Config) SourceNames() []string {
	names := make([]string, 0, len(c.Sources))
	for name := range c.Sources {
		names = append(names, name)
	}

	slices.Sort(names)
	return names
}

// OutputDir is where a remote source is synced to.
func (c *Config) OutputDir(sourceName string, sourceCfg Source) string {
	baseOutputDir := c.Output
	if !filepath.IsAbs(baseOutputDir) {
		baseOutputDir = filepath.Join(c.ConfigDir, c.Output)
	}

	if sourceCfg.Out != "" {
		return filepath.Join(baseOutputDir, sourceCfg.Out)
	}

	return filepath.Join(baseOutputDir, sourceName)
}

// SourceRoot is the directory scanned for a source: the local path of dir
// sources, the sync destination otherwise.
func (c *Config) SourceRoot(sourceName string, sourceCfg Source) string {
	if sourceCfg.Type != SourceTypeDir {
		return c.OutputDir(sourceName, sourceCfg)
	}

	if filepath.IsAbs(sourceCfg.Path) {
		return filepath.Clean(sourceCfg.Path)
	}

	return filepath.Join(c.ConfigDir, sourceCfg.Path)
}

// TagFilePath resolves tag_file against the config directory.
func (c *Config) TagFilePath() string {
	tagFile := c.TagFile
	if tagFile == "" {
		tagFile = DefaultTagFile
	}

	if filepath.IsAbs(tagFile) {
		return tagFile
	}

	return filepath.Join(c.ConfigDir, tagFile)
}

// IncludeFileScope reports whether file-scope tags are written.
func (c *Config) IncludeFileScope() bool {
	return c.FileScope == nil || *c.FileScope
}

// KindIDs parses the configured kind list.
func (c *Config) KindIDs() ([]parser.KindID, error) {
	kinds := c.Kinds
	if len(kinds) == 0 {
		kinds = DefaultKinds()
	}

	return parser.ParseKinds(kinds)
}

func isValidRepo(repo string) bool {
	parts := strings.Split(repo, "/")
	if len(parts) != repoPartCount {
		return false
	}

	return parts[0] != "" && parts[1] != ""
}
