// Package config resolves photo-booker settings from flags, environment
// variables and an optional YAML file.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/quidome/photo-booker-go/pkg/failure"
	"github.com/quidome/photo-booker-go/pkg/normalize"
	"github.com/quidome/photo-booker-go/pkg/scan"
)

// EnvPrefix prefixes environment overrides, e.g. PHOTO_BOOKER_TITLE.
const EnvPrefix = "PHOTO_BOOKER"

// Keys shared by flags, environment and the config file.
const (
	KeyInput           = "input"
	KeyOutput          = "output"
	KeyTitle           = "title"
	KeyOnMetadataError = "on-metadata-error"
	KeyMaxDepth        = "max-depth"
	KeyExtensions      = "extensions"
	KeyJPEGQuality     = "jpeg-quality"
	KeyTimezone        = "timezone"
	KeyNoClobber       = "no-clobber"
	KeyVerbose         = "verbose"
)

// Config holds the settings of one run.
type Config struct {
	// Input is the directory scanned recursively for photographs.
	Input string `mapstructure:"input" yaml:"input"`

	// Output is the PDF to write. An existing file is replaced unless
	// NoClobber is set.
	Output string `mapstructure:"output" yaml:"output"`

	// NoClobber refuses to replace an existing Output.
	NoClobber bool `mapstructure:"no-clobber" yaml:"no-clobber"`

	// Title is stored in the document metadata.
	Title string `mapstructure:"title" yaml:"title"`

	// OnMetadataError is "abort" (default) or "skip".
	OnMetadataError string `mapstructure:"on-metadata-error" yaml:"on-metadata-error"`

	// MaxDepth limits recursion below Input; -1 means unlimited.
	MaxDepth int `mapstructure:"max-depth" yaml:"max-depth"`

	// Extensions optionally restricts which files are considered images.
	Extensions []string `mapstructure:"extensions" yaml:"extensions,omitempty"`

	// JPEGQuality of the intermediate page images (1-100).
	JPEGQuality int `mapstructure:"jpeg-quality" yaml:"jpeg-quality"`

	// Timezone used to interpret the naive EXIF capture time.
	Timezone string `mapstructure:"timezone" yaml:"timezone"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		OnMetadataError: string(scan.PolicyAbort),
		MaxDepth:        -1,
		JPEGQuality:     normalize.DefaultQuality,
		Timezone:        "UTC",
	}
}

// NewViper returns a viper instance with defaults and environment lookup
// set up, reading cfgFile if given or photo-booker.yaml from the working
// directory or ~/.config/photo-booker otherwise. A missing default config
// file is not an error.
func NewViper(cfgFile string) (*viper.Viper, error) {
	v := viper.New()

	d := Default()
	v.SetDefault(KeyInput, d.Input)
	v.SetDefault(KeyOutput, d.Output)
	v.SetDefault(KeyTitle, d.Title)
	v.SetDefault(KeyOnMetadataError, d.OnMetadataError)
	v.SetDefault(KeyMaxDepth, d.MaxDepth)
	v.SetDefault(KeyExtensions, []string{})
	v.SetDefault(KeyJPEGQuality, d.JPEGQuality)
	v.SetDefault(KeyTimezone, d.Timezone)
	v.SetDefault(KeyNoClobber, d.NoClobber)
	v.SetDefault(KeyVerbose, d.Verbose)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, failure.Config("read %s: %v", cfgFile, err)
		}
		return v, nil
	}

	v.SetConfigName("photo-booker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "photo-booker"))
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, failure.Config("read config: %v", err)
		}
	}
	return v, nil
}

// Load decodes v into a Config. It does not validate.
func Load(v *viper.Viper) (Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, failure.Config("decode config: %v", err)
	}
	return c, nil
}

// Validate checks the settings needed for a full run.
func (c Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Input) == "" {
		missing = append(missing, "--"+KeyInput)
	}
	if strings.TrimSpace(c.Output) == "" {
		missing = append(missing, "--"+KeyOutput)
	}
	if strings.TrimSpace(c.Title) == "" {
		missing = append(missing, "--"+KeyTitle)
	}
	if len(missing) > 0 {
		return failure.Config("required: %s", strings.Join(missing, ", "))
	}
	return c.ValidateOptions()
}

// ValidateOptions checks everything except the required paths and title.
func (c Config) ValidateOptions() error {
	if _, err := scan.ParsePolicy(c.OnMetadataError); err != nil {
		return failure.Config("%v", err)
	}
	if c.MaxDepth < -1 {
		return failure.Config("max-depth must be -1 or greater, got %d", c.MaxDepth)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return failure.Config("jpeg-quality must be between 1 and 100, got %d", c.JPEGQuality)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Policy returns the parsed metadata error policy.
func (c Config) Policy() scan.Policy {
	p, err := scan.ParsePolicy(c.OnMetadataError)
	if err != nil {
		return scan.PolicyAbort
	}
	return p
}

// Location resolves Timezone; empty means UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, failure.Config("timezone %q: %v", c.Timezone, err)
	}
	return loc, nil
}

// YAML renders the configuration as a YAML document.
func (c Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
