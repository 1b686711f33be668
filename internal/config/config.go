// Package config loads the server configuration.
//
// Values come from three layers, later ones winning: built-in defaults, an
// optional config file (yaml, toml or json, chosen by extension) and
// environment variables prefixed with WAP_ (WAP_PAGESIZE=50).
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyHostname                     = "Hostname"
	KeyPort                         = "Port"
	KeyEnableHTTPS                  = "EnableHttps"
	KeyPageSize                     = "PageSize"
	KeyProfileFolder                = "JsonLdProfileFolder"
	KeyProfileFile                  = "JsonLdProfileFile"
	KeyFrameFolder                  = "JsonLdFrameFolder"
	KeyCacheValidity                = "JsonLdCacheValidity"
	KeyKeepExpiredProfiles          = "JsonLdKeepExpiredProfiles"
	KeyAlwaysAddDefaultProfiles     = "JsonLdAlwaysAddDefaultProfiles"
	KeyDataBasePath                 = "DataBasePath"
	KeyMultipleAnnotationPost       = "MultipleAnnotationPost"
	KeyMandatoryLabelInContainers   = "MandatoryLabelInContainers"
	KeyMandatorySlugInContainerPost = "MandatorySlugInContainerPost"
	KeyContentNegotiation           = "ContentNegotiation"
	KeySimpleFormatters             = "SimpleFormatters"
	KeyLogLevel                     = "LogLevel"
	KeyLogFormat                    = "LogFormat"
)

// WAPEndpoint is the path of the root container below the base URL.
const WAPEndpoint = "/wap/"

// EnvPrefix prefixes environment overrides.
const EnvPrefix = "WAP"

// Config holds the resolved server settings.
type Config struct {
	Hostname    string
	Port        int
	EnableHTTPS bool

	// PageSize is the number of annotations per page.
	PageSize int

	JSONLDProfileFolder string
	JSONLDProfileFile   string
	JSONLDFrameFolder   string
	// JSONLDCacheValidity is how long a downloaded profile stays fresh.
	JSONLDCacheValidity            time.Duration
	JSONLDKeepExpiredProfiles      bool
	JSONLDAlwaysAddDefaultProfiles bool

	DataBasePath string

	MultipleAnnotationPost       bool
	MandatoryLabelInContainers   bool
	MandatorySlugInContainerPost bool
	ContentNegotiation           bool

	// SimpleFormatters lists NAME*mediatype pairs separated by '|'.
	SimpleFormatters string

	LogLevel  string
	LogFormat string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyHostname, "localhost")
	v.SetDefault(KeyPort, 8080)
	v.SetDefault(KeyEnableHTTPS, false)
	v.SetDefault(KeyPageSize, 20)
	v.SetDefault(KeyProfileFolder, "./profiles")
	v.SetDefault(KeyProfileFile, "./profiles/profiles.toml")
	v.SetDefault(KeyFrameFolder, "./profiles")
	v.SetDefault(KeyCacheValidity, 24*time.Hour)
	v.SetDefault(KeyKeepExpiredProfiles, true)
	v.SetDefault(KeyAlwaysAddDefaultProfiles, false)
	v.SetDefault(KeyDataBasePath, "./production_db")
	v.SetDefault(KeyMultipleAnnotationPost, true)
	v.SetDefault(KeyMandatoryLabelInContainers, false)
	v.SetDefault(KeyMandatorySlugInContainerPost, false)
	v.SetDefault(KeyContentNegotiation, true)
	v.SetDefault(KeySimpleFormatters, "NTRIPLES*application/n-triples|RDF_JSON*application/rdf+json")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "text")
}

// Default returns the configuration built from defaults only.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, _ := FromViper(v)
	return cfg
}

// Load reads defaults, the optional file and WAP_ environment variables.
// An empty file skips the file layer.
func Load(file string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}
	return FromViper(v)
}

// FromViper resolves a Config from v and validates it.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Hostname:                       v.GetString(KeyHostname),
		Port:                           v.GetInt(KeyPort),
		EnableHTTPS:                    v.GetBool(KeyEnableHTTPS),
		PageSize:                       v.GetInt(KeyPageSize),
		JSONLDProfileFolder:            v.GetString(KeyProfileFolder),
		JSONLDProfileFile:              v.GetString(KeyProfileFile),
		JSONLDFrameFolder:              v.GetString(KeyFrameFolder),
		JSONLDCacheValidity:            v.GetDuration(KeyCacheValidity),
		JSONLDKeepExpiredProfiles:      v.GetBool(KeyKeepExpiredProfiles),
		JSONLDAlwaysAddDefaultProfiles: v.GetBool(KeyAlwaysAddDefaultProfiles),
		DataBasePath:                   v.GetString(KeyDataBasePath),
		MultipleAnnotationPost:         v.GetBool(KeyMultipleAnnotationPost),
		MandatoryLabelInContainers:     v.GetBool(KeyMandatoryLabelInContainers),
		MandatorySlugInContainerPost:   v.GetBool(KeyMandatorySlugInContainerPost),
		ContentNegotiation:             v.GetBool(KeyContentNegotiation),
		SimpleFormatters:               v.GetString(KeySimpleFormatters),
		LogLevel:                       v.GetString(KeyLogLevel),
		LogFormat:                      v.GetString(KeyLogFormat),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Hostname == "" {
		return fmt.Errorf("config: %s must not be empty", KeyHostname)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: %s %d out of range", KeyPort, c.Port)
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("config: %s must be positive, got %d", KeyPageSize, c.PageSize)
	}
	if c.JSONLDCacheValidity <= 0 {
		return fmt.Errorf("config: %s must be positive, got %s", KeyCacheValidity, c.JSONLDCacheValidity)
	}
	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		return fmt.Errorf("config: unknown %s %q", KeyLogFormat, c.LogFormat)
	}
	return nil
}

// BaseURL returns scheme, host and port without a trailing slash. Default
// ports are omitted.
func (c *Config) BaseURL() string {
	scheme, defaultPort := "http", 80
	if c.EnableHTTPS {
		scheme, defaultPort = "https", 443
	}
	if c.Port == defaultPort {
		return scheme + "://" + c.Hostname
	}
	return scheme + "://" + c.Hostname + ":" + strconv.Itoa(c.Port)
}

// RootContainerIRI returns the IRI of the root container.
func (c *Config) RootContainerIRI() string {
	return c.BaseURL() + WAPEndpoint
}

// IsRootContainer reports whether iri names the root container.
func (c *Config) IsRootContainer(iri string) bool {
	return iri == c.RootContainerIRI()
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}
