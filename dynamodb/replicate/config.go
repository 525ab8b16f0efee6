package replicate

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Environment variables read by LoadConfig.
const (
	EnvAccessKeyID     = "AWS_ACCESS_KEY_ID"
	EnvSecretAccessKey = "AWS_SECRET_ACCESS_KEY"
	EnvServiceURL      = "SERVICE_URL"
	EnvTables          = "TABLES"
)

// TableSeparator splits the TABLES variable.
const TableSeparator = ";"

// Config holds everything a replication run needs from the environment.
type Config struct {
	// AccessKeyID and SecretAccessKey authenticate against the remote store.
	AccessKeyID     string
	SecretAccessKey string
	// ServiceURL is the local target. Either an http(s) endpoint such as
	// http://localhost:8000, memory:// or badger://<dir>.
	ServiceURL string
	// Tables is nil when TABLES is not set at all.
	Tables []string
}

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// MissingEnvError lists the required variables that were absent or blank.
type MissingEnvError struct {
	Names []string
}

func (e *MissingEnvError) Error() string {
	var b strings.Builder
	for _, name := range e.Names {
		fmt.Fprintf(&b, "[%s]", name)
	}
	return "missing following environment variables: " + b.String()
}

// LoadConfig reads the configuration through lookup and validates it.
// On failure the returned error is a *MissingEnvError and the Config must not
// be used.
func LoadConfig(lookup LookupFunc) (Config, error) {
	cfg := ReadConfig(lookup)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ReadConfig reads the configuration through lookup without validating it.
func ReadConfig(lookup LookupFunc) Config {
	var cfg Config
	cfg.AccessKeyID, _ = lookup(EnvAccessKeyID)
	cfg.SecretAccessKey, _ = lookup(EnvSecretAccessKey)
	cfg.ServiceURL, _ = lookup(EnvServiceURL)
	if tables, ok := lookup(EnvTables); ok {
		cfg.Tables = ParseTables(tables)
	}
	return cfg
}

// Require validates only the named variables. Commands that never touch the
// local target, for example, do not need SERVICE_URL.
func (c Config) Require(names ...string) error {
	var missing *MissingEnvError
	if err := c.Validate(); !errors.As(err, &missing) {
		return err
	}
	var filtered []string
	for _, name := range missing.Names {
		if slices.Contains(names, name) {
			filtered = append(filtered, name)
		}
	}
	if len(filtered) == 0 {
		return nil
	}
	return &MissingEnvError{Names: filtered}
}

// Validate checks that every field is present. String fields must be non-blank,
// Tables must only be non-nil: an empty or partially empty list is passed
// through as is.
func (c Config) Validate() error {
	var missing []string
	if isBlank(c.AccessKeyID) {
		missing = append(missing, EnvAccessKeyID)
	}
	if isBlank(c.SecretAccessKey) {
		missing = append(missing, EnvSecretAccessKey)
	}
	if isBlank(c.ServiceURL) {
		missing = append(missing, EnvServiceURL)
	}
	if c.Tables == nil {
		missing = append(missing, EnvTables)
	}
	if len(missing) > 0 {
		return &MissingEnvError{Names: missing}
	}
	return nil
}

// ParseTables splits a TABLES value on ';'. Empty segments are kept, so
// "A;;B" yields ["A", "", "B"] and "" yields [""].
func ParseTables(s string) []string {
	return strings.Split(s, TableSeparator)
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
