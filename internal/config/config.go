package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/rflorenc/awx-launch/internal/models"
)

const appPrefix = "PLUGIN"

// Config holds the step settings, read from PLUGIN_* environment variables.
type Config struct {
	Endpoint string
	Username string
	Password string
	Insecure bool

	SaveToken Flag `split_words:"true"`

	InventoryID          string `split_words:"true"`
	InventoryName        string `split_words:"true"`
	InventoryDescription string `envconfig:"INVENTORY_DESC" default:"created by harness"`
	OrganizationID       int    `envconfig:"ORGANIZATION_ID" default:"1"`

	TargetHostname    string          `split_words:"true"`
	TargetHostnames   models.HostList `split_words:"true" default:"[]"`
	TargetDescription string          `envconfig:"TARGET_DESC" default:"created by harness"`
	AddToInventory    Flag            `split_words:"true"`

	JobTemplateID string           `split_words:"true"`
	ExtraVars     models.ExtraVars `split_words:"true" default:"{}"`

	PollInterval time.Duration `split_words:"true" default:"5s"`
	Timeout      time.Duration `default:"1h"`
	LogLevel     string        `split_words:"true" default:"INFO"`

	// Output files are set by the CI runner, not the step author.
	OutputFile       string `envconfig:"DRONE_OUTPUT"`
	SecretOutputFile string `envconfig:"HARNESS_OUTPUT_SECRET_FILE"`
}

// ConfigurationError is a missing or malformed setting. Setting is the
// variable name without the PLUGIN_ prefix.
type ConfigurationError struct {
	Setting string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err == nil {
		return e.Setting + " required"
	}
	return fmt.Sprintf("invalid %s: %v", e.Setting, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var c Config
	if err := envconfig.Process(appPrefix, &c); err != nil {
		var perr *envconfig.ParseError
		if errors.As(err, &perr) {
			return nil, &ConfigurationError{Setting: settingName(perr.KeyName), Err: perr.Err}
		}
		return nil, &ConfigurationError{Setting: "environment", Err: err}
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"ENDPOINT", c.Endpoint},
		{"USERNAME", c.Username},
		{"PASSWORD", c.Password},
	}
	for _, r := range required {
		if r.value == "" {
			return &ConfigurationError{Setting: r.name}
		}
	}
	if _, _, err := parseID(c.InventoryID); err != nil {
		return &ConfigurationError{Setting: "INVENTORY_ID", Err: err}
	}
	if _, _, err := parseID(c.JobTemplateID); err != nil {
		return &ConfigurationError{Setting: "JOB_TEMPLATE_ID", Err: err}
	}
	if c.OrganizationID < 0 {
		return &ConfigurationError{Setting: "ORGANIZATION_ID", Err: fmt.Errorf("must not be negative, got %d", c.OrganizationID)}
	}
	if c.PollInterval <= 0 {
		return &ConfigurationError{Setting: "POLL_INTERVAL", Err: fmt.Errorf("must be positive, got %s", c.PollInterval)}
	}
	if c.Timeout < 0 {
		return &ConfigurationError{Setting: "TIMEOUT", Err: fmt.Errorf("must not be negative, got %s", c.Timeout)}
	}
	return nil
}

// Credentials returns the controller address and account.
func (c *Config) Credentials() models.Credentials {
	return models.Credentials{
		Endpoint: c.Endpoint,
		Username: c.Username,
		Password: c.Password,
		Insecure: c.Insecure,
	}
}

// Inventory returns the existing inventory id, if one was supplied.
func (c *Config) Inventory() (int, bool) {
	id, ok, _ := parseID(c.InventoryID)
	return id, ok
}

// JobTemplate returns the job template id, if one was supplied.
func (c *Config) JobTemplate() (int, bool) {
	id, ok, _ := parseID(c.JobTemplateID)
	return id, ok
}

func parseID(value string) (int, bool, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false, nil
	}
	id, err := strconv.Atoi(value)
	if err != nil {
		return 0, false, fmt.Errorf("%q is not a number", value)
	}
	if id <= 0 {
		return 0, false, fmt.Errorf("must be positive, got %d", id)
	}
	return id, true, nil
}

func settingName(key string) string {
	return strings.TrimPrefix(key, appPrefix+"_")
}

// Flag is a switch set by any non-empty value except false, 0, no and off.
type Flag bool

// Decode implements envconfig.Decoder.
func (f *Flag) Decode(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "false", "0", "no", "off":
		*f = false
	default:
		*f = true
	}
	return nil
}
