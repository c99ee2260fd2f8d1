package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaperless(); err != nil {
		return err
	}
	if err := c.validateTags(); err != nil {
		return err
	}
	if err := c.validateBackends(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaperless() error {
	if c.Paperless.BaseURL == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/papertriage/config.toml"
		}
		return fmt.Errorf("paperless.base_url is required; edit %s (create with 'papertriage config init')", defaultPath)
	}
	parsed, err := url.Parse(c.Paperless.BaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("paperless.base_url %q must be an absolute URL", c.Paperless.BaseURL)
	}
	if c.Paperless.APIToken == "" {
		return errors.New("paperless.api_token is required (or set PAPERLESS_API_TOKEN)")
	}
	return nil
}

func (c *Config) validateTags() error {
	if c.Tags.LowQualityTagID <= 0 {
		return errors.New("tags.low_quality_tag_id must be a positive tag id")
	}
	if c.Tags.HighQualityTagID <= 0 {
		return errors.New("tags.high_quality_tag_id must be a positive tag id")
	}
	if c.Tags.LowQualityTagID == c.Tags.HighQualityTagID {
		return errors.New("tags.low_quality_tag_id and tags.high_quality_tag_id must differ")
	}
	return nil
}

func (c *Config) validateBackends() error {
	if len(c.Backends) == 0 {
		return errors.New("at least one [[backends]] entry is required")
	}
	seen := map[string]struct{}{}
	for _, b := range c.Backends {
		if _, dup := seen[b.Name]; dup {
			return fmt.Errorf("backends: duplicate name %q", b.Name)
		}
		seen[b.Name] = struct{}{}
		if b.URL == "" {
			return fmt.Errorf("backends.%s: url must be set", b.Name)
		}
		parsed, err := url.Parse(b.URL)
		if err != nil || parsed.Scheme == "" || parsed.Host == "" {
			return fmt.Errorf("backends.%s: url %q must be an absolute URL", b.Name, b.URL)
		}
		if b.Model == "" {
			return fmt.Errorf("backends.%s: model must be set", b.Name)
		}
		if b.TimeoutSeconds < 0 {
			return fmt.Errorf("backends.%s: timeout_seconds must not be negative", b.Name)
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be debug, info, warn, or error, got %q", c.Logging.Level)
	}
}
