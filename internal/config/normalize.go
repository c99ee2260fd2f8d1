package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizePaperless()
	c.normalizeBackends()
	c.normalizeProcessing()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizePaperless() {
	c.Paperless.BaseURL = strings.TrimRight(strings.TrimSpace(c.Paperless.BaseURL), "/")
	if c.Paperless.APIToken == "" {
		if value, ok := os.LookupEnv("PAPERLESS_API_TOKEN"); ok {
			c.Paperless.APIToken = value
		}
	}
	c.Paperless.APIToken = strings.TrimSpace(c.Paperless.APIToken)
	if c.Paperless.PageSize <= 0 {
		c.Paperless.PageSize = defaultPageSize
	}
	if c.Paperless.MaxDocuments <= 0 {
		c.Paperless.MaxDocuments = defaultMaxDocuments
	}
	if c.Paperless.RequestTimeout <= 0 {
		c.Paperless.RequestTimeout = defaultRequestTimeout
	}
	if c.Paperless.RetryAttempts <= 0 {
		c.Paperless.RetryAttempts = defaultRetryAttempts
	}
	if c.Paperless.RetryDelaySeconds < 0 {
		c.Paperless.RetryDelaySeconds = defaultRetryDelaySeconds
	}
}

func (c *Config) normalizeBackends() {
	for i := range c.Backends {
		b := &c.Backends[i]
		b.Name = strings.TrimSpace(b.Name)
		b.URL = strings.TrimRight(strings.TrimSpace(b.URL), "/")
		b.Model = strings.TrimSpace(b.Model)
		b.APIKey = strings.TrimSpace(b.APIKey)
		if b.Name == "" {
			b.Name = fmt.Sprintf("backend-%d", i+1)
		}
	}
}

func (c *Config) normalizeProcessing() {
	if c.Processing.TitleMaxLength <= 0 {
		c.Processing.TitleMaxLength = defaultTitleMaxLength
	}
	if c.Processing.TitlePromptChars <= 0 {
		c.Processing.TitlePromptChars = defaultTitlePromptChars
	}
	if c.Processing.DocumentDelayMS < 0 {
		c.Processing.DocumentDelayMS = defaultDocumentDelayMS
	}
	if strings.TrimSpace(c.Processing.QualityPrompt) == "" {
		c.Processing.QualityPrompt = DefaultQualityPrompt
	}
	if strings.TrimSpace(c.Processing.TitlePrompt) == "" {
		c.Processing.TitlePrompt = DefaultTitlePrompt
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
