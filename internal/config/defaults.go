package config

const (
	defaultDataDir           = "~/.local/share/papertriage"
	defaultLogDir            = "~/.local/share/papertriage/logs"
	defaultAPIBind           = "127.0.0.1:7512"
	defaultPageSize          = 25
	defaultMaxDocuments      = 500
	defaultRequestTimeout    = 30
	defaultRetryAttempts     = 3
	defaultRetryDelaySeconds = 2
	defaultTitleMaxLength    = 120
	defaultTitlePromptChars  = 1000
	defaultDocumentDelayMS   = 500
	defaultLogFormat         = "console"
	defaultLogLevel          = "info"
)

// DefaultQualityPrompt asks the backend for a bare quality label.
const DefaultQualityPrompt = "You review OCR text extracted from scanned documents. " +
	"Reply with exactly one word: high_quality if the text is coherent and useful, " +
	"or low_quality if it is garbled, empty, or unusable. Text follows."

// DefaultTitlePrompt asks the backend for a short descriptive document title.
const DefaultTitlePrompt = "Suggest a short descriptive filename-style title " +
	"(no extension, no quotes, max 10 words) for the following document text."

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
			APIBind: defaultAPIBind,
		},
		Paperless: Paperless{
			PageSize:          defaultPageSize,
			MaxDocuments:      defaultMaxDocuments,
			RequestTimeout:    defaultRequestTimeout,
			RetryAttempts:     defaultRetryAttempts,
			RetryDelaySeconds: defaultRetryDelaySeconds,
		},
		Tags: Tags{
			IgnoreAlreadyTagged: true,
		},
		Processing: Processing{
			RenameHighQuality: false,
			TitleMaxLength:    defaultTitleMaxLength,
			TitlePromptChars:  defaultTitlePromptChars,
			DocumentDelayMS:   defaultDocumentDelayMS,
			QualityPrompt:     DefaultQualityPrompt,
			TitlePrompt:       DefaultTitlePrompt,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
