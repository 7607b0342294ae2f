package config

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the fields required by the given mode are present.
// Modes map to commands: run, mailbox, serve, migrate.
func (c *Config) Validate(mode string) error {
	var problems []string

	switch mode {
	case "run":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Feed.BaseURL == "" {
			problems = append(problems, "feed.base_url is required")
		}
		if len(c.Feed.Accounts) == 0 {
			problems = append(problems, "at least one feed account is required")
		}
		if len(c.Anthropic.Keys) == 0 {
			problems = append(problems, "anthropic.keys is required")
		}
		if c.Pipeline.MailFetchEnabled {
			if c.Mailbox.Username == "" || c.Mailbox.Password == "" {
				problems = append(problems, "mailbox credentials are required when mail fetch is enabled")
			}
		}
		problems = append(problems, c.pipelineBounds()...)
	case "mailbox":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if len(c.Anthropic.Keys) == 0 {
			problems = append(problems, "anthropic.keys is required")
		}
		if c.Mailbox.Username == "" || c.Mailbox.Password == "" {
			problems = append(problems, "mailbox credentials are required")
		}
		problems = append(problems, c.pipelineBounds()...)
	case "serve":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	case "migrate":
		if c.Store.DatabaseURL == "" {
			problems = append(problems, "store.database_url is required")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Store.Driver != "sqlite" && c.Store.Driver != "postgres" {
		problems = append(problems, "store.driver must be sqlite or postgres")
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) pipelineBounds() []string {
	var problems []string
	if c.Pipeline.Concurrency < 1 || c.Pipeline.Concurrency > 32 {
		problems = append(problems, "pipeline.concurrency must be between 1 and 32")
	}
	if c.Pipeline.MailThreshold < 0 || c.Pipeline.MailThreshold > 1 {
		problems = append(problems, "pipeline.mail_threshold must be between 0 and 1")
	}
	if c.Pipeline.LinkerThreshold < 0 || c.Pipeline.LinkerThreshold > 100 {
		problems = append(problems, "pipeline.linker_threshold must be between 0 and 100")
	}
	return problems
}
