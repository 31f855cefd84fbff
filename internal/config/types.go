package config

import (
	"time"
)

// Config represents the full tenantctl run configuration document.
type Config struct {
	Version     string   `yaml:"version" validate:"required,semver"`
	Name        string   `yaml:"name" validate:"required,min=1,max=100"`
	Description string   `yaml:"description,omitempty"`
	Context     Context  `yaml:"context" validate:"required"`
	Auth        Auth     `yaml:"auth,omitempty"`
	Settings    Settings `yaml:"settings,omitempty"`
	Input       Input    `yaml:"input" validate:"required"`
}

// Context holds the tenant-level defaults the mapper applies to every row.
type Context struct {
	Domain       string `yaml:"domain" validate:"required,tenant_domain"`
	DefaultOwner string `yaml:"default_owner,omitempty"`
}

// Auth identifies the app registration used for remote drivers. It is
// optional: plan and offline runs never authenticate. The client secret is
// never stored in the file; SecretEnv names the environment variable that
// carries it.
type Auth struct {
	TenantID  string `yaml:"tenant_id,omitempty" validate:"omitempty,uuid4"`
	ClientID  string `yaml:"client_id,omitempty" validate:"omitempty,uuid4"`
	SecretEnv string `yaml:"client_secret_env,omitempty"`
	// SharePointHost is the tenant's SharePoint hostname, e.g.
	// "contoso.sharepoint.com". Required only when the batch contains sites.
	SharePointHost string `yaml:"sharepoint_host,omitempty" validate:"omitempty,hostname"`
}

// Configured reports whether remote credentials are present.
func (a Auth) Configured() bool {
	return a.TenantID != "" && a.ClientID != "" && a.SecretEnv != ""
}

// Settings holds execution parameters.
type Settings struct {
	// Parallel caps concurrent intents. 0 or 1 selects sequential
	// processing, the safe default for per-tenant rate limits.
	Parallel int `yaml:"parallel,omitempty" validate:"omitempty,min=1,max=16"`
	// PollMaxAttempts bounds post-create verification of eventually
	// consistent resources.
	PollMaxAttempts int `yaml:"poll_max_attempts,omitempty" validate:"omitempty,min=1,max=120"`
	// PollDelay is the pause between verification attempts, e.g. "5s".
	PollDelay string `yaml:"poll_delay,omitempty" validate:"omitempty,duration"`
	Verbose   bool   `yaml:"verbose,omitempty"`
}

// Defaults applied when settings are omitted.
const (
	DefaultPollMaxAttempts = 10
	DefaultPollDelay       = 5 * time.Second
)

// PollDelayDuration returns the parsed poll delay, falling back to the
// default when unset. Validation guarantees the string parses.
func (s Settings) PollDelayDuration() time.Duration {
	if s.PollDelay == "" {
		return DefaultPollDelay
	}
	d, err := time.ParseDuration(s.PollDelay)
	if err != nil {
		return DefaultPollDelay
	}
	return d
}

// EffectivePollMaxAttempts returns the configured attempt bound or the default.
func (s Settings) EffectivePollMaxAttempts() int {
	if s.PollMaxAttempts <= 0 {
		return DefaultPollMaxAttempts
	}
	return s.PollMaxAttempts
}

// Input locates the batch file.
type Input struct {
	File string `yaml:"file" validate:"required"`
	// Sheet selects the worksheet for Excel workbooks; ignored for CSV.
	// Empty means the first sheet.
	Sheet string `yaml:"sheet,omitempty"`
}
