package gerrit

import (
	"fmt"
	"strings"
	"time"

	pathutils "github.com/temirov/reviewsync/internal/utils/path"
)

// Scheme selects the wire protocol used to reach the review backend.
type Scheme string

const (
	SchemeHTTP  Scheme = "http"
	SchemeHTTPS Scheme = "https"
	SchemeSSH   Scheme = "ssh"
)

// HTTPAuthScheme selects how REST requests authenticate.
type HTTPAuthScheme string

const (
	HTTPAuthSchemeBasic  HTTPAuthScheme = "basic"
	HTTPAuthSchemeDigest HTTPAuthScheme = "digest"
)

const (
	defaultSchemeConstant                = SchemeHTTPS
	defaultBranchConstant                = "master"
	defaultHTTPAuthSchemeConstant        = HTTPAuthSchemeBasic
	defaultKnownHostsPathConstant        = "~/.ssh/known_hosts"
	defaultStrictHostKeyCheckingConstant = true
	defaultTimeoutConstant               = 30 * time.Second
	defaultHTTPPortConstant              = 80
	defaultHTTPSPortConstant             = 443
	defaultSSHPortConstant               = 29418
	maximumPortConstant                  = 65535
	basePathSeparatorConstant            = "/"
)

const (
	configurationSchemeKeyConstant                = "scheme"
	configurationHostKeyConstant                  = "host"
	configurationPortKeyConstant                  = "port"
	configurationProjectKeyConstant               = "project"
	configurationBranchKeyConstant                = "branch"
	configurationChangeKeyConstant                = "change"
	configurationRevisionKeyConstant              = "revision"
	configurationUsernameKeyConstant              = "username"
	configurationPasswordKeyConstant              = "password"
	configurationSSHKeyPathKeyConstant            = "ssh_key_path"
	configurationSSHKnownHostsPathKeyConstant     = "ssh_known_hosts_path"
	configurationHTTPAuthSchemeKeyConstant        = "http_auth_scheme"
	configurationBasePathKeyConstant              = "base_path"
	configurationStrictHostKeyCheckingKeyConstant = "strict_host_key_checking"
	configurationTimeoutKeyConstant               = "timeout"
	configurationKeySeparatorConstant             = "."
)

const (
	missingSettingReasonConstant                = "is required"
	unsupportedSchemeReasonTemplateConstant     = "unsupported scheme %q (expected http, https, or ssh)"
	unsupportedAuthSchemeReasonTemplateConstant = "unsupported http auth scheme %q (expected basic or digest)"
	invalidPortReasonTemplateConstant           = "port %d is outside 0-65535"
	invalidTimeoutReasonTemplateConstant        = "timeout %s must not be negative"
)

var configurationHomeDirectoryExpander = pathutils.NewHomeExpander()

type requiredSetting struct {
	setting string
	value   string
}

// Configuration captures the connection and change coordinates of the review backend.
type Configuration struct {
	Scheme                string        `mapstructure:"scheme"`
	Host                  string        `mapstructure:"host"`
	Port                  int           `mapstructure:"port"`
	Project               string        `mapstructure:"project"`
	Branch                string        `mapstructure:"branch"`
	Change                string        `mapstructure:"change"`
	Revision              string        `mapstructure:"revision"`
	Username              string        `mapstructure:"username"`
	Password              string        `mapstructure:"password"`
	SSHKeyPath            string        `mapstructure:"ssh_key_path"`
	SSHKnownHostsPath     string        `mapstructure:"ssh_known_hosts_path"`
	HTTPAuthScheme        string        `mapstructure:"http_auth_scheme"`
	BasePath              string        `mapstructure:"base_path"`
	StrictHostKeyChecking bool          `mapstructure:"strict_host_key_checking"`
	Timeout               time.Duration `mapstructure:"timeout"`
}

// DefaultConfiguration returns the baseline backend configuration.
func DefaultConfiguration() Configuration {
	return Configuration{
		Scheme:                string(defaultSchemeConstant),
		Branch:                defaultBranchConstant,
		SSHKnownHostsPath:     defaultKnownHostsPathConstant,
		HTTPAuthScheme:        string(defaultHTTPAuthSchemeConstant),
		StrictHostKeyChecking: defaultStrictHostKeyCheckingConstant,
		Timeout:               defaultTimeoutConstant,
	}
}

// DefaultConfigurationValues produces Viper defaults rooted at rootKey.
func DefaultConfigurationValues(rootKey string) map[string]any {
	defaults := DefaultConfiguration()
	prefix := rootKey + configurationKeySeparatorConstant
	return map[string]any{
		prefix + configurationSchemeKeyConstant:                defaults.Scheme,
		prefix + configurationHostKeyConstant:                  defaults.Host,
		prefix + configurationPortKeyConstant:                  defaults.Port,
		prefix + configurationProjectKeyConstant:               defaults.Project,
		prefix + configurationBranchKeyConstant:                defaults.Branch,
		prefix + configurationChangeKeyConstant:                defaults.Change,
		prefix + configurationRevisionKeyConstant:              defaults.Revision,
		prefix + configurationUsernameKeyConstant:              defaults.Username,
		prefix + configurationPasswordKeyConstant:              defaults.Password,
		prefix + configurationSSHKeyPathKeyConstant:            defaults.SSHKeyPath,
		prefix + configurationSSHKnownHostsPathKeyConstant:     defaults.SSHKnownHostsPath,
		prefix + configurationHTTPAuthSchemeKeyConstant:        defaults.HTTPAuthScheme,
		prefix + configurationBasePathKeyConstant:              defaults.BasePath,
		prefix + configurationStrictHostKeyCheckingKeyConstant: defaults.StrictHostKeyChecking,
		prefix + configurationTimeoutKeyConstant:               defaults.Timeout,
	}
}

// Sanitize trims values, lowercases enumerations, normalizes the base path, and expands home-relative paths.
func (configuration Configuration) Sanitize() Configuration {
	sanitized := configuration
	sanitized.Scheme = strings.ToLower(strings.TrimSpace(configuration.Scheme))
	sanitized.Host = strings.TrimSpace(configuration.Host)
	sanitized.Project = strings.TrimSpace(configuration.Project)
	sanitized.Branch = strings.TrimSpace(configuration.Branch)
	if len(sanitized.Branch) == 0 {
		sanitized.Branch = defaultBranchConstant
	}
	sanitized.Change = strings.TrimSpace(configuration.Change)
	sanitized.Revision = strings.TrimSpace(configuration.Revision)
	sanitized.Username = strings.TrimSpace(configuration.Username)
	sanitized.HTTPAuthScheme = strings.ToLower(strings.TrimSpace(configuration.HTTPAuthScheme))
	if len(sanitized.HTTPAuthScheme) == 0 {
		sanitized.HTTPAuthScheme = string(defaultHTTPAuthSchemeConstant)
	}
	sanitized.BasePath = sanitizeBasePath(configuration.BasePath)
	sanitized.SSHKeyPath = configurationHomeDirectoryExpander.Expand(configuration.SSHKeyPath)
	sanitized.SSHKnownHostsPath = configurationHomeDirectoryExpander.Expand(configuration.SSHKnownHostsPath)
	return sanitized
}

// Validate checks the settings every transport needs plus the scheme-specific ones.
func (configuration Configuration) Validate() error {
	scheme, schemeError := ParseScheme(configuration.Scheme)
	if schemeError != nil {
		return schemeError
	}

	required := []requiredSetting{
		{setting: configurationHostKeyConstant, value: configuration.Host},
		{setting: configurationProjectKeyConstant, value: configuration.Project},
		{setting: configurationChangeKeyConstant, value: configuration.Change},
		{setting: configurationRevisionKeyConstant, value: configuration.Revision},
	}
	if scheme == SchemeSSH {
		required = append(required,
			requiredSetting{setting: configurationUsernameKeyConstant, value: configuration.Username},
			requiredSetting{setting: configurationSSHKeyPathKeyConstant, value: configuration.SSHKeyPath},
		)
	}
	for _, requirement := range required {
		if len(strings.TrimSpace(requirement.value)) == 0 {
			return ConfigurationError{Setting: requirement.setting, Reason: missingSettingReasonConstant}
		}
	}

	if configuration.Port < 0 || configuration.Port > maximumPortConstant {
		return ConfigurationError{Setting: configurationPortKeyConstant, Reason: fmt.Sprintf(invalidPortReasonTemplateConstant, configuration.Port)}
	}
	if configuration.Timeout < 0 {
		return ConfigurationError{Setting: configurationTimeoutKeyConstant, Reason: fmt.Sprintf(invalidTimeoutReasonTemplateConstant, configuration.Timeout)}
	}
	if scheme != SchemeSSH {
		if _, authError := ParseHTTPAuthScheme(configuration.HTTPAuthScheme); authError != nil {
			return authError
		}
	}
	return nil
}

// ResolvedPort returns the configured port or the scheme's default when unset.
func (configuration Configuration) ResolvedPort() int {
	if configuration.Port > 0 {
		return configuration.Port
	}
	switch Scheme(strings.ToLower(strings.TrimSpace(configuration.Scheme))) {
	case SchemeHTTP:
		return defaultHTTPPortConstant
	case SchemeSSH:
		return defaultSSHPortConstant
	default:
		return defaultHTTPSPortConstant
	}
}

// ParseScheme converts a case-insensitive scheme name.
func ParseScheme(raw string) (Scheme, error) {
	switch Scheme(strings.ToLower(strings.TrimSpace(raw))) {
	case SchemeHTTP:
		return SchemeHTTP, nil
	case SchemeHTTPS:
		return SchemeHTTPS, nil
	case SchemeSSH:
		return SchemeSSH, nil
	default:
		return "", ConfigurationError{Setting: configurationSchemeKeyConstant, Reason: fmt.Sprintf(unsupportedSchemeReasonTemplateConstant, raw)}
	}
}

// ParseHTTPAuthScheme converts a case-insensitive authentication scheme name.
func ParseHTTPAuthScheme(raw string) (HTTPAuthScheme, error) {
	switch HTTPAuthScheme(strings.ToLower(strings.TrimSpace(raw))) {
	case HTTPAuthSchemeBasic:
		return HTTPAuthSchemeBasic, nil
	case HTTPAuthSchemeDigest:
		return HTTPAuthSchemeDigest, nil
	default:
		return "", ConfigurationError{Setting: configurationHTTPAuthSchemeKeyConstant, Reason: fmt.Sprintf(unsupportedAuthSchemeReasonTemplateConstant, raw)}
	}
}

func sanitizeBasePath(raw string) string {
	trimmed := strings.Trim(strings.TrimSpace(raw), basePathSeparatorConstant)
	if len(trimmed) == 0 {
		return ""
	}
	return basePathSeparatorConstant + trimmed
}
