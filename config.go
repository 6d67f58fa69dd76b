package goathena

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPollInterval       = 1 * time.Second
	defaultResultReuseMinutes = 60
	defaultArraysize          = 1000
	maxArraysize              = 1000
)

// Config is the set of connection parameters for the driver.
type Config struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string

	Schema         string // default database
	Catalog        string
	WorkGroup      string
	OutputLocation string

	EncryptionOption string
	KmsKey           string

	PollInterval    time.Duration // wait between status polls
	KillOnInterrupt bool          // cancel the remote execution on context cancellation

	ResultReuseEnable  bool
	ResultReuseMinutes int32

	CacheSize       int           // max executions scanned for client-side reuse, 0 disables
	CacheExpiration time.Duration // reuse window, 0 means no age limit

	ParamStyle ParamStyle

	RetryConfig *RetryConfig

	Endpoint string // alternate service endpoint, used in tests

	ClientConfigFile string
}

// fillMissingConfigParameters applies defaults for fields the DSN did
// not set.
func fillMissingConfigParameters(cfg *Config) error {
	if cfg.Region == "" {
		return programmingError("region is required")
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ResultReuseMinutes == 0 {
		cfg.ResultReuseMinutes = defaultResultReuseMinutes
	}
	if cfg.RetryConfig == nil {
		cfg.RetryConfig = defaultRetryConfig()
	}
	return nil
}

// DSN reconstructs the data source name for a Config.
func DSN(cfg *Config) string {
	var b strings.Builder
	if cfg.AccessKeyID != "" {
		b.WriteString(url.QueryEscape(cfg.AccessKeyID))
		if cfg.SecretAccessKey != "" {
			b.WriteByte(':')
			b.WriteString(url.QueryEscape(cfg.SecretAccessKey))
		}
		b.WriteByte('@')
	}
	b.WriteString(cfg.Region)
	if cfg.Schema != "" {
		b.WriteByte('/')
		b.WriteString(cfg.Schema)
	}
	params := url.Values{}
	if cfg.Catalog != "" {
		params.Set("catalog", cfg.Catalog)
	}
	if cfg.WorkGroup != "" {
		params.Set("work_group", cfg.WorkGroup)
	}
	if cfg.OutputLocation != "" {
		params.Set("output_location", cfg.OutputLocation)
	}
	if len(params) > 0 {
		b.WriteByte('?')
		b.WriteString(params.Encode())
	}
	return b.String()
}

// ParseDSN parses a data source name of the form
//
//	[accessKey[:secretKey]@]region[/schema][?param=value&...]
//
// e.g. "AKIA...:secret@us-east-1/default?work_group=primary".
func ParseDSN(dsn string) (*Config, error) {
	cfg := &Config{
		KillOnInterrupt: true,
	}

	rest := dsn
	if at := strings.LastIndexByte(rest, '@'); at >= 0 {
		credentials := rest[:at]
		rest = rest[at+1:]
		if colon := strings.IndexByte(credentials, ':'); colon >= 0 {
			cfg.AccessKeyID = credentials[:colon]
			cfg.SecretAccessKey = credentials[colon+1:]
		} else {
			cfg.AccessKeyID = credentials
		}
		var err error
		if cfg.AccessKeyID, err = url.QueryUnescape(cfg.AccessKeyID); err != nil {
			return nil, programmingError(fmt.Sprintf("invalid access key encoding: %v", err))
		}
		if cfg.SecretAccessKey, err = url.QueryUnescape(cfg.SecretAccessKey); err != nil {
			return nil, programmingError(fmt.Sprintf("invalid secret key encoding: %v", err))
		}
	}

	var query string
	if q := strings.IndexByte(rest, '?'); q >= 0 {
		query = rest[q+1:]
		rest = rest[:q]
	}
	if slash := strings.IndexByte(rest, '/'); slash >= 0 {
		cfg.Region = rest[:slash]
		cfg.Schema = rest[slash+1:]
	} else {
		cfg.Region = rest
	}

	if query != "" {
		values, err := url.ParseQuery(query)
		if err != nil {
			return nil, programmingError(fmt.Sprintf("invalid DSN parameters: %v", err))
		}
		if err := parseDSNParams(cfg, values); err != nil {
			return nil, err
		}
	}

	if err := fillMissingConfigParameters(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func parseDSNParams(cfg *Config, values url.Values) error {
	for key := range values {
		value := values.Get(key)
		var err error
		switch key {
		case "catalog":
			cfg.Catalog = value
		case "work_group":
			cfg.WorkGroup = value
		case "output_location":
			cfg.OutputLocation = value
		case "encryption_option":
			cfg.EncryptionOption = value
		case "kms_key":
			cfg.KmsKey = value
		case "session_token":
			cfg.SessionToken = value
		case "poll_interval":
			var seconds float64
			if seconds, err = strconv.ParseFloat(value, 64); err == nil {
				cfg.PollInterval = time.Duration(seconds * float64(time.Second))
			}
		case "kill_on_interrupt":
			cfg.KillOnInterrupt, err = strconv.ParseBool(value)
		case "result_reuse_enable":
			cfg.ResultReuseEnable, err = strconv.ParseBool(value)
		case "result_reuse_minutes":
			var minutes int64
			if minutes, err = strconv.ParseInt(value, 10, 32); err == nil {
				cfg.ResultReuseMinutes = int32(minutes)
			}
		case "cache_size":
			cfg.CacheSize, err = strconv.Atoi(value)
		case "cache_expiration_time":
			var seconds int64
			if seconds, err = strconv.ParseInt(value, 10, 64); err == nil {
				cfg.CacheExpiration = time.Duration(seconds) * time.Second
			}
		case "param_style":
			switch value {
			case "qmark":
				cfg.ParamStyle = ParamStyleQmark
			case "named":
				cfg.ParamStyle = ParamStyleNamed
			default:
				err = fmt.Errorf("unknown param_style: %s", value)
			}
		case "endpoint":
			cfg.Endpoint = value
		case "client_config_file":
			cfg.ClientConfigFile = value
		default:
			logger.Warnf("ignoring unknown DSN parameter: %v", key)
		}
		if err != nil {
			return programmingError(fmt.Sprintf("invalid DSN parameter %v: %v", key, err))
		}
	}
	return nil
}
