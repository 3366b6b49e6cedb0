package mpesa

import "time"

const (
	SandboxBaseURL          = "https://sandbox.safaricom.co.ke"
	DefaultTransactionType  = "CustomerPayBillOnline"
	DefaultAccountReference = "PesaFlow"
	DefaultTransactionDesc  = "Wallet Topup"
	DefaultCountryCode      = "254"
	DefaultTimezone         = "Africa/Nairobi"
)

type Config struct {
	Enable           bool          `mapstructure:"enable"`
	BaseURL          string        `mapstructure:"base_url"`
	ConsumerKey      string        `mapstructure:"consumer_key"`
	ConsumerSecret   string        `mapstructure:"consumer_secret"`
	Passkey          string        `mapstructure:"passkey"`
	ShortCode        string        `mapstructure:"short_code"`
	CallbackURL      string        `mapstructure:"callback_url"`
	TransactionType  string        `mapstructure:"transaction_type"`
	AccountReference string        `mapstructure:"account_reference"`
	TransactionDesc  string        `mapstructure:"transaction_desc"`
	CountryCode      string        `mapstructure:"country_code"`
	Timezone         string        `mapstructure:"timezone"`
	Timeout          time.Duration `mapstructure:"timeout"`
	ProbeTimeout     time.Duration `mapstructure:"probe_timeout"`
}

func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = SandboxBaseURL
	}
	if c.TransactionType == "" {
		c.TransactionType = DefaultTransactionType
	}
	if c.AccountReference == "" {
		c.AccountReference = DefaultAccountReference
	}
	if c.TransactionDesc == "" {
		c.TransactionDesc = DefaultTransactionDesc
	}
	if c.CountryCode == "" {
		c.CountryCode = DefaultCountryCode
	}
	if c.Timezone == "" {
		c.Timezone = DefaultTimezone
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 2 * time.Second
	}
	return c
}
