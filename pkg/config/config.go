// Package config provides the server option set, the optional on-disk
// configuration file, and the boot-time expectation source.
package config

// Defaults for the server option set.
const (
	DefaultIP                  = "0.0.0.0"
	DefaultPort                = 8086
	DefaultProxyTimeoutSeconds = 30
	DefaultJournalSize         = 1000
)

// ServerConfig is the recognized option set. Values merge in order:
// defaults, then the config file found under config-path, then CLI flags.
type ServerConfig struct {
	// IP is the bind address.
	IP string `yaml:"ip" json:"ip"`

	// Port is the bind port.
	Port int `yaml:"port" json:"port"`

	// Debug raises log verbosity.
	Debug bool `yaml:"debug" json:"debug"`

	// ExpectationsDir is scanned once at boot for *.json expectation files.
	ExpectationsDir string `yaml:"expectations-dir" json:"expectations-dir"`

	// FactoryClass is accepted for compatibility with existing
	// configuration files and ignored; component wiring is fixed.
	FactoryClass string `yaml:"factory-class" json:"factory-class"`

	// Certificate and CertificateKey enable TLS when both are set.
	// CertPassphrase decrypts an encrypted PEM key.
	Certificate    string `yaml:"certificate" json:"certificate"`
	CertificateKey string `yaml:"certificate-key" json:"certificate-key"`
	CertPassphrase string `yaml:"cert-passphrase" json:"cert-passphrase"`

	// ProxyTimeoutSeconds bounds each outbound proxy call.
	ProxyTimeoutSeconds int `yaml:"proxy-timeout" json:"proxy-timeout"`

	// JournalSize caps the request journal. Zero means unbounded.
	JournalSize int `yaml:"journal-size" json:"journal-size"`
}

// Default returns the documented defaults.
func Default() *ServerConfig {
	return &ServerConfig{
		IP:                  DefaultIP,
		Port:                DefaultPort,
		ProxyTimeoutSeconds: DefaultProxyTimeoutSeconds,
		JournalSize:         DefaultJournalSize,
	}
}

// TLSEnabled reports whether a certificate and key are both configured.
func (c *ServerConfig) TLSEnabled() bool {
	return c.Certificate != "" && c.CertificateKey != ""
}
