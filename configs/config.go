package configs

import (
	"bytes"

	"github.com/BurntSushi/toml"
	"github.com/cockroachdb/errors"
)

// DefaultTemplate .
const DefaultTemplate = `
env = "dev"
log_level = "info"
prof_http_port = 9999

[ovn]
nb_addrs = ["tcp:127.0.0.1:6641"]
txn_timeout = "30s"
vif_type = "ovs"
vhost_sock_dir = "/var/run/openvswitch"
`

// Conf .
var Conf = newDefault()

// Config .
type Config struct {
	Env          string `toml:"env"`
	LogLevel     string `toml:"log_level"`
	LogFile      string `toml:"log_file"`
	SentryDSN    string `toml:"sentry_dsn"`
	ProfHTTPPort int    `toml:"prof_http_port"`

	OVN OVNConfig `toml:"ovn"`
}

// OVNConfig holds the northbound database client settings.
type OVNConfig struct {
	NBAddrs      []string `toml:"nb_addrs"`
	TxnTimeout   Duration `toml:"txn_timeout"`
	VIFType      string   `toml:"vif_type"`
	VhostSockDir string   `toml:"vhost_sock_dir"`
}

func newDefault() Config {
	var conf Config
	if err := Decode(DefaultTemplate, &conf); err != nil {
		panic(errors.Wrap(err, "failed to decode default template"))
	}
	return conf
}

// Load loads config files one by one, the latter overrides the former.
func (cfg *Config) Load(files []string) error {
	for _, file := range files {
		if err := DecodeFile(file, cfg); err != nil {
			return errors.Wrapf(err, "failed to load config file %s", file)
		}
	}
	return cfg.check()
}

func (cfg *Config) check() error {
	if len(cfg.OVN.NBAddrs) < 1 {
		return errors.New("ovn.nb_addrs is required")
	}
	switch cfg.OVN.VIFType {
	case "ovs", "vhostuser":
	default:
		return errors.Newf("invalid ovn.vif_type: %s", cfg.OVN.VIFType)
	}
	return nil
}

// Dump .
func (cfg *Config) Dump() (string, error) {
	return Encode(cfg)
}

// Decode .
func Decode(raw string, conf *Config) error {
	_, err := toml.Decode(raw, conf)
	return errors.Wrap(err, "")
}

// Encode .
func Encode(conf *Config, noIndents ...bool) (string, error) {
	var buf bytes.Buffer
	var enc = toml.NewEncoder(&buf)

	if len(noIndents) < 1 || !noIndents[0] {
		enc.Indent = "    "
	}

	if err := enc.Encode(conf); err != nil {
		return "", errors.Wrap(err, "")
	}

	return buf.String(), nil
}

// DecodeFile .
func DecodeFile(file string, conf *Config) (err error) {
	_, err = toml.DecodeFile(file, conf)
	return
}
