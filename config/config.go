package config

import (
	"fmt"
	"net/netip"
	"os"
	"time"

	"github.com/davidbalbert/olsrd/olsr"
	"gopkg.in/yaml.v3"
)

type Config struct {
	OLSR *OLSRConfig
}

// OLSRConfig holds the emission intervals and node parameters from the
// "olsr" section of olsrd.yaml. Intervals are in seconds in the file.
type OLSRConfig struct {
	HelloInterval   time.Duration
	RefreshInterval time.Duration
	TCInterval      time.Duration
	MIDInterval     time.Duration
	HNAInterval     time.Duration
	Willingness     olsr.Willingness
	Associations    []olsr.Association
}

// Hold times are how long receivers should keep the corresponding
// information around, three emission intervals each. They ride along in
// each message's validity field.

func (c *OLSRConfig) NeighborHoldTime() time.Duration {
	return 3 * c.RefreshInterval
}

func (c *OLSRConfig) TopologyHoldTime() time.Duration {
	return 3 * c.TCInterval
}

func (c *OLSRConfig) MIDHoldTime() time.Duration {
	return 3 * c.MIDInterval
}

func (c *OLSRConfig) HNAHoldTime() time.Duration {
	return 3 * c.HNAInterval
}

func LoadConfig(path string) (*Config, error) {
	s, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	config, err := ParseConfig(string(s))
	if err != nil {
		return nil, err
	}

	err = config.validate()
	if err != nil {
		return nil, err
	}

	return config, nil
}

func ParseConfig(s string) (*Config, error) {
	var data map[string]interface{}

	if err := yaml.Unmarshal([]byte(s), &data); err != nil {
		return nil, err
	}

	c := Config{}

	for k, v := range data {
		switch k {
		case "olsr":
			v, ok := v.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("olsr must be a map")
			}

			olsrConfig, err := parseOLSRConfig(v)
			if err != nil {
				return nil, err
			}

			c.OLSR = olsrConfig
		default:
			return nil, fmt.Errorf("unknown top level key: %s", k)
		}
	}

	return &c, nil
}

func parseOLSRConfig(data map[string]interface{}) (*OLSRConfig, error) {
	c := &OLSRConfig{
		HelloInterval:   2 * time.Second,
		RefreshInterval: 2 * time.Second,
		TCInterval:      5 * time.Second,
		MIDInterval:     5 * time.Second,
		HNAInterval:     5 * time.Second,
		Willingness:     olsr.WillDefault,
	}

	for k, v := range data {
		switch k {
		case "hello-interval":
			d, err := parseSeconds(v)
			if err != nil {
				return nil, fmt.Errorf("hello-interval: %w", err)
			}
			c.HelloInterval = d
		case "refresh-interval":
			d, err := parseSeconds(v)
			if err != nil {
				return nil, fmt.Errorf("refresh-interval: %w", err)
			}
			c.RefreshInterval = d
		case "tc-interval":
			d, err := parseSeconds(v)
			if err != nil {
				return nil, fmt.Errorf("tc-interval: %w", err)
			}
			c.TCInterval = d
		case "mid-interval":
			d, err := parseSeconds(v)
			if err != nil {
				return nil, fmt.Errorf("mid-interval: %w", err)
			}
			c.MIDInterval = d
		case "hna-interval":
			d, err := parseSeconds(v)
			if err != nil {
				return nil, fmt.Errorf("hna-interval: %w", err)
			}
			c.HNAInterval = d
		case "willingness":
			w, err := parseWillingness(v)
			if err != nil {
				return nil, err
			}
			c.Willingness = w
		case "associations":
			associations, err := parseAssociations(v)
			if err != nil {
				return nil, err
			}
			c.Associations = associations
		default:
			return nil, fmt.Errorf("unknown olsr key: %s", k)
		}
	}

	return c, nil
}

func parseSeconds(v interface{}) (time.Duration, error) {
	var d time.Duration

	switch v := v.(type) {
	case int:
		d = time.Duration(v) * time.Second
	case float64:
		d = time.Duration(v * float64(time.Second))
	default:
		return 0, fmt.Errorf("must be a number of seconds")
	}

	if d <= 0 {
		return 0, fmt.Errorf("must be positive")
	}

	return d, nil
}

func parseWillingness(v interface{}) (olsr.Willingness, error) {
	switch v := v.(type) {
	case int:
		if v < 0 || v > 7 {
			return 0, fmt.Errorf("willingness must be between 0 and 7")
		}
		return olsr.Willingness(v), nil
	case string:
		switch v {
		case "never":
			return olsr.WillNever, nil
		case "low":
			return olsr.WillLow, nil
		case "default":
			return olsr.WillDefault, nil
		case "high":
			return olsr.WillHigh, nil
		case "always":
			return olsr.WillAlways, nil
		default:
			return 0, fmt.Errorf("unknown willingness: %s", v)
		}
	default:
		return 0, fmt.Errorf("willingness must be a name or an integer")
	}
}

func parseAssociations(v interface{}) ([]olsr.Association, error) {
	list, ok := v.([]interface{})
	if !ok {
		return nil, fmt.Errorf("associations must be a list")
	}

	var associations []olsr.Association

	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("associations must be CIDR strings")
		}

		prefix, err := netip.ParsePrefix(s)
		if err != nil {
			return nil, fmt.Errorf("bad association %q: %w", s, err)
		}
		if !prefix.Addr().Is4() {
			return nil, fmt.Errorf("bad association %q: must be IPv4", s)
		}

		associations = append(associations, olsr.AssociationFromPrefix(prefix))
	}

	return associations, nil
}

func (c *Config) validate() error {
	if c.OLSR == nil {
		return nil
	}

	if c.OLSR.HelloInterval > c.OLSR.RefreshInterval {
		return fmt.Errorf("hello-interval must not be larger than refresh-interval")
	}

	return nil
}
