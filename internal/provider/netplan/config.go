// Package netplan provides the network provider: an optional static
// address rendered as a netplan overlay.
package netplan

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// OverlayPath is where the rendered netplan overlay lands.
const OverlayPath = "/etc/netplan/99-hostprep.yaml"

// Config represents the network section of the runbook.
type Config struct {
	Interface   string
	Address     string
	Gateway     string
	Nameservers []string
}

// ParseConfig parses the network configuration from a raw map.
func ParseConfig(raw map[string]interface{}) (*Config, error) {
	cfg := &Config{
		Nameservers: make([]string, 0),
	}

	if v, ok := raw["interface"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("interface must be a string")
		}
		cfg.Interface = s
	}
	if cfg.Interface == "" {
		return nil, fmt.Errorf("network section requires an interface")
	}

	if v, ok := raw["address"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("address must be a string")
		}
		cfg.Address = s
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("network section requires an address in CIDR form")
	}

	if v, ok := raw["gateway"]; ok {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("gateway must be a string")
		}
		cfg.Gateway = s
	}

	if v, ok := raw["nameservers"]; ok {
		list, ok := v.([]interface{})
		if !ok {
			return nil, fmt.Errorf("nameservers must be a list")
		}
		for _, ns := range list {
			s, ok := ns.(string)
			if !ok {
				return nil, fmt.Errorf("nameserver must be a string")
			}
			cfg.Nameservers = append(cfg.Nameservers, s)
		}
	}

	return cfg, nil
}

// overlayDoc mirrors the netplan YAML schema for a single static
// ethernet.
type overlayDoc struct {
	Network struct {
		Version   int                        `yaml:"version"`
		Ethernets map[string]overlayEthernet `yaml:"ethernets"`
	} `yaml:"network"`
}

type overlayEthernet struct {
	Addresses   []string       `yaml:"addresses"`
	Routes      []overlayRoute `yaml:"routes,omitempty"`
	Nameservers *overlayNS     `yaml:"nameservers,omitempty"`
}

type overlayRoute struct {
	To  string `yaml:"to"`
	Via string `yaml:"via"`
}

type overlayNS struct {
	Addresses []string `yaml:"addresses"`
}

// Render produces the netplan overlay content.
func (c *Config) Render() (string, error) {
	eth := overlayEthernet{
		Addresses: []string{c.Address},
	}
	if c.Gateway != "" {
		eth.Routes = []overlayRoute{{To: "default", Via: c.Gateway}}
	}
	if len(c.Nameservers) > 0 {
		eth.Nameservers = &overlayNS{Addresses: c.Nameservers}
	}

	var doc overlayDoc
	doc.Network.Version = 2
	doc.Network.Ethernets = map[string]overlayEthernet{c.Interface: eth}

	out, err := yaml.Marshal(&doc)
	if err != nil {
		return "", fmt.Errorf("render netplan overlay: %w", err)
	}
	return string(out), nil
}
