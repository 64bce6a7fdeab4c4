package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// DefaultHostsFile is where host profiles are looked up for --host.
const DefaultHostsFile = "config/hosts.yml"

// HostProfile is one entry of the hosts file.
//
//	production:
//	  url: https://wiki.example.org/w/api.php
//	  user: atlasmw
//	  pw: wombat
type HostProfile struct {
	URL      string `yaml:"url"`
	User     string `yaml:"user"`
	Password string `yaml:"pw"`
}

// loadHost reads path and returns the profile named id.
func loadHost(path, id string) (HostProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return HostProfile{}, fmt.Errorf("failed to read hosts file: %w", err)
	}

	var hosts map[string]HostProfile
	if err := yaml.Unmarshal(data, &hosts); err != nil {
		return HostProfile{}, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	host, ok := hosts[id]
	if !ok {
		return HostProfile{}, fmt.Errorf("host %s not found in %s", id, path)
	}
	return host, nil
}
