//go:build property
// +build property

package config

import (
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestServerConfigProperties checks the port and host rules.
func TestServerConfigProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("port validation", prop.ForAll(
		func(port int) bool {
			cfg := Default()
			cfg.Server.Port = port
			err := Validate(cfg)
			return (err == nil) == (port >= 0 && port <= 65535)
		},
		gen.IntRange(-1000, 70000),
	))

	properties.Property("valid hostnames accepted", prop.ForAll(
		func(host string) bool {
			cfg := Default()
			cfg.Server.Host = host
			return Validate(cfg) == nil
		},
		gen.RegexMatch(`^[a-z][a-z0-9]{0,20}(\.[a-z][a-z0-9]{0,20}){0,3}$`),
	))

	properties.Property("hosts with shell characters rejected", prop.ForAll(
		func(host, bad string) bool {
			cfg := Default()
			cfg.Server.Host = host + bad
			return Validate(cfg) != nil
		},
		gen.RegexMatch(`^[a-z]{1,10}$`),
		gen.OneConstOf(";", "&", "|", "$", "`", " ", "<"),
	))

	properties.TestingRun(t)
}

// TestViewsConfigProperties checks disk names and paths.
func TestViewsConfigProperties(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("disk names follow the identifier rule", prop.ForAll(
		func(name string) bool {
			cfg := Default()
			cfg.Views.Disks[name] = "./emails"
			err := Validate(cfg)
			return (err == nil) == diskNamePattern.MatchString(name)
		},
		gen.AnyString(),
	))

	properties.Property("traversal is always rejected", prop.ForAll(
		func(parts []string) bool {
			path := strings.Join(append([]string{".."}, parts...), "/")
			return validatePath(path) != nil
		},
		gen.SliceOfN(3, gen.RegexMatch(`^[a-z]{1,5}$`)),
	))

	properties.Property("path validation is deterministic", prop.ForAll(
		func(path string) bool {
			return (validatePath(path) == nil) == (validatePath(path) == nil)
		},
		gen.AnyString(),
	))

	properties.TestingRun(t)
}
