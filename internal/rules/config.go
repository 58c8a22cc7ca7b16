package rules

import (
	"embed"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// documentFile is the on-disk shape of a blocklist. The lists may sit under a
// BlockedCommands key or at the top level. JSON files decode the same way.
type documentFile struct {
	BlockedCommands *Document `yaml:"BlockedCommands"`
	Document        `yaml:",inline"`
}

// Parse decodes a YAML or JSON blocklist document.
func Parse(data []byte) (Document, error) {
	var f documentFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Document{}, err
	}
	if f.BlockedCommands != nil {
		return *f.BlockedCommands, nil
	}
	return f.Document, nil
}

// LoadFile reads and compiles a blocklist file. Every failure is a
// *ConfigurationError.
func LoadFile(path string) (*Ruleset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Err: err}
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, &ConfigurationError{Source: path, Err: fmt.Errorf("parse: %w", err)}
	}
	rs, err := Compile(doc)
	if err != nil {
		return nil, relabel(err, path)
	}
	return rs, nil
}

//go:embed profiles/*.yaml
var profileFS embed.FS

// ProfileNames lists the embedded blocklist profiles.
func ProfileNames() []string {
	entries, _ := profileFS.ReadDir("profiles")
	var names []string
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(names)
	return names
}

// ProfileDocument returns the uncompiled lists of an embedded profile.
func ProfileDocument(name string) (Document, error) {
	data, err := profileFS.ReadFile(path.Join("profiles", name+".yaml"))
	if err != nil {
		return Document{}, &ConfigurationError{
			Source: "profile " + name,
			Err:    fmt.Errorf("unknown profile (have %s)", strings.Join(ProfileNames(), ", ")),
		}
	}
	doc, err := Parse(data)
	if err != nil {
		return Document{}, &ConfigurationError{Source: "profile " + name, Err: err}
	}
	return doc, nil
}

// Profile compiles an embedded profile.
func Profile(name string) (*Ruleset, error) {
	doc, err := ProfileDocument(name)
	if err != nil {
		return nil, err
	}
	rs, err := Compile(doc)
	if err != nil {
		return nil, relabel(err, "profile "+name)
	}
	return rs, nil
}

// ProfileSource returns the raw YAML of an embedded profile.
func ProfileSource(name string) ([]byte, error) {
	if _, err := ProfileDocument(name); err != nil {
		return nil, err
	}
	return profileFS.ReadFile(path.Join("profiles", name+".yaml"))
}

func relabel(err error, source string) error {
	if ce, ok := err.(*ConfigurationError); ok {
		return &ConfigurationError{Source: source, Err: ce.Err}
	}
	return &ConfigurationError{Source: source, Err: err}
}
