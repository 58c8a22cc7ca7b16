package rules

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"
)

func TestCompileInvalidPattern(t *testing.T) {
	_, err := Compile(Document{RegexPatterns: []string{`^ok$`, `(unclosed`}})
	if err == nil {
		t.Fatal("expected error for invalid pattern")
	}
	var ce *ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *ConfigurationError, got %T", err)
	}
	if !strings.Contains(err.Error(), "(unclosed") {
		t.Errorf("error should name the pattern: %v", err)
	}
}

func TestCompileEmptyDocument(t *testing.T) {
	rs, err := Compile(Document{})
	if err != nil {
		t.Fatal(err)
	}
	if rs.Len() != 0 {
		t.Errorf("expected empty ruleset, got %d rules", rs.Len())
	}
}

func TestCompileKeepsDuplicates(t *testing.T) {
	rs := MustCompile(Document{ExactMatches: []string{"dd", "dd"}})
	if rs.Len() != 2 {
		t.Errorf("expected 2 rules, got %d", rs.Len())
	}
}

func TestExactMatch(t *testing.T) {
	rs := MustCompile(Document{ExactMatches: []string{"rm -rf /", "  mkfs  "}})

	tests := []struct {
		command string
		want    string
		ok      bool
	}{
		{"rm -rf /", "rm -rf /", true},
		{"RM -RF /", "rm -rf /", true},
		{"mkfs", "mkfs", true},
		{"rm -rf /tmp", "", false},
		{"mkfs.ext4", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.command, func(t *testing.T) {
			got, ok := rs.ExactMatch(tt.command)
			if ok != tt.ok || got != tt.want {
				t.Errorf("ExactMatch(%q) = %q, %v; want %q, %v", tt.command, got, ok, tt.want, tt.ok)
			}
		})
	}
}

func TestBlockedBinary(t *testing.T) {
	rs := MustCompile(Document{BlockedBinaries: []string{"shred", "mkfs.ext4"}})

	tests := []struct {
		token string
		ok    bool
	}{
		{"shred", true},
		{"SHRED", true},
		{"/usr/bin/shred", true},
		{"MKFS.EXT4", true},
		{"/sbin/MKFS.EXT4", true},
		{"shredder", false},
		{"ls", false},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			if _, ok := rs.BlockedBinary(tt.token); ok != tt.ok {
				t.Errorf("BlockedBinary(%q) = %v, want %v", tt.token, ok, tt.ok)
			}
		})
	}
}

func TestPatternsCaseInsensitive(t *testing.T) {
	rs := MustCompile(Document{RegexPatterns: []string{`^wipefs\s+.*`}})
	ok, err := rs.Patterns()[0].Match("WIPEFS -a /dev/sda")
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("expected case-insensitive match")
	}
}

func TestPatternMatchTimeout(t *testing.T) {
	rs, err := CompileWithTimeout(Document{RegexPatterns: []string{`^(a+)+$`}}, 10*time.Millisecond)
	if err != nil {
		t.Fatal(err)
	}
	input := strings.Repeat("a", 40) + "!"
	if _, err := rs.Patterns()[0].Match(input); err == nil {
		t.Error("expected catastrophic pattern to exceed its time budget")
	}
}

func TestPatternsReturnsCopy(t *testing.T) {
	rs := MustCompile(Document{RegexPatterns: []string{`a`, `b`}})
	p := rs.Patterns()
	p[0] = p[1]
	if rs.Patterns()[0].String() != "a" {
		t.Error("mutating the returned slice changed the ruleset")
	}
}

func TestDisabled(t *testing.T) {
	if Disabled().Len() != 0 {
		t.Error("disabled ruleset should carry no rules")
	}
}

func TestDefaultRuleset(t *testing.T) {
	rs := Default()
	doc := DefaultDocument()
	if rs.Len() != doc.Len() {
		t.Errorf("default ruleset has %d rules, document has %d", rs.Len(), doc.Len())
	}
	if Default() != rs {
		t.Error("Default should return a shared ruleset")
	}
	for _, want := range []string{"rm -rf /", "rm -rf /*", "rm -fr /", "rm -fr /*", "mkfs", "dd", ":(){:|:&};:"} {
		if _, ok := rs.ExactMatch(want); !ok {
			t.Errorf("default ruleset missing exact match %q", want)
		}
	}
	for _, bin := range []string{"mkfs.ext2", "mkfs.ntfs", "shred", "cryptsetup", "wipefs", "sgdisk", "gdisk"} {
		if _, ok := rs.BlockedBinary(bin); !ok {
			t.Errorf("default ruleset missing blocked binary %q", bin)
		}
	}
}

func TestParseShapes(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"wrapped yaml", "BlockedCommands:\n  ExactMatches: [dd]\n  RegexPatterns: ['^x$']\n"},
		{"top-level yaml", "ExactMatches: [dd]\nRegexPatterns: ['^x$']\n"},
		{"wrapped json", `{"BlockedCommands": {"ExactMatches": ["dd"], "RegexPatterns": ["^x$"]}}`},
		{"top-level json", `{"ExactMatches": ["dd"], "RegexPatterns": ["^x$"]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse([]byte(tt.data))
			if err != nil {
				t.Fatal(err)
			}
			if !slices.Equal(doc.ExactMatches, []string{"dd"}) {
				t.Errorf("ExactMatches = %v", doc.ExactMatches)
			}
			if !slices.Equal(doc.RegexPatterns, []string{"^x$"}) {
				t.Errorf("RegexPatterns = %v", doc.RegexPatterns)
			}
			if len(doc.BlockedBinaries) != 0 {
				t.Errorf("BlockedBinaries should default to empty, got %v", doc.BlockedBinaries)
			}
		})
	}
}

func TestParseJSONEscapes(t *testing.T) {
	doc, err := Parse([]byte(`{"RegexPatterns": ["^wipefs\\s+.*"]}`))
	if err != nil {
		t.Fatal(err)
	}
	if doc.RegexPatterns[0] != `^wipefs\s+.*` {
		t.Errorf("got %q", doc.RegexPatterns[0])
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blocklist.json")
	data := `{"BlockedCommands": {"ExactMatches": ["reboot"], "BlockedBinaries": ["halt"]}}`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	rs, err := LoadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := rs.ExactMatch("reboot"); !ok {
		t.Error("expected reboot to be blocked")
	}
	if _, ok := rs.BlockedBinary("halt"); !ok {
		t.Error("expected halt to be blocked")
	}
}

func TestLoadFileErrors(t *testing.T) {
	dir := t.TempDir()

	badPattern := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(badPattern, []byte("RegexPatterns: ['[z-a]']\n"), 0600); err != nil {
		t.Fatal(err)
	}
	badSyntax := filepath.Join(dir, "syntax.yaml")
	if err := os.WriteFile(badSyntax, []byte("ExactMatches: [unterminated\n"), 0600); err != nil {
		t.Fatal(err)
	}

	for _, path := range []string{filepath.Join(dir, "missing.yaml"), badPattern, badSyntax} {
		_, err := LoadFile(path)
		var ce *ConfigurationError
		if !errors.As(err, &ce) {
			t.Errorf("LoadFile(%s): expected *ConfigurationError, got %v", filepath.Base(path), err)
			continue
		}
		if ce.Source != path {
			t.Errorf("LoadFile(%s): error source = %q", filepath.Base(path), ce.Source)
		}
	}
}
