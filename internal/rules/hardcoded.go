package rules

import "sync"

// Raw disk devices targeted by the default patterns.
const diskDevices = `(sd[a-z]|nvme[0-9]n[0-9]|vd[a-z]|hd[a-z])`

// DefaultDocument returns the built-in blocklist. It is the policy used when
// no blocklist file or profile is configured, and must stay identical to the
// embedded "default" profile.
func DefaultDocument() Document {
	return Document{
		ExactMatches: []string{
			"rm -rf /",
			"rm -rf /*",
			"rm -fr /",
			"rm -fr /*",
			"mkfs",
			"dd",
			":(){:|:&};:",
		},
		RegexPatterns: []string{
			// Recursive deletion of root.
			`^rm\s+(-rf?|-fr|--recursive)\s+/\s*$`,
			`^rm\s+(-rf?|-fr|--recursive)\s+/\*\s*$`,

			// Direct disk writes.
			`^dd\s+if=.+\s+of=/dev/` + diskDevices + `.*$`,
			`^dd\s+if=/dev/zero\s+of=/dev/(sd[a-z]|nvme[0-9]n[0-9]|vd[a-z]).*$`,
			`^>(\s*)?/dev/` + diskDevices + `.*$`,

			`^mkfs\..*`,
			`^(chmod|chown)\s+(-R|--recursive)\s+.*/\s*$`,
			`:.*\(.*\).*\{.*\|.*&.*\}.*:`,

			// Remote script piped into a shell.
			`(wget|curl).*\|.*(sh|bash|zsh|fish)\s*$`,

			// Partitioning and wiping.
			`^fdisk\s+/dev/(sd[a-z]|nvme[0-9]n[0-9]|vd[a-z]).*$`,
			`^parted\s+/dev/(sd[a-z]|nvme[0-9]n[0-9]|vd[a-z]).*$`,
			`^wipefs\s+.*`,

			`^mv\s+.*\s+/dev/null\s*$`,
		},
		BlockedBinaries: []string{
			"mkfs.ext2",
			"mkfs.ext3",
			"mkfs.ext4",
			"mkfs.xfs",
			"mkfs.btrfs",
			"mkfs.fat",
			"mkfs.vfat",
			"mkfs.ntfs",
			"shred",
			"cryptsetup",
			"wipefs",
			"sgdisk",
			"gdisk",
		},
	}
}

var defaultRuleset = sync.OnceValue(func() *Ruleset {
	return MustCompile(DefaultDocument())
})

// Default returns the compiled built-in blocklist. The same Ruleset is shared
// by every caller.
func Default() *Ruleset {
	return defaultRuleset()
}
