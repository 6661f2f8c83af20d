// Package hosts resolves extra host entries for project containers, either
// from the system hosts file or from user-supplied strings.
package hosts

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strings"

	"dockhand/internal/project"
)

const systemHostsPath = "/etc/hosts"

// LoadSystem parses the system hosts file. Comments and malformed lines are
// skipped; a missing or unreadable file yields no entries rather than an
// error, since extra hosts are optional.
func LoadSystem() []project.HostEntry {
	return loadFile(systemHostsPath)
}

func loadFile(path string) []project.HostEntry {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	var entries []project.HostEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		ip := fields[0]
		if net.ParseIP(ip) == nil {
			continue
		}
		for _, host := range fields[1:] {
			entries = append(entries, project.HostEntry{IP: ip, Host: host})
		}
	}
	return entries
}

// ParseCustom parses a comma-separated list of "ip:host" pairs, e.g.
// "10.0.0.5:registry.local, 10.0.0.6:git.local". Blank entries are skipped;
// an entry with a bad shape fails the whole parse so typos do not silently
// drop a mapping.
func ParseCustom(s string) ([]project.HostEntry, error) {
	var entries []project.HostEntry
	for _, raw := range strings.Split(s, ",") {
		entry := strings.TrimSpace(raw)
		if entry == "" {
			continue
		}
		ip, host, ok := strings.Cut(entry, ":")
		ip, host = strings.TrimSpace(ip), strings.TrimSpace(host)
		if !ok || host == "" {
			return nil, &project.InvalidDefinitionError{
				Field:  "extra_hosts",
				Reason: fmt.Sprintf("entry %q is not ip:host", entry),
			}
		}
		if net.ParseIP(ip) == nil {
			return nil, &project.InvalidDefinitionError{
				Field:  "extra_hosts",
				Reason: fmt.Sprintf("%q is not an IP address", ip),
			}
		}
		entries = append(entries, project.HostEntry{IP: ip, Host: host})
	}
	return entries, nil
}
