package project

import (
	"fmt"
	"regexp"
	"strings"
)

// Service and project names become container names and DNS aliases, so the
// compose name charset applies.
var nameRe = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_.-]*$`)

// ValidName reports whether s is usable as a project or service name.
// Path separators and traversal sequences are rejected outright because
// project names become directory names under the root.
func ValidName(s string) bool {
	if s == "" || strings.Contains(s, "..") {
		return false
	}
	return nameRe.MatchString(s)
}

// Validate checks structural invariants: unique valid service names, typed
// port and volume fields, resolvable dependency references. Cycle detection
// is plan-time concern and is not repeated here.
func (p Project) Validate() error {
	if !ValidName(p.Name) {
		return &InvalidDefinitionError{Field: "name", Reason: fmt.Sprintf("invalid project name %q", p.Name)}
	}

	seen := make(map[string]bool, len(p.Services))
	for _, svc := range p.Services {
		if !ValidName(svc.Name) {
			return &InvalidDefinitionError{
				Field:  "services",
				Reason: fmt.Sprintf("invalid service name %q", svc.Name),
			}
		}
		if seen[svc.Name] {
			return &InvalidDefinitionError{
				Field:  "services." + svc.Name,
				Reason: "duplicate service name",
			}
		}
		seen[svc.Name] = true

		if err := svc.validate(); err != nil {
			return err
		}
	}

	for _, svc := range p.Services {
		for _, dep := range svc.DependsOn {
			if dep == svc.Name {
				return &InvalidDefinitionError{
					Field:  fmt.Sprintf("services.%s.depends_on", svc.Name),
					Reason: "service depends on itself",
				}
			}
			if !seen[dep] {
				return &InvalidDefinitionError{
					Field:  fmt.Sprintf("services.%s.depends_on", svc.Name),
					Reason: fmt.Sprintf("undefined dependency %q", dep),
				}
			}
		}
	}

	for _, h := range p.ExtraHosts {
		if strings.TrimSpace(h.IP) == "" || strings.TrimSpace(h.Host) == "" {
			return &InvalidDefinitionError{Field: "extra_hosts", Reason: "host entries need both ip and hostname"}
		}
	}

	return nil
}

func (s Service) validate() error {
	field := func(sub string) string { return fmt.Sprintf("services.%s.%s", s.Name, sub) }

	if strings.TrimSpace(s.Image) == "" {
		return &InvalidDefinitionError{Field: field("image"), Reason: "image is required"}
	}

	for i, port := range s.Ports {
		if port.ContainerPort == 0 {
			return &InvalidDefinitionError{
				Field:  fmt.Sprintf("%s[%d]", field("ports"), i),
				Reason: "container port is required",
			}
		}
		switch strings.ToLower(port.Protocol) {
		case "", "tcp", "udp":
		default:
			return &InvalidDefinitionError{
				Field:  fmt.Sprintf("%s[%d]", field("ports"), i),
				Reason: fmt.Sprintf("unsupported protocol %q", port.Protocol),
			}
		}
	}

	for i, vol := range s.Volumes {
		if strings.TrimSpace(vol.Source) == "" {
			return &InvalidDefinitionError{
				Field:  fmt.Sprintf("%s[%d]", field("volumes"), i),
				Reason: "volume source is required",
			}
		}
		if strings.TrimSpace(vol.Target) == "" {
			return &InvalidDefinitionError{
				Field:  fmt.Sprintf("%s[%d]", field("volumes"), i),
				Reason: "volume target is required",
			}
		}
	}

	for key := range s.Environment {
		if strings.TrimSpace(key) == "" {
			return &InvalidDefinitionError{Field: field("environment"), Reason: "empty variable name"}
		}
	}

	return nil
}
