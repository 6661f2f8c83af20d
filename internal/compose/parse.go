package compose

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/compose-spec/compose-go/v2/loader"
	composetypes "github.com/compose-spec/compose-go/v2/types"
	"gopkg.in/yaml.v3"

	"dockhand/internal/project"
)

// Parse reads a compose document into the project model.
//
// A document that is not even well-formed YAML fails with
// project.ErrCorruptDefinition. A well-formed document that violates compose
// semantics (bad port syntax, undefined depends_on target, missing image)
// fails with a *project.InvalidDefinitionError carrying location context.
func Parse(ctx context.Context, data []byte, name string) (project.Project, error) {
	var probe any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return project.Project{}, fmt.Errorf("%w: %v", project.ErrCorruptDefinition, yamlErrorSummary(err))
	}

	details := composetypes.ConfigDetails{
		ConfigFiles: []composetypes.ConfigFile{
			{Filename: Filename, Content: data},
		},
	}
	loaded, err := loader.LoadWithContext(ctx, details, func(o *loader.Options) {
		o.SetProjectName(name, true)
	})
	if err != nil {
		return project.Project{}, invalidDefinition(err)
	}
	if len(loaded.Services) == 0 {
		return project.Project{}, &project.InvalidDefinitionError{Field: "services", Reason: "document declares no services"}
	}

	out := project.Project{Name: name}

	serviceNames := make([]string, 0, len(loaded.Services))
	for svcName := range loaded.Services {
		serviceNames = append(serviceNames, svcName)
	}
	sort.Strings(serviceNames)

	hosts := make(map[project.HostEntry]bool)
	for _, svcName := range serviceNames {
		svc, hostEntries := normalizeService(loaded.Services[svcName])
		out.Services = append(out.Services, svc)
		for _, h := range hostEntries {
			hosts[h] = true
		}
	}
	for h := range hosts {
		out.ExtraHosts = append(out.ExtraHosts, h)
	}

	out = out.Canonical()
	if err := out.Validate(); err != nil {
		return project.Project{}, err
	}
	return out, nil
}

func normalizeService(svc composetypes.ServiceConfig) (project.Service, []project.HostEntry) {
	out := project.Service{
		Name:          svc.Name,
		Image:         svc.Image,
		RestartPolicy: strings.TrimSpace(svc.Restart),
	}

	for _, p := range svc.Ports {
		containerPort := uint16(0)
		if p.Target <= uint32(^uint16(0)) {
			containerPort = uint16(p.Target)
		}
		out.Ports = append(out.Ports, project.PortMapping{
			HostPort:      parsePublishedPort(p.Published),
			ContainerPort: containerPort,
			Protocol:      strings.ToLower(strings.TrimSpace(p.Protocol)),
		})
	}

	for _, v := range svc.Volumes {
		if strings.TrimSpace(v.Target) == "" {
			continue
		}
		out.Volumes = append(out.Volumes, project.VolumeMount{
			Source:   v.Source,
			Target:   v.Target,
			ReadOnly: v.ReadOnly,
		})
	}

	if len(svc.Environment) > 0 {
		out.Environment = make(map[string]string, len(svc.Environment))
		for key, value := range svc.Environment {
			if value != nil {
				out.Environment[key] = *value
			} else {
				out.Environment[key] = ""
			}
		}
	}

	for dep := range svc.DependsOn {
		out.DependsOn = append(out.DependsOn, dep)
	}
	sort.Strings(out.DependsOn)

	var hosts []project.HostEntry
	hostNames := make([]string, 0, len(svc.ExtraHosts))
	for hostname := range svc.ExtraHosts {
		hostNames = append(hostNames, hostname)
	}
	sort.Strings(hostNames)
	for _, hostname := range hostNames {
		for _, ip := range svc.ExtraHosts[hostname] {
			hosts = append(hosts, project.HostEntry{IP: ip, Host: hostname})
		}
	}

	return out, hosts
}

func parsePublishedPort(published string) uint16 {
	published = strings.TrimSpace(published)
	if published == "" {
		return 0
	}
	n, err := strconv.ParseUint(published, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(n)
}

// invalidDefinition converts a loader error into the structured form,
// salvaging line information when the underlying yaml error carries it.
func invalidDefinition(err error) error {
	var typeErr *yaml.TypeError
	if errors.As(err, &typeErr) && len(typeErr.Errors) > 0 {
		return &project.InvalidDefinitionError{
			Line:   yamlErrorLine(typeErr.Errors[0]),
			Reason: typeErr.Errors[0],
		}
	}
	return &project.InvalidDefinitionError{Reason: err.Error()}
}

func yamlErrorSummary(err error) string {
	msg := err.Error()
	return strings.TrimPrefix(msg, "yaml: ")
}

// yamlErrorLine digs the "line N:" prefix out of a yaml error string.
func yamlErrorLine(msg string) int {
	const prefix = "line "
	idx := strings.Index(msg, prefix)
	if idx < 0 {
		return 0
	}
	rest := msg[idx+len(prefix):]
	end := strings.IndexByte(rest, ':')
	if end < 0 {
		return 0
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest[:end]))
	if err != nil {
		return 0
	}
	return n
}
