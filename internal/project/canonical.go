package project

import (
	"reflect"
	"sort"
	"strings"
)

// Canonical returns a normalized copy of the service: ports, volumes and
// dependencies sorted, protocols lowercased, empty collections nilled, restart
// policy defaulted. Two services describing the same configuration have equal
// canonical forms.
func (s Service) Canonical() Service {
	out := Service{
		Name:          strings.TrimSpace(s.Name),
		Image:         strings.TrimSpace(s.Image),
		Ports:         canonicalPorts(s.Ports),
		Volumes:       canonicalVolumes(s.Volumes),
		Environment:   canonicalEnv(s.Environment),
		DependsOn:     canonicalDeps(s.DependsOn),
		RestartPolicy: strings.TrimSpace(s.RestartPolicy),
	}
	if out.RestartPolicy == "" {
		out.RestartPolicy = DefaultRestartPolicy
	}
	return out
}

// Canonical normalizes every service and the extra-hosts list.
func (p Project) Canonical() Project {
	out := Project{
		Name: strings.TrimSpace(p.Name),
		Dir:  p.Dir,
	}
	if len(p.Services) > 0 {
		out.Services = make([]Service, 0, len(p.Services))
		for _, svc := range p.Services {
			out.Services = append(out.Services, svc.Canonical())
		}
	}
	if len(p.ExtraHosts) > 0 {
		out.ExtraHosts = append([]HostEntry(nil), p.ExtraHosts...)
		sort.Slice(out.ExtraHosts, func(i, j int) bool {
			if out.ExtraHosts[i].Host != out.ExtraHosts[j].Host {
				return out.ExtraHosts[i].Host < out.ExtraHosts[j].Host
			}
			return out.ExtraHosts[i].IP < out.ExtraHosts[j].IP
		})
	}
	return out
}

// Equal reports semantic equality: same services, mappings and dependency
// edges regardless of declaration cosmetics. Dir is ignored.
func Equal(a, b Project) bool {
	ca, cb := a.Canonical(), b.Canonical()
	ca.Dir, cb.Dir = "", ""
	sortServices(ca.Services)
	sortServices(cb.Services)
	return reflect.DeepEqual(ca, cb)
}

// ServicesEqual reports semantic equality of two service definitions.
func ServicesEqual(a, b Service) bool {
	return reflect.DeepEqual(a.Canonical(), b.Canonical())
}

func sortServices(services []Service) {
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })
}

func canonicalPorts(ports []PortMapping) []PortMapping {
	if len(ports) == 0 {
		return nil
	}
	out := make([]PortMapping, len(ports))
	for i, p := range ports {
		proto := strings.ToLower(strings.TrimSpace(p.Protocol))
		if proto == "" {
			proto = "tcp"
		}
		out[i] = PortMapping{HostPort: p.HostPort, ContainerPort: p.ContainerPort, Protocol: proto}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HostPort != out[j].HostPort {
			return out[i].HostPort < out[j].HostPort
		}
		if out[i].ContainerPort != out[j].ContainerPort {
			return out[i].ContainerPort < out[j].ContainerPort
		}
		return out[i].Protocol < out[j].Protocol
	})
	return out
}

func canonicalVolumes(volumes []VolumeMount) []VolumeMount {
	if len(volumes) == 0 {
		return nil
	}
	out := make([]VolumeMount, len(volumes))
	copy(out, volumes)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		if out[i].Target != out[j].Target {
			return out[i].Target < out[j].Target
		}
		return !out[i].ReadOnly && out[j].ReadOnly
	})
	return out
}

func canonicalEnv(env map[string]string) map[string]string {
	if len(env) == 0 {
		return nil
	}
	out := make(map[string]string, len(env))
	for k, v := range env {
		out[k] = v
	}
	return out
}

func canonicalDeps(deps []string) []string {
	if len(deps) == 0 {
		return nil
	}
	out := make([]string, 0, len(deps))
	for _, dep := range deps {
		dep = strings.TrimSpace(dep)
		if dep == "" {
			continue
		}
		out = append(out, dep)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}
