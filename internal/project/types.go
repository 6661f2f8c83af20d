// Package project defines the declared configuration model: a Project is a
// named set of Services persisted as one compose document, with one lifecycle
// phase.
package project

// Project is the declared configuration for one multi-container application.
type Project struct {
	Name       string
	Dir        string
	Services   []Service
	ExtraHosts []HostEntry
}

// Service is one container definition within a Project.
type Service struct {
	Name          string
	Image         string
	Ports         []PortMapping
	Volumes       []VolumeMount
	Environment   map[string]string
	DependsOn     []string
	RestartPolicy string
}

// PortMapping publishes a container port on the host. HostPort 0 means the
// engine picks an ephemeral port.
type PortMapping struct {
	HostPort      uint16
	ContainerPort uint16
	Protocol      string
}

// VolumeMount binds a host path (or named volume) into the container.
type VolumeMount struct {
	Source   string
	Target   string
	ReadOnly bool
}

// HostEntry is one extra /etc/hosts line injected into every service.
type HostEntry struct {
	IP   string
	Host string
}

// DefaultRestartPolicy applies when a service declares none.
const DefaultRestartPolicy = "unless-stopped"

// Service lookup by name. Returns false if absent.
func (p *Project) Service(name string) (Service, bool) {
	for _, svc := range p.Services {
		if svc.Name == name {
			return svc, true
		}
	}
	return Service{}, false
}

// ServiceNames returns declared service names in declaration order.
func (p *Project) ServiceNames() []string {
	out := make([]string, 0, len(p.Services))
	for _, svc := range p.Services {
		out = append(out, svc.Name)
	}
	return out
}

// DefaultTemplate returns the starter service set for a freshly created
// project with no services of its own.
func DefaultTemplate() []Service {
	return []Service{{
		Name:          "nginx",
		Image:         "nginx:latest",
		Ports:         []PortMapping{{HostPort: 8080, ContainerPort: 80, Protocol: "tcp"}},
		RestartPolicy: DefaultRestartPolicy,
	}}
}
