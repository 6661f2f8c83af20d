// Package compose translates between the project model and the compose
// document format. Render is deterministic: the same project always yields
// byte-identical output, so unrelated re-saves never produce spurious diffs.
package compose

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"dockhand/internal/project"
)

// Filename is the compose document name inside each project directory.
const Filename = "compose.yaml"

// Render serializes a project to compose YAML. Services appear in declaration
// order, keys in a fixed order, environment sorted by variable name.
//
// The project is canonicalized first, so cosmetic differences in the input
// (port ordering, protocol casing) do not change the output.
func Render(p project.Project) ([]byte, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.Canonical()

	services := &yaml.Node{Kind: yaml.MappingNode}
	for _, svc := range p.Services {
		services.Content = append(services.Content,
			scalar(svc.Name),
			serviceNode(svc, p.ExtraHosts),
		)
	}

	root := &yaml.Node{Kind: yaml.MappingNode}
	root.Content = append(root.Content, scalar("services"), services)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return nil, fmt.Errorf("encode compose document: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode compose document: %w", err)
	}
	return buf.Bytes(), nil
}

func serviceNode(svc project.Service, hosts []project.HostEntry) *yaml.Node {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(key string, value *yaml.Node) {
		node.Content = append(node.Content, scalar(key), value)
	}

	add("image", scalar(svc.Image))

	if len(svc.Ports) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, p := range svc.Ports {
			seq.Content = append(seq.Content, quotedScalar(formatPort(p)))
		}
		add("ports", seq)
	}

	if len(svc.Volumes) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, v := range svc.Volumes {
			seq.Content = append(seq.Content, scalar(formatVolume(v)))
		}
		add("volumes", seq)
	}

	if len(svc.Environment) > 0 {
		keys := make([]string, 0, len(svc.Environment))
		for k := range svc.Environment {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		env := &yaml.Node{Kind: yaml.MappingNode}
		for _, k := range keys {
			env.Content = append(env.Content, scalar(k), scalar(svc.Environment[k]))
		}
		add("environment", env)
	}

	if len(svc.DependsOn) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, dep := range svc.DependsOn {
			seq.Content = append(seq.Content, scalar(dep))
		}
		add("depends_on", seq)
	}

	add("restart", scalar(svc.RestartPolicy))

	if len(hosts) > 0 {
		seq := &yaml.Node{Kind: yaml.SequenceNode}
		for _, h := range hosts {
			seq.Content = append(seq.Content, quotedScalar(h.Host+":"+h.IP))
		}
		add("extra_hosts", seq)
	}

	return node
}

func formatPort(p project.PortMapping) string {
	var b strings.Builder
	if p.HostPort != 0 {
		fmt.Fprintf(&b, "%d:", p.HostPort)
	}
	fmt.Fprintf(&b, "%d", p.ContainerPort)
	if p.Protocol != "tcp" {
		b.WriteString("/" + p.Protocol)
	}
	return b.String()
}

func formatVolume(v project.VolumeMount) string {
	s := v.Source + ":" + v.Target
	if v.ReadOnly {
		s += ":ro"
	}
	return s
}

func scalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Value: value}
}

// quotedScalar forces quotes so port strings like "8080:80" are never
// reinterpreted as sexagesimal numbers by permissive parsers.
func quotedScalar(value string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Style: yaml.DoubleQuotedStyle, Value: value}
}
