package project

import (
	"errors"
	"strings"
	"testing"
)

func validProject() Project {
	return Project{
		Name: "web",
		Services: []Service{
			{Name: "db", Image: "postgres:16"},
			{Name: "app", Image: "ghcr.io/acme/app:1", DependsOn: []string{"db"}},
		},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid project", func(t *testing.T) {
		if err := validProject().Validate(); err != nil {
			t.Fatalf("Validate() error = %v", err)
		}
	})

	t.Run("path traversal name", func(t *testing.T) {
		p := validProject()
		p.Name = "../escape"
		assertInvalid(t, p.Validate(), "name")
	})

	t.Run("duplicate service", func(t *testing.T) {
		p := validProject()
		p.Services = append(p.Services, Service{Name: "db", Image: "mysql:8"})
		assertInvalid(t, p.Validate(), "services.db")
	})

	t.Run("missing image", func(t *testing.T) {
		p := validProject()
		p.Services[0].Image = " "
		assertInvalid(t, p.Validate(), "services.db.image")
	})

	t.Run("zero container port", func(t *testing.T) {
		p := validProject()
		p.Services[1].Ports = []PortMapping{{HostPort: 8080}}
		assertInvalid(t, p.Validate(), "services.app.ports[0]")
	})

	t.Run("bad protocol", func(t *testing.T) {
		p := validProject()
		p.Services[1].Ports = []PortMapping{{ContainerPort: 80, Protocol: "sctp"}}
		assertInvalid(t, p.Validate(), "services.app.ports[0]")
	})

	t.Run("empty volume target", func(t *testing.T) {
		p := validProject()
		p.Services[0].Volumes = []VolumeMount{{Source: "./data", Target: ""}}
		assertInvalid(t, p.Validate(), "services.db.volumes[0]")
	})

	t.Run("undefined dependency", func(t *testing.T) {
		p := validProject()
		p.Services[1].DependsOn = []string{"cache"}
		assertInvalid(t, p.Validate(), "services.app.depends_on")
	})

	t.Run("self dependency", func(t *testing.T) {
		p := validProject()
		p.Services[1].DependsOn = []string{"app"}
		assertInvalid(t, p.Validate(), "services.app.depends_on")
	})
}

func assertInvalid(t *testing.T, err error, field string) {
	t.Helper()
	if err == nil {
		t.Fatalf("Validate() = nil, want InvalidDefinitionError at %s", field)
	}
	var def *InvalidDefinitionError
	if !errors.As(err, &def) {
		t.Fatalf("Validate() error type = %T, want *InvalidDefinitionError", err)
	}
	if def.Field != field {
		t.Fatalf("error field = %q, want %q", def.Field, field)
	}
	if !strings.Contains(err.Error(), field) {
		t.Fatalf("error message %q does not mention field %q", err.Error(), field)
	}
}

func TestCanonical(t *testing.T) {
	t.Run("ports sorted and protocol defaulted", func(t *testing.T) {
		svc := Service{
			Name:  "app",
			Image: "app:1",
			Ports: []PortMapping{
				{HostPort: 9000, ContainerPort: 90, Protocol: "UDP"},
				{HostPort: 8080, ContainerPort: 80},
			},
		}
		got := svc.Canonical()
		if got.Ports[0].HostPort != 8080 || got.Ports[0].Protocol != "tcp" {
			t.Fatalf("first port = %+v, want 8080/tcp first", got.Ports[0])
		}
		if got.Ports[1].Protocol != "udp" {
			t.Fatalf("second port protocol = %q, want udp", got.Ports[1].Protocol)
		}
	})

	t.Run("restart policy defaulted", func(t *testing.T) {
		got := Service{Name: "a", Image: "a:1"}.Canonical()
		if got.RestartPolicy != DefaultRestartPolicy {
			t.Fatalf("restart policy = %q, want %q", got.RestartPolicy, DefaultRestartPolicy)
		}
	})

	t.Run("equality ignores ordering cosmetics", func(t *testing.T) {
		a := validProject()
		b := validProject()
		b.Services[1].DependsOn = []string{" db "}
		b.Services = []Service{b.Services[1], b.Services[0]}
		if !Equal(a, b) {
			t.Fatalf("Equal() = false for semantically identical projects")
		}
	})

	t.Run("equality detects changed env", func(t *testing.T) {
		a := validProject()
		b := validProject()
		b.Services[0].Environment = map[string]string{"POSTGRES_PASSWORD": "x"}
		if Equal(a, b) {
			t.Fatalf("Equal() = true despite differing environment")
		}
	})
}

func TestPhaseRoundTrip(t *testing.T) {
	phases := []Phase{PhaseUnknown, PhaseStopped, PhaseStarting, PhaseRunning, PhaseStopping, PhaseDegraded, PhaseError}
	for _, phase := range phases {
		if got := ParsePhase(phase.String()); got != phase {
			t.Fatalf("ParsePhase(%q) = %v, want %v", phase.String(), got, phase)
		}
	}
	if got := ParsePhase("nonsense"); got != PhaseUnknown {
		t.Fatalf("ParsePhase(nonsense) = %v, want PhaseUnknown", got)
	}
}
