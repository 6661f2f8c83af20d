package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"

	"dockhand/internal/project"
)

func frame(payload string) []byte {
	header := []byte{1, 0, 0, 0, 0, 0, 0, byte(len(payload))}
	return append(header, payload...)
}

func TestStreamLogLines(t *testing.T) {
	t.Run("lines split across frames", func(t *testing.T) {
		var stream bytes.Buffer
		stream.Write(frame("first li"))
		stream.Write(frame("ne\nsecond line\npar"))
		stream.Write(frame("tial"))

		lines := make(chan LogLine, 16)
		streamLogLines(context.Background(), &stream, lines)
		close(lines)

		var got []string
		for line := range lines {
			if line.Err != nil {
				t.Fatalf("unexpected stream error: %v", line.Err)
			}
			got = append(got, line.Text)
		}
		want := []string{"first line", "second line", "partial"}
		if len(got) != len(want) {
			t.Fatalf("line count = %d (%q), want %d", len(got), got, len(want))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("line[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("cancellation stops the stream", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		var stream bytes.Buffer
		stream.Write(frame("never delivered\n"))

		lines := make(chan LogLine)
		done := make(chan struct{})
		go func() {
			streamLogLines(ctx, &stream, lines)
			close(done)
		}()

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatalf("streamLogLines did not return after cancellation")
		}
	})
}

func TestParseDockerState(t *testing.T) {
	cases := map[string]Status{
		"running":    StatusRunning,
		"Up":         StatusRunning,
		"exited":     StatusExited,
		"restarting": StatusRestarting,
		"created":    StatusCreated,
		"":           StatusStopped,
		"weird":      StatusStopped,
	}
	for in, want := range cases {
		if got := parseDockerState(in); got != want {
			t.Fatalf("parseDockerState(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestRetryTransient(t *testing.T) {
	t.Run("permanent error returned as-is", func(t *testing.T) {
		boom := errors.New("boom")
		err := retryTransient(context.Background(), func() error { return boom }, func(error) bool { return false })
		if !errors.Is(err, boom) || errors.Is(err, ErrUnavailable) {
			t.Fatalf("retryTransient() = %v, want bare boom", err)
		}
	})

	t.Run("transient exhaustion wraps ErrUnavailable", func(t *testing.T) {
		calls := 0
		err := retryTransient(context.Background(), func() error {
			calls++
			return fmt.Errorf("connection refused")
		}, func(error) bool { return true })
		if !errors.Is(err, ErrUnavailable) {
			t.Fatalf("retryTransient() = %v, want ErrUnavailable", err)
		}
		if calls != transientAttempts {
			t.Fatalf("attempts = %d, want %d", calls, transientAttempts)
		}
	})

	t.Run("eventual success", func(t *testing.T) {
		calls := 0
		err := retryTransient(context.Background(), func() error {
			calls++
			if calls < 2 {
				return fmt.Errorf("flaky")
			}
			return nil
		}, func(error) bool { return true })
		if err != nil {
			t.Fatalf("retryTransient() = %v, want nil", err)
		}
	})
}

func TestMapDeadline(t *testing.T) {
	caller := context.Background()

	t.Run("call deadline becomes ErrTimeout", func(t *testing.T) {
		callCtx, cancel := context.WithTimeout(caller, time.Nanosecond)
		defer cancel()
		<-callCtx.Done()

		err := mapDeadline(callCtx, caller, context.DeadlineExceeded)
		if !errors.Is(err, ErrTimeout) {
			t.Fatalf("mapDeadline() = %v, want ErrTimeout", err)
		}
	})

	t.Run("caller cancellation passes through", func(t *testing.T) {
		callerCtx, cancel := context.WithCancel(context.Background())
		cancel()
		callCtx, cancel2 := context.WithTimeout(callerCtx, time.Minute)
		defer cancel2()

		err := mapDeadline(callCtx, callerCtx, context.Canceled)
		if errors.Is(err, ErrTimeout) {
			t.Fatalf("mapDeadline() = %v, caller cancel must not map to ErrTimeout", err)
		}
	})
}

func TestDockerConfigs(t *testing.T) {
	cfg := CreateConfig{
		Name:    "web-app",
		Project: "web",
		Service: "app",
		Image:   "app:1",
		Ports: []project.PortMapping{
			{HostPort: 8080, ContainerPort: 80, Protocol: "tcp"},
			{ContainerPort: 9000, Protocol: "udp"},
		},
		Mounts: []project.VolumeMount{
			{Source: "./data", Target: "/data", ReadOnly: true},
			{Source: "pgdata", Target: "/var/lib/postgresql/data"},
		},
		ExtraHosts:    []string{"registry.local:10.0.0.5"},
		RestartPolicy: "unless-stopped",
	}

	cc, hc, err := dockerConfigs(cfg)
	if err != nil {
		t.Fatalf("dockerConfigs() error = %v", err)
	}

	if cc.Labels[LabelProject] != "web" || cc.Labels[LabelService] != "app" {
		t.Fatalf("labels = %v, want project/service labels", cc.Labels)
	}
	if len(cc.ExposedPorts) != 2 {
		t.Fatalf("exposed ports = %d, want 2", len(cc.ExposedPorts))
	}

	bindings := hc.PortBindings["80/tcp"]
	if len(bindings) != 1 || bindings[0].HostPort != "8080" {
		t.Fatalf("80/tcp bindings = %+v, want host port 8080", bindings)
	}
	ephemeral := hc.PortBindings["9000/udp"]
	if len(ephemeral) != 1 || ephemeral[0].HostPort != "" {
		t.Fatalf("9000/udp bindings = %+v, want ephemeral host port", ephemeral)
	}

	if hc.Mounts[0].Type != "bind" || hc.Mounts[1].Type != "volume" {
		t.Fatalf("mount types = %v/%v, want bind then volume", hc.Mounts[0].Type, hc.Mounts[1].Type)
	}
	if hc.RestartPolicy.Name != container.RestartPolicyUnlessStopped {
		t.Fatalf("restart policy = %v, want unless-stopped", hc.RestartPolicy.Name)
	}
}
