package server

import (
	"context"
	"testing"

	"github.com/skillwire/skillrpc/protocol"
)

func TestCapabilities(t *testing.T) {
	t.Run("empty server exposes nothing", func(t *testing.T) {
		srv := New(Info{Name: "test", Version: "1.0.0"})

		caps := srv.Capabilities()
		if caps.Tools || caps.Resources || caps.Prompts {
			t.Errorf("capabilities = %+v, want all false", caps)
		}
	})

	t.Run("capabilities follow registrations", func(t *testing.T) {
		srv := New(Info{Name: "test", Version: "1.0.0"})

		srv.Action("ping").Handler(func() (string, error) {
			return "pong", nil
		})
		srv.Resource("res://changelog").Handler(
			func(ctx context.Context, uri string, params map[string]string) (any, error) {
				return "", nil
			})

		caps := srv.Capabilities()
		if !caps.Tools {
			t.Error("expected tools capability")
		}
		if !caps.Resources {
			t.Error("expected resources capability")
		}
		if caps.Prompts {
			t.Error("prompts capability should be absent")
		}
	})
}

func TestManifest(t *testing.T) {
	srv := New(Info{Name: "library", Version: "2.1.0"})

	m := srv.Manifest()
	if m.Name != "library" || m.Version != "2.1.0" {
		t.Errorf("manifest identity = %q/%q", m.Name, m.Version)
	}
	if m.ProtocolVersion != protocol.Version {
		t.Errorf("protocolVersion = %q, want %q", m.ProtocolVersion, protocol.Version)
	}
}
