package validation

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/narvanalabs/zapper/internal/models"
)

// genHostName generates a non-empty host name without colons.
func genHostName() gopter.Gen {
	return gen.Identifier().SuchThat(func(s string) bool {
		return s != "" && !strings.Contains(s, ":")
	})
}

func genPort() gopter.Gen {
	return gen.IntRange(1, 65535)
}

func TestHostSpecValidation(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("host without port is accepted and defaults to 8090", prop.ForAll(
		func(host string) bool {
			target, err := ValidateHostTarget(host)
			return err == nil && target.HostName == host && target.Port == models.DefaultPort
		},
		genHostName(),
	))

	properties.Property("host:port is accepted with the given port", prop.ForAll(
		func(host string, port int) bool {
			target, err := ValidateHostTarget(fmt.Sprintf("%s:%d", host, port))
			return err == nil && target.HostName == host && target.Port == port
		},
		genHostName(),
		genPort(),
	))

	properties.Property("two or more colons are rejected by the form rule", prop.ForAll(
		func(host string, extra []string) bool {
			value := host + ":" + strings.Join(extra, ":")
			return ValidateHostSpec(value) != nil
		},
		genHostName(),
		gen.SliceOfN(2, gen.AlphaString()),
	))

	properties.Property("non-numeric port is rejected", prop.ForAll(
		func(host, port string) bool {
			_, err := ValidateHostTarget(host + ":" + port)
			return err != nil
		},
		genHostName(),
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
	))

	properties.TestingRun(t)
}

func TestValidateHostSpec_Messages(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantMsg string
	}{
		{"empty", "", MsgHostRequired},
		{"two colons", "a:1:2", MsgHostFormat},
		{"trailing colons", "localhost::", MsgHostFormat},
		{"plain host", "localhost", ""},
		{"host and port", "localhost:8090", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHostSpec(tt.value)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("ValidateHostSpec(%q) = %v, want nil", tt.value, err)
				}
				return
			}
			var vErr *models.ValidationError
			if !errors.As(err, &vErr) {
				t.Fatalf("ValidateHostSpec(%q) = %v, want ValidationError", tt.value, err)
			}
			if vErr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", vErr.Message, tt.wantMsg)
			}
		})
	}
}

func TestValidateHostTarget_RejectsEmptyParts(t *testing.T) {
	for _, value := range []string{":8090", "localhost:", "localhost:-1", "localhost:+80", "localhost:70000"} {
		if _, err := ValidateHostTarget(value); err == nil {
			t.Errorf("ValidateHostTarget(%q) succeeded, want error", value)
		}
	}
}

func TestValidateStepConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     models.ScanStepConfig
		wantErr bool
	}{
		{
			name: "auto with repository",
			cfg: models.ScanStepConfig{
				Install:       models.Auto(),
				RepositoryURL: "https://svn.example.org/zap/trunk",
				HostSpec:      "localhost:8090",
			},
		},
		{
			name:    "auto without repository",
			cfg:     models.ScanStepConfig{Install: models.Auto(), HostSpec: "localhost"},
			wantErr: true,
		},
		{
			name:    "auto with relative repository",
			cfg:     models.ScanStepConfig{Install: models.Auto(), RepositoryURL: "zap/trunk", HostSpec: "localhost"},
			wantErr: true,
		},
		{
			name: "preinstalled with path",
			cfg:  models.ScanStepConfig{Install: models.Preinstalled("/opt/zap"), HostSpec: "localhost"},
		},
		{
			name:    "preinstalled without path",
			cfg:     models.ScanStepConfig{Install: models.Preinstalled(" "), HostSpec: "localhost"},
			wantErr: true,
		},
		{
			name:    "bad host",
			cfg:     models.ScanStepConfig{Install: models.Preinstalled("/opt/zap"), HostSpec: "a:b:c"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStepConfig(&tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateStepConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
