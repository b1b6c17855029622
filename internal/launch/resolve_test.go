package launch

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/narvanalabs/zapper/internal/models"
)

func TestResolveCommand(t *testing.T) {
	tests := []struct {
		name     string
		cfg      models.ScanStepConfig
		built    string
		family   models.OSFamily
		wantLine string
	}{
		{
			name:     "auto posix",
			cfg:      models.ScanStepConfig{Install: models.Auto(), HostSpec: "myhost:1234"},
			built:    "/work/zapSource/build/zap",
			family:   models.OSFamilyPOSIX,
			wantLine: "/bin/bash /work/zapSource/build/zap/zap.sh -host myhost -port 1234 -daemon",
		},
		{
			name:     "auto windows",
			cfg:      models.ScanStepConfig{Install: models.Auto(), HostSpec: "myhost:1234"},
			built:    `C:\ci\zapSource\build\zap`,
			family:   models.OSFamilyWindows,
			wantLine: `cmd.exe C:\ci\zapSource\build\zap/zap.bat -host myhost -port 1234 -daemon`,
		},
		{
			name:     "preinstalled ignores built root",
			cfg:      models.ScanStepConfig{Install: models.Preinstalled("/opt/zap"), HostSpec: "localhost"},
			built:    "/unused",
			family:   models.OSFamilyPOSIX,
			wantLine: "/bin/bash /opt/zap/zap.sh -host localhost -port 8090 -daemon",
		},
		{
			name:     "default port",
			cfg:      models.ScanStepConfig{Install: models.Preinstalled("/opt/zap"), HostSpec: "localhost"},
			family:   models.OSFamilyWindows,
			wantLine: "cmd.exe /opt/zap/zap.bat -host localhost -port 8090 -daemon",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, err := ResolveCommand(&tt.cfg, tt.built, tt.family)
			if err != nil {
				t.Fatalf("ResolveCommand failed: %v", err)
			}
			if cmd.Line != tt.wantLine {
				t.Errorf("Line = %q, want %q", cmd.Line, tt.wantLine)
			}
			if !strings.HasPrefix(cmd.Line, cmd.Shell+" "+cmd.Script+" ") {
				t.Errorf("Line %q does not start with shell and script", cmd.Line)
			}
		})
	}
}

func TestResolveCommand_Errors(t *testing.T) {
	auto := models.ScanStepConfig{Install: models.Auto(), HostSpec: "localhost"}
	if _, err := ResolveCommand(&auto, "", models.OSFamilyPOSIX); !errors.Is(err, ErrNoExecutableRoot) {
		t.Errorf("auto without artifact root: got %v, want ErrNoExecutableRoot", err)
	}

	bad := models.ScanStepConfig{Install: models.Preinstalled("/opt/zap"), HostSpec: "a:b:c"}
	_, err := ResolveCommand(&bad, "", models.OSFamilyPOSIX)
	var verr *models.ValidationError
	if !errors.As(err, &verr) {
		t.Errorf("malformed host: got %v, want ValidationError", err)
	}

	if _, err := ResolveCommand(nil, "/x", models.OSFamilyPOSIX); err == nil {
		t.Error("nil config should fail")
	}
}

// Property: a host spec without a port always launches on 8090 and the
// command always ends in daemon mode.
func TestResolveCommand_DefaultPortProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("portless host defaults to 8090", prop.ForAll(
		func(host string) bool {
			cfg := models.ScanStepConfig{Install: models.Preinstalled("/opt/zap"), HostSpec: host}
			cmd, err := ResolveCommand(&cfg, "", models.OSFamilyPOSIX)
			if err != nil {
				return false
			}
			return cmd.Target.Port == models.DefaultPort &&
				strings.HasSuffix(cmd.Line, "-host "+host+" -port 8090 -daemon")
		},
		gen.Identifier(),
	))

	properties.Property("explicit port is carried through", prop.ForAll(
		func(host string, port int) bool {
			cfg := models.ScanStepConfig{Install: models.Auto(), HostSpec: host + ":" + strconv.Itoa(port)}
			cmd, err := ResolveCommand(&cfg, "/build/zap", models.OSFamilyPOSIX)
			if err != nil {
				return false
			}
			return cmd.Line == "/bin/bash /build/zap/zap.sh -host "+host+" -port "+strconv.Itoa(port)+" -daemon"
		},
		gen.Identifier(),
		gen.IntRange(1, 65535),
	))

	properties.TestingRun(t)
}
