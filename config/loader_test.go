package config_test

import (
	"os"
	"testing"

	"github.com/ritksm/thriftpy/config"
)

func TestLoaderParseAppliesDefaultsAndOverrides(t *testing.T) {
	doc := `
schema:
  roots:
    - addressbook.thrift
  include_dirs:
    - ./idl
protocol:
  string_length_limit: 1048576
logging:
  level: debug
`
	loader := config.NewLoader()
	cfg, err := loader.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if len(cfg.Schema.Roots) != 1 || cfg.Schema.Roots[0] != "addressbook.thrift" {
		t.Fatalf("got roots %v", cfg.Schema.Roots)
	}
	if cfg.Protocol.StringLengthLimit != 1048576 {
		t.Fatalf("got string_length_limit %d", cfg.Protocol.StringLengthLimit)
	}
	// container_length_limit wasn't set in the document; Default()'s
	// value must survive the overlay.
	if cfg.Protocol.ContainerLengthLimit != 1<<24 {
		t.Fatalf("got container_length_limit %d, want default", cfg.Protocol.ContainerLengthLimit)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("got level %q", cfg.Logging.Level)
	}
}

func TestLoaderExpandsEnvVars(t *testing.T) {
	t.Setenv("THRIFTRT_ROOT", "myservice.thrift")

	doc := `
schema:
  roots:
    - ${THRIFTRT_ROOT}
`
	loader := config.NewLoader()
	cfg, err := loader.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cfg.Schema.Roots) != 1 || cfg.Schema.Roots[0] != "myservice.thrift" {
		t.Fatalf("got roots %v", cfg.Schema.Roots)
	}
}

func TestLoaderLeavesUnsetEnvVarUntouched(t *testing.T) {
	os.Unsetenv("THRIFTRT_DOES_NOT_EXIST")
	doc := `
schema:
  roots:
    - ${THRIFTRT_DOES_NOT_EXIST}
`
	loader := config.NewLoader()
	cfg, err := loader.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Schema.Roots[0] != "${THRIFTRT_DOES_NOT_EXIST}" {
		t.Fatalf("got %q", cfg.Schema.Roots[0])
	}
}

func TestLoaderRejectsMissingRoots(t *testing.T) {
	loader := config.NewLoader()
	_, err := loader.Parse([]byte(`protocol:
  string_length_limit: 100
`))
	if err == nil {
		t.Fatal("expected validation error for missing schema.roots")
	}
}

func TestLoadReadsFromDisk(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.yaml"
	if err := os.WriteFile(path, []byte("schema:\n  roots:\n    - a.thrift\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	loader := config.NewLoader()
	cfg, err := loader.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Schema.Roots[0] != "a.thrift" {
		t.Fatalf("got %v", cfg.Schema.Roots)
	}
}
