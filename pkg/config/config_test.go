package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/matzehuels/flowc/pkg/errors"
)

const project = `
[settings]
output_directory = "bundled"
definition_files = ["defs/sdk.d.luau"]

[[platforms]]
name = "web"
description = "Browser flows"

  [[platforms.flows]]
  name = "Checkout"
  alias = "checkout"
  description = "Pays for the cart"
  minSdkVersion = "12"
  retrieves = ["cart", "address"]
  path = "./flows/checkout.lua"

  [[platforms.flows]]
  name = "Checkout (express)"
  alias = "checkout-express"
  description = "One-click checkout"
  path = "flows/checkout.lua"

[[platforms]]
name = "mobile"
description = "App flows"

  [[platforms.flows]]
  name = "Login"
  alias = "login"
  description = "Signs the user in"
  path = "flows/auth/login.lua"
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(project), "/srv/shop")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if c.Settings.OutputDirectory != "bundled" {
		t.Errorf("OutputDirectory = %q", c.Settings.OutputDirectory)
	}
	if len(c.Platforms) != 2 || len(c.Platforms[0].Flows) != 2 {
		t.Fatalf("platforms decoded incorrectly: %+v", c.Platforms)
	}

	f := c.Platforms[0].Flows[0]
	if f.MinSdkVersion != "12" {
		t.Errorf("MinSdkVersion = %q, want 12", f.MinSdkVersion)
	}
	if !reflect.DeepEqual(f.Retrieves, []string{"cart", "address"}) {
		t.Errorf("Retrieves = %v", f.Retrieves)
	}
	if c.Platforms[0].Flows[1].MinSdkVersion != "" {
		t.Error("absent minSdkVersion should decode as empty")
	}
}

func TestConfigHelpers(t *testing.T) {
	c, err := Parse([]byte(project), "/srv/shop")
	if err != nil {
		t.Fatal(err)
	}

	if got := c.Dir(); got != "/srv/shop" {
		t.Errorf("Dir() = %q", got)
	}
	if got, want := c.FlowPaths(), []string{"flows/auth/login.lua", "flows/checkout.lua"}; !reflect.DeepEqual(got, want) {
		t.Errorf("FlowPaths() = %v, want %v", got, want)
	}

	byPath := c.AliasesByPath()
	if got, want := byPath["flows/checkout.lua"], []string{"checkout", "checkout-express"}; !reflect.DeepEqual(got, want) {
		t.Errorf("AliasesByPath()[checkout] = %v, want %v", got, want)
	}

	ref, ok := c.Flow("login")
	if !ok {
		t.Fatal("Flow(login) not found")
	}
	if ref.Platform.Name != "mobile" || ref.Flow.Name != "Login" {
		t.Errorf("Flow(login) = %s/%s", ref.Platform.Name, ref.Flow.Name)
	}
	if _, ok := c.Flow("missing"); ok {
		t.Error("Flow(missing) should not be found")
	}
	if n := len(c.Flows()); n != 3 {
		t.Errorf("len(Flows()) = %d, want 3", n)
	}

	if got, want := c.BundlePath("login"), filepath.Join("/srv/shop", "bundled", "login.bundle.luau"); got != want {
		t.Errorf("BundlePath = %q, want %q", got, want)
	}
	if got, want := c.VersionFilePath(), filepath.Join("/srv/shop", DefaultVersionFile); got != want {
		t.Errorf("VersionFilePath = %q, want %q", got, want)
	}
	if got, want := c.DefinitionFiles(), []string{filepath.Join("/srv/shop", "defs", "sdk.d.luau")}; !reflect.DeepEqual(got, want) {
		t.Errorf("DefinitionFiles = %v, want %v", got, want)
	}
	if got, want := c.LockPath("versions.lock"), filepath.Join("/srv/shop", "versions.lock"); got != want {
		t.Errorf("LockPath = %q, want %q", got, want)
	}
}

func TestVersionFileSetting(t *testing.T) {
	doc := `
[settings]
output_directory = "/tmp/out"
version_file = "sdk/gates.toml"
`
	c, err := Parse([]byte(doc), "/srv/shop")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := c.VersionFilePath(), filepath.Join("/srv/shop", "sdk", "gates.toml"); got != want {
		t.Errorf("VersionFilePath = %q, want %q", got, want)
	}
	if got := c.OutputDir(); got != "/tmp/out" {
		t.Errorf("absolute OutputDir rewritten to %q", got)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantMsg string
	}{
		{
			name:    "missing output directory",
			doc:     `[settings]`,
			wantMsg: "output_directory",
		},
		{
			name: "empty alias",
			doc: `
[settings]
output_directory = "out"
[[platforms]]
name = "web"
  [[platforms.flows]]
  name = "a"
  path = "a.lua"`,
			wantMsg: "alias",
		},
		{
			name: "duplicate alias",
			doc: `
[settings]
output_directory = "out"
[[platforms]]
name = "web"
  [[platforms.flows]]
  alias = "a"
  path = "a.lua"
[[platforms]]
name = "mobile"
  [[platforms.flows]]
  alias = "a"
  path = "b.lua"`,
			wantMsg: `alias "a" used by platform "web" and platform "mobile"`,
		},
		{
			name: "empty path",
			doc: `
[settings]
output_directory = "out"
[[platforms]]
name = "web"
  [[platforms.flows]]
  alias = "a"`,
			wantMsg: "path cannot be empty",
		},
		{
			name:    "malformed toml",
			doc:     `[settings`,
			wantMsg: "decode project file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), "/srv")
			if err == nil {
				t.Fatal("want error")
			}
			if !errors.Is(err, errors.ErrCodeInvalidConfig) {
				t.Errorf("code = %s, want INVALID_CONFIG", errors.GetCode(err))
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not mention %q", err, tt.wantMsg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFile)
	if err := os.WriteFile(path, []byte(project), 0o644); err != nil {
		t.Fatal(err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Dir() != dir {
		t.Errorf("Dir() = %q, want %q", c.Dir(), dir)
	}

	_, err = Load(filepath.Join(dir, "missing.toml"))
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("Load(missing) = %v, want FILE_NOT_FOUND", err)
	}
}
