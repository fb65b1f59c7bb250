package interp

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowave-io/hclsh/internal/console"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// moduleTree lays out:
//
//	net.hcl
//	app/main.hcl
//	app/sub/x.hcl
func moduleTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "net.hcl"), "# Network defaults.\nport = 8080\nhost = \"localhost\"\nurl  = \"http://${host}:${port}\"\n")
	writeFile(t, filepath.Join(root, "app", "main.hcl"), `name = local.prefix

locals {
  prefix = "app"
}

variable "region" {
  default     = "eu-west-1"
  description = "Deployment region."
}
`)
	writeFile(t, filepath.Join(root, "app", "sub", "x.hcl"), "value = 1\n")
	return root
}

func TestLoaderAvailable(t *testing.T) {
	root := moduleTree(t)
	l := NewLoader([]string{root}, map[string]string{"remote": "git::https://example.invalid/x.git"}, "", builtinFunctions())
	got := l.Available()
	for _, want := range []string{"app", "app.main", "app.sub", "app.sub.x", "net", "remote"} {
		assert.Contains(t, got, want)
	}
	assert.IsIncreasing(t, got)
}

func TestImportFileModule(t *testing.T) {
	root := moduleTree(t)
	in, out := newTestInterp(t, root)
	mustRun(t, in, "import net")
	mustRun(t, in, "net.url")
	assert.Equal(t, "\"http://localhost:8080\"\n", out.String())

	obj, ok := console.Resolve(in.Namespace(), "net.port")
	require.True(t, ok)
	loc, ok := obj.(console.Located).Source()
	require.True(t, ok)
	assert.Equal(t, filepath.Join(root, "net.hcl"), loc.File)
	assert.Equal(t, 2, loc.Line)

	mod, ok := console.Resolve(in.Namespace(), "net")
	require.True(t, ok)
	assert.Equal(t, "Network defaults.", mod.(console.Documented).Doc())
	loc, ok = mod.(console.Located).Source()
	require.True(t, ok)
	assert.Equal(t, 1, loc.Line)
}

func TestImportDirectoryModule(t *testing.T) {
	root := moduleTree(t)
	in, out := newTestInterp(t, root)
	mustRun(t, in, "import app")
	mustRun(t, in, "app.name")
	mustRun(t, in, "app.var.region")
	assert.Equal(t, "\"app\"\n\"eu-west-1\"\n", out.String())

	obj, ok := console.Resolve(in.Namespace(), "app.var.region")
	require.True(t, ok)
	assert.Equal(t, "Deployment region.", obj.(console.Documented).Doc())

	obj, ok = console.Resolve(in.Namespace(), "app.local.prefix")
	require.True(t, ok)
	loc, ok := obj.(console.Located).Source()
	require.True(t, ok)
	assert.Equal(t, 4, loc.Line)

	members, err := in.Language().ModuleMembers("app")
	require.NoError(t, err)
	assert.Equal(t, []string{"local", "name", "sub", "var"}, members)
}

func TestImportForms(t *testing.T) {
	root := moduleTree(t)
	in, _ := newTestInterp(t, root)

	mustRun(t, in, "import app.sub.x")
	assert.Equal(t, "{\n  value = 1\n}", rendered(t, in, "x"))

	mustRun(t, in, "import net as n")
	assert.Equal(t, "8080", renderAttr(t, in, "n", "port"))

	mustRun(t, in, "from net import port, host as h")
	assert.Equal(t, "8080", rendered(t, in, "port"))
	assert.Equal(t, `"localhost"`, rendered(t, in, "h"))
	obj, ok := in.Namespace().Lookup("h")
	require.True(t, ok)
	loc, ok := obj.(console.Located).Source()
	require.True(t, ok)
	assert.Equal(t, 3, loc.Line)

	mustRun(t, in, "from app import sub")
	_, ok = in.Namespace().Lookup("sub")
	assert.True(t, ok)

	mustRun(t, in, "from net import *")
	assert.Equal(t, `"http://localhost:8080"`, rendered(t, in, "url"))
}

func renderAttr(t *testing.T, in *Interpreter, name, attr string) string {
	t.Helper()
	v, ok := in.ns.Value(name)
	require.True(t, ok)
	return render(v.GetAttr(attr))
}

func TestImportErrors(t *testing.T) {
	root := moduleTree(t)
	in, _ := newTestInterp(t, root)

	err := run(t, in, "import missing")
	require.Error(t, err)
	assert.True(t, IsKind(err, ModuleNotFoundError))
	assert.Equal(t, "ModuleNotFoundError: No module named 'missing'", err.Error())

	err = run(t, in, "from net import nothing")
	assert.True(t, IsKind(err, ImportError), "%v", err)
	assert.Contains(t, err.Error(), "cannot import name 'nothing' from 'net'")
}

func TestBrokenModuleAggregatesErrors(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "bad", "one.hcl"), "a = nope\n")
	writeFile(t, filepath.Join(root, "bad", "two.hcl"), "b = missing_fn(1)\n")
	l := NewLoader([]string{root}, nil, "", builtinFunctions())

	_, err := l.Load(context.Background(), "bad")
	require.Error(t, err)
	assert.True(t, IsKind(err, ImportError))
	assert.Contains(t, err.Error(), "one.hcl:1")
	assert.Contains(t, err.Error(), "two.hcl:1")

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	assert.Len(t, merr.Errors, 2)
}

func TestTerraformVariableDefaults(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "tf", "variables.tf"), `variable "size" {
  default     = 3
  description = "Cluster size."
}
`)
	writeFile(t, filepath.Join(root, "tf", "main.tf"), `locals {
  double = var.size * 2
}
`)
	in, out := newTestInterp(t, root)
	mustRun(t, in, "import tf")
	mustRun(t, in, "tf.local.double")
	assert.Equal(t, "6\n", out.String())

	obj, ok := console.Resolve(in.Namespace(), "tf.var.size")
	require.True(t, ok)
	assert.Equal(t, "Cluster size.", obj.(console.Documented).Doc())
	loc, ok := obj.(console.Located).Source()
	require.True(t, ok)
	assert.Equal(t, 1, loc.Line)
}

func TestFetchSourceLocalPath(t *testing.T) {
	dir := t.TempDir()
	got, err := fetchSource(context.Background(), dir, "")
	require.NoError(t, err)
	assert.Equal(t, dir, got)

	_, err = fetchSource(context.Background(), filepath.Join(dir, "absent"), "")
	assert.Error(t, err)

	_, err = fetchSource(context.Background(), "git::https://example.invalid/x.git", "")
	assert.ErrorContains(t, err, "cache_dir required")
}

func TestFetchSourceUsesManifest(t *testing.T) {
	cache := t.TempDir()
	fetched := filepath.Join(cache, "fetched")
	writeFile(t, filepath.Join(fetched, "lib", "defaults.hcl"), "retries = 5\n")
	src := "git::https://example.invalid/lib.git"
	require.NoError(t, writeManifest(cache, manifest{Entries: map[string]manifestEntry{
		fingerprint(src): {Source: src, Dir: fetched, Fetched: time.Now()},
	}}))

	got, err := fetchSource(context.Background(), src, cache)
	require.NoError(t, err)
	assert.Equal(t, fetched, got)

	var out bytes.Buffer
	in := New(context.Background(), Options{Stdout: &out, ModuleSources: map[string]string{"shared": src}, CacheDir: cache})
	mustRun(t, in, "import shared.lib.defaults")
	mustRun(t, in, "defaults.retries")
	assert.Equal(t, "5\n", out.String())
}

func TestReadManifestToleratesCorruption(t *testing.T) {
	cache := t.TempDir()
	writeFile(t, filepath.Join(cache, manifestFile), "{not json")
	m := readManifest(cache)
	assert.NotNil(t, m.Entries)
	assert.Empty(t, m.Entries)
}
