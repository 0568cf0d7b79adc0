// Package testutils holds fixtures shared by the package and integration
// tests: temporary view trees, a matching configuration and hostile template
// names.
package testutils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/anhnt/edge/internal/config"
)

// CreateTempProject creates a project with an empty views directory and an
// emails directory for a named disk.
func CreateTempProject(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()

	for _, dir := range []string{"views", "views/components", "emails"} {
		require.NoError(t, os.MkdirAll(filepath.Join(tempDir, dir), 0o755))
	}
	return tempDir
}

// WriteTemplate writes a template below dir. The .edge extension is added
// when name lacks it.
func WriteTemplate(t *testing.T, dir, name, content string) string {
	t.Helper()
	if !strings.HasSuffix(name, ".edge") {
		name += ".edge"
	}
	path := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// WriteTemplates writes every name/content pair below dir.
func WriteTemplates(t *testing.T, dir string, templates map[string]string) {
	t.Helper()
	for name, content := range templates {
		WriteTemplate(t, dir, name, content)
	}
}

// CreateTestConfig returns a configuration for a project made by
// CreateTempProject, with the watcher off and a random port.
func CreateTestConfig(projectDir string) *config.Config {
	cfg := config.Default()
	cfg.Views.Root = filepath.Join(projectDir, "views")
	cfg.Views.Disks = map[string]string{"mail": filepath.Join(projectDir, "emails")}
	cfg.Server.Port = 0
	cfg.Watch.Enabled = false
	cfg.Watch.Debounce = 20 * time.Millisecond
	return cfg
}

// StandardTemplates is a small site: a layout-like card component, a page
// using it and a partial.
var StandardTemplates = map[string]string{
	"components/card": `<div class="card">
<h3>{{ title }}</h3>
{{ $slot.yield }}
@if($slot.footer)
<footer>{{ $slot.footer }}</footer>
@end
</div>
`,
	"partials/nav": `<nav>
@each((item, i) in nav)
<a class="{{ item === active ? 'active' : '' }}">{{ item }}</a>
@end
</nav>
`,
	"home": `@include('partials/nav')
@component('components/card', { title: title })
<p>{{ body }}</p>
@slot('footer')
Posted by {{ author }}
@end
@end
`,
}

// SecurityTestCases provides hostile template names and paths.
var SecurityTestCases = struct {
	PathTraversal    []string
	CommandInjection []string
}{
	PathTraversal: []string{
		"../../../etc/passwd",
		"..\\..\\..\\windows\\system32\\config\\sam",
		"....//....//....//etc/passwd",
		"..%2F..%2F..%2Fetc%2Fpasswd",
		"/./../../etc/passwd",
		"/etc/passwd",
		"partials/../../../../etc/passwd",
		"default::../secret",
	},
	CommandInjection: []string{
		"views; rm -rf /",
		"views && rm -rf /",
		"views | cat",
		"views`id`",
		"views$(id)",
		"views > /tmp/out",
	},
}
