package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"
)

const (
	repoDescriptor = `<?xml version="1.0" encoding="UTF-8"?>
<addon id="repository.example" name="Example Repository" version="1.0.0" provider-name="example">
  <extension point="xbmc.addon.repository" name="Example Repository">
    <dir>
      <info compressed="false">https://example.com/repo/zips/addons.xml</info>
      <checksum>https://example.com/repo/zips/addons.xml.md5</checksum>
      <datadir zip="true">https://example.com/repo/zips/</datadir>
    </dir>
  </extension>
  <extension point="xbmc.addon.metadata">
    <summary>Example</summary>
    <assets>
      <icon>icon.png</icon>
    </assets>
  </extension>
</addon>
`
	pluginDescriptor = `<?xml version="1.0" encoding="UTF-8"?>
<addon id="plugin.video.sample" name="Sample" version="%s" provider-name="example">
  <extension point="xbmc.python.pluginsource" library="main.py">
    <provides>video</provides>
  </extension>
  <extension point="xbmc.addon.metadata">
    <assets>
      <icon>icon.png</icon>
      <fanart>fanart.jpg</fanart>
    </assets>
  </extension>
</addon>
`
)

func writeTestFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

// newSite lays out a site with one release holding a repository package and
// one plugin at pluginVersion.
func newSite(t *testing.T, pluginVersion string) string {
	t.Helper()
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "repogen.yaml"), "repository_id: repository.example\nreleases: [repo]\n")
	writeTestFile(t, filepath.Join(root, "repo", "repository.example", "addon.xml"), repoDescriptor)
	writeTestFile(t, filepath.Join(root, "repo", "repository.example", "icon.png"), "repo icon")
	setPluginVersion(t, root, pluginVersion)
	writeTestFile(t, filepath.Join(root, "repo", "plugin.video.sample", "main.py"), "print('hi')\n")
	writeTestFile(t, filepath.Join(root, "repo", "plugin.video.sample", "icon.png"), "icon")
	writeTestFile(t, filepath.Join(root, "repo", "plugin.video.sample", "resources", "lib", "util.py"), "x = 1\n")
	return root
}

func setPluginVersion(t *testing.T, root, v string) {
	t.Helper()
	writeTestFile(t, filepath.Join(root, "repo", "plugin.video.sample", "addon.xml"), fmt.Sprintf(pluginDescriptor, v))
}

// runCLI executes the root command with args and returns stdout and stderr.
func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
