package publish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const descriptorXML = `<?xml version="1.0" encoding="UTF-8"?>
<addon id="plugin.video.sample" version="1.2.0" name="Sample">
  <extension point="xbmc.python.pluginsource" library="main.py"/>
  <extension point="xbmc.addon.metadata">
    <assets>
      <icon>icon.png</icon>
      <fanart>resources/media/fanart.jpg</fanart>
      <screenshot>resources/media/missing.jpg</screenshot>
      <banner></banner>
      <clearlogo>../outside.png</clearlogo>
    </assets>
  </extension>
</addon>
`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestPublishCopiesDeclaredAssets(t *testing.T) {
	base := t.TempDir()
	plugin := filepath.Join(base, "plugin.video.sample")
	writeFile(t, filepath.Join(plugin, "addon.xml"), descriptorXML)
	writeFile(t, filepath.Join(plugin, "icon.png"), "icon")
	writeFile(t, filepath.Join(plugin, "resources", "media", "fanart.jpg"), "fanart")
	writeFile(t, filepath.Join(base, "outside.png"), "secret")

	out := filepath.Join(base, "zips", "plugin.video.sample")
	res, err := New("", nil).Publish(plugin, out)
	require.NoError(t, err)

	assert.Equal(t, "plugin.video.sample", res.Descriptor.ID)
	assert.Equal(t, []string{"addon.xml", "icon.png", "resources/media/fanart.jpg"}, res.Copied)
	assert.Equal(t, []string{"resources/media/missing.jpg"}, res.Skipped)
	assert.Equal(t, []string{"../outside.png"}, res.Rejected)

	got, err := os.ReadFile(filepath.Join(out, "resources", "media", "fanart.jpg"))
	require.NoError(t, err)
	assert.Equal(t, "fanart", string(got))

	_, err = os.Stat(filepath.Join(base, "zips", "outside.png"))
	assert.True(t, os.IsNotExist(err), "escaping asset must not be copied")
}

func TestPublishIsRepeatable(t *testing.T) {
	base := t.TempDir()
	plugin := filepath.Join(base, "p")
	writeFile(t, filepath.Join(plugin, "addon.xml"), descriptorXML)
	writeFile(t, filepath.Join(plugin, "icon.png"), "v1")
	out := filepath.Join(base, "out")

	pub := New("addon.xml", nil)
	_, err := pub.Publish(plugin, out)
	require.NoError(t, err)

	writeFile(t, filepath.Join(plugin, "icon.png"), "v2")
	_, err = pub.Publish(plugin, out)
	require.NoError(t, err)

	got, err := os.ReadFile(filepath.Join(out, "icon.png"))
	require.NoError(t, err)
	assert.Equal(t, "v2", string(got))
}

func TestPublishMalformedDescriptor(t *testing.T) {
	plugin := t.TempDir()
	writeFile(t, filepath.Join(plugin, "addon.xml"), `<addon id="x"`)

	_, err := New("", nil).Publish(plugin, t.TempDir())
	require.Error(t, err)
}
