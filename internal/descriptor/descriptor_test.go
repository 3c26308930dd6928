package descriptor

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const sampleAddon = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>
<addon id="plugin.video.sample" name="Sample &amp; Co" version="1.0.0" provider-name="me">
    <requires>
        <import addon="xbmc.python" version="3.0.0"/>
    </requires>
    <extension point="xbmc.python.pluginsource" library="main.py"/>
    <extension point="xbmc.addon.metadata">
        <summary lang="en_GB">Sample</summary>
        <assets>
            <icon>icon.png</icon>
            <fanart>resources/media/fanart.jpg</fanart>
            <banner></banner>
            <screenshot>  </screenshot>
        </assets>
    </extension>
</addon>
`

func TestParseExtractsIdentityAndAssets(t *testing.T) {
	d, err := Parse([]byte(sampleAddon))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.ID != "plugin.video.sample" {
		t.Errorf("ID = %q", d.ID)
	}
	if d.Version != "1.0.0" {
		t.Errorf("Version = %q", d.Version)
	}
	want := []string{"icon.png", "resources/media/fanart.jpg"}
	if len(d.Assets) != len(want) {
		t.Fatalf("Assets = %v, want %v", d.Assets, want)
	}
	for i := range want {
		if d.Assets[i] != want[i] {
			t.Errorf("Assets[%d] = %q, want %q", i, d.Assets[i], want[i])
		}
	}
	if d.Role("") != RolePlugin {
		t.Errorf("Role = %q, want plugin", d.Role(""))
	}
	if d.Role("plugin.video.sample") != RoleRepository {
		t.Errorf("explicit repository id should select repository role")
	}
}

func TestParseRepositoryExtension(t *testing.T) {
	doc := `<addon id="repository.example" version="2.1"><extension point="xbmc.addon.repository"/></addon>`
	d, err := Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.Role("") != RoleRepository {
		t.Fatalf("Role = %q, want repository", d.Role(""))
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want error
	}{
		{"missing id", `<addon version="1.0"/>`, ErrMissingID},
		{"missing version", `<addon id="x"/>`, ErrMissingVersion},
		{"parent id", `<addon id="../../escaped" version="1.0"/>`, ErrUnsafeName},
		{"slash id", `<addon id="a/b" version="1.0"/>`, ErrUnsafeName},
		{"backslash id", `<addon id="a\b" version="1.0"/>`, ErrUnsafeName},
		{"dot id", `<addon id="." version="1.0"/>`, ErrUnsafeName},
		{"slash version", `<addon id="x" version="1.0/../../x"/>`, ErrUnsafeName},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.doc))
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	if _, err := Parse([]byte(`<plugin id="x" version="1"/>`)); err == nil {
		t.Fatal("expected error for wrong root element")
	}
	if _, err := Parse([]byte(`<addon id="x" version="1">`)); err == nil {
		t.Fatal("expected error for truncated document")
	}
}

func TestParseTrimsIdentityInElement(t *testing.T) {
	d, err := Parse([]byte(`<addon id=" plugin.pad " version=" 1.0.0 " name="Pad"/>`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if d.ID != "plugin.pad" || d.Version != "1.0.0" {
		t.Fatalf("identity = %q %q", d.ID, d.Version)
	}
	want := `<addon id="plugin.pad" version="1.0.0" name="Pad"></addon>`
	if got := string(d.Element.Encode()); got != want {
		t.Fatalf("Encode = %s, want %s", got, want)
	}
}

func TestElementEncodeIsStable(t *testing.T) {
	d, err := Parse([]byte(sampleAddon))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	first := d.Element.Encode()

	again, err := Parse(first)
	if err != nil {
		t.Fatalf("Parse(encoded): %v", err)
	}
	second := again.Element.Encode()
	if string(first) != string(second) {
		t.Fatalf("encoding not stable:\n%s\n---\n%s", first, second)
	}
	if again.ID != d.ID || again.Version != d.Version {
		t.Fatalf("identity changed after round trip: %s %s", again.ID, again.Version)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(sampleAddon), 0o644); err != nil {
		t.Fatal(err)
	}
	d, err := LoadDir(dir, "")
	if err != nil {
		t.Fatalf("LoadDir: %v", err)
	}
	if d.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", d.Path)
	}

	if _, err := LoadDir(t.TempDir(), ""); err == nil {
		t.Fatal("expected error for missing descriptor")
	}
}
