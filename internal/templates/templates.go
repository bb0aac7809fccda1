// Package templates provides embedded templates for plugin scaffolding.
package templates

import (
	"embed"
	"fmt"
	"io"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed plugin/*.tmpl
var pluginTemplates embed.FS

// PluginData is the data rendered into the plugin scaffold.
type PluginData struct {
	// Name is the plugin name ("my-plugin" or "@team/my-plugin").
	Name string
	// Version is the initial semantic version.
	Version string
	// EntryFile names the compiled entry file the manifest points at.
	EntryFile string
}

// PluginTemplates returns the parsed plugin scaffold templates. Template
// names are the output file names (plugin.json, README.md, ...).
func PluginTemplates() (*template.Template, error) {
	tmpl := template.New("")

	err := fs.WalkDir(pluginTemplates, "plugin", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".tmpl") {
			return nil
		}

		content, err := pluginTemplates.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading template %s: %w", path, err)
		}

		name := strings.TrimPrefix(path, "plugin/")
		name = strings.TrimSuffix(name, ".tmpl")

		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return fmt.Errorf("parsing template %s: %w", path, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tmpl, nil
}

// Render writes one named template with the given data.
func Render(w io.Writer, tmpl *template.Template, name string, data PluginData) error {
	t := tmpl.Lookup(name)
	if t == nil {
		return fmt.Errorf("unknown template %q", name)
	}
	if err := t.Execute(w, data); err != nil {
		return fmt.Errorf("rendering template %s: %w", name, err)
	}
	return nil
}
