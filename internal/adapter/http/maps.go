package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// errNoMaps is reported by readiness until the first map is written.
var errNoMaps = errors.New("no maps generated yet")

// MapEntry is one generated map file.
type MapEntry struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// MapsDir lists the generated maps in Dir. It implements
// sharedobs.ReadinessChecker: ready once Dir holds at least one map.
type MapsDir struct {
	Dir string
}

// List returns the .html files in Dir sorted by name. A missing directory
// yields an empty list.
func (m *MapsDir) List() ([]MapEntry, error) {
	entries, err := os.ReadDir(m.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list maps: %w", err)
	}

	var out []MapEntry
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".html") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, MapEntry{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MapsDir) CheckReadiness(_ context.Context) error {
	entries, err := m.List()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return errNoMaps
	}
	return nil
}

type indexPage struct {
	Maps []MapEntry
	Now  time.Time
}

var indexTemplate = template.Must(template.New("index").Funcs(template.FuncMap{
	"bytes": func(n int64) string { return humanize.Bytes(uint64(n)) },
	"ago":   func(t, now time.Time) string { return humanize.RelTime(t, now, "ago", "from now") },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8"/>
  <title>Maryland overdose maps</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2em; background: #1e1e1e; color: #ddd; }
    a { color: #fd8d3c; }
    td { padding: 0.2em 1em 0.2em 0; }
  </style>
</head>
<body>
  <h1>Maryland overdose maps</h1>
  {{- if .Maps}}
  <table>
    {{- range .Maps}}
    <tr><td><a href="/maps/{{.Name}}">{{.Name}}</a></td><td>{{bytes .Size}}</td><td>{{ago .ModTime $.Now}}</td></tr>
    {{- end}}
  </table>
  {{- else}}
  <p>No maps generated yet.</p>
  {{- end}}
</body>
</html>
`))
