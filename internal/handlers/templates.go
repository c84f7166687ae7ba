package handlers

import (
	"embed"
	"html/template"
	"io/fs"
	"log/slog"
	"path"
	"sync"
)

//go:embed templates/*.html
var templatesFS embed.FS

// TemplateCache holds parsed templates
type TemplateCache struct {
	cache map[string]*template.Template
	mu    sync.RWMutex
	funcs template.FuncMap
}

func NewTemplateCache() *TemplateCache {
	return &TemplateCache{
		cache: make(map[string]*template.Template),
		funcs: make(template.FuncMap),
	}
}

func (tc *TemplateCache) AddFunc(name string, fn interface{}) {
	tc.mu.Lock()
	defer tc.mu.Unlock()
	tc.funcs[name] = fn
}

// Load parses every *.html file in dir of fsys. A nil fsys means the
// templates compiled into the binary.
func (tc *TemplateCache) Load(fsys fs.FS, dir string) error {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if fsys == nil {
		fsys = templatesFS
	}

	files, err := fs.Glob(fsys, path.Join(dir, "*.html"))
	if err != nil {
		return err
	}
	for _, file := range files {
		name := path.Base(file)
		tmpl, err := template.New(name).Funcs(tc.funcs).ParseFS(fsys, file)
		if err != nil {
			slog.Error("Failed to parse template", "file", file, "error", err)
			return err
		}
		tc.cache[name] = tmpl
		slog.Debug("Cached template", "name", name)
	}
	return nil
}

func (tc *TemplateCache) Get(name string) *template.Template {
	tc.mu.RLock()
	defer tc.mu.RUnlock()
	return tc.cache[name]
}
