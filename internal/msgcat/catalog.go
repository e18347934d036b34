package msgcat

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"text/template"

	yaml "gopkg.in/yaml.v3"
)

//go:embed messages/*.yaml
var defaultFiles embed.FS

var ErrTemplateNotFound = errors.New("template not found")

// Catalog holds one flattened template table per locale, loaded from the
// embedded defaults and an optional override directory.
// Templates use text/template with missingkey=error.
type Catalog struct {
	mu       sync.RWMutex
	tables   map[string]map[string]string // locale → dot-key → template text
	fallback string

	cache sync.Map // locale+"\x00"+key → *template.Template
}

// New loads embedded tables and applies overrides from dir if provided.
// fallback is consulted when a key is missing in the requested locale.
func New(overrideDir, fallback string) (*Catalog, error) {
	c := &Catalog{
		tables:   make(map[string]map[string]string),
		fallback: strings.ToLower(strings.TrimSpace(fallback)),
	}
	if c.fallback == "" {
		c.fallback = "en"
	}
	if err := c.loadEmbedded(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	if _, ok := c.tables[c.fallback]; !ok {
		return nil, fmt.Errorf("fallback locale %q has no messages", c.fallback)
	}
	return c, nil
}

func (c *Catalog) loadEmbedded() error {
	entries, err := fs.ReadDir(defaultFiles, "messages")
	if err != nil {
		return fmt.Errorf("read embedded messages: %w", err)
	}
	for _, e := range entries {
		raw, err := fs.ReadFile(defaultFiles, path.Join("messages", e.Name()))
		if err != nil {
			return fmt.Errorf("read embedded %s: %w", e.Name(), err)
		}
		flat, err := parseYAMLToFlat(raw)
		if err != nil {
			return fmt.Errorf("parse embedded %s: %w", e.Name(), err)
		}
		c.merge(localeOf(e.Name()), flat)
	}
	return nil
}

// applyDir reads <locale>.yaml or messages.<locale>.yaml files.
func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read template dir: %w", err)
	}
	files := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	seen := make(map[string]string) // locale/key → filename
	for _, name := range files {
		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		flat, err := parseYAMLToFlat(b)
		if err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
		loc := localeOf(name)
		for k := range flat {
			id := loc + "/" + k
			if prev, ok := seen[id]; ok {
				return fmt.Errorf("duplicate override key %q in %s and %s", k, prev, name)
			}
			seen[id] = name
		}
		c.merge(loc, flat)
	}
	return nil
}

func (c *Catalog) merge(locale string, flat map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tables[locale]
	if !ok {
		t = make(map[string]string, len(flat))
		c.tables[locale] = t
	}
	for k, v := range flat {
		t[k] = v
		c.cache.Delete(locale + "\x00" + k)
	}
}

// localeOf maps "messages.zh.yaml" and "zh.yaml" to "zh".
func localeOf(name string) string {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if i := strings.LastIndex(stem, "."); i >= 0 {
		stem = stem[i+1:]
	}
	return strings.ToLower(stem)
}

func parseYAMLToFlat(b []byte) (map[string]string, error) {
	var m map[string]any
	if err := yaml.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	flat := make(map[string]string)
	if err := flattenStrings(m, "", flat); err != nil {
		return nil, err
	}
	return flat, nil
}

func flattenStrings(src any, prefix string, out map[string]string) error {
	switch v := src.(type) {
	case map[string]any:
		for k, vv := range v {
			key := k
			if prefix != "" {
				key = prefix + "." + k
			}
			if err := flattenStrings(vv, key, out); err != nil {
				return err
			}
		}
		return nil
	case string:
		if prefix == "" {
			return errors.New("string value without key prefix")
		}
		out[prefix] = v
		return nil
	case nil:
		return nil
	default:
		return fmt.Errorf("unsupported value at %s: %T", prefix, v)
	}
}

// Locales lists the loaded locales in sorted order.
func (c *Catalog) Locales() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.tables))
	for loc := range c.tables {
		out = append(out, loc)
	}
	sort.Strings(out)
	return out
}

// Render executes the template for key in locale, falling back to the
// fallback locale when the key is missing there.
func (c *Catalog) Render(locale, key string, data any) (string, error) {
	key = strings.TrimSpace(key)
	locale = strings.ToLower(strings.TrimSpace(locale))
	tpl, err := c.template(locale, key)
	if errors.Is(err, ErrTemplateNotFound) && locale != c.fallback {
		tpl, err = c.template(c.fallback, key)
	}
	if err != nil {
		return "", err
	}
	var b strings.Builder
	if err := tpl.Execute(&b, data); err != nil {
		return "", err
	}
	return b.String(), nil
}

// Localize is Render that never fails: it returns key itself on error.
func (c *Catalog) Localize(locale, key string, data map[string]any) string {
	s, err := c.Render(locale, key, data)
	if err != nil {
		return key
	}
	return s
}

func (c *Catalog) template(locale, key string) (*template.Template, error) {
	id := locale + "\x00" + key
	if t, ok := c.cache.Load(id); ok {
		return t.(*template.Template), nil
	}
	c.mu.RLock()
	text, ok := c.tables[locale][key]
	c.mu.RUnlock()
	if !ok || strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: %s/%s", ErrTemplateNotFound, locale, key)
	}
	t, err := template.New(key).Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, err
	}
	c.cache.Store(id, t)
	return t, nil
}
