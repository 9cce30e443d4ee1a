package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var LocalesFS embed.FS

// DefaultLang is used when nothing in Accept-Language is loaded.
const DefaultLang = "en"

// Translator holds the flat key -> format table of one language.
type Translator struct {
	translations map[string]string
}

func newTranslatorFromBytes(data []byte) (*Translator, error) {
	var translations map[string]string
	if err := yaml.Unmarshal(data, &translations); err != nil {
		return nil, fmt.Errorf("failed to parse translation file: %w", err)
	}
	return &Translator{translations: translations}, nil
}

// T formats key. Unknown keys come back unchanged.
func (t *Translator) T(key string, args ...interface{}) string {
	format, ok := t.translations[key]
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(format, args...)
	}
	return format
}

func (t *Translator) Has(key string) bool {
	_, ok := t.translations[key]
	return ok
}

// Catalog is every language found under locales/ in fsys.
type Catalog struct {
	langs map[string]*Translator
}

// NewCatalog loads locales/<lang>.yaml files. The default language must exist.
func NewCatalog(fsys fs.FS) (*Catalog, error) {
	files, err := fs.Glob(fsys, "locales/*.yaml")
	if err != nil {
		return nil, err
	}
	c := &Catalog{langs: make(map[string]*Translator, len(files))}
	for _, f := range files {
		data, err := fs.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("failed to read translation file %s: %w", f, err)
		}
		tr, err := newTranslatorFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f, err)
		}
		c.langs[strings.TrimSuffix(path.Base(f), ".yaml")] = tr
	}
	if _, ok := c.langs[DefaultLang]; !ok {
		return nil, fmt.Errorf("locale %q is missing", DefaultLang)
	}
	return c, nil
}

// Match picks the first loaded language from an Accept-Language header.
// Quality weights are ignored; browsers already send them in order.
func (c *Catalog) Match(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		base := strings.ToLower(strings.SplitN(tag, "-", 2)[0])
		if _, ok := c.langs[base]; ok {
			return base
		}
	}
	return DefaultLang
}

// T translates key in lang, falling back to the default language.
func (c *Catalog) T(lang, key string, args ...interface{}) string {
	if tr, ok := c.langs[lang]; ok && tr.Has(key) {
		return tr.T(key, args...)
	}
	return c.langs[DefaultLang].T(key, args...)
}
