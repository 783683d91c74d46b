package i18n

import (
	"embed"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.yaml.in/yaml/v4"
)

const DefaultLanguage = "sv"

//go:embed locales/*.yaml
var localesFS embed.FS

// Catalog looks up dotted keys ("notifications.no_plant") in one language,
// falling back to English and finally to the key itself.
type Catalog struct {
	lang     string
	strings  map[string]string
	fallback map[string]string
}

func Languages() []string {
	entries, _ := localesFS.ReadDir("locales")
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, strings.TrimSuffix(e.Name(), ".yaml"))
	}
	sort.Strings(out)
	return out
}

func Load(lang string) (*Catalog, error) {
	if lang == "" {
		lang = DefaultLanguage
	}
	main, err := loadLocale(lang)
	if err != nil {
		return nil, err
	}
	fb, err := loadLocale("en")
	if err != nil {
		return nil, err
	}
	return &Catalog{lang: lang, strings: main, fallback: fb}, nil
}

func loadLocale(lang string) (map[string]string, error) {
	b, err := localesFS.ReadFile("locales/" + lang + ".yaml")
	if err != nil {
		return nil, errors.Wrapf(err, "unknown language %q", lang)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(b, &tree); err != nil {
		return nil, errors.Wrapf(err, "parse locale %s", lang)
	}
	out := map[string]string{}
	flatten("", tree, out)
	return out, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

func (c *Catalog) Language() string { return c.lang }

// T returns the translation of key with {name} placeholders replaced from params.
func (c *Catalog) T(key string, params map[string]string) string {
	s, ok := c.strings[key]
	if !ok {
		s, ok = c.fallback[key]
	}
	if !ok {
		s = key
	}
	for k, v := range params {
		s = strings.ReplaceAll(s, "{"+k+"}", v)
	}
	return s
}
