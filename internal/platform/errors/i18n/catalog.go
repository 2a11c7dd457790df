// Package i18n renders localized error messages from the error namespace of
// the embedded catalogs.
package i18n

import (
	"bytes"
	"strings"
	"sync"
	"text/template"

	"github.com/louisbranch/simlab/internal/platform/i18n/catalog"
)

// BaseLocale is the locale every lookup falls back to.
const BaseLocale = catalog.BaseLocale

const keyPrefix = "error."

// Code is a machine-readable error code (duplicated from errors package to avoid cycle).
type Code = string

// Catalog maps error codes to message templates for a specific locale.
type Catalog struct {
	locale   string
	messages map[Code]string
}

var (
	catalogsMu sync.RWMutex
	catalogs   = fromBundle(catalog.Default())
)

// fromBundle builds one catalog per locale. Codes a locale does not translate
// take the base locale template.
func fromBundle(bundle *catalog.Bundle) map[string]*Catalog {
	out := make(map[string]*Catalog)
	base := bundle.LocaleMessages(BaseLocale)
	for _, locale := range bundle.Locales() {
		messages := make(map[Code]string)
		for key := range base {
			code, ok := strings.CutPrefix(key, keyPrefix)
			if !ok {
				continue
			}
			messages[code], _ = bundle.Message(locale, key)
		}
		out[locale] = &Catalog{locale: locale, messages: messages}
	}
	return out
}

// GetCatalog returns the catalog registered for locale, else the closest
// supported locale.
func GetCatalog(locale string) *Catalog {
	requested := strings.TrimSpace(locale)
	if c, ok := lookupCatalog(requested); ok {
		return c
	}
	if c, ok := lookupCatalog(catalog.Default().Match(requested).String()); ok {
		return c
	}
	c, _ := lookupCatalog(BaseLocale)
	return c
}

// Locale returns the locale of this catalog.
func (c *Catalog) Locale() string {
	return c.locale
}

// Format renders the message template with the given metadata.
// Falls back to the error code itself if no template is found.
func (c *Catalog) Format(code Code, metadata map[string]string) string {
	tmpl, ok := c.messages[code]
	if !ok {
		return code
	}
	if metadata == nil {
		metadata = map[string]string{}
	}

	t, err := template.New("msg").Parse(tmpl)
	if err != nil {
		return tmpl
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, metadata); err != nil {
		return tmpl
	}
	return buf.String()
}

// RegisterCatalog registers a new catalog for the given locale.
// Callers should only use this during init or in test setup.
func RegisterCatalog(locale string, cat *Catalog) {
	catalogsMu.Lock()
	defer catalogsMu.Unlock()
	catalogs[locale] = cat
}

// NewCatalog creates a new catalog with the given locale and messages.
func NewCatalog(locale string, messages map[Code]string) *Catalog {
	cloned := make(map[Code]string, len(messages))
	for key, value := range messages {
		cloned[key] = value
	}
	return &Catalog{locale: locale, messages: cloned}
}

func lookupCatalog(locale string) (*Catalog, bool) {
	catalogsMu.RLock()
	defer catalogsMu.RUnlock()
	cat, ok := catalogs[locale]
	return cat, ok
}
