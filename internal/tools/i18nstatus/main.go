// Package main reports how much of the report catalog each locale translates.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"
	"slices"
	"strings"

	i18ncatalog "github.com/louisbranch/simlab/internal/platform/i18n/catalog"
)

type report struct {
	BaseLocale string         `json:"base_locale"`
	Locales    []localeStatus `json:"locales"`
}

type localeStatus struct {
	Locale      string            `json:"locale"`
	BaseKeys    int               `json:"base_keys"`
	Translated  int               `json:"translated"`
	Completion  float64           `json:"completion"`
	Namespaces  []namespaceStatus `json:"namespaces"`
	MissingKeys []string          `json:"missing_keys"`
}

type namespaceStatus struct {
	Namespace  string  `json:"namespace"`
	BaseKeys   int     `json:"base_keys"`
	Translated int     `json:"translated"`
	Completion float64 `json:"completion"`
}

func main() {
	jsonOutput := flag.Bool("json", false, "print JSON instead of markdown")
	flag.Parse()

	bundle, err := i18ncatalog.LoadEmbedded()
	if err != nil {
		fatalf("load i18n catalogs: %v", err)
	}
	rep := buildReport(bundle)
	if *jsonOutput {
		err = writeJSON(os.Stdout, rep)
	} else {
		err = writeMarkdown(os.Stdout, rep)
	}
	if err != nil {
		fatalf("write report: %v", err)
	}
}

func buildReport(bundle *i18ncatalog.Bundle) report {
	base := bundle.LocaleMessages(i18ncatalog.BaseLocale)
	baseKeys := sortedKeys(base)

	rep := report{BaseLocale: i18ncatalog.BaseLocale}
	for _, locale := range bundle.Locales() {
		messages := bundle.LocaleMessages(locale)
		status := localeStatus{Locale: locale, BaseKeys: len(base), MissingKeys: []string{}}
		namespaces := map[string]*namespaceStatus{}
		for _, key := range baseKeys {
			name := namespace(key)
			ns, ok := namespaces[name]
			if !ok {
				ns = &namespaceStatus{Namespace: name}
				namespaces[name] = ns
			}
			ns.BaseKeys++
			if _, ok := messages[key]; ok {
				ns.Translated++
				status.Translated++
				continue
			}
			status.MissingKeys = append(status.MissingKeys, key)
		}
		status.Completion = percent(status.Translated, status.BaseKeys)
		for _, name := range sortedKeys(namespaces) {
			ns := namespaces[name]
			ns.Completion = percent(ns.Translated, ns.BaseKeys)
			status.Namespaces = append(status.Namespaces, *ns)
		}
		rep.Locales = append(rep.Locales, status)
	}
	return rep
}

func writeJSON(w io.Writer, rep report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rep)
}

func writeMarkdown(w io.Writer, rep report) error {
	var b strings.Builder
	b.WriteString("# I18n Status\n\n")
	fmt.Fprintf(&b, "Base locale: `%s`.\n\n", rep.BaseLocale)
	b.WriteString("| Locale | Base Keys | Translated | Completion |\n")
	b.WriteString("| --- | ---: | ---: | ---: |\n")
	for _, locale := range rep.Locales {
		fmt.Fprintf(&b, "| `%s` | %d | %d | %.1f%% |\n", locale.Locale, locale.BaseKeys, locale.Translated, locale.Completion)
	}
	for _, locale := range rep.Locales {
		fmt.Fprintf(&b, "\n## Locale: `%s`\n\n", locale.Locale)
		b.WriteString("| Namespace | Base Keys | Translated | Completion |\n")
		b.WriteString("| --- | ---: | ---: | ---: |\n")
		for _, ns := range locale.Namespaces {
			fmt.Fprintf(&b, "| `%s` | %d | %d | %.1f%% |\n", ns.Namespace, ns.BaseKeys, ns.Translated, ns.Completion)
		}
		if len(locale.MissingKeys) > 0 {
			b.WriteString("\n### Missing Keys\n\n")
			for _, key := range locale.MissingKeys {
				fmt.Fprintf(&b, "- `%s`\n", key)
			}
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func namespace(key string) string {
	name, _, _ := strings.Cut(key, ".")
	return name
}

func sortedKeys[V any](entries map[string]V) []string {
	out := make([]string, 0, len(entries))
	for key := range entries {
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}

func percent(numerator int, denominator int) float64 {
	if denominator <= 0 {
		return 100
	}
	value := float64(numerator) * 100 / float64(denominator)
	return math.Round(value*10) / 10
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
