package i18n

import "testing"

func TestGetCatalogFallback(t *testing.T) {
	base := GetCatalog("en-US")
	if base == nil {
		t.Fatal("expected base catalog")
	}
	fallback := GetCatalog("missing-locale")
	if fallback != base {
		t.Fatal("expected fallback to en-US catalog")
	}
}

func TestFormatFallbacks(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "hello {{.Name}}",
	})

	if cat.Format("unknown", nil) != "unknown" {
		t.Fatal("expected code fallback when template missing")
	}
	if cat.Format("code", nil) != "hello <no value>" {
		t.Fatal("expected template to render missing metadata")
	}
}

func TestFormatTemplateErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ if .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ if .Name }}" {
		t.Fatal("expected template fallback on parse error")
	}
}

func TestFormatTemplateExecutionErrorFallback(t *testing.T) {
	cat := NewCatalog("test", map[Code]string{
		"code": "{{ call .Name }}",
	})
	if cat.Format("code", map[string]string{"Name": "X"}) != "{{ call .Name }}" {
		t.Fatal("expected template fallback on execute error")
	}
}

func TestRegisterCatalog(t *testing.T) {
	custom := NewCatalog("custom", map[Code]string{"code": "ok"})
	RegisterCatalog("custom", custom)
	if got := GetCatalog("custom"); got != custom {
		t.Fatal("expected registered catalog")
	}
}

func TestGetCatalogLanguageMatch(t *testing.T) {
	cat := GetCatalog("es-AR")
	if cat.Locale() != "es-BO" {
		t.Fatalf("Locale() = %q, want %q", cat.Locale(), "es-BO")
	}
}

func TestFormatTrialCount(t *testing.T) {
	got := GetCatalog("en-US").Format("TRIAL_COUNT_OUT_OF_RANGE", map[string]string{"Trials": "31"})
	want := "Trial count must be between 1 and 30, got 31."
	if got != want {
		t.Fatalf("Format() = %q, want %q", got, want)
	}
}

func TestEveryLocaleFormatsEveryCode(t *testing.T) {
	for _, locale := range []string{"en-US", "es-BO"} {
		cat := GetCatalog(locale)
		for _, code := range []Code{"PARAM_MISSING", "PAGE_TOKEN_INVALID", "RUN_NOT_FOUND"} {
			if got := cat.Format(code, map[string]string{"Param": "x", "RunID": "r"}); got == code {
				t.Fatalf("%s: %s has no template", locale, code)
			}
		}
	}
	got := GetCatalog("es").Format("RUN_NOT_FOUND", map[string]string{"RunID": "r1"})
	if got != "No se encontró la corrida r1." {
		t.Fatalf("Format() = %q", got)
	}
}
