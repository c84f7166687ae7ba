// Package i18n is the storefront's string bundle for Georgian, Russian
// and English.
package i18n

import (
	_ "embed"
	"fmt"
	"sync"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

//go:embed strings.yaml
var bundleYAML []byte

// Supported languages. English is the fallback.
const (
	English  = "en"
	Russian  = "ru"
	Georgian = "ka"
)

var supported = []language.Tag{language.English, language.Russian, language.Georgian}

var matcher = language.NewMatcher(supported)

// Bundle maps language code -> key -> text.
type Bundle map[string]map[string]string

func Parse(data []byte) (Bundle, error) {
	var b Bundle
	if err := yaml.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("failed to parse string bundle: %w", err)
	}
	return b, nil
}

// Translate looks key up in lang, then in English, and finally returns
// the key itself.
func (b Bundle) Translate(key, lang string) string {
	if s, ok := b[lang][key]; ok {
		return s
	}
	if s, ok := b[English][key]; ok {
		return s
	}
	return key
}

// Strings returns every string of one language, English filling gaps.
func (b Bundle) Strings(lang string) map[string]string {
	out := make(map[string]string, len(b[English]))
	for k, v := range b[English] {
		out[k] = v
	}
	for k, v := range b[lang] {
		out[k] = v
	}
	return out
}

var (
	defaultOnce   sync.Once
	defaultBundle Bundle
)

// Default is the embedded bundle.
func Default() Bundle {
	defaultOnce.Do(func() {
		b, err := Parse(bundleYAML)
		if err != nil {
			panic(err)
		}
		defaultBundle = b
	})
	return defaultBundle
}

// T translates with the embedded bundle.
func T(key, lang string) string {
	return Default().Translate(key, lang)
}

// IsSupported reports whether lang is one of the bundle languages.
func IsSupported(lang string) bool {
	return lang == English || lang == Russian || lang == Georgian
}

// Negotiate picks a supported language from an Accept-Language header.
func Negotiate(acceptLanguage string) string {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return English
	}
	_, idx, _ := matcher.Match(tags...)
	base, _ := supported[idx].Base()
	return base.String()
}
