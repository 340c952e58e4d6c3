// Package prompt builds the instruction prompts sent to analysis backends.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ResponseLanguage selects which language(s) the review is written in.
type ResponseLanguage string

const (
	// ResponseNative answers in the configured native language only.
	ResponseNative ResponseLanguage = "native"
	// ResponseEnglish answers in English only.
	ResponseEnglish ResponseLanguage = "english"
	// ResponseBilingual answers in both languages, clearly delimited.
	ResponseBilingual ResponseLanguage = "bilingual"
)

// Valid reports whether r is a known response language.
func (r ResponseLanguage) Valid() bool {
	switch r {
	case ResponseNative, ResponseEnglish, ResponseBilingual:
		return true
	}
	return false
}

const defaultSystem = "You are a code review assistant specialized in identifying bugs, suggesting improvements, and ensuring code quality."

// Template is a per-provider prompt override. The user template may contain
// {language} and {code} placeholders.
type Template struct {
	System string `yaml:"system"`
	User   string `yaml:"user"`
}

// Builder produces (system, user) prompt pairs for a given provider.
type Builder struct {
	native    string
	overrides map[string]Template
}

// NewBuilder creates a Builder. native names the language used for the
// "native" and "bilingual" response modes, e.g. "Russian".
func NewBuilder(native string) *Builder {
	if native == "" {
		native = "Russian"
	}
	return &Builder{native: native, overrides: make(map[string]Template)}
}

// LoadOverrides reads a YAML file mapping provider name to Template.
// A missing file is not an error; overrides simply stay empty.
func (b *Builder) LoadOverrides(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading prompt overrides: %w", err)
	}
	overrides := make(map[string]Template)
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("parsing prompt overrides: %w", err)
	}
	b.overrides = overrides
	return nil
}

// Build returns the system and user prompts for a review of code written in
// language. provider selects an override template when one is configured.
func (b *Builder) Build(provider, code, language string, resp ResponseLanguage) (system, user string) {
	system = defaultSystem
	if t, ok := b.overrides[provider]; ok {
		if t.System != "" {
			system = t.System
		}
		if t.User != "" {
			user = expand(t.User, code, language)
			return system, user + "\n\n" + b.languageInstruction(resp)
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Analyze the following %s code and suggest improvements:\n\n", language)
	fmt.Fprintf(&sb, "```%s\n%s\n```\n\n", language, code)
	sb.WriteString(b.languageInstruction(resp))
	return system, sb.String()
}

// Native returns the configured native language name.
func (b *Builder) Native() string { return b.native }

func (b *Builder) languageInstruction(resp ResponseLanguage) string {
	const cover = "Cover: code quality, potential bugs, performance, security, and best practice recommendations."

	switch resp {
	case ResponseEnglish:
		return "Please provide your response in English only.\n" + cover
	case ResponseBilingual:
		upper := strings.ToUpper(b.native)
		return fmt.Sprintf(
			"Please provide your response in TWO languages - first in %s, then in English, separated by a clear divider.\n%s\n\n"+
				"Format your response as follows:\n"+
				"## %s RESPONSE\n[Complete response in %s]\n\n---\n\n"+
				"## ENGLISH RESPONSE\n[Complete response in English]",
			b.native, cover, upper, b.native)
	default:
		return fmt.Sprintf("Please provide your response in %s only.\n%s", b.native, cover)
	}
}

func expand(tmpl, code, language string) string {
	out := strings.ReplaceAll(tmpl, "{language}", language)
	return strings.ReplaceAll(out, "{code}", code)
}
