package model

import (
	"path/filepath"
	"sort"
	"strings"
)

// Language identifies a source language for grammar and structurer dispatch.
type Language string

const (
	LangJava       Language = "java"
	LangTypeScript Language = "typescript"
	LangGo         Language = "go"
	LangPython     Language = "python"
	LangRust       Language = "rust"
)

// builtinLanguages are the languages shipped with a grammar and a structurer.
var builtinLanguages = []Language{LangGo, LangJava, LangPython, LangRust, LangTypeScript}

// Languages returns the built-in language identifiers in sorted order.
func Languages() []Language {
	out := make([]Language, len(builtinLanguages))
	copy(out, builtinLanguages)
	return out
}

// Valid reports whether l is one of the built-in languages.
func (l Language) Valid() bool {
	for _, b := range builtinLanguages {
		if l == b {
			return true
		}
	}
	return false
}

// ParseLanguages converts user supplied names into languages, lower-cased and
// de-duplicated. Unknown names are returned as-is so callers can report them.
func ParseLanguages(names []string) []Language {
	seen := make(map[Language]bool, len(names))
	out := make([]Language, 0, len(names))
	for _, n := range names {
		l := Language(strings.ToLower(strings.TrimSpace(n)))
		if l == "" || seen[l] {
			continue
		}
		seen[l] = true
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// extToLanguage maps file extensions to languages.
var extToLanguage = map[string]Language{
	".java": LangJava,
	".ts":   LangTypeScript,
	".tsx":  LangTypeScript,
	".js":   LangTypeScript,
	".jsx":  LangTypeScript,
	".mjs":  LangTypeScript,
	".cjs":  LangTypeScript,
	".go":   LangGo,
	".py":   LangPython,
	".pyi":  LangPython,
	".rs":   LangRust,
}

// LanguageForPath derives a language from a file extension. The parse core
// never calls this; it is used by scanners and front ends.
func LanguageForPath(path string) (Language, bool) {
	l, ok := extToLanguage[strings.ToLower(filepath.Ext(path))]
	return l, ok
}
