package theme

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// importRegex matches @import "file.css"; or @import 'file.css'; or @import url("file.css");
var importRegex = regexp.MustCompile(`@import\s+(?:url\s*\(\s*)?["']([^"']+)["']\s*\)?;?`)

// Theme is a stylesheet for the overlay with its imports inlined.
type Theme struct {
	Name     string
	Path     string // empty for bundled themes
	CSS      string
	ModTime  time.Time
	Embedded bool
}

// ThemesDir returns the path to the user's themes directory.
func ThemesDir() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "lessons-displayer", "themes"), nil
}

// Resolve finds a theme by name: the user themes directory first,
// then the bundled themes, then the default theme.
func Resolve(name, themesDir string) (*Theme, error) {
	if name == "" {
		name = DefaultThemeName
	}

	if themesDir != "" {
		path := filepath.Join(themesDir, name+".css")
		if _, err := os.Stat(path); err == nil {
			return LoadFile(name, path)
		}
	}

	if css, ok := GetEmbeddedTheme(name); ok {
		return &Theme{Name: name, CSS: ProcessImports(css, "", nil), Embedded: true}, nil
	}

	css, _ := GetEmbeddedTheme(DefaultThemeName)
	return &Theme{Name: DefaultThemeName, CSS: ProcessImports(css, "", nil), Embedded: true}, nil
}

// LoadFile loads a theme from a CSS file, inlining its imports.
func LoadFile(name, path string) (*Theme, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	css, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return &Theme{
		Name:    name,
		Path:    path,
		CSS:     ProcessImports(string(css), filepath.Dir(path), nil),
		ModTime: info.ModTime(),
	}, nil
}

// ProcessImports inlines @import statements, resolving paths against baseDir.
// Missing files fall back to bundled partials and themes of the same name.
func ProcessImports(css string, baseDir string, seen map[string]bool) string {
	if seen == nil {
		seen = make(map[string]bool)
	}

	return importRegex.ReplaceAllStringFunc(css, func(match string) string {
		sub := importRegex.FindStringSubmatch(match)
		if len(sub) < 2 {
			return match
		}
		importPath := sub[1]

		fullPath := importPath
		if !filepath.IsAbs(importPath) {
			fullPath = filepath.Join(baseDir, importPath)
		}
		if seen[fullPath] {
			return "/* circular import skipped: " + importPath + " */"
		}
		seen[fullPath] = true

		data, err := os.ReadFile(fullPath)
		if err != nil {
			base := filepath.Base(importPath)
			if strings.HasPrefix(base, "_") {
				if partial, ok := GetEmbeddedPartial(base); ok {
					return "/* " + importPath + " (bundled) */\n" + partial
				}
			}
			if bundled, ok := GetEmbeddedTheme(strings.TrimSuffix(base, ".css")); ok {
				return "/* " + importPath + " (bundled) */\n" + ProcessImports(bundled, "", seen)
			}
			return "/* import failed: " + importPath + " */"
		}

		return "/* " + importPath + " */\n" + ProcessImports(string(data), filepath.Dir(fullPath), seen)
	})
}

// Reload rereads the theme file if it was modified.
// Returns true if the CSS changed.
func (t *Theme) Reload() (bool, error) {
	if t.Embedded {
		return false, nil
	}

	info, err := os.Stat(t.Path)
	if err != nil {
		return false, err
	}
	if !info.ModTime().After(t.ModTime) {
		return false, nil
	}

	data, err := os.ReadFile(t.Path)
	if err != nil {
		return false, err
	}

	css := ProcessImports(string(data), filepath.Dir(t.Path), nil)
	changed := css != t.CSS
	t.CSS = css
	t.ModTime = info.ModTime()
	return changed, nil
}

// ListAvailable returns bundled theme names followed by user themes
// that do not shadow a bundled name.
func ListAvailable(themesDir string) []string {
	seen := make(map[string]bool)
	var names []string
	for _, name := range ListEmbeddedThemes() {
		seen[name] = true
		names = append(names, name)
	}

	if themesDir == "" {
		return names
	}
	entries, err := os.ReadDir(themesDir)
	if err != nil {
		return names
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ".css" || strings.HasPrefix(name, "_") {
			continue
		}
		themeName := strings.TrimSuffix(name, ".css")
		if !seen[themeName] {
			seen[themeName] = true
			names = append(names, themeName)
		}
	}
	return names
}
