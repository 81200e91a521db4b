package trace

import "strings"

// ClassifierConfig configures which call origins count as subject code.
type ClassifierConfig struct {
	// LibraryRoots are path markers identifying library, dependency and
	// import-machinery code. A source file containing any marker is
	// excluded from aggregation.
	LibraryRoots []string `yaml:"library_roots,omitempty"`
	// BoilerplateScopes are callable names that are framework noise
	// (constructors, context-manager hooks, module-body execution).
	BoilerplateScopes []string `yaml:"boilerplate_scopes,omitempty"`
	// SkippedBuiltins are builtin callables too ubiquitous to be worth
	// tracking.
	SkippedBuiltins []string `yaml:"skipped_builtins,omitempty"`
}

// DefaultClassifierConfig returns the default classification policy.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		LibraryRoots: []string{
			"site-packages", "dist-packages",
			"lib/python", "lib64/python",
			"/usr/lib/", "/usr/local/lib/",
			"importlib", "pkgutil", "zipimport",
			"/pkg/mod/", "/vendor/",
		},
		BoilerplateScopes: []string{
			"<module>", "__init__", "__enter__", "__exit__",
		},
		SkippedBuiltins: []string{
			"print", "len", "range", "enumerate", "zip", "map", "filter",
		},
	}
}

// Classifier decides whether a call-boundary event originates from subject
// code or from framework/runtime/library noise. It is stateless and safe to
// call from any thread without synchronization.
type Classifier struct {
	roots       []string
	boilerplate map[string]struct{}
	builtins    map[string]struct{}
}

// NewClassifier creates a classifier from the given policy.
func NewClassifier(cfg ClassifierConfig) *Classifier {
	c := &Classifier{
		roots:       cfg.LibraryRoots,
		boilerplate: make(map[string]struct{}, len(cfg.BoilerplateScopes)),
		builtins:    make(map[string]struct{}, len(cfg.SkippedBuiltins)),
	}
	for _, name := range cfg.BoilerplateScopes {
		c.boilerplate[name] = struct{}{}
	}
	for _, name := range cfg.SkippedBuiltins {
		c.builtins[name] = struct{}{}
	}
	return c
}

// Subject reports whether a call at the given source file with the given
// callable name belongs to subject code. Rules are applied in order:
// synthetic locations, library roots, boilerplate names, otherwise subject.
func (c *Classifier) Subject(file, name string) bool {
	if file == "" || strings.HasPrefix(file, "<") {
		return false
	}
	for _, root := range c.roots {
		if strings.Contains(file, root) {
			return false
		}
	}
	if _, ok := c.boilerplate[name]; ok {
		return false
	}
	return true
}

// SubjectBuiltin reports whether a builtin call with the given name is
// worth tracking. Builtins carry no source file, so the location rules do
// not apply; only the ubiquity skip list does.
func (c *Classifier) SubjectBuiltin(name string) bool {
	_, skip := c.builtins[name]
	return !skip
}
