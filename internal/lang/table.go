package lang

// Language is one row of the capability table. The pipeline dispatches on
// these fields instead of branching on language names inline: environment
// construction uses DockerfileBody, execution uses DefaultTestCommand and
// Parser, and categorization uses RelevanceKey.
type Language struct {
	Name               string
	DependencyFiles    []string
	DefaultTestCommand string
	Parser             string // parser registry key in internal/results
	RelevanceKey       string // relevance rule key in internal/categorize
	TestFilePatterns   []string
	DockerfileBody     string // text/template rendered by internal/envbuild
}

// Detection order matters for polyglot repos: more specific dependency
// files come first (tsconfig.json before package.json).
var table = []Language{
	{
		Name:               "go",
		DependencyFiles:    []string{"go.mod", "go.sum"},
		DefaultTestCommand: "go test ./...",
		Parser:             "gotest",
		RelevanceKey:       "go",
		TestFilePatterns:   []string{"*_test.go"},
		DockerfileBody:     goDockerfile,
	},
	{
		Name:               "rust",
		DependencyFiles:    []string{"Cargo.toml"},
		DefaultTestCommand: "cargo test",
		Parser:             "cargo",
		RelevanceKey:       "rust",
		TestFilePatterns:   []string{"tests/*.rs", "*_test.rs"},
		DockerfileBody:     rustDockerfile,
	},
	{
		Name:               "python",
		DependencyFiles:    []string{"pyproject.toml", "setup.py", "requirements.txt", "setup.cfg", "Pipfile"},
		DefaultTestCommand: "pytest -v",
		Parser:             "pytest",
		RelevanceKey:       "python",
		TestFilePatterns:   []string{"test_*.py", "*_test.py", "tests/*.py", "test/*.py"},
		DockerfileBody:     pythonDockerfile,
	},
	{
		Name:               "typescript",
		DependencyFiles:    []string{"tsconfig.json"},
		DefaultTestCommand: "npm test",
		Parser:             "jest",
		RelevanceKey:       "node",
		TestFilePatterns:   []string{"*.test.ts", "*.spec.ts", "__tests__/*.ts"},
		DockerfileBody:     nodeDockerfile,
	},
	{
		Name:               "javascript",
		DependencyFiles:    []string{"package.json"},
		DefaultTestCommand: "npm test",
		Parser:             "jest",
		RelevanceKey:       "node",
		TestFilePatterns:   []string{"*.test.js", "*.spec.js", "__tests__/*.js"},
		DockerfileBody:     nodeDockerfile,
	},
}

var extensions = map[string]string{
	".go":  "go",
	".rs":  "rust",
	".py":  "python",
	".ts":  "typescript",
	".tsx": "typescript",
	".js":  "javascript",
	".jsx": "javascript",
}

// Lookup returns the table entry for a language name.
func Lookup(name string) (Language, bool) {
	for _, l := range table {
		if l.Name == name {
			return l, true
		}
	}
	return Language{}, false
}

// Supported lists the supported language names in detection order.
func Supported() []string {
	names := make([]string, len(table))
	for i, l := range table {
		names[i] = l.Name
	}
	return names
}
