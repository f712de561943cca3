package config

// Config is the top-level configuration parsed from prforge YAML. It is
// loaded once at pipeline start and threaded through every component as
// an immutable value.
type Config struct {
	Build     Build     `yaml:"build"`
	Test      Test      `yaml:"test"`
	Docker    Docker    `yaml:"docker"`
	Relevance Relevance `yaml:"relevance"`
	StoreDir  string    `yaml:"store_dir"`
	DBPath    string    `yaml:"db_path"`
}

// Build bounds environment construction and its healing retries.
type Build struct {
	MaxAttempts int    `yaml:"max_attempts"`
	Timeout     string `yaml:"timeout"`
	BaseImage   string `yaml:"base_image"`
}

// Test bounds isolated test execution.
type Test struct {
	Timeout           string  `yaml:"timeout"`
	TimeoutRetries    int     `yaml:"timeout_retries"`
	TimeoutMultiplier float64 `yaml:"timeout_multiplier"`
}

// Docker sets resource ceilings for disposable containers.
type Docker struct {
	Memory string `yaml:"memory"`
	CPUs   string `yaml:"cpus"`
}

// Relevance tunes the PASS_TO_PASS relevance filter without altering the
// category algebra.
type Relevance struct {
	MinStemLength int `yaml:"min_stem_length"`
}
