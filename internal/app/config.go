package app

// Config holds the command-line level configuration for an App instance.
// The HCL file named by ConfigPath carries everything else.
type Config struct {
	ConfigPath string // hcl file, optional
	OutputDir  string // host artifact root

	LogFormat string
	LogLevel  string
	HTTPPort  int
}

func NewConfig(cfg Config) (*Config, error) {
	if cfg.OutputDir == "" {
		cfg.OutputDir = "output"
	}
	return &cfg, nil
}
