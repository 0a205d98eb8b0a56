package config

import (
	"fmt"
	"os"
	"runtime"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Model    Model    `yaml:"model"`
	Protocol Protocol `yaml:"protocol"`
	Dirs     Dirs     `yaml:"dirs"`
}

type Model struct {
	Path      string `yaml:"path"`
	Ctx       int    `yaml:"ctx"`
	Threads   int    `yaml:"threads"`
	ServerBin string `yaml:"server_bin"`
	Launch    string `yaml:"launch"` // "process" or "docker"
	Image     string `yaml:"image"`
	LogDir    string `yaml:"log_dir"`
}

type Protocol struct {
	SystemMsg string `yaml:"system_msg"`
	TokenA    string `yaml:"token_a"`
	TokenB    string `yaml:"token_b"`
	TopN      int    `yaml:"topn"`
	Logprobs  int    `yaml:"logprobs"`
}

type Dirs struct {
	Summaries string `yaml:"summaries"`
	Power     string `yaml:"power"`
	Aggregate string `yaml:"aggregate"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns a config with every field at its default, for running
// without a config file.
func Default() *Config {
	cfg := &Config{}
	validate(cfg)
	return cfg
}

func validate(cfg *Config) error {
	m := &cfg.Model
	if m.Ctx < 0 {
		return fmt.Errorf("model.ctx must be positive")
	}
	if m.Ctx == 0 {
		m.Ctx = 4096
	}
	if m.Threads < 0 {
		return fmt.Errorf("model.threads must be positive")
	}
	if m.Threads == 0 {
		m.Threads = runtime.NumCPU()
	}
	if m.ServerBin == "" {
		m.ServerBin = "llama-server"
	}
	if m.Launch == "" {
		m.Launch = "process"
	}
	if m.Launch != "process" && m.Launch != "docker" {
		return fmt.Errorf("model.launch must be %q or %q, got %q", "process", "docker", m.Launch)
	}
	if m.Launch == "docker" && m.Image == "" {
		return fmt.Errorf("model.image is required when model.launch is %q", "docker")
	}
	if m.LogDir == "" {
		m.LogDir = "logs"
	}

	p := &cfg.Protocol
	if p.SystemMsg == "" {
		p.SystemMsg = "Reply with exactly one token each time."
	}
	// Leading spaces on the default tokens are intentional: they match how
	// the tokens appear mid-sentence in the model's vocabulary.
	if p.TokenA == "" {
		p.TokenA = " Yes"
	}
	if p.TokenB == "" {
		p.TokenB = " No"
	}
	if p.TopN < 0 {
		return fmt.Errorf("protocol.topn must be positive")
	}
	if p.TopN == 0 {
		p.TopN = 10
	}
	if p.Logprobs < 0 {
		return fmt.Errorf("protocol.logprobs must be positive")
	}
	if p.Logprobs == 0 {
		p.Logprobs = 50
	}

	d := &cfg.Dirs
	if d.Summaries == "" {
		d.Summaries = "data/raw/summaries"
	}
	if d.Power == "" {
		d.Power = "data/raw/power"
	}
	if d.Aggregate == "" {
		d.Aggregate = "data/aggregate"
	}
	return nil
}
