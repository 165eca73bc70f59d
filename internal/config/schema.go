package config

// Config is the top-level YAML structure.
type Config struct {
	Version       string     `yaml:"version"`
	Server        ServerConf `yaml:"server"`
	CheckpointDir string     `yaml:"checkpoint_dir"`
	Inputs        []Input    `yaml:"inputs"`
}

// ServerConf holds the status/metrics HTTP listener settings.
type ServerConf struct {
	Addr string `yaml:"addr"`
}

// Input declares one audit source to poll. Each input owns an independent
// checkpoint entry and token state.
type Input struct {
	Name            string    `yaml:"name"`
	Tenant          string    `yaml:"tenant"`
	Endpoint        string    `yaml:"endpoint"`
	KeyID           string    `yaml:"key_id"`
	KeySecret       string    `yaml:"key_secret"`
	IntervalSeconds int       `yaml:"interval_seconds"`
	Filter          string    `yaml:"filter"` // optional filter expression
	Sinks           []SinkDef `yaml:"sinks"`
}

// SinkDef selects a registered sink type with optional params.
type SinkDef struct {
	Type   string                 `yaml:"type"`
	Params map[string]interface{} `yaml:"params"`
}
