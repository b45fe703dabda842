package accounting

// Config holds the CPU usage scaling coefficients.
// Units:
//   - K: percent per fully busy core (100 gives classic percentages)
//   - Cores: divisor for the elapsed clock; 1 means a single logical core
//   - MinElapsed/Epsilon: clock ticks (Hz of the backend)
type Config struct {
	K          float64 `yaml:"k"`
	Cores      int     `yaml:"cores"`
	MinElapsed float64 `yaml:"min_elapsed_ticks"`
	Epsilon    float64 `yaml:"epsilon_ticks"`
}

// _defaultConfig returns a Config pre-filled with the default coefficients.
// At 100 Hz an interval under 10ms is replaced by 5ms.
func _defaultConfig() *Config {
	return &Config{
		K:          100, // percent
		Cores:      1,   // single core scaling
		MinElapsed: 1,   // ticks
		Epsilon:    0.5, // ticks
	}
}

// DefaultConfig returns a copy of the defaults.
func DefaultConfig() Config { return *_defaultConfig() }
