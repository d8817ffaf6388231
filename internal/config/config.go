package config

import "github.com/spf13/viper"

// Version is set at build time via -ldflags.
var Version = "dev"

// Config holds all runtime configuration for the mind engine binary.
// Values merge flags, OPENCLAW_* env vars, and defaults via viper.
type Config struct {
	DataDir       string
	Agent         string
	DashboardPort int
	SinceDays     int
	ProposalModel string
}

// Load reads configuration from viper, which merges flag values, env vars,
// and defaults (set up by the cobra command in cmd/openclaw-mind).
func Load() Config {
	return Config{
		DataDir:       viper.GetString("data_dir"),
		Agent:         viper.GetString("agent"),
		DashboardPort: viper.GetInt("dashboard_port"),
		SinceDays:     viper.GetInt("since_days"),
		ProposalModel: viper.GetString("proposal_model"),
	}
}
