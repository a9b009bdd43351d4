// Package config defines the wireworld-server command line and the
// viper-bound settings it resolves, in the idiom of the teacher's
// reinforcement.FromYaml/viper usage -- generalized from a single
// training-config YAML file to the full set of flags, environment
// variables, and an optional config file a long-running server needs.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds everything the server entry point needs to start.
type Config struct {
	Addr             string        `mapstructure:"addr"`
	StaticDir        string        `mapstructure:"staticDir"`
	WorldFile        string        `mapstructure:"worldFile"`
	TickInterval     time.Duration `mapstructure:"tickInterval"`
	BusCapacity      int           `mapstructure:"busCapacity"`
	DefaultViewportW int32         `mapstructure:"defaultViewportW"`
	DefaultViewportH int32         `mapstructure:"defaultViewportH"`
	Codec            string        `mapstructure:"codec"`
	StreamStartGrace time.Duration `mapstructure:"streamStartGrace"`
}

// Defaults mirror §7 of the design: a 100ms tick, a 16-version bus, a
// 30x30 default viewport, and a 30s grace period for StartStream.
func Defaults() Config {
	return Config{
		Addr:             "0.0.0.0:3000",
		StaticDir:        "",
		WorldFile:        "",
		TickInterval:     100 * time.Millisecond,
		BusCapacity:      16,
		DefaultViewportW: 30,
		DefaultViewportH: 30,
		Codec:            "msgpack",
		StreamStartGrace: 30 * time.Second,
	}
}

// NewCommand returns the wireworld-server root command. run is called with
// the resolved Config once flags, environment variables, and any config
// file have all been bound by viper.
func NewCommand(run func(Config) error) *cobra.Command {
	vp := viper.New()
	defaults := Defaults()

	cmd := &cobra.Command{
		Use:   "wireworld-server",
		Short: "Serves a multi-client real-time Wireworld simulation over WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile, _ := cmd.Flags().GetString("config"); cfgFile != "" {
				vp.SetConfigFile(cfgFile)
				if err := vp.ReadInConfig(); err != nil {
					return fmt.Errorf("config: reading %s: %w", cfgFile, err)
				}
			}

			cfg := defaults
			if err := vp.Unmarshal(&cfg); err != nil {
				return fmt.Errorf("config: unmarshal: %w", err)
			}
			return run(cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("config", "", "path to an optional YAML config file")
	flags.String("addr", defaults.Addr, "address to bind the HTTP/WebSocket server to")
	flags.String("static-dir", defaults.StaticDir, "directory of static assets to serve at /")
	flags.String("world-file", defaults.WorldFile, "path to a .wi file to seed the initial world")
	flags.Duration("tick-interval", defaults.TickInterval, "simulation tick interval")
	flags.Int("bus-capacity", defaults.BusCapacity, "per-subscriber broadcast bus buffer size")
	flags.Int32("default-viewport-w", defaults.DefaultViewportW, "default session viewport width")
	flags.Int32("default-viewport-h", defaults.DefaultViewportH, "default session viewport height")
	flags.String("codec", defaults.Codec, "wire codec: msgpack or json")
	flags.Duration("stream-start-grace", defaults.StreamStartGrace, "grace period for a client to send StartStream")

	bind(vp, flags, map[string]string{
		"addr":             "addr",
		"staticDir":        "static-dir",
		"worldFile":        "world-file",
		"tickInterval":     "tick-interval",
		"busCapacity":      "bus-capacity",
		"defaultViewportW": "default-viewport-w",
		"defaultViewportH": "default-viewport-h",
		"codec":            "codec",
		"streamStartGrace": "stream-start-grace",
	})
	vp.SetEnvPrefix("WIREWORLD")
	vp.AutomaticEnv()

	return cmd
}

func bind(vp *viper.Viper, flags *pflag.FlagSet, keyToFlag map[string]string) {
	for key, flag := range keyToFlag {
		_ = vp.BindPFlag(key, flags.Lookup(flag))
	}
}
