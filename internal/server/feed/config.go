package feed

// ServerConfig represents the feed API server configuration.
type ServerConfig struct {
	Addr string `help:"Feed API listen address" default:":26761" env:"PADMUX_FEED_ADDR"`
	// Password protects the feed API. Filled from the key file by the
	// serve command, never from flags.
	Password string `kong:"-"`
}
