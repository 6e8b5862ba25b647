package core

// AdapterConfig holds configuration for connecting to a metadata source.
type AdapterConfig struct {
	// Type is the datasource discriminator, e.g. "Database/MySQL".
	Type     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	Charset  string
	Schema   string
	Options  map[string]string
}

// Option returns the named option, or def when it is unset.
func (c AdapterConfig) Option(name, def string) string {
	if v, ok := c.Options[name]; ok && v != "" {
		return v
	}
	return def
}
