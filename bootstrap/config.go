package bootstrap

// Config is the interface constraint for application configuration types.
type Config interface {
	ApplyDefaults()
	Validate() error
}
