package generator

// Config describes the command built by [Main].
type Config struct {
	Use     string
	Short   string
	Long    string
	Version string

	// ConfigFile is read when it exists and --config is not given.
	ConfigFile string

	Defaults Options
}
