package appconf

// Environment is the deployment environment the tool runs in.
type Environment int

const (
	Development Environment = iota
	Test
	Production
)

func (e Environment) String() string {
	switch e {
	case Test:
		return "test"
	case Production:
		return "production"
	default:
		return "development"
	}
}

// EnvFlagToEnvironment converts a lowercase flag value to an Environment.
// Unknown values fall back to Development.
func EnvFlagToEnvironment(env string) Environment {
	switch env {
	case "development":
		return Development
	case "test":
		return Test
	case "production":
		return Production
	default:
		return Development
	}
}

// Config is the runtime configuration of the stopmatcher command.
type Config struct {
	Env       Environment
	Verbose   bool
	LogFormat string
	DataPath  string

	FeedPath     string
	FeedFormat   string
	SourcePath   string
	SourceFormat string

	ExpectationsPath string
	GeoJSONOutput    string
	MetricsPath      string
}
