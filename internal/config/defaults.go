package config

const (
	defaultConfigPath              = "~/.config/sourcelink/config.toml"
	defaultDataDir                 = "~/.local/share/sourcelink"
	defaultLogDir                  = "~/.local/share/sourcelink/logs"
	defaultAniListBaseURL          = "https://graphql.anilist.co"
	defaultAniListTimeoutSeconds   = 10
	defaultMaxQueries              = 4
	defaultQueryTimeoutSeconds     = 10
	defaultHighConfidenceThreshold = 65
	defaultMappingBackend          = "sqlite"
	defaultSQLiteFile              = "mappings.db"
	defaultJSONFile                = "mappings.json"
	defaultSourceTimeoutSeconds    = 10
	defaultSourceQueryParam        = "q"
	defaultUserAgent               = "sourcelink/dev"
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// DefaultWeights returns the stock signal weights. Season agreement dominates,
// year proximity is secondary, and content type only breaks near-ties.
func DefaultWeights() Weights {
	return Weights{
		Containment:    10,
		SeasonMatch:    50,
		SeasonRescue:   30,
		SeasonMismatch: -50,
		YearClose:      5,
		YearFar:        -10,
		TypeMatch:      3,
	}
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		AniList: AniList{
			BaseURL:        defaultAniListBaseURL,
			TimeoutSeconds: defaultAniListTimeoutSeconds,
		},
		Resolution: Resolution{
			MaxQueries:              defaultMaxQueries,
			Concurrency:             defaultMaxQueries,
			QueryTimeoutSeconds:     defaultQueryTimeoutSeconds,
			FallbackQueries:         true,
			AcceptThreshold:         0,
			HighConfidenceThreshold: defaultHighConfidenceThreshold,
			Weights:                 DefaultWeights(),
		},
		MappingStore: MappingStore{
			Backend: defaultMappingBackend,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
