package config

// EnvPrefix is the namespace for all service environment variables.
const EnvPrefix = ""

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvDBDSN  = "LOJINHA_DB_DSN"
	EnvDBHost = "LOJINHA_DB_HOST"
	EnvDBUser = "LOJINHA_DB_USER"
	EnvDBName = "LOJINHA_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
