package config

const (
	// EnvPrefix is passed to envconfig; variables are already fully
	// prefixed so processing uses an empty prefix.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvDBDSN  = "ELEKTROMART_DB_DSN"
	EnvDBHost = "ELEKTROMART_DB_HOST"
	EnvDBUser = "ELEKTROMART_DB_USER"
	EnvDBName = "ELEKTROMART_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
