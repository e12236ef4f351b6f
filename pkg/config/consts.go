package config

const (
	// EnvPrefix is passed to envconfig; individual fields carry explicit
	// STOREMATE_ names so the prefix stays empty.
	EnvPrefix = ""

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	EnvDBDSN  = "STOREMATE_DB_DSN"
	EnvDBHost = "STOREMATE_DB_HOST"
	EnvDBUser = "STOREMATE_DB_USER"
	EnvDBName = "STOREMATE_DB_NAME"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
