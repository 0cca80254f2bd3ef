// Package cloudsql resolves the PostgreSQL connection string for local
// development and for Cloud SQL unix sockets on Cloud Run.
package cloudsql

import (
	"errors"
	"fmt"
	"net/url"
	"os"
)

// ErrNotConfigured means neither DATABASE_URL nor INSTANCE_CONNECTION_NAME
// is set; the service then runs without persistent history.
var ErrNotConfigured = errors.New("no database configured")

// BuildDatabaseURL returns DATABASE_URL when set. Otherwise it builds a unix
// socket DSN from INSTANCE_CONNECTION_NAME, DB_USER, DB_PASSWORD and DB_NAME.
// An empty DB_PASSWORD selects IAM authentication.
func BuildDatabaseURL() (string, error) {
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		return dbURL, nil
	}

	instanceConnectionName := os.Getenv("INSTANCE_CONNECTION_NAME")
	if instanceConnectionName == "" {
		return "", ErrNotConfigured
	}

	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbName := os.Getenv("DB_NAME")
	if dbUser == "" || dbName == "" {
		return "", fmt.Errorf("DB_USER and DB_NAME must be set when using INSTANCE_CONNECTION_NAME")
	}

	// Cloud Run mounts instances at /cloudsql/<INSTANCE_CONNECTION_NAME>.
	socketPath := fmt.Sprintf("/cloudsql/%s", instanceConnectionName)

	if dbPassword != "" {
		return fmt.Sprintf("host=%s user=%s password=%s dbname=%s sslmode=disable",
			socketPath, dbUser, dbPassword, dbName), nil
	}
	return fmt.Sprintf("host=%s user=%s dbname=%s sslmode=disable",
		socketPath, dbUser, dbName), nil
}

// GetConnectionConfig describes the connection for logging, without secrets.
func GetConnectionConfig() map[string]string {
	config := make(map[string]string)

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config["connection_type"] = "direct"
		config["database_url"] = redactPassword(dbURL)
	} else if instanceConnectionName := os.Getenv("INSTANCE_CONNECTION_NAME"); instanceConnectionName != "" {
		config["connection_type"] = "cloud_sql"
		config["instance"] = instanceConnectionName
		config["user"] = os.Getenv("DB_USER")
		config["database"] = os.Getenv("DB_NAME")
		config["socket_path"] = fmt.Sprintf("/cloudsql/%s", instanceConnectionName)
	} else {
		config["connection_type"] = "none"
	}

	return config
}

// redactPassword masks the password of a postgres:// URL. Other forms are
// returned unchanged.
func redactPassword(connStr string) string {
	u, err := url.Parse(connStr)
	if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") || u.User == nil {
		return connStr
	}
	if _, ok := u.User.Password(); !ok {
		return connStr
	}
	u.User = url.UserPassword(u.User.Username(), "xxxxx")
	return u.String()
}
