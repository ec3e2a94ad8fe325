// Package mysql provides the MySQL connector.
package mysql

import (
	"net"
	"strconv"
	"time"

	"github.com/go-sql-driver/mysql"

	domainconfig "github.com/felixgeelhaar/dbmcp/domain/config"
)

// Config holds MySQL connection settings.
type Config struct {
	Host           string
	Port           int
	Database       string
	User           string
	Password       string
	ConnectTimeout time.Duration
	MaxRows        int
}

// FromConfig adapts the server configuration.
func FromConfig(c domainconfig.Config) Config {
	return Config{
		Host:           c.MySQL.Host,
		Port:           c.MySQL.Port,
		Database:       c.MySQL.Database,
		User:           c.MySQL.User,
		Password:       c.MySQL.Password,
		ConnectTimeout: c.Query.ConnectTimeout,
		MaxRows:        c.Query.MaxRows,
	}
}

// sessionSQLMode is applied to every connection. ANSI_QUOTES and
// NO_BACKSLASH_ESCAPES stay off so double quotes delimit strings and
// backslash escapes inside them, which the read-only guard relies on.
const sessionSQLMode = "'STRICT_TRANS_TABLES,NO_ENGINE_SUBSTITUTION'"

// DriverConfig returns the go-sql-driver configuration.
func (c Config) DriverConfig() *mysql.Config {
	dc := mysql.NewConfig()
	dc.User = c.User
	dc.Passwd = c.Password
	dc.Net = "tcp"
	dc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	dc.DBName = c.Database
	dc.Timeout = c.ConnectTimeout
	dc.ParseTime = true
	dc.MultiStatements = true
	dc.Params = map[string]string{"sql_mode": sessionSQLMode}
	return dc
}

// DSN returns the driver data source name.
func (c Config) DSN() string {
	return c.DriverConfig().FormatDSN()
}
