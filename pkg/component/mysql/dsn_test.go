package mysql

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	gosql "github.com/go-sql-driver/mysql"

	"github.com/kart-io/ido-converge/pkg/options/database"
	"github.com/kart-io/ido-converge/pkg/options/tlsopts"
)

func TestBuildDSN_Basic(t *testing.T) {
	opts := &database.Options{
		Host:     "localhost",
		Port:     3306,
		Username: "icinga",
		Password: "secret",
		Database: "icinga",
	}

	dsn := BuildDSN(opts, nil)

	if !strings.Contains(dsn, "icinga:secret@tcp(localhost:3306)/icinga") {
		t.Errorf("unexpected DSN: %s", dsn)
	}
}

func TestBuildDSN_DefaultPort(t *testing.T) {
	opts := &database.Options{
		Host:     "db.example.org",
		Username: "icinga",
		Database: "icinga",
	}

	dsn := BuildDSN(opts, nil)

	if !strings.Contains(dsn, "tcp(db.example.org:3306)") {
		t.Errorf("unset port should fall back to the driver default: %s", dsn)
	}
}

func TestBuildDSN_SocketWins(t *testing.T) {
	opts := &database.Options{
		Host:     "localhost",
		Port:     3306,
		Socket:   "/var/run/mysqld/mysqld.sock",
		Username: "icinga",
		Database: "icinga",
	}

	dsn := BuildDSN(opts, nil)

	if !strings.Contains(dsn, "unix(/var/run/mysqld/mysqld.sock)") {
		t.Errorf("socket should take precedence for the wire connection: %s", dsn)
	}
	if strings.Contains(dsn, "tcp(") {
		t.Errorf("DSN must not carry tcp address when a socket is set: %s", dsn)
	}
}

func TestBuildDSN_TLSParam(t *testing.T) {
	opts := &database.Options{Host: "localhost", Username: "icinga", Database: "icinga"}

	dsn := BuildDSN(opts, &tlsopts.Options{Enabled: true})
	if !strings.Contains(dsn, "tls="+tlsConfigName) {
		t.Errorf("TLS-enabled DSN should reference the registered config: %s", dsn)
	}

	dsn = BuildDSN(opts, &tlsopts.Options{Enabled: false})
	if strings.Contains(dsn, "tls=") {
		t.Errorf("TLS-disabled DSN must not reference a TLS config: %s", dsn)
	}
}

func TestBuildDSN_PasswordEscaping(t *testing.T) {
	tests := []struct {
		name     string
		password string
		expected string
	}{
		{"simple password", "secret", "secret"},
		{"password with at sign", "pass@word", "pass%40word"},
		{"password with slash", "pass/word", "pass%2Fword"},
		{"password with colon", "pass:word", "pass%3Aword"},
		{"complex password", "p@ss:w/rd!#$", "p%40ss%3Aw%2Frd%21%23%24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &database.Options{
				Host:     "localhost",
				Port:     3306,
				Username: "icinga",
				Password: tt.password,
				Database: "icinga",
			}

			dsn := BuildDSN(opts, nil)

			expectedPart := "icinga:" + tt.expected + "@tcp"
			if !strings.Contains(dsn, expectedPart) {
				t.Errorf("DSN password not properly escaped: got %s, expected to contain %s", dsn, expectedPart)
			}
		})
	}
}

func TestIsMissingSchemaErr(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		missing bool
	}{
		{"no such table", &gosql.MySQLError{Number: 1146, Message: "Table 'icinga.icinga_dbversion' doesn't exist"}, true},
		{"unknown database", &gosql.MySQLError{Number: 1049, Message: "Unknown database 'icinga'"}, true},
		{"access denied", &gosql.MySQLError{Number: 1045, Message: "Access denied for user 'icinga'"}, false},
		{"wrapped missing table", fmt.Errorf("query: %w", &gosql.MySQLError{Number: 1146}), true},
		{"plain error", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isMissingSchemaErr(tt.err); got != tt.missing {
				t.Errorf("isMissingSchemaErr() = %v, want %v", got, tt.missing)
			}
		})
	}
}
