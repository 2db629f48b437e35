package database

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestPostgresDSN(t *testing.T) {
	dsn := PostgresDSN(Options{Host: "db", Port: "5432", User: "app", Password: "pw", Name: "qs"})
	require.Equal(t, "host=db user=app password=pw dbname=qs port=5432 sslmode=disable TimeZone=UTC", dsn)

	require.Equal(t, "postgres://x", PostgresDSN(Options{URL: "postgres://x", Host: "ignored"}))
}

func TestMySQLDSN(t *testing.T) {
	dsn, err := MySQLDSN(Options{Host: "db", Port: "3306", User: "app", Password: "pw", Name: "qs"})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(dsn, "app:pw@tcp(db:3306)/qs?"))
	require.Contains(t, dsn, "parseTime=true")

	dsn, err = MySQLDSN(Options{URL: "root@tcp(127.0.0.1:3306)/qs"})
	require.NoError(t, err)
	require.Contains(t, dsn, "parseTime=true")
}

func TestIsUniqueViolation(t *testing.T) {
	require.True(t, IsUniqueViolation(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})))
	require.True(t, IsUniqueViolation(&mysql.MySQLError{Number: 1062}))
	require.True(t, IsUniqueViolation(gorm.ErrDuplicatedKey))
	require.False(t, IsUniqueViolation(&pgconn.PgError{Code: "23503"}))
	require.False(t, IsUniqueViolation(errors.New("boom")))
	require.False(t, IsUniqueViolation(nil))
}

func TestIsForeignKeyViolation(t *testing.T) {
	require.True(t, IsForeignKeyViolation(&pgconn.PgError{Code: "23503"}))
	require.True(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1451}))
	require.True(t, IsForeignKeyViolation(gorm.ErrForeignKeyViolated))
	require.False(t, IsForeignKeyViolation(&mysql.MySQLError{Number: 1062}))
}
