package repository

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"schema-migrator/internal/domain"
)

// MySQLのエラー番号
var mysqlAlreadyExistsCodes = map[uint16]struct{}{
	1050: {}, // ER_TABLE_EXISTS_ERROR
	1060: {}, // ER_DUP_FIELDNAME
	1061: {}, // ER_DUP_KEYNAME
	1304: {}, // ER_SP_ALREADY_EXISTS
	1359: {}, // ER_TRG_ALREADY_EXISTS
}

// PostgreSQLのSQLSTATE
var postgresAlreadyExistsCodes = map[string]struct{}{
	"42P07": {}, // duplicate_table (インデックスも含む)
	"42P06": {}, // duplicate_schema
	"42710": {}, // duplicate_object
	"42701": {}, // duplicate_column
	"42723": {}, // duplicate_function
}

// IsAlreadyExists はドライバが「オブジェクトが既に存在する」と報告したエラーか判定する。
func IsAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, domain.ErrObjectAlreadyExists) {
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		_, ok := mysqlAlreadyExistsCodes[mysqlErr.Number]
		return ok
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, ok := postgresAlreadyExistsCodes[pgErr.Code]
		return ok
	}

	// SQLiteは専用コードがないためメッセージで判定する
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrError &&
			strings.Contains(sqliteErr.Error(), "already exists")
	}

	return false
}
