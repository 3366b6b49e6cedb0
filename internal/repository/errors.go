package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNoRowsAffected        = errors.New("NO_ROWS_AFFECTED")
	ErrTransactionExisted    = errors.New("TRANSACTION_EXISTED")
	ErrTransactionNotFound   = errors.New("TRANSACTION_NOT_FOUND")
	ErrAccountNotFound       = errors.New("ACCOUNT_NOT_FOUND")
	ErrInsufficientBalance   = errors.New("INSUFFICIENT_BALANCE")
	ErrNotificationNotFound  = errors.New("NOTIFICATION_NOT_FOUND")
	ErrNotificationDuplicate = errors.New("NOTIFICATION_DUPLICATE")
)

const mysqlDuplicateEntry = 1062

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == mysqlDuplicateEntry {
		return true
	}

	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
