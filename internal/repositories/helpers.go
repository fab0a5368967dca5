package repositories

import (
	"database/sql"
	"errors"
)

var ErrNotificationNotFound = errors.New("notification not found")

func requireRow(res sql.Result) error {
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
