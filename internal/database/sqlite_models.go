package walletstatedb

import (
	"gorm.io/gorm"
)

// SQLiteLocalData holds one JSON document per storage key.
type SQLiteLocalData struct {
	gorm.Model
	Key   string `gorm:"uniqueIndex;not null"`
	Value []byte
}

// TableName keeps the table name stable if the struct is renamed.
func (SQLiteLocalData) TableName() string {
	return "sqlite_local_data"
}
