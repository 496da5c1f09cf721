package models

import "gorm.io/gorm"

// All lists every persisted model in dependency order.
func All() []interface{} {
	return []interface{}{&User{}, &Group{}, &Post{}, &Comment{}, &Follow{}}
}

// Migrate creates or extends the tables for All models.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(All()...)
}
