package scope

import "gorm.io/gorm"

// WithSoftDelete includes soft deleted chunks, e.g. for corpus audits.
// Usually you'd use db.Unscoped()
func WithSoftDelete(db *gorm.DB) *gorm.DB {
	return db.Unscoped()
}

// ExcludeSoftDelete is needed on raw Table() queries where GORM does
// not inject the deleted_at filter on its own.
func ExcludeSoftDelete(db *gorm.DB) *gorm.DB {
	return db.Where("deleted_at IS NULL")
}
