package registration

import (
	"fmt"

	"github.com/raffleapp/registration/internal/db"
	"gorm.io/gorm"
)

// Migrate creates the schema and both tables, including the unique index
// on registrations.phone.
func Migrate(d *gorm.DB) error {
	if err := db.EnsureSchema(d, Schema); err != nil {
		return fmt.Errorf("ensuring schema %s: %w", Schema, err)
	}
	if err := d.AutoMigrate(&Registration{}, &CommunityLink{}); err != nil {
		return fmt.Errorf("auto-migrating tables: %w", err)
	}
	return nil
}
