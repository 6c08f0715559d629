package migrations

import (
	"context"
	"fmt"

	"github.com/Shonkurieta/ebookreader/internal/db/models"
	"github.com/uptrace/bun"
)

func init() {
	Migrations.MustRegister(up_20261001000000, down_20261001000000)
}

// up_20261001000000 creates the users table backing the credential store
func up_20261001000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [up] creating users table...")

	_, err := db.NewCreateTable().
		Model((*models.User)(nil)).
		IfNotExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to create users table: %w", err)
	}

	roleCheck := `ALTER TABLE users ADD CONSTRAINT users_role_check CHECK (role IN ('USER', 'ADMIN'))`
	if IsPostgreSQL(db) {
		if _, err := db.ExecContext(ctx, roleCheck); err != nil {
			return fmt.Errorf("failed to add users role constraint: %w", err)
		}
	}

	_, err = db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_users_role ON users(role)`)
	if err != nil {
		return fmt.Errorf("failed to create users role index: %w", err)
	}
	fmt.Println(" OK")

	return nil
}

// down_20261001000000 drops the users table
func down_20261001000000(ctx context.Context, db *bun.DB) error {
	fmt.Print(" [down] dropping users table...")

	_, err := db.NewDropTable().
		Model((*models.User)(nil)).
		IfExists().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to drop users table: %w", err)
	}
	fmt.Println(" OK")

	return nil
}
