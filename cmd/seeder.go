package cmd

import (
	"fmt"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with the default roles, permissions and users",
	Long:  `Seed the default permission catalog, the admin/manager/user roles and two accounts for development.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormPostgres.New(gormPostgres.Config{Conn: sqlDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to open gorm: %v", err)
		}

		if err := runSeed(db); err != nil {
			log.Fatalf("seed failed: %v", err)
		}

		fmt.Println("Database seeded successfully")
	},
}

// runSeed is idempotent: rows that already exist are left alone, so it
// can run on every deploy.
func runSeed(db *gorm.DB) error {
	if err := seedPermissions(db); err != nil {
		return err
	}
	if err := seedRoles(db); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("changeme-please"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash seed password: %w", err)
	}

	if err := seedUser(db, "admin@example.com", "admin", "Admin", "User", string(hash), true, "admin"); err != nil {
		return err
	}
	return seedUser(db, "user@example.com", "user", "Regular", "User", string(hash), false, "user")
}

func seedPermissions(db *gorm.DB) error {
	permissions := []struct {
		Resource string
		Action   string
		Desc     string
	}{
		{"users", "create", "Can create users"},
		{"users", "read", "Can view users"},
		{"users", "update", "Can update users"},
		{"users", "delete", "Can delete users"},
		{"roles", "manage", "Can manage roles and permissions"},
	}

	for _, p := range permissions {
		name := p.Resource + ":" + p.Action
		var id uuid.UUID
		row := db.Raw("SELECT id FROM permissions WHERE resource = ? AND action = ?", p.Resource, p.Action).Row()
		if err := row.Scan(&id); err != nil {
			if err := db.Exec("INSERT INTO permissions (id, name, description, resource, action, created_at) VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)",
				uuid.New(), name, p.Desc, p.Resource, p.Action).Error; err != nil {
				return fmt.Errorf("insert permission %s: %w", name, err)
			}
			fmt.Println("Seeded permission:", name)
		}
	}
	return nil
}

func seedRoles(db *gorm.DB) error {
	roleGrants := map[string][]string{
		"admin":   {"users:create", "users:read", "users:update", "users:delete", "roles:manage"},
		"manager": {"users:create", "users:read", "users:update"},
		"user":    {"users:read"},
	}
	roleDescriptions := map[string]string{
		"admin":   "Full administrative access",
		"manager": "Manages user accounts",
		"user":    "Regular user",
	}

	for _, roleName := range []string{"admin", "manager", "user"} {
		var roleID uuid.UUID
		row := db.Raw("SELECT id FROM roles WHERE name = ?", roleName).Row()
		if err := row.Scan(&roleID); err != nil {
			roleID = uuid.New()
			if err := db.Exec("INSERT INTO roles (id, name, description, is_active, created_at, updated_at) VALUES (?, ?, ?, true, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)",
				roleID, roleName, roleDescriptions[roleName]).Error; err != nil {
				return fmt.Errorf("insert role %s: %w", roleName, err)
			}
			fmt.Println("Seeded role:", roleName)
		}

		for _, permName := range roleGrants[roleName] {
			var permID uuid.UUID
			if err := db.Raw("SELECT id FROM permissions WHERE name = ?", permName).Row().Scan(&permID); err != nil {
				return fmt.Errorf("permission not found after insert %s: %w", permName, err)
			}

			var exists int
			if err := db.Raw("SELECT 1 FROM role_permissions WHERE role_id = ? AND permission_id = ?", roleID, permID).Row().Scan(&exists); err == nil {
				continue
			}

			if err := db.Exec("INSERT INTO role_permissions (role_id, permission_id) VALUES (?, ?)", roleID, permID).Error; err != nil {
				return fmt.Errorf("grant %s to role %s: %w", permName, roleName, err)
			}
		}
	}
	return nil
}

func seedUser(db *gorm.DB, email, username, firstName, lastName, hash string, superuser bool, roleName string) error {
	var userID uuid.UUID
	row := db.Raw("SELECT id FROM users WHERE email = ?", email).Row()
	if err := row.Scan(&userID); err == nil {
		fmt.Printf("user %s already exists; will ensure role\n", email)
	} else {
		userID = uuid.New()
		if err := db.Exec(`INSERT INTO users (id, email, username, first_name, last_name, password_hash, is_active, is_superuser, is_verified, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, true, ?, true, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			userID, email, username, firstName, lastName, hash, superuser).Error; err != nil {
			return fmt.Errorf("insert user %s: %w", email, err)
		}
		fmt.Println("Seeded user:", email)
	}

	var roleID uuid.UUID
	if err := db.Raw("SELECT id FROM roles WHERE name = ?", roleName).Row().Scan(&roleID); err != nil {
		return fmt.Errorf("role not found %s: %w", roleName, err)
	}

	var exists int
	if err := db.Raw("SELECT 1 FROM user_roles WHERE user_id = ? AND role_id = ?", userID, roleID).Row().Scan(&exists); err == nil {
		return nil
	}

	if err := db.Exec("INSERT INTO user_roles (user_id, role_id) VALUES (?, ?)", userID, roleID).Error; err != nil {
		return fmt.Errorf("assign role %s to %s: %w", roleName, email, err)
	}
	return nil
}
