package database

import (
	"log"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedUsers(db *sqlx.DB, bcryptCost int) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM admin_users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Admin users already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding admin users...")

	adminPassword, err := bcrypt.GenerateFromPassword([]byte("admin123"), bcryptCost)
	if err != nil {
		return err
	}

	operatorPassword, err := bcrypt.GenerateFromPassword([]byte("operator123"), bcryptCost)
	if err != nil {
		return err
	}

	users := []map[string]interface{}{
		{
			"id":       uuid.New().String(),
			"name":     "System Admin",
			"email":    "admin@smartbin.local",
			"password": string(adminPassword),
			"role":     "admin",
		},
		{
			"id":       uuid.New().String(),
			"name":     "Bin Operator",
			"email":    "operator@smartbin.local",
			"password": string(operatorPassword),
			"role":     "operator",
		},
	}

	for _, user := range users {
		query := `
			INSERT INTO admin_users (id, name, email, password, role)
			VALUES (:id, :name, :email, :password, :role)
		`
		if _, err := db.NamedExec(query, user); err != nil {
			return err
		}
		log.Printf("  ✓ Created user: %s (%s)", user["email"], user["role"])
	}

	log.Println("✓ Successfully seeded admin users")
	log.Println("  📧 Admin:    admin@smartbin.local / admin123")
	log.Println("  📧 Operator: operator@smartbin.local / operator123")
	return nil
}

func SeedBins(db *sqlx.DB) error {
	// Check if bins already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM bins"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Bins already seeded, skipping...")
		return nil
	}

	log.Println("🌱 Seeding sample bins...")

	bins := []map[string]interface{}{
		{"bin_code": "BIN-001", "category": "biodegradable", "latitude": 14.5995, "longitude": 120.9842, "address": "Rizal Park, Ermita", "fill_level": 45},
		{"bin_code": "BIN-002", "category": "non-biodegradable", "latitude": 14.6091, "longitude": 121.0223, "address": "Greenbelt Park, Makati", "fill_level": 67},
		{"bin_code": "BIN-003", "category": "metal", "latitude": 14.5547, "longitude": 121.0244, "address": "Ayala Triangle Gardens", "fill_level": 23},
		{"bin_code": "BIN-004", "category": "others", "latitude": 14.5764, "longitude": 121.0851, "address": "Marikina Riverbanks", "fill_level": 89},
		{"bin_code": "BIN-005", "category": "biodegradable", "latitude": 14.6507, "longitude": 121.1029, "address": "Marikina Sports Center", "fill_level": 12},
		{"bin_code": "BIN-006", "category": "non-biodegradable", "latitude": 14.5378, "longitude": 121.0014, "address": "Baclaran Church Plaza", "fill_level": 78},
	}

	now := `EXTRACT(EPOCH FROM NOW())::BIGINT`
	for _, bin := range bins {
		_, err := db.Exec(`
			INSERT INTO bins (id, bin_code, category, latitude, longitude, address, status,
				fill_level, api_key, last_updated, installed_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'active', $7, $8, `+now+`, `+now+`)
		`, uuid.New().String(), bin["bin_code"], bin["category"], bin["latitude"],
			bin["longitude"], bin["address"], bin["fill_level"], uuid.New().String())
		if err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d bins", len(bins))
	return nil
}
