package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
// Every statement is idempotent so the list can be replayed on each start.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		username      TEXT     NOT NULL UNIQUE COLLATE NOCASE,
		email         TEXT     NOT NULL UNIQUE COLLATE NOCASE,
		password_hash TEXT     NOT NULL,
		role          TEXT     NOT NULL CHECK (role IN ('buyer', 'seller', 'admin')),
		phone         TEXT     NOT NULL DEFAULT '',
		address       TEXT     NOT NULL DEFAULT '',
		is_verified   INTEGER  NOT NULL DEFAULT 0,
		is_active     INTEGER  NOT NULL DEFAULT 1,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS sessions (
		id         TEXT     PRIMARY KEY,
		user_id    INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		expires_at DATETIME NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS otps (
		id          INTEGER  PRIMARY KEY AUTOINCREMENT,
		user_id     INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		code        TEXT     NOT NULL,
		is_verified INTEGER  NOT NULL DEFAULT 0,
		attempts    INTEGER  NOT NULL DEFAULT 0,
		created_at  DATETIME NOT NULL,
		expires_at  DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_otps_user ON otps(user_id)`,
	`CREATE TABLE IF NOT EXISTS kyc (
		id                      INTEGER  PRIMARY KEY AUTOINCREMENT,
		seller_id               INTEGER  NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		pan_card                TEXT     NOT NULL DEFAULT '',
		aadhaar_card            TEXT     NOT NULL DEFAULT '',
		ownership_proof         TEXT     NOT NULL DEFAULT '',
		revenue_records         TEXT     NOT NULL DEFAULT '',
		tax_receipt             TEXT     NOT NULL DEFAULT '',
		encumbrance_certificate TEXT     NOT NULL DEFAULT '',
		voter_id                TEXT     NOT NULL DEFAULT '',
		additional_documents    TEXT     NOT NULL DEFAULT '',
		status                  TEXT     NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'rejected')),
		remarks                 TEXT     NOT NULL DEFAULT '',
		verified_by             INTEGER  REFERENCES users(id) ON DELETE SET NULL,
		submitted_at            DATETIME NOT NULL,
		verified_at             DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id            INTEGER  PRIMARY KEY AUTOINCREMENT,
		title         TEXT     NOT NULL,
		description   TEXT     NOT NULL,
		price         REAL     NOT NULL,
		property_type TEXT     NOT NULL CHECK (property_type IN ('plot', 'flat', 'house', 'commercial')),
		state         TEXT     NOT NULL,
		city          TEXT     NOT NULL,
		pincode       TEXT     NOT NULL,
		address       TEXT     NOT NULL,
		latitude      REAL,
		longitude     REAL,
		area          REAL     NOT NULL,
		bedrooms      INTEGER,
		bathrooms     INTEGER,
		seller_id     INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		status        TEXT     NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'sold', 'pending')),
		created_at    DATETIME NOT NULL,
		updated_at    DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_seller ON properties(seller_id)`,
	`CREATE INDEX IF NOT EXISTS idx_properties_status ON properties(status, created_at)`,
	`CREATE TABLE IF NOT EXISTS property_images (
		id          INTEGER  PRIMARY KEY AUTOINCREMENT,
		property_id INTEGER  NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		path        TEXT     NOT NULL,
		caption     TEXT     NOT NULL DEFAULT '',
		is_primary  INTEGER  NOT NULL DEFAULT 0,
		uploaded_at DATETIME NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_property_images_property ON property_images(property_id)`,
	`CREATE TABLE IF NOT EXISTS visit_requests (
		id              INTEGER  PRIMARY KEY AUTOINCREMENT,
		property_id     INTEGER  NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		buyer_id        INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		preferred_date  TEXT     NOT NULL,
		preferred_time  TEXT     NOT NULL,
		phone           TEXT     NOT NULL,
		message         TEXT     NOT NULL DEFAULT '',
		status          TEXT     NOT NULL DEFAULT 'pending' CHECK (status IN ('pending', 'approved', 'declined', 'completed')),
		seller_response TEXT     NOT NULL DEFAULT '',
		requested_at    DATETIME NOT NULL,
		responded_at    DATETIME
	)`,
	// At most one pending request per buyer and property.
	`CREATE UNIQUE INDEX IF NOT EXISTS idx_visit_requests_one_pending
		ON visit_requests(property_id, buyer_id) WHERE status = 'pending'`,
	`CREATE TABLE IF NOT EXISTS saved_searches (
		id            INTEGER  PRIMARY KEY AUTOINCREMENT,
		user_id       INTEGER  NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name          TEXT     NOT NULL,
		search        TEXT     NOT NULL DEFAULT '',
		property_type TEXT     NOT NULL DEFAULT '',
		state         TEXT     NOT NULL DEFAULT '',
		city          TEXT     NOT NULL DEFAULT '',
		pincode       TEXT     NOT NULL DEFAULT '',
		min_price     REAL,
		max_price     REAL,
		min_area      REAL,
		max_area      REAL,
		created_at    DATETIME NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS passkey_credentials (
		id              TEXT    PRIMARY KEY,
		user_id         INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name            TEXT    NOT NULL DEFAULT '',
		credential_json TEXT    NOT NULL,
		created_at      DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
