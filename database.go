package main

import (
	"database/sql"
	"log"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the SQLite database connection
type DB struct {
	conn *sql.DB
}

// AccountRow represents an account record in the database
type AccountRow struct {
	ID        int64
	Username  string
	PassHash  string
	CreatedAt time.Time
}

// ProfileRow represents a player's gameplay profile: where they were when
// they last saved.
type ProfileRow struct {
	AccountID int64
	LobbyID   string
	Room      string
	X         float64
	Y         float64
}

// OpenDB opens (or creates) the SQLite database
func OpenDB(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, err
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates tables if they don't exist
func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		pass_hash TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS profiles (
		account_id INTEGER PRIMARY KEY REFERENCES accounts(id),
		lobbyid TEXT NOT NULL DEFAULT '',
		room TEXT NOT NULL DEFAULT '',
		x REAL NOT NULL DEFAULT 0,
		y REAL NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_username ON accounts(username);
	`
	_, err := db.conn.Exec(schema)
	if err != nil {
		log.Printf("DB migration error: %v", err)
	}
	return err
}

// CreateAccount creates a new account with a fresh profile (returns account ID)
func (db *DB) CreateAccount(username, passHash string) (int64, error) {
	res, err := db.conn.Exec(
		"INSERT INTO accounts (username, pass_hash) VALUES (?, ?)",
		username, passHash,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	_, err = db.conn.Exec("INSERT INTO profiles (account_id) VALUES (?)", id)
	return id, err
}

// GetAccountByUsername returns an account by username, or nil
func (db *DB) GetAccountByUsername(username string) (*AccountRow, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, pass_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
	a := &AccountRow{}
	err := row.Scan(&a.ID, &a.Username, &a.PassHash, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return a, err
}

// UsernameExists checks if a username is taken
func (db *DB) UsernameExists(username string) (bool, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM accounts WHERE username = ?", username).Scan(&count)
	return count > 0, err
}

// GetProfile returns the profile for an account, or nil
func (db *DB) GetProfile(accountID int64) (*ProfileRow, error) {
	row := db.conn.QueryRow(
		"SELECT account_id, lobbyid, room, x, y FROM profiles WHERE account_id = ?",
		accountID,
	)
	p := &ProfileRow{}
	err := row.Scan(&p.AccountID, &p.LobbyID, &p.Room, &p.X, &p.Y)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// SaveProfile persists the profile's lobby, room and position
func (db *DB) SaveProfile(p *ProfileRow) error {
	_, err := db.conn.Exec(
		"UPDATE profiles SET lobbyid = ?, room = ?, x = ?, y = ? WHERE account_id = ?",
		p.LobbyID, p.Room, p.X, p.Y, p.AccountID,
	)
	return err
}

// GetSetting returns a settings value, or ""
func (db *DB) GetSetting(key string) string {
	var value string
	err := db.conn.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

// SetSetting stores a settings value
func (db *DB) SetSetting(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value,
	)
	return err
}
