package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("store: not found")

// User is one login account.
type User struct {
	ID                 int64
	Username           string
	PasswordHash       string
	MustChangePassword bool
}

// DataSource is one registered query backend.
type DataSource struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Type string `json:"type"` // currently always "pulse"
	URL  string `json:"url"`
}

// Dashboard is a named, ordered sequence of panels. Panels is an opaque
// JSON document owned by the dashboard package.
type Dashboard struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Panels string `json:"panels"`
}

// Store wraps the SQLite database.
type Store struct {
	db  *sql.DB
	now func() time.Time // injectable for deterministic tests
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("store: open db: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite single-writer
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrations: %w", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// --- users ------------------------------------------------------------------

// EnsureUser inserts the user if no account with that username exists.
// Used to seed the initial admin with mustChange set.
func (s *Store) EnsureUser(username, passwordHash string, mustChange bool) error {
	ts := s.now().Unix()
	_, err := s.db.Exec(
		`INSERT INTO users (username, password_hash, must_change_password, created, updated)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(username) DO NOTHING`,
		username, passwordHash, boolToInt(mustChange), ts, ts)
	if err != nil {
		return fmt.Errorf("store: ensure user: %w", err)
	}
	return nil
}

// GetUser returns the user with the given username.
func (s *Store) GetUser(username string) (*User, error) {
	var u User
	var mustChange int
	err := s.db.QueryRow(
		`SELECT id, username, password_hash, must_change_password FROM users WHERE username = ?`,
		username,
	).Scan(&u.ID, &u.Username, &u.PasswordHash, &mustChange)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get user: %w", err)
	}
	u.MustChangePassword = mustChange != 0
	return &u, nil
}

// UpdatePassword replaces the user's password hash and clears the
// must-change flag. After this the old credential can never verify again.
func (s *Store) UpdatePassword(username, passwordHash string) error {
	res, err := s.db.Exec(
		`UPDATE users SET password_hash = ?, must_change_password = 0, updated = ? WHERE username = ?`,
		passwordHash, s.now().Unix(), username)
	if err != nil {
		return fmt.Errorf("store: update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- data sources -----------------------------------------------------------

// CreateDataSource inserts ds and returns its assigned ID.
func (s *Store) CreateDataSource(ds DataSource) (int64, error) {
	ts := s.now().Unix()
	res, err := s.db.Exec(
		`INSERT INTO datasources (name, type, url, created, updated) VALUES (?, ?, ?, ?, ?)`,
		ds.Name, ds.Type, ds.URL, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("store: create datasource: %w", err)
	}
	return res.LastInsertId()
}

// GetDataSource returns the data source with the given ID.
func (s *Store) GetDataSource(id int64) (*DataSource, error) {
	var ds DataSource
	err := s.db.QueryRow(
		`SELECT id, name, type, url FROM datasources WHERE id = ?`, id,
	).Scan(&ds.ID, &ds.Name, &ds.Type, &ds.URL)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get datasource: %w", err)
	}
	return &ds, nil
}

// ListDataSources returns all data sources ordered by name.
func (s *Store) ListDataSources() ([]DataSource, error) {
	rows, err := s.db.Query(`SELECT id, name, type, url FROM datasources ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list datasources: %w", err)
	}
	defer rows.Close()

	out := make([]DataSource, 0)
	for rows.Next() {
		var ds DataSource
		if err := rows.Scan(&ds.ID, &ds.Name, &ds.Type, &ds.URL); err != nil {
			return nil, fmt.Errorf("store: scan datasource: %w", err)
		}
		out = append(out, ds)
	}
	return out, rows.Err()
}

// UpdateDataSource replaces the data source's mutable fields.
func (s *Store) UpdateDataSource(ds DataSource) error {
	res, err := s.db.Exec(
		`UPDATE datasources SET name = ?, type = ?, url = ?, updated = ? WHERE id = ?`,
		ds.Name, ds.Type, ds.URL, s.now().Unix(), ds.ID)
	if err != nil {
		return fmt.Errorf("store: update datasource: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDataSource removes the data source with the given ID.
func (s *Store) DeleteDataSource(id int64) error {
	res, err := s.db.Exec(`DELETE FROM datasources WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete datasource: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// --- dashboards -------------------------------------------------------------

// CreateDashboard inserts d and returns its assigned ID.
func (s *Store) CreateDashboard(d Dashboard) (int64, error) {
	ts := s.now().Unix()
	res, err := s.db.Exec(
		`INSERT INTO dashboards (name, panels, created, updated) VALUES (?, ?, ?, ?)`,
		d.Name, d.Panels, ts, ts)
	if err != nil {
		return 0, fmt.Errorf("store: create dashboard: %w", err)
	}
	return res.LastInsertId()
}

// GetDashboard returns the dashboard with the given ID.
func (s *Store) GetDashboard(id int64) (*Dashboard, error) {
	var d Dashboard
	err := s.db.QueryRow(
		`SELECT id, name, panels FROM dashboards WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &d.Panels)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: get dashboard: %w", err)
	}
	return &d, nil
}

// ListDashboards returns all dashboards ordered by name.
func (s *Store) ListDashboards() ([]Dashboard, error) {
	rows, err := s.db.Query(`SELECT id, name, panels FROM dashboards ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("store: list dashboards: %w", err)
	}
	defer rows.Close()

	out := make([]Dashboard, 0)
	for rows.Next() {
		var d Dashboard
		if err := rows.Scan(&d.ID, &d.Name, &d.Panels); err != nil {
			return nil, fmt.Errorf("store: scan dashboard: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// UpdateDashboard replaces the dashboard's mutable fields.
func (s *Store) UpdateDashboard(d Dashboard) error {
	res, err := s.db.Exec(
		`UPDATE dashboards SET name = ?, panels = ?, updated = ? WHERE id = ?`,
		d.Name, d.Panels, s.now().Unix(), d.ID)
	if err != nil {
		return fmt.Errorf("store: update dashboard: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteDashboard removes the dashboard with the given ID.
func (s *Store) DeleteDashboard(id int64) error {
	res, err := s.db.Exec(`DELETE FROM dashboards WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete dashboard: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
