/*
Package sqlite provides a SQLite-backed invoicing.ProfileStore.

KEY TABLES:
  profiles:    one row per vendor/client profile (anchor, fees, terms)
  periods_off: period-end dates with no invoice, ordered by position
  expenses:    expense items keyed by the period-end date they are billed in

ENCODING:
  Dates are stored as YYYY-MM-DD text, decimals as their exact string form,
  granularity and cadence by name. Vendor and client details are JSON.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety. UpdateProfile reads, modifies and
  rewrites a profile inside one SQL transaction while holding the write
  lock, so concurrent recordings never lose an update.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/periods.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  svc := invoicing.NewService(store, logger)

SEE ALSO:
  - invoicing/store.go: Interface definition
  - store/memory: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/period-engine/billing"
	"github.com/warp/period-engine/calendar"
	"github.com/warp/period-engine/invoicing"
)

// Store implements invoicing.ProfileStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

var _ invoicing.ProfileStore = (*Store)(nil)

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// every new connection would open an empty database
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS profiles (
		id TEXT PRIMARY KEY,
		version INTEGER NOT NULL,
		vendor_json TEXT NOT NULL,
		client_json TEXT NOT NULL,
		anchor_offset INTEGER NOT NULL,
		anchor_period TEXT NOT NULL,
		purchase_order TEXT NOT NULL DEFAULT '',
		footer_text TEXT NOT NULL DEFAULT '',
		fees_name TEXT NOT NULL,
		rate_granularity TEXT NOT NULL,
		rate_unit_price TEXT NOT NULL,
		cadence TEXT NOT NULL,
		payment_terms TEXT NOT NULL,
		currency TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS periods_off (
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		period_end TEXT NOT NULL,
		position INTEGER NOT NULL,
		PRIMARY KEY (profile_id, period_end)
	);

	CREATE TABLE IF NOT EXISTS expenses (
		id TEXT NOT NULL,
		profile_id TEXT NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
		period_end TEXT NOT NULL,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		currency TEXT NOT NULL,
		quantity TEXT NOT NULL,
		transaction_date TEXT NOT NULL,
		PRIMARY KEY (profile_id, id)
	);

	CREATE INDEX IF NOT EXISTS idx_expenses_profile_period
		ON expenses(profile_id, period_end, position);
	`
	_, err := s.db.Exec(schema)
	return err
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PROFILE STORE
// =============================================================================

func (s *Store) CreateProfile(ctx context.Context, p billing.Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := insertProfile(ctx, sqlTx, p); err != nil {
		if isUniqueConstraintError(err) {
			return invoicing.ErrProfileExists
		}
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	if err := writeChildren(ctx, sqlTx, p); err != nil {
		return err
	}
	return sqlTx.Commit()
}

func (s *Store) GetProfile(ctx context.Context, id string) (billing.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return loadProfile(ctx, s.db, id)
}

func (s *Store) ListProfiles(ctx context.Context) ([]billing.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids, err := s.profileIDs(ctx)
	if err != nil {
		return nil, err
	}
	profiles := make([]billing.Profile, 0, len(ids))
	for _, id := range ids {
		p, err := loadProfile(ctx, s.db, id)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

func (s *Store) profileIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM profiles ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *Store) DeleteProfile(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return &invoicing.NotFoundError{ID: id}
	}
	return nil
}

// UpdateProfile applies fn inside a single SQL transaction.
func (s *Store) UpdateProfile(ctx context.Context, id string, fn func(*billing.Profile) error) (billing.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return billing.Profile{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	p, err := loadProfile(ctx, sqlTx, id)
	if err != nil {
		return billing.Profile{}, err
	}
	if err := fn(&p); err != nil {
		return billing.Profile{}, err
	}
	p.ID = id

	if err := updateProfile(ctx, sqlTx, p); err != nil {
		return billing.Profile{}, fmt.Errorf("failed to update profile: %w", err)
	}
	for _, table := range []string{"periods_off", "expenses"} {
		if _, err := sqlTx.ExecContext(ctx, "DELETE FROM "+table+" WHERE profile_id = ?", id); err != nil {
			return billing.Profile{}, fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	if err := writeChildren(ctx, sqlTx, p); err != nil {
		return billing.Profile{}, err
	}
	if err := sqlTx.Commit(); err != nil {
		return billing.Profile{}, err
	}
	return p, nil
}

// =============================================================================
// ROW MAPPING
// =============================================================================

func insertProfile(ctx context.Context, db queryer, p billing.Profile) error {
	args, err := profileArgs(p)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.ExecContext(ctx, `
		INSERT INTO profiles
		(id, version, vendor_json, client_json, anchor_offset, anchor_period, purchase_order,
		 footer_text, fees_name, rate_granularity, rate_unit_price, cadence, payment_terms,
		 currency, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, append(append([]any{p.ID}, args...), now, now)...)
	return err
}

func updateProfile(ctx context.Context, db queryer, p billing.Profile) error {
	args, err := profileArgs(p)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE profiles SET
			version = ?, vendor_json = ?, client_json = ?, anchor_offset = ?, anchor_period = ?,
			purchase_order = ?, footer_text = ?, fees_name = ?, rate_granularity = ?,
			rate_unit_price = ?, cadence = ?, payment_terms = ?, currency = ?, updated_at = ?
		WHERE id = ?
	`, append(args, time.Now().UTC().Format(time.RFC3339), p.ID)...)
	return err
}

// profileArgs lists the profile columns from version to currency.
func profileArgs(p billing.Profile) ([]any, error) {
	vendor, err := json.Marshal(p.Vendor)
	if err != nil {
		return nil, err
	}
	client, err := json.Marshal(p.Client)
	if err != nil {
		return nil, err
	}
	info := p.Information
	fees := p.ServiceFees
	return []any{
		p.Version,
		string(vendor),
		string(client),
		int(info.Anchor.Offset),
		info.Anchor.Period.String(),
		info.PurchaseOrder,
		info.FooterText,
		fees.Name,
		fees.Rate.Granularity.String(),
		fees.Rate.UnitPrice.String(),
		fees.Cadence.String(),
		p.PaymentTerms.String(),
		p.Currency,
	}, nil
}

func writeChildren(ctx context.Context, db queryer, p billing.Profile) error {
	for i, d := range p.Information.PeriodsOff.Dates() {
		_, err := db.ExecContext(ctx,
			"INSERT INTO periods_off (profile_id, period_end, position) VALUES (?, ?, ?)",
			p.ID, d.String(), i)
		if err != nil {
			return fmt.Errorf("failed to insert period off: %w", err)
		}
	}

	for _, period := range p.Expenses.Periods() {
		items, _ := p.Expenses.Get(period)
		for i, item := range items {
			_, err := db.ExecContext(ctx, `
				INSERT INTO expenses
				(id, profile_id, period_end, position, name, unit_price, currency, quantity, transaction_date)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, item.ID, p.ID, period.String(), i, item.Name, item.UnitPrice.String(),
				item.Currency, item.Quantity.String(), item.TransactionDate.String())
			if err != nil {
				return fmt.Errorf("failed to insert expense: %w", err)
			}
		}
	}
	return nil
}

func loadProfile(ctx context.Context, db queryer, id string) (billing.Profile, error) {
	var (
		p                                    billing.Profile
		vendorJSON, clientJSON               string
		anchorOffset                         int
		anchorPeriod, granularity, unitPrice string
		cadence, terms                       string
	)
	err := db.QueryRowContext(ctx, `
		SELECT id, version, vendor_json, client_json, anchor_offset, anchor_period, purchase_order,
		       footer_text, fees_name, rate_granularity, rate_unit_price, cadence, payment_terms, currency
		FROM profiles WHERE id = ?
	`, id).Scan(&p.ID, &p.Version, &vendorJSON, &clientJSON, &anchorOffset, &anchorPeriod,
		&p.Information.PurchaseOrder, &p.Information.FooterText, &p.ServiceFees.Name,
		&granularity, &unitPrice, &cadence, &terms, &p.Currency)
	if err == sql.ErrNoRows {
		return billing.Profile{}, &invoicing.NotFoundError{ID: id}
	}
	if err != nil {
		return billing.Profile{}, err
	}

	if err := json.Unmarshal([]byte(vendorJSON), &p.Vendor); err != nil {
		return billing.Profile{}, fmt.Errorf("corrupt vendor for profile %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(clientJSON), &p.Client); err != nil {
		return billing.Profile{}, fmt.Errorf("corrupt client for profile %s: %w", id, err)
	}
	p.Information.Anchor.Offset = billing.InvoiceNumber(anchorOffset)
	if p.Information.Anchor.Period, err = calendar.ParseDate(anchorPeriod); err != nil {
		return billing.Profile{}, err
	}
	if p.ServiceFees.Rate.Granularity, err = calendar.ParseGranularity(granularity); err != nil {
		return billing.Profile{}, err
	}
	if p.ServiceFees.Rate.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
		return billing.Profile{}, err
	}
	if p.ServiceFees.Cadence, err = calendar.ParseCadence(cadence); err != nil {
		return billing.Profile{}, err
	}
	if p.PaymentTerms, err = calendar.ParsePaymentTerms(terms); err != nil {
		return billing.Profile{}, err
	}

	if p.Information.PeriodsOff, err = loadPeriodsOff(ctx, db, id); err != nil {
		return billing.Profile{}, err
	}
	if p.Expenses, err = loadExpenses(ctx, db, id); err != nil {
		return billing.Profile{}, err
	}
	return p, nil
}

func loadPeriodsOff(ctx context.Context, db queryer, id string) (*billing.RecordOfPeriodsOff, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT period_end FROM periods_off WHERE profile_id = ? ORDER BY position", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	record := billing.NewRecordOfPeriodsOff()
	for rows.Next() {
		var text string
		if err := rows.Scan(&text); err != nil {
			return nil, err
		}
		d, err := calendar.ParseDate(text)
		if err != nil {
			return nil, err
		}
		record.Insert(d)
	}
	return record, rows.Err()
}

func loadExpenses(ctx context.Context, db queryer, id string) (*billing.ExpensedPeriods, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, period_end, name, unit_price, currency, quantity, transaction_date
		FROM expenses WHERE profile_id = ? ORDER BY period_end, position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := billing.NewExpensedPeriods()
	for rows.Next() {
		var (
			item                                  billing.ExpenseItem
			period, price, quantity, transaction string
		)
		if err := rows.Scan(&item.ID, &period, &item.Name, &price, &item.Currency, &quantity, &transaction); err != nil {
			return nil, err
		}
		periodEnd, err := calendar.ParseDate(period)
		if err != nil {
			return nil, err
		}
		if item.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if item.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, err
		}
		if item.TransactionDate, err = calendar.ParseDate(transaction); err != nil {
			return nil, err
		}
		expenses.Insert(periodEnd, item)
	}
	return expenses, rows.Err()
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
