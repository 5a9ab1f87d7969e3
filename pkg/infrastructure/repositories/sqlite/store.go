// Package sqlite persists the planning data set in a single SQLite database.
// It implements every persistence collaborator interface, so the CLI can run
// against a durable database instead of an in-memory scenario.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/creamline/batchplan/pkg/domain/entities"
	"github.com/creamline/batchplan/pkg/domain/repositories"
)

const schema = `
CREATE TABLE IF NOT EXISTS recipes (
	id              TEXT PRIMARY KEY,
	name            TEXT NOT NULL,
	category        TEXT NOT NULL,
	fermentation_ns INTEGER NOT NULL,
	yield_per_liter TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS recipe_additives (
	recipe_id   TEXT NOT NULL REFERENCES recipes(id),
	additive_id TEXT NOT NULL,
	per_liter   TEXT NOT NULL,
	unit        TEXT NOT NULL,
	PRIMARY KEY (recipe_id, additive_id)
);

CREATE TABLE IF NOT EXISTS production_lines (
	id                TEXT PRIMARY KEY,
	name              TEXT NOT NULL,
	capacity_per_hour TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS line_compatibilities (
	line_id  TEXT NOT NULL REFERENCES production_lines(id),
	category TEXT NOT NULL,
	PRIMARY KEY (line_id, category)
);

CREATE TABLE IF NOT EXISTS line_calendar (
	line_id  TEXT NOT NULL REFERENCES production_lines(id),
	start_ns INTEGER NOT NULL,
	end_ns   INTEGER NOT NULL,
	PRIMARY KEY (line_id, start_ns)
);

CREATE TABLE IF NOT EXISTS batch_requests (
	id                TEXT PRIMARY KEY,
	recipe_id         TEXT NOT NULL,
	volume_liters     TEXT NOT NULL,
	earliest_start_ns INTEGER NOT NULL,
	due_ns            INTEGER NOT NULL DEFAULT 0,
	priority          INTEGER NOT NULL DEFAULT 0,
	status            TEXT NOT NULL DEFAULT 'pending'
);

CREATE TABLE IF NOT EXISTS inventory (
	additive_id TEXT PRIMARY KEY,
	quantity    TEXT NOT NULL,
	unit        TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS inventory_meta (
	id      INTEGER PRIMARY KEY CHECK (id = 1),
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule_entries (
	request_id TEXT PRIMARY KEY,
	line_id    TEXT NOT NULL,
	start_ns   INTEGER NOT NULL,
	end_ns     INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS schedule_reservations (
	request_id  TEXT NOT NULL REFERENCES schedule_entries(request_id),
	additive_id TEXT NOT NULL,
	quantity    TEXT NOT NULL,
	unit        TEXT NOT NULL,
	PRIMARY KEY (request_id, additive_id)
);

INSERT OR IGNORE INTO inventory_meta (id, version) VALUES (1, 1);
`

// Store wraps a SQLite database holding recipes, lines, requests, inventory
// and committed schedules.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

var (
	_ repositories.RecipeRepository    = (*Store)(nil)
	_ repositories.RequestRepository   = (*Store)(nil)
	_ repositories.LineRepository      = (*Store)(nil)
	_ repositories.InventoryRepository = (*Store)(nil)
	_ repositories.ScheduleRepository  = (*Store)(nil)
)

// Open opens (or creates) the database at path and initializes the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to verify database connection: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRecipe inserts or replaces a recipe and its additive requirements.
func (s *Store) SaveRecipe(ctx context.Context, r *entities.Recipe) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO recipes (id, name, category, fermentation_ns, yield_per_liter)
		 VALUES (?, ?, ?, ?, ?)`,
		string(r.ID), r.Name, r.Category, int64(r.Fermentation), r.YieldPerLiter.String())
	if err != nil {
		return fmt.Errorf("failed to save recipe %s: %w", r.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM recipe_additives WHERE recipe_id = ?`, string(r.ID)); err != nil {
		return err
	}
	for _, req := range r.Additives {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO recipe_additives (recipe_id, additive_id, per_liter, unit)
			 VALUES (?, ?, ?, ?)`,
			string(r.ID), string(req.Additive), req.PerLiter.Value().String(), req.PerLiter.Unit().String())
		if err != nil {
			return fmt.Errorf("failed to save additive %s for recipe %s: %w", req.Additive, r.ID, err)
		}
	}
	return tx.Commit()
}

// LoadRecipes returns all recipes ordered by id.
func (s *Store) LoadRecipes(ctx context.Context) ([]*entities.Recipe, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, category, fermentation_ns, yield_per_liter FROM recipes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query recipes: %w", err)
	}
	defer rows.Close()

	type recipeRow struct {
		id, name, category, yield string
		fermentation              int64
	}
	var raw []recipeRow
	for rows.Next() {
		var r recipeRow
		if err := rows.Scan(&r.id, &r.name, &r.category, &r.fermentation, &r.yield); err != nil {
			return nil, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	recipes := make([]*entities.Recipe, 0, len(raw))
	for _, r := range raw {
		additives, err := s.loadAdditives(ctx, r.id)
		if err != nil {
			return nil, err
		}
		yield, err := decimal.NewFromString(r.yield)
		if err != nil {
			return nil, fmt.Errorf("recipe %s has invalid yield %q: %w", r.id, r.yield, err)
		}
		recipe, err := entities.NewRecipe(entities.RecipeID(r.id), r.name, r.category,
			time.Duration(r.fermentation), additives, yield)
		if err != nil {
			return nil, fmt.Errorf("recipe %s failed validation: %w", r.id, err)
		}
		recipes = append(recipes, recipe)
	}
	return recipes, nil
}

func (s *Store) loadAdditives(ctx context.Context, recipeID string) ([]entities.AdditiveRequirement, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT additive_id, per_liter, unit FROM recipe_additives WHERE recipe_id = ? ORDER BY additive_id`,
		recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var additives []entities.AdditiveRequirement
	for rows.Next() {
		var id, value, unit string
		if err := rows.Scan(&id, &value, &unit); err != nil {
			return nil, err
		}
		q, err := entities.ParseQuantity(value, unit)
		if err != nil {
			return nil, fmt.Errorf("recipe %s additive %s: %w", recipeID, id, err)
		}
		additives = append(additives, entities.AdditiveRequirement{
			Additive: entities.AdditiveID(id),
			PerLiter: q,
		})
	}
	return additives, rows.Err()
}

// SaveLine inserts or replaces a production line, its free calendar and its
// category compatibilities.
func (s *Store) SaveLine(ctx context.Context, l *entities.ProductionLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO production_lines (id, name, capacity_per_hour) VALUES (?, ?, ?)`,
		string(l.ID), l.Name, l.CapacityPerHour.Value().String())
	if err != nil {
		return fmt.Errorf("failed to save line %s: %w", l.ID, err)
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM line_compatibilities WHERE line_id = ?`, string(l.ID)); err != nil {
		return err
	}
	for _, category := range l.Compatible {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO line_compatibilities (line_id, category) VALUES (?, ?)`,
			string(l.ID), category); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM line_calendar WHERE line_id = ?`, string(l.ID)); err != nil {
		return err
	}
	for _, iv := range l.Calendar.Free() {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO line_calendar (line_id, start_ns, end_ns) VALUES (?, ?, ?)`,
			string(l.ID), iv.Start.UnixNano(), iv.End.UnixNano()); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// LoadProductionLines returns all lines with freshly built calendars,
// ordered by id.
func (s *Store) LoadProductionLines(ctx context.Context) ([]*entities.ProductionLine, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, capacity_per_hour FROM production_lines ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lines: %w", err)
	}
	defer rows.Close()

	type lineRow struct{ id, name, capacity string }
	var raw []lineRow
	for rows.Next() {
		var r lineRow
		if err := rows.Scan(&r.id, &r.name, &r.capacity); err != nil {
			return nil, err
		}
		raw = append(raw, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines := make([]*entities.ProductionLine, 0, len(raw))
	for _, r := range raw {
		capacity, err := entities.ParseQuantity(r.capacity, "l")
		if err != nil {
			return nil, fmt.Errorf("line %s has invalid capacity %q: %w", r.id, r.capacity, err)
		}
		intervals, err := s.loadCalendar(ctx, r.id)
		if err != nil {
			return nil, err
		}
		calendar, err := entities.NewCalendar(intervals)
		if err != nil {
			return nil, fmt.Errorf("line %s calendar: %w", r.id, err)
		}
		compatible, err := s.loadCompatibilities(ctx, r.id)
		if err != nil {
			return nil, err
		}
		line, err := entities.NewProductionLine(entities.LineID(r.id), r.name, capacity, calendar, compatible)
		if err != nil {
			return nil, fmt.Errorf("line %s failed validation: %w", r.id, err)
		}
		lines = append(lines, line)
	}
	return lines, nil
}

func (s *Store) loadCalendar(ctx context.Context, lineID string) ([]entities.Interval, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT start_ns, end_ns FROM line_calendar WHERE line_id = ? ORDER BY start_ns`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intervals []entities.Interval
	for rows.Next() {
		var start, end int64
		if err := rows.Scan(&start, &end); err != nil {
			return nil, err
		}
		intervals = append(intervals, entities.Interval{
			Start: time.Unix(0, start).UTC(),
			End:   time.Unix(0, end).UTC(),
		})
	}
	return intervals, rows.Err()
}

func (s *Store) loadCompatibilities(ctx context.Context, lineID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category FROM line_compatibilities WHERE line_id = ? ORDER BY category`, lineID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// SaveRequest inserts or replaces a pending batch request.
func (s *Store) SaveRequest(ctx context.Context, r *entities.BatchRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due int64
	if r.HasDue() {
		due = r.Due.UnixNano()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO batch_requests
		 (id, recipe_id, volume_liters, earliest_start_ns, due_ns, priority, status)
		 VALUES (?, ?, ?, ?, ?, ?, 'pending')`,
		string(r.ID), string(r.Recipe), r.Volume.Value().String(),
		r.EarliestStart.UnixNano(), due, r.Priority)
	if err != nil {
		return fmt.Errorf("failed to save request %s: %w", r.ID, err)
	}
	return nil
}

// LoadPendingRequests returns requests not yet scheduled, ordered by id.
func (s *Store) LoadPendingRequests(ctx context.Context) ([]*entities.BatchRequest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, recipe_id, volume_liters, earliest_start_ns, due_ns, priority
		 FROM batch_requests WHERE status = 'pending' ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query requests: %w", err)
	}
	defer rows.Close()

	var requests []*entities.BatchRequest
	for rows.Next() {
		var (
			id, recipe, volume string
			earliest, due      int64
			priority           int
		)
		if err := rows.Scan(&id, &recipe, &volume, &earliest, &due, &priority); err != nil {
			return nil, err
		}
		vol, err := entities.ParseQuantity(volume, "l")
		if err != nil {
			return nil, fmt.Errorf("request %s has invalid volume %q: %w", id, volume, err)
		}
		var dueAt time.Time
		if due != 0 {
			dueAt = time.Unix(0, due).UTC()
		}
		req, err := entities.NewBatchRequest(entities.RequestID(id), entities.RecipeID(recipe),
			vol, time.Unix(0, earliest).UTC(), dueAt, priority)
		if err != nil {
			return nil, fmt.Errorf("request %s failed validation: %w", id, err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// SetStock inserts or replaces the stock level for one additive and bumps
// the inventory version.
func (s *Store) SetStock(ctx context.Context, id entities.AdditiveID, q entities.Quantity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO inventory (additive_id, quantity, unit) VALUES (?, ?, ?)`,
		string(id), q.Value().String(), q.Unit().String())
	if err != nil {
		return fmt.Errorf("failed to set stock for %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory_meta SET version = version + 1 WHERE id = 1`); err != nil {
		return err
	}
	return tx.Commit()
}

// LoadInventorySnapshot returns a consistent, versioned read of stock.
func (s *Store) LoadInventorySnapshot(ctx context.Context) (*entities.InventorySnapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var version int64
	if err := tx.QueryRowContext(ctx,
		`SELECT version FROM inventory_meta WHERE id = 1`).Scan(&version); err != nil {
		return nil, fmt.Errorf("failed to read inventory version: %w", err)
	}

	rows, err := tx.QueryContext(ctx, `SELECT additive_id, quantity, unit FROM inventory`)
	if err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}
	defer rows.Close()

	stock := make(map[entities.AdditiveID]entities.Quantity)
	for rows.Next() {
		var id, value, unit string
		if err := rows.Scan(&id, &value, &unit); err != nil {
			return nil, err
		}
		q, err := entities.ParseQuantity(value, unit)
		if err != nil {
			return nil, fmt.Errorf("inventory row %s: %w", id, err)
		}
		stock[entities.AdditiveID(id)] = q
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entities.NewInventorySnapshot(time.Now(), version, stock)
}

// CommitSchedule deducts reserved stock, records the entries and marks the
// placed requests as scheduled, in one transaction. Returns
// entities.ErrConcurrentCommitConflict when the snapshot is stale.
func (s *Store) CommitSchedule(ctx context.Context, snapshot *entities.InventorySnapshot, entries []entities.ScheduleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var version int64
	if err := tx.QueryRowContext(ctx,
		`SELECT version FROM inventory_meta WHERE id = 1`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read inventory version: %w", err)
	}
	if version != snapshot.Version() {
		return entities.ErrConcurrentCommitConflict
	}

	for _, entry := range entries {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schedule_entries (request_id, line_id, start_ns, end_ns) VALUES (?, ?, ?, ?)`,
			string(entry.RequestID), string(entry.Line),
			entry.Start.UnixNano(), entry.End.UnixNano()); err != nil {
			return fmt.Errorf("failed to record entry for %s: %w", entry.RequestID, err)
		}
		for additive, reserved := range entry.Reserved {
			var value string
			err := tx.QueryRowContext(ctx,
				`SELECT quantity FROM inventory WHERE additive_id = ?`, string(additive)).Scan(&value)
			if err != nil {
				return fmt.Errorf("failed to read stock for %s: %w", additive, err)
			}
			current, err := entities.ParseQuantity(value, reserved.Unit().String())
			if err != nil {
				return fmt.Errorf("inventory row %s: %w", additive, err)
			}
			rest, err := current.Sub(reserved)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`UPDATE inventory SET quantity = ? WHERE additive_id = ?`,
				rest.Value().String(), string(additive)); err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO schedule_reservations (request_id, additive_id, quantity, unit)
				 VALUES (?, ?, ?, ?)`,
				string(entry.RequestID), string(additive),
				reserved.Value().String(), reserved.Unit().String()); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE batch_requests SET status = 'scheduled' WHERE id = ?`,
			string(entry.RequestID)); err != nil {
			return err
		}
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE inventory_meta SET version = version + 1 WHERE id = 1`); err != nil {
		return err
	}
	return tx.Commit()
}
