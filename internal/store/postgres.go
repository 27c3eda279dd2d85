package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/streamgate/streamgate/internal/models"
)

// Postgres implements Store using PostgreSQL. It is the indexed upgrade path
// from the flat JSON documents: customers are keyed by id, MACs get a unique
// index, and appends become row inserts instead of whole-document rewrites.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a Postgres store from a DSN. Caller must call Close when done.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w: %w", ErrStorageUnavailable, err)
	}
	return &Postgres{pool: pool}, nil
}

// Close closes the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}

func (p *Postgres) LoadCustomers(ctx context.Context) (*models.Registry, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT id, name, package, COALESCE(expires, ''), entitlements
		 FROM customers ORDER BY created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	reg := &models.Registry{Customers: []models.Customer{}}
	index := make(map[string]int)
	for rows.Next() {
		var c models.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Package, &c.Expires, &c.Entitlements); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.MACs = []string{}
		if c.Entitlements == nil {
			c.Entitlements = []string{}
		}
		index[c.ID] = len(reg.Customers)
		reg.Customers = append(reg.Customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w: %w", ErrStorageUnavailable, err)
	}

	macRows, err := p.pool.Query(ctx,
		`SELECT customer_id, mac FROM customer_macs ORDER BY customer_id, mac`)
	if err != nil {
		return nil, fmt.Errorf("select macs: %w: %w", ErrStorageUnavailable, err)
	}
	defer macRows.Close()
	for macRows.Next() {
		var customerID, mac string
		if err := macRows.Scan(&customerID, &mac); err != nil {
			return nil, fmt.Errorf("scan mac: %w", err)
		}
		if i, ok := index[customerID]; ok {
			reg.Customers[i].MACs = append(reg.Customers[i].MACs, mac)
		}
	}
	if err := macRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate macs: %w: %w", ErrStorageUnavailable, err)
	}
	return reg, nil
}

func (p *Postgres) LoadCatalog(ctx context.Context) (*models.Catalog, error) {
	rows, err := p.pool.Query(ctx,
		`SELECT code, name FROM countries ORDER BY position, code`)
	if err != nil {
		return nil, fmt.Errorf("select countries: %w: %w", ErrStorageUnavailable, err)
	}
	defer rows.Close()

	cat := &models.Catalog{Countries: []models.Country{}}
	index := make(map[string]int)
	for rows.Next() {
		var c models.Country
		if err := rows.Scan(&c.Code, &c.Name); err != nil {
			return nil, fmt.Errorf("scan country: %w", err)
		}
		c.Channels = []models.Channel{}
		index[c.Code] = len(cat.Countries)
		cat.Countries = append(cat.Countries, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate countries: %w: %w", ErrStorageUnavailable, err)
	}

	chRows, err := p.pool.Query(ctx,
		`SELECT country_code, id, name, url, category, COALESCE(language, ''), COALESCE(logo, '')
		 FROM channels ORDER BY country_code, position, id`)
	if err != nil {
		return nil, fmt.Errorf("select channels: %w: %w", ErrStorageUnavailable, err)
	}
	defer chRows.Close()
	for chRows.Next() {
		var code string
		var ch models.Channel
		if err := chRows.Scan(&code, &ch.ID, &ch.Name, &ch.URL, &ch.Category, &ch.Language, &ch.Logo); err != nil {
			return nil, fmt.Errorf("scan channel: %w", err)
		}
		if i, ok := index[code]; ok {
			cat.Countries[i].Channels = append(cat.Countries[i].Channels, ch)
		}
	}
	if err := chRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate channels: %w: %w", ErrStorageUnavailable, err)
	}
	return cat, nil
}

func (p *Postgres) AppendCustomer(ctx context.Context, c models.Customer) (*models.Customer, error) {
	c.MACs = normalizeMACSet(c.MACs)
	if c.Entitlements == nil {
		c.Entitlements = []string{}
	}
	c.ID = NewCustomerID()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	// The unique index on customer_macs.mac is the real guard; this check
	// exists to produce a useful error naming the conflicting owner.
	if len(c.MACs) > 0 {
		var owner, mac string
		err := tx.QueryRow(ctx,
			`SELECT customer_id, mac FROM customer_macs WHERE mac = ANY($1) LIMIT 1`,
			c.MACs,
		).Scan(&owner, &mac)
		if err == nil {
			return nil, fmt.Errorf("%w: %s (customer %s)", ErrMACInUse, mac, owner)
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("check macs: %w: %w", ErrStorageUnavailable, err)
		}
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO customers (id, name, package, expires, entitlements)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5)`,
		c.ID, c.Name, c.Package, c.Expires, c.Entitlements)
	if err != nil {
		return nil, fmt.Errorf("insert customer: %w: %w", ErrStorageUnavailable, err)
	}
	for _, m := range c.MACs {
		if _, err := tx.Exec(ctx,
			`INSERT INTO customer_macs (mac, customer_id) VALUES ($1, $2)`, m, c.ID); err != nil {
			return nil, fmt.Errorf("insert mac %s: %w: %w", m, ErrStorageUnavailable, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w: %w", ErrStorageUnavailable, err)
	}
	return &c, nil
}

func (p *Postgres) ReplaceCatalog(ctx context.Context, catalog *models.Catalog) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w: %w", ErrStorageUnavailable, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM channels`); err != nil {
		return fmt.Errorf("delete channels: %w: %w", ErrStorageUnavailable, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM countries`); err != nil {
		return fmt.Errorf("delete countries: %w: %w", ErrStorageUnavailable, err)
	}

	for ci, country := range catalog.Countries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO countries (code, name, position) VALUES ($1, $2, $3)`,
			country.Code, country.Name, ci); err != nil {
			return fmt.Errorf("insert country %s: %w: %w", country.Code, ErrStorageUnavailable, err)
		}
		for pi, ch := range country.Channels {
			if _, err := tx.Exec(ctx,
				`INSERT INTO channels (id, country_code, name, url, category, language, logo, position)
				 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), $8)`,
				ch.ID, country.Code, ch.Name, ch.URL, ch.Category, ch.Language, ch.Logo, pi); err != nil {
				return fmt.Errorf("insert channel %s: %w: %w", ch.ID, ErrStorageUnavailable, err)
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w: %w", ErrStorageUnavailable, err)
	}
	return nil
}
