package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "modernc.org/sqlite"
)

var ErrProductNotFound = errors.New("product not found")

// Product is one canonical catalog record. Slug is the normalized-title
// key sessions are priced against; PriceCents is in minor units.
type Product struct {
	Slug        string
	Name        string
	Description string
	PriceCents  int64
	CreatedAt   time.Time
}

type Repository struct {
	db *sql.DB
}

type RepoInterface interface {
	GetAllProducts(ctx context.Context) ([]*Product, error)
	GetProduct(ctx context.Context, slug string) (*Product, error)
	Close() error
	RunMigrations(string) error
}

func NewRepository(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(migrationsPath string) error {
	driver, err := sqlite.WithInstance(r.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"sqlite",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) GetAllProducts(ctx context.Context) ([]*Product, error) {
	query := `
		SELECT slug, name, description, price_cents, created_at
		FROM products
		ORDER BY slug
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*Product
	for rows.Next() {
		p := &Product{}
		err := rows.Scan(
			&p.Slug,
			&p.Name,
			&p.Description,
			&p.PriceCents,
			&p.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return products, nil
}

func (r *Repository) GetProduct(ctx context.Context, slug string) (*Product, error) {
	query := `
		SELECT slug, name, description, price_cents, created_at
		FROM products
		WHERE slug = $1
	`

	p := &Product{}
	err := r.db.QueryRowContext(ctx, query, slug).Scan(
		&p.Slug,
		&p.Name,
		&p.Description,
		&p.PriceCents,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return p, nil
}

func (r *Repository) Close() error {
	return r.db.Close()
}

// Resolve prices a requested title against the catalog. Unknown titles
// fall back to a record synthesized from the request itself, so the
// storefront can sell items that never got a canonical entry.
func Resolve(ctx context.Context, repo RepoInterface, title string, priceCents int64) *Product {
	if p, err := repo.GetProduct(ctx, Slugify(title)); err == nil {
		return p
	}

	return &Product{
		Slug:        Slugify(title),
		Name:        title,
		Description: fmt.Sprintf("E-book: %s", title),
		PriceCents:  priceCents,
	}
}
