package knowledge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// Repository persists FAQ items.
type Repository interface {
	List(ctx context.Context, onlyActive bool) ([]Item, error)
	Get(ctx context.Context, id string) (Item, error)
	Create(ctx context.Context, item Item) (Item, error)
	Update(ctx context.Context, id string, item Item) error
	Deactivate(ctx context.Context, id string) error
	IncrementVisualizacoes(ctx context.Context, id string) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a pgx-backed knowledge repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const itemColumns = `id, titulo, resposta, keywords, categoria, ativo, visualizacoes, created_at, updated_at`

func (r *repository) List(ctx context.Context, onlyActive bool) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM conhecimentos`
	if onlyActive {
		query += ` WHERE ativo`
	}
	query += ` ORDER BY visualizacoes DESC, titulo`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *repository) Get(ctx context.Context, id string) (Item, error) {
	row := r.db.QueryRow(ctx, `SELECT `+itemColumns+` FROM conhecimentos WHERE id = $1`, id)
	item, err := scanItem(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Item{}, fmt.Errorf("conhecimento %s: %w", id, httpx.ErrNotFound)
	}
	return item, err
}

func (r *repository) Create(ctx context.Context, item Item) (Item, error) {
	query := `INSERT INTO conhecimentos (id, titulo, resposta, keywords, categoria, ativo, visualizacoes, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $7)`
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, query, item.ID, item.Titulo, item.Resposta, item.Keywords, item.Categoria, item.Ativo, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Item{}, fmt.Errorf("titulo %q ja cadastrado: %w", item.Titulo, httpx.ErrDuplicate)
		}
		return Item{}, err
	}
	item.Visualizacoes = 0
	item.CreatedAt = now
	item.UpdatedAt = now
	return item, nil
}

func (r *repository) Update(ctx context.Context, id string, item Item) error {
	query := `UPDATE conhecimentos SET titulo = $1, resposta = $2, keywords = $3, categoria = $4, ativo = $5, updated_at = $6
	          WHERE id = $7`
	tag, err := r.db.Exec(ctx, query, item.Titulo, item.Resposta, item.Keywords, item.Categoria, item.Ativo, time.Now().UTC(), id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("titulo %q ja cadastrado: %w", item.Titulo, httpx.ErrDuplicate)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conhecimento %s: %w", id, httpx.ErrNotFound)
	}
	return nil
}

// Deactivate soft-deletes an item. The row stays for audit and reactivation.
func (r *repository) Deactivate(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `UPDATE conhecimentos SET ativo = FALSE, updated_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("conhecimento %s: %w", id, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) IncrementVisualizacoes(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE conhecimentos SET visualizacoes = visualizacoes + 1 WHERE id = $1`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (Item, error) {
	var item Item
	err := row.Scan(&item.ID, &item.Titulo, &item.Resposta, &item.Keywords, &item.Categoria,
		&item.Ativo, &item.Visualizacoes, &item.CreatedAt, &item.UpdatedAt)
	return item, err
}
