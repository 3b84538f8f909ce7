package suppliers

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

// Repository persists suppliers.
type Repository interface {
	List(ctx context.Context) ([]Supplier, error)
	Get(ctx context.Context, cnpj string) (Supplier, error)
	Create(ctx context.Context, supplier Supplier) (Supplier, error)
	Update(ctx context.Context, cnpj string, supplier Supplier) error
	Delete(ctx context.Context, cnpj string) error
	CountProductRefs(ctx context.Context, cnpj string) (int, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a pgx-backed supplier repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const supplierColumns = `cnpj, nome, contato, politica_devolucao, ativo, created_at, updated_at`

func (r *repository) List(ctx context.Context) ([]Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM fornecedores ORDER BY nome`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var suppliers []Supplier
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.CNPJ, &s.Nome, &s.Contato, &s.PoliticaDevolucao, &s.Ativo, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		suppliers = append(suppliers, s)
	}
	return suppliers, rows.Err()
}

func (r *repository) Get(ctx context.Context, cnpj string) (Supplier, error) {
	query := `SELECT ` + supplierColumns + ` FROM fornecedores WHERE cnpj = $1`
	var s Supplier
	err := r.db.QueryRow(ctx, query, cnpj).Scan(&s.CNPJ, &s.Nome, &s.Contato, &s.PoliticaDevolucao, &s.Ativo, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Supplier{}, fmt.Errorf("fornecedor %s: %w", cnpj, httpx.ErrNotFound)
	}
	return s, err
}

func (r *repository) Create(ctx context.Context, supplier Supplier) (Supplier, error) {
	query := `INSERT INTO fornecedores (cnpj, nome, contato, politica_devolucao, ativo, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $6)`
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, query, supplier.CNPJ, supplier.Nome, supplier.Contato, supplier.PoliticaDevolucao, supplier.Ativo, now)
	if err != nil {
		if isUniqueViolation(err) {
			return Supplier{}, fmt.Errorf("fornecedor %s ja cadastrado: %w", supplier.CNPJ, httpx.ErrDuplicate)
		}
		return Supplier{}, err
	}
	supplier.CreatedAt = now
	supplier.UpdatedAt = now
	return supplier, nil
}

func (r *repository) Update(ctx context.Context, cnpj string, supplier Supplier) error {
	query := `UPDATE fornecedores SET nome = $1, contato = $2, politica_devolucao = $3, ativo = $4, updated_at = $5 WHERE cnpj = $6`
	tag, err := r.db.Exec(ctx, query, supplier.Nome, supplier.Contato, supplier.PoliticaDevolucao, supplier.Ativo, time.Now().UTC(), cnpj)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fornecedor %s: %w", cnpj, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, cnpj string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM fornecedores WHERE cnpj = $1`, cnpj)
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("fornecedor %s referenciado por produtos: %w", cnpj, httpx.ErrConflict)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fornecedor %s: %w", cnpj, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) CountProductRefs(ctx context.Context, cnpj string) (int, error) {
	var total int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM produtos WHERE fornecedor_cnpj = $1`, cnpj).Scan(&total)
	return total, err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
