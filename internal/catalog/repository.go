package catalog

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sgep-io/sgep/internal/platform/httpx"
)

// ListFilters narrows the product listing.
type ListFilters struct {
	Skip  int
	Limit int
	Termo string
}

// Repository persists products and their lotes.
type Repository interface {
	List(ctx context.Context, filters ListFilters) ([]Produto, int, error)
	Get(ctx context.Context, codigoLM int64) (Produto, error)
	Exists(ctx context.Context, codigoLM int64) (bool, error)
	Create(ctx context.Context, p Produto) (Produto, error)
	Update(ctx context.Context, codigoLM int64, p Produto) error
	UpdatePartial(ctx context.Context, codigoLM int64, nome, marca *string, preco *float64, estoqueReportado *int) error
	Delete(ctx context.Context, codigoLM int64) error

	InsertLote(ctx context.Context, codigoLM int64, l Lote) error
	UpdateLote(ctx context.Context, codigoLM int64, codigoLote string, l Lote) error
	SetLoteAtivo(ctx context.Context, codigoLM int64, codigoLote string, ativo bool) error
	SetTotalEstoque(ctx context.Context, codigoLM int64, total int) error

	ListExpiredActive(ctx context.Context, asOf time.Time) ([]LoteRef, error)
	AllWithLotes(ctx context.Context) ([]Produto, error)
}

// LoteRef identifies a lote within its product.
type LoteRef struct {
	CodigoLM   int64
	CodigoLote string
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository builds a pgx-backed catalog repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const produtoColumns = `p.codigo_lm, p.nome_produto, p.marca, p.ean, p.ficha_tec, p.link_prod, p.cor, p.avs,
	p.preco_unit, p.estoque_reportado, p.total_estoque, p.fornecedor_cnpj, COALESCE(f.nome, ''), p.created_at, p.updated_at`

const loteColumns = `codigo_lote, data_fabricacao, data_validade, prazo_validade_meses, quantidade_lote, ativo, valor_lote, created_at`

func (r *repository) List(ctx context.Context, filters ListFilters) ([]Produto, int, error) {
	query := `SELECT ` + produtoColumns + ` FROM produtos p LEFT JOIN fornecedores f ON f.cnpj = p.fornecedor_cnpj WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM produtos p WHERE 1=1`
	args := []interface{}{}
	countArgs := []interface{}{}

	if filters.Termo != "" {
		pattern := "%" + filters.Termo + "%"
		query += ` AND (p.nome_produto ILIKE $1 OR p.marca ILIKE $1 OR CAST(p.codigo_lm AS TEXT) LIKE $1)`
		countQuery += ` AND (p.nome_produto ILIKE $1 OR p.marca ILIKE $1 OR CAST(p.codigo_lm AS TEXT) LIKE $1)`
		args = append(args, pattern)
		countArgs = append(countArgs, pattern)
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += ` ORDER BY p.nome_produto`
	if filters.Limit > 0 {
		query += ` LIMIT $` + strconv.Itoa(len(args)+1) + ` OFFSET $` + strconv.Itoa(len(args)+2)
		args = append(args, filters.Limit, filters.Skip)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var produtos []Produto
	for rows.Next() {
		p, err := scanProduto(rows)
		if err != nil {
			return nil, 0, err
		}
		produtos = append(produtos, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	if err := r.attachLotes(ctx, produtos); err != nil {
		return nil, 0, err
	}
	return produtos, total, nil
}

func (r *repository) Get(ctx context.Context, codigoLM int64) (Produto, error) {
	query := `SELECT ` + produtoColumns + ` FROM produtos p LEFT JOIN fornecedores f ON f.cnpj = p.fornecedor_cnpj WHERE p.codigo_lm = $1`
	row := r.db.QueryRow(ctx, query, codigoLM)
	p, err := scanProduto(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Produto{}, fmt.Errorf("produto %d: %w", codigoLM, httpx.ErrNotFound)
	}
	if err != nil {
		return Produto{}, err
	}
	produtos := []Produto{p}
	if err := r.attachLotes(ctx, produtos); err != nil {
		return Produto{}, err
	}
	return produtos[0], nil
}

func (r *repository) Exists(ctx context.Context, codigoLM int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM produtos WHERE codigo_lm = $1)`, codigoLM).Scan(&exists)
	return exists, err
}

func (r *repository) Create(ctx context.Context, p Produto) (Produto, error) {
	query := `INSERT INTO produtos (codigo_lm, nome_produto, marca, ean, ficha_tec, link_prod, cor, avs,
	            preco_unit, estoque_reportado, total_estoque, fornecedor_cnpj, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $13)`
	now := time.Now().UTC()
	_, err := r.db.Exec(ctx, query, p.CodigoLM, p.NomeProduto, p.Marca, p.EAN, p.FichaTec, p.LinkProd, p.Cor, p.AVS,
		p.PrecoUnit, p.EstoqueReportado, p.TotalEstoque, p.FornecedorCNPJ, now)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case "23505":
				return Produto{}, fmt.Errorf("produto %d ja cadastrado: %w", p.CodigoLM, httpx.ErrDuplicate)
			case "23503":
				return Produto{}, fmt.Errorf("fornecedor %s nao cadastrado: %w", p.FornecedorCNPJ, httpx.ErrValidation)
			}
		}
		return Produto{}, err
	}
	p.CreatedAt = now
	p.UpdatedAt = now
	return p, nil
}

func (r *repository) Update(ctx context.Context, codigoLM int64, p Produto) error {
	query := `UPDATE produtos SET nome_produto = $1, marca = $2, ean = $3, ficha_tec = $4, link_prod = $5,
	            cor = $6, avs = $7, preco_unit = $8, estoque_reportado = $9, fornecedor_cnpj = $10, updated_at = $11
	          WHERE codigo_lm = $12`
	tag, err := r.db.Exec(ctx, query, p.NomeProduto, p.Marca, p.EAN, p.FichaTec, p.LinkProd,
		p.Cor, p.AVS, p.PrecoUnit, p.EstoqueReportado, p.FornecedorCNPJ, time.Now().UTC(), codigoLM)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return fmt.Errorf("fornecedor %s nao cadastrado: %w", p.FornecedorCNPJ, httpx.ErrValidation)
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("produto %d: %w", codigoLM, httpx.ErrNotFound)
	}
	return nil
}

// UpdatePartial applies only the columns present, used by the spreadsheet
// import where rows carry partial data.
func (r *repository) UpdatePartial(ctx context.Context, codigoLM int64, nome, marca *string, preco *float64, estoqueReportado *int) error {
	query := `UPDATE produtos SET
	            nome_produto = COALESCE($1, nome_produto),
	            marca = COALESCE($2, marca),
	            preco_unit = COALESCE($3, preco_unit),
	            estoque_reportado = COALESCE($4, estoque_reportado),
	            updated_at = $5
	          WHERE codigo_lm = $6`
	tag, err := r.db.Exec(ctx, query, nome, marca, preco, estoqueReportado, time.Now().UTC(), codigoLM)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("produto %d: %w", codigoLM, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, codigoLM int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM produtos WHERE codigo_lm = $1`, codigoLM)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("produto %d: %w", codigoLM, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) InsertLote(ctx context.Context, codigoLM int64, l Lote) error {
	query := `INSERT INTO lotes (produto_codigo_lm, codigo_lote, data_fabricacao, data_validade,
	            prazo_validade_meses, quantidade_lote, ativo, valor_lote, created_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.Exec(ctx, query, codigoLM, l.CodigoLote, l.DataFabricacao, l.DataValidade,
		l.PrazoValidadeMeses, l.QuantidadeLote, l.Ativo, l.ValorLote, time.Now().UTC())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("lote %s ja cadastrado no produto %d: %w", l.CodigoLote, codigoLM, httpx.ErrDuplicate)
		}
		return err
	}
	return nil
}

func (r *repository) UpdateLote(ctx context.Context, codigoLM int64, codigoLote string, l Lote) error {
	query := `UPDATE lotes SET data_fabricacao = $1, data_validade = $2, prazo_validade_meses = $3,
	            quantidade_lote = $4, ativo = $5, valor_lote = $6
	          WHERE produto_codigo_lm = $7 AND codigo_lote = $8`
	tag, err := r.db.Exec(ctx, query, l.DataFabricacao, l.DataValidade, l.PrazoValidadeMeses,
		l.QuantidadeLote, l.Ativo, l.ValorLote, codigoLM, codigoLote)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lote %s do produto %d: %w", codigoLote, codigoLM, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) SetLoteAtivo(ctx context.Context, codigoLM int64, codigoLote string, ativo bool) error {
	tag, err := r.db.Exec(ctx, `UPDATE lotes SET ativo = $1 WHERE produto_codigo_lm = $2 AND codigo_lote = $3`, ativo, codigoLM, codigoLote)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("lote %s do produto %d: %w", codigoLote, codigoLM, httpx.ErrNotFound)
	}
	return nil
}

func (r *repository) SetTotalEstoque(ctx context.Context, codigoLM int64, total int) error {
	_, err := r.db.Exec(ctx, `UPDATE produtos SET total_estoque = $1, updated_at = $2 WHERE codigo_lm = $3`, total, time.Now().UTC(), codigoLM)
	return err
}

func (r *repository) ListExpiredActive(ctx context.Context, asOf time.Time) ([]LoteRef, error) {
	rows, err := r.db.Query(ctx, `SELECT produto_codigo_lm, codigo_lote FROM lotes WHERE ativo AND data_validade < $1`, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var refs []LoteRef
	for rows.Next() {
		var ref LoteRef
		if err := rows.Scan(&ref.CodigoLM, &ref.CodigoLote); err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, rows.Err()
}

// AllWithLotes loads the full catalog, used by the dashboard aggregation.
func (r *repository) AllWithLotes(ctx context.Context) ([]Produto, error) {
	produtos, _, err := r.List(ctx, ListFilters{})
	return produtos, err
}

func (r *repository) attachLotes(ctx context.Context, produtos []Produto) error {
	if len(produtos) == 0 {
		return nil
	}
	ids := make([]int64, 0, len(produtos))
	index := make(map[int64]int, len(produtos))
	for i := range produtos {
		ids = append(ids, produtos[i].CodigoLM)
		index[produtos[i].CodigoLM] = i
		produtos[i].Lotes = []Lote{}
	}

	query := `SELECT produto_codigo_lm, ` + loteColumns + ` FROM lotes WHERE produto_codigo_lm = ANY($1) ORDER BY created_at`
	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var codigoLM int64
		var l Lote
		if err := rows.Scan(&codigoLM, &l.CodigoLote, &l.DataFabricacao, &l.DataValidade,
			&l.PrazoValidadeMeses, &l.QuantidadeLote, &l.Ativo, &l.ValorLote, &l.CreatedAt); err != nil {
			return err
		}
		if i, ok := index[codigoLM]; ok {
			produtos[i].Lotes = append(produtos[i].Lotes, l)
		}
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduto(row rowScanner) (Produto, error) {
	var p Produto
	err := row.Scan(&p.CodigoLM, &p.NomeProduto, &p.Marca, &p.EAN, &p.FichaTec, &p.LinkProd, &p.Cor, &p.AVS,
		&p.PrecoUnit, &p.EstoqueReportado, &p.TotalEstoque, &p.FornecedorCNPJ, &p.FornecedorNome, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
