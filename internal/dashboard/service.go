package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/sgep-io/sgep/internal/catalog"
	"github.com/sgep-io/sgep/internal/expiry"
)

const cacheKey = "sgep:dashboard:kpis"

// CatalogSource supplies the full catalog snapshot the KPIs aggregate over.
type CatalogSource interface {
	AllWithLotes(ctx context.Context) ([]catalog.Produto, error)
}

// RiskBuckets splits the value of active lotes by days until expiry.
type RiskBuckets struct {
	Dias0a30  float64 `json:"dias_0_30"`
	Dias31a60 float64 `json:"dias_31_60"`
	Dias61a90 float64 `json:"dias_61_90"`
}

// Vencimento is one row of the upcoming-expiry view.
type Vencimento struct {
	CodigoLM      int64     `json:"codigo_lm"`
	NomeProduto   string    `json:"nome_produto"`
	CodigoLote    string    `json:"codigo_lote"`
	DataValidade  time.Time `json:"data_validade"`
	DiasRestantes int       `json:"dias_restantes"`
	ValorLote     float64   `json:"valor_lote"`
}

// KPIs is the dashboard aggregate served to the front page.
type KPIs struct {
	TotalProdutos       int                  `json:"total_produtos"`
	TotalLotesAtivos    int                  `json:"total_lotes_ativos"`
	ValorTotalReportado float64              `json:"valor_total_reportado"`
	ValorTotalPerdido   float64              `json:"valor_total_perdido"`
	ValorEmRisco        RiskBuckets          `json:"valor_em_risco"`
	TopDiscrepancias    []expiry.Discrepancy `json:"top_discrepancias"`
	ProximosVencimentos []Vencimento         `json:"proximos_vencimentos"`
	GeradoEm            time.Time            `json:"gerado_em"`
}

const (
	topDiscrepanciasLimit    = 5
	proximosVencimentosLimit = 5
	vencimentoWindowDays     = 30
)

// Service aggregates catalog data into dashboard KPIs, cached in Redis so a
// busy front page does not rescan the catalog on every hit.
type Service struct {
	source CatalogSource
	cache  *redis.Client
	ttl    time.Duration
	logger *slog.Logger
	group  singleflight.Group
	now    func() time.Time
}

// NewService builds a dashboard service. A nil cache disables caching.
func NewService(source CatalogSource, cache *redis.Client, ttl time.Duration, logger *slog.Logger) *Service {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &Service{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// KPIs returns the dashboard aggregate, serving the cached copy when fresh.
// Concurrent cache misses collapse into a single recomputation.
func (s *Service) KPIs(ctx context.Context) (KPIs, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey).Bytes()
		if err == nil {
			var cached KPIs
			if err := json.Unmarshal(raw, &cached); err == nil {
				return cached, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn("dashboard cache read", slog.Any("error", err))
		}
	}

	result, err, _ := s.group.Do(cacheKey, func() (interface{}, error) {
		kpis, err := s.compute(ctx)
		if err != nil {
			return KPIs{}, err
		}
		s.store(ctx, kpis)
		return kpis, nil
	})
	if err != nil {
		return KPIs{}, err
	}
	return result.(KPIs), nil
}

// Warmup recomputes the aggregate and refreshes the cache unconditionally.
// Scheduled off-peak so the first morning hit is already warm.
func (s *Service) Warmup(ctx context.Context) error {
	kpis, err := s.compute(ctx)
	if err != nil {
		return err
	}
	s.store(ctx, kpis)
	return nil
}

func (s *Service) store(ctx context.Context, kpis KPIs) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(kpis)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, cacheKey, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("dashboard cache write", slog.Any("error", err))
	}
}

func (s *Service) compute(ctx context.Context) (KPIs, error) {
	produtos, err := s.source.AllWithLotes(ctx)
	if err != nil {
		return KPIs{}, err
	}
	now := s.now()

	kpis := KPIs{
		TopDiscrepancias:    []expiry.Discrepancy{},
		ProximosVencimentos: []Vencimento{},
		GeradoEm:            now,
	}
	var discrepancias []expiry.Discrepancy
	var vencimentos []Vencimento

	for _, p := range produtos {
		kpis.TotalProdutos++
		if p.EstoqueReportado != nil {
			kpis.ValorTotalReportado += p.PrecoUnit * float64(*p.EstoqueReportado)
		}

		batches := make([]expiry.Batch, 0, len(p.Lotes))
		for _, l := range p.Lotes {
			batches = append(batches, expiry.Batch{ExpiresAt: l.DataValidade, Active: l.Ativo})
			if !l.Ativo {
				kpis.ValorTotalPerdido += l.ValorLote
				continue
			}
			kpis.TotalLotesAtivos++

			days := expiry.DaysUntil(l.DataValidade, now)
			switch {
			case days < 0:
				// expired but not yet swept, counted as lost
				kpis.ValorTotalPerdido += l.ValorLote
			case days <= 30:
				kpis.ValorEmRisco.Dias0a30 += l.ValorLote
			case days <= 60:
				kpis.ValorEmRisco.Dias31a60 += l.ValorLote
			case days <= 90:
				kpis.ValorEmRisco.Dias61a90 += l.ValorLote
			}
			if days >= 0 && days <= vencimentoWindowDays {
				vencimentos = append(vencimentos, Vencimento{
					CodigoLM:      p.CodigoLM,
					NomeProduto:   p.NomeProduto,
					CodigoLote:    l.CodigoLote,
					DataValidade:  l.DataValidade,
					DiasRestantes: days,
					ValorLote:     l.ValorLote,
				})
			}
		}

		declared := 0
		if p.EstoqueReportado != nil {
			declared = *p.EstoqueReportado
		}
		rec := expiry.Reconcile(declared, p.TotalEstoque)
		if rec.Shortfall > 0 {
			discrepancias = append(discrepancias, expiry.Discrepancy{
				CodigoLM:      p.CodigoLM,
				NomeProduto:   p.NomeProduto,
				Percent:       rec.Percent,
				Shortfall:     rec.Shortfall,
				HasExpiryRisk: expiry.HasExpiryRisk(batches, now),
			})
		}
	}

	expiry.SortDiscrepancies(discrepancias)
	if len(discrepancias) > topDiscrepanciasLimit {
		discrepancias = discrepancias[:topDiscrepanciasLimit]
	}
	if discrepancias != nil {
		kpis.TopDiscrepancias = discrepancias
	}

	sort.SliceStable(vencimentos, func(i, j int) bool {
		return vencimentos[i].DataValidade.Before(vencimentos[j].DataValidade)
	})
	if len(vencimentos) > proximosVencimentosLimit {
		vencimentos = vencimentos[:proximosVencimentosLimit]
	}
	if vencimentos != nil {
		kpis.ProximosVencimentos = vencimentos
	}

	kpis.ValorTotalReportado = round2(kpis.ValorTotalReportado)
	kpis.ValorTotalPerdido = round2(kpis.ValorTotalPerdido)
	kpis.ValorEmRisco.Dias0a30 = round2(kpis.ValorEmRisco.Dias0a30)
	kpis.ValorEmRisco.Dias31a60 = round2(kpis.ValorEmRisco.Dias31a60)
	kpis.ValorEmRisco.Dias61a90 = round2(kpis.ValorEmRisco.Dias61a90)
	return kpis, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
