package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/fuelrecon/internal/clock"
	productdomain "github.com/smallbiznis/fuelrecon/internal/product/domain"
	"github.com/smallbiznis/fuelrecon/pkg/db"
	"github.com/smallbiznis/fuelrecon/pkg/quantity"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultCurrency = "IDR"

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  productdomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  productdomain.Repository
}

func New(p Params) productdomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("product.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req productdomain.CreateRequest) (*productdomain.FuelProduct, error) {
	if req.StationID == 0 {
		return nil, productdomain.ErrInvalidStation
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, productdomain.ErrInvalidName
	}
	price, err := parseUnitPrice(req.UnitPrice)
	if err != nil {
		return nil, err
	}
	currency := strings.ToUpper(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) != 3 {
		return nil, productdomain.ErrInvalidCurrency
	}

	code := slug.Make(strings.TrimSpace(req.Code))
	if code == "" {
		code = slug.Make(name)
	}

	now := s.clock.Now().UTC()
	product := &productdomain.FuelProduct{
		ID:        s.genID.Generate(),
		StationID: req.StationID,
		Code:      code,
		Name:      name,
		UnitPrice: price,
		Currency:  currency,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, product); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, productdomain.ErrCodeTaken
		}
		return nil, err
	}
	return product, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (*productdomain.FuelProduct, error) {
	if id == 0 {
		return nil, productdomain.ErrInvalidID
	}
	product, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, productdomain.ErrNotFound
	}
	return product, nil
}

func (s *Service) List(ctx context.Context, stationID snowflake.ID) ([]productdomain.FuelProduct, error) {
	if stationID == 0 {
		return nil, productdomain.ErrInvalidStation
	}
	return s.repo.ListByStation(ctx, s.db, stationID)
}

// UpdateUnitPrice changes the live price. Calculations already made keep the
// price they were computed with.
func (s *Service) UpdateUnitPrice(ctx context.Context, id snowflake.ID, unitPrice string) (*productdomain.FuelProduct, error) {
	price, err := parseUnitPrice(unitPrice)
	if err != nil {
		return nil, err
	}
	product, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	previous := product.UnitPrice
	product.UnitPrice = price
	product.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.UpdatePrice(ctx, s.db, product); err != nil {
		return nil, err
	}
	s.log.Info("unit price updated",
		zap.String("product_id", product.ID.String()),
		zap.String("from", previous.String()),
		zap.String("to", price.String()),
	)
	return product, nil
}

func parseUnitPrice(value string) (decimal.Decimal, error) {
	price, err := quantity.Parse(value)
	if err != nil || !price.IsPositive() {
		return decimal.Zero, productdomain.ErrInvalidUnitPrice
	}
	return quantity.Price(price), nil
}
