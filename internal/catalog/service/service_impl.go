package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/drivelane/drivelane/internal/cache"
	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
	"github.com/drivelane/drivelane/internal/clock"
	"github.com/drivelane/drivelane/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Cfg   config.Config
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	offers cache.Cache[snowflake.ID, catalogdomain.Offer]
	cfg    config.Config
}

func NewService(p Params) catalogdomain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("catalog.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		offers: cache.NewTTLCache[snowflake.ID, catalogdomain.Offer](),
		cfg:    p.Cfg,
	}
}

func (s *Service) CreateSchool(ctx context.Context, req catalogdomain.CreateSchoolRequest) (*catalogdomain.School, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, catalogdomain.ErrInvalidSchool
	}

	school := catalogdomain.School{
		ID:        s.genID.Generate(),
		Name:      name,
		City:      strings.TrimSpace(req.City),
		Address:   strings.TrimSpace(req.Address),
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&school).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func (s *Service) ListSchools(ctx context.Context) ([]catalogdomain.School, error) {
	var schools []catalogdomain.School
	if err := s.db.WithContext(ctx).Order("name").Find(&schools).Error; err != nil {
		return nil, err
	}
	return schools, nil
}

func (s *Service) GetSchool(ctx context.Context, id snowflake.ID) (*catalogdomain.School, error) {
	var school catalogdomain.School
	err := s.db.WithContext(ctx).First(&school, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalogdomain.ErrSchoolNotFound
	}
	if err != nil {
		return nil, err
	}
	return &school, nil
}

func (s *Service) CreateOffer(ctx context.Context, req catalogdomain.CreateOfferRequest) (*catalogdomain.Offer, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.SchoolID == 0 || req.Price < 0 || req.Hours <= 0 {
		return nil, catalogdomain.ErrInvalidOffer
	}
	if _, err := s.GetSchool(ctx, req.SchoolID); err != nil {
		return nil, err
	}

	permit := strings.ToUpper(strings.TrimSpace(req.PermitType))
	if permit == "" {
		permit = "B"
	}

	offer := catalogdomain.Offer{
		ID:          s.genID.Generate(),
		SchoolID:    req.SchoolID,
		Name:        name,
		Description: strings.TrimSpace(req.Description),
		Price:       req.Price,
		Hours:       req.Hours,
		PermitType:  permit,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (s *Service) ListOffersBySchool(ctx context.Context, schoolID snowflake.ID) ([]catalogdomain.Offer, error) {
	var offers []catalogdomain.Offer
	if err := s.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("name").Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

// GetOffer serves the hot path for booking amounts and enrollment hour grants,
// so reads go through a short TTL cache.
func (s *Service) GetOffer(ctx context.Context, id snowflake.ID) (*catalogdomain.Offer, error) {
	if cached, ok := s.offers.Get(id); ok {
		return &cached, nil
	}

	var offer catalogdomain.Offer
	err := s.db.WithContext(ctx).First(&offer, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, catalogdomain.ErrOfferNotFound
	}
	if err != nil {
		return nil, err
	}

	s.offers.Set(id, offer, s.cfg.OfferCacheTTL)
	return &offer, nil
}

func (s *Service) CreateMonitor(ctx context.Context, req catalogdomain.CreateMonitorRequest) (*catalogdomain.Monitor, error) {
	first := strings.TrimSpace(req.FirstName)
	last := strings.TrimSpace(req.LastName)
	if first == "" || last == "" || req.SchoolID == 0 {
		return nil, catalogdomain.ErrInvalidMonitor
	}
	if _, err := s.GetSchool(ctx, req.SchoolID); err != nil {
		return nil, err
	}

	monitor := catalogdomain.Monitor{
		ID:        s.genID.Generate(),
		SchoolID:  req.SchoolID,
		FirstName: first,
		LastName:  last,
		Phone:     strings.TrimSpace(req.Phone),
		CreatedAt: s.clock.Now(),
	}
	if err := s.db.WithContext(ctx).Create(&monitor).Error; err != nil {
		return nil, err
	}
	return &monitor, nil
}

func (s *Service) ListMonitorsBySchool(ctx context.Context, schoolID snowflake.ID) ([]catalogdomain.Monitor, error) {
	var monitors []catalogdomain.Monitor
	if err := s.db.WithContext(ctx).Where("school_id = ?", schoolID).Order("last_name, first_name").Find(&monitors).Error; err != nil {
		return nil, err
	}
	return monitors, nil
}
