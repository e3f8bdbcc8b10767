package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"

	catalogdomain "github.com/drivelane/drivelane/internal/catalog/domain"
)

const (
	demoSchoolName = "Demo Driving School"
	demoSchoolCity = "Lyon"
	demoOfferName  = "Classic Pack 20h"
	demoOfferHours = 20
	demoOfferPrice = 89900 // cents
)

// EnsureDemoCatalog seeds a demo school with one offer so a fresh install
// has something to book against.
func EnsureDemoCatalog(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		school, err := ensureDemoSchoolTx(ctx, tx, node)
		if err != nil {
			return err
		}
		return ensureDemoOfferTx(ctx, tx, node, school.ID)
	})
}

func ensureDemoSchoolTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) (*catalogdomain.School, error) {
	var school catalogdomain.School
	err := tx.WithContext(ctx).Where("name = ?", demoSchoolName).First(&school).Error
	if err == nil {
		return &school, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	now := time.Now().UTC()
	school = catalogdomain.School{
		ID:        node.Generate(),
		Name:      demoSchoolName,
		City:      demoSchoolCity,
		CreatedAt: now,
	}
	if err := tx.WithContext(ctx).Create(&school).Error; err != nil {
		return nil, err
	}
	return &school, nil
}

func ensureDemoOfferTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node, schoolID snowflake.ID) error {
	var offer catalogdomain.Offer
	err := tx.WithContext(ctx).Where("school_id = ? AND name = ?", schoolID, demoOfferName).First(&offer).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	now := time.Now().UTC()
	offer = catalogdomain.Offer{
		ID:        node.Generate(),
		SchoolID:  schoolID,
		Name:      demoOfferName,
		Hours:     demoOfferHours,
		Price:     demoOfferPrice,
		CreatedAt: now,
	}
	return tx.WithContext(ctx).Create(&offer).Error
}
