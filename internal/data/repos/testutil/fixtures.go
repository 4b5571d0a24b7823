package testutil

import (
	"context"
	"testing"

	"gorm.io/gorm"

	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
)

func SeedActivity(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID int64, name string) *types.Activity {
	tb.Helper()
	a := &types.Activity{
		Course:  courseID,
		Name:    name,
		Intro:   "Intro for " + name,
		Visible: true,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed activity: %v", err)
	}
	return a
}

func SeedSection(tb testing.TB, ctx context.Context, tx *gorm.DB, wtid int64, name string, parent *int64, position int) *types.Section {
	tb.Helper()
	s := &types.Section{
		WTID:          wtid,
		Name:          name,
		ParentSection: parent,
		Position:      position,
		UserModified:  2,
	}
	if err := tx.WithContext(ctx).Create(s).Error; err != nil {
		tb.Fatalf("seed section: %v", err)
	}
	return s
}

func SeedItem(tb testing.TB, ctx context.Context, tx *gorm.DB, sectionID int64, name string, typ training.ItemType, position int, required bool) *types.SectionItem {
	tb.Helper()
	it := &types.SectionItem{
		SectionID:    sectionID,
		Name:         name,
		Description:  "Description for " + name,
		Type:         typ,
		Position:     position,
		IsRequired:   required,
		UserModified: 2,
	}
	if err := tx.WithContext(ctx).Create(it).Error; err != nil {
		tb.Fatalf("seed item: %v", err)
	}
	return it
}

func SeedConfig(tb testing.TB, ctx context.Context, tx *gorm.DB, itemID int64, name, value string) *types.ItemConfig {
	tb.Helper()
	c := &types.ItemConfig{ItemID: itemID, Name: name, Value: value}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed item config: %v", err)
	}
	return c
}

func SeedEvaluation(tb testing.TB, ctx context.Context, tx *gorm.DB, wtid, userID int64, version int, active bool) *types.Evaluation {
	tb.Helper()
	e := &types.Evaluation{
		WTID:         wtid,
		UserID:       userID,
		Version:      version,
		Active:       active,
		UserModified: userID,
	}
	if err := tx.WithContext(ctx).Create(e).Error; err != nil {
		tb.Fatalf("seed evaluation: %v", err)
	}
	return e
}

func SeedResponse(tb testing.TB, ctx context.Context, tx *gorm.DB, itemID, userID int64, version int, text string, completed bool) *types.Response {
	tb.Helper()
	r := &types.Response{
		ItemID:       itemID,
		UserID:       userID,
		Version:      version,
		Response:     text,
		Completed:    completed,
		UserModified: userID,
	}
	if err := tx.WithContext(ctx).Create(r).Error; err != nil {
		tb.Fatalf("seed response: %v", err)
	}
	return r
}

func PtrInt64(v int64) *int64 { return &v }
