package services

import (
	"context"
	"sort"

	"gorm.io/gorm"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/training"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"
)

type ItemInput struct {
	Name        string            `json:"name" validate:"required,max=255"`
	Description string            `json:"description"`
	Type        training.ItemType `json:"type" validate:"required,oneof=textinput selectmenu datepicker fileupload"`
	IsRequired  bool              `json:"isrequired"`
	Position    *int              `json:"position" validate:"omitempty,gte=0"`
	Configs     map[string]string `json:"configs"`
}

// ItemPatch updates an item in place. The type is fixed at creation.
type ItemPatch struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	IsRequired  *bool   `json:"isrequired"`
	SectionID   *int64  `json:"sectionid"`
	Position    *int    `json:"position" validate:"omitempty,gte=0"`
}

var itemMessages = fieldMessages{
	"name.required": "Item name is required",
	"name.max":      "Item name must be at most 255 characters",
	"type.required": "Item type is required",
	"type.oneof":    "Unknown item type",
	"position":      "Position must not be negative",
}

type ItemService interface {
	Create(ctx context.Context, sectionID int64, in ItemInput) (*ItemView, error)
	Get(ctx context.Context, id int64) (*ItemView, error)
	Update(ctx context.Context, id int64, patch ItemPatch) (*ItemView, error)
	ReplaceConfigs(ctx context.Context, id int64, cfg map[string]string) (*ItemView, error)
	Delete(ctx context.Context, id int64) error
}

type itemService struct {
	log         *logger.Logger
	tx          aggregates.TxRunner
	sections    repos.SectionRepo
	items       repos.SectionItemRepo
	itemConfigs repos.ItemConfigRepo
	cascade     cascade
}

func NewItemService(
	db *gorm.DB,
	baseLog *logger.Logger,
	sections repos.SectionRepo,
	items repos.SectionItemRepo,
	itemConfigs repos.ItemConfigRepo,
	responses repos.ResponseRepo,
	files filestore.Store,
) ItemService {
	return &itemService{
		log:         baseLog.With("service", "ItemService"),
		tx:          aggregates.NewGormTxRunner(db),
		sections:    sections,
		items:       items,
		itemConfigs: itemConfigs,
		cascade: cascade{
			sections:    sections,
			items:       items,
			itemConfigs: itemConfigs,
			responses:   responses,
			files:       files,
		},
	}
}

func loadItem(dbc dbctx.Context, repo repos.SectionItemRepo, op string, id int64) (*types.SectionItem, error) {
	it, err := repo.GetByID(dbc, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if it == nil {
		return nil, domainagg.NotFound(op, "item")
	}
	return it, nil
}

func configRows(itemID int64, cfg map[string]string) []*types.ItemConfig {
	names := make([]string, 0, len(cfg))
	for k := range cfg {
		names = append(names, k)
	}
	sort.Strings(names)
	rows := make([]*types.ItemConfig, 0, len(names))
	for _, k := range names {
		rows = append(rows, &types.ItemConfig{ItemID: itemID, Name: k, Value: cfg[k]})
	}
	return rows
}

func configMap(rows []*types.ItemConfig) map[string]string {
	out := make(map[string]string, len(rows))
	for _, c := range rows {
		out[c.Name] = c.Value
	}
	return out
}

func (s *itemService) view(dbc dbctx.Context, op string, id int64) (*ItemView, error) {
	it, err := loadItem(dbc, s.items, op, id)
	if err != nil {
		return nil, err
	}
	cfgs, err := s.itemConfigs.ListByItem(dbc, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return &ItemView{SectionItem: it, Configs: configMap(cfgs)}, nil
}

func (s *itemService) Create(ctx context.Context, sectionID int64, in ItemInput) (*ItemView, error) {
	const op = "item.Create"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return nil, err
	}
	trimPtr(&in.Name)
	if err := validateInput(op, in, itemMessages); err != nil {
		return nil, err
	}
	if in.Configs == nil {
		in.Configs = map[string]string{}
	}
	if bad := checkConfigs(in.Type, in.Configs); len(bad) > 0 {
		return nil, domainagg.Validation(op, bad)
	}
	var out *ItemView
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if _, err := loadSection(dbc, s.sections, op, sectionID); err != nil {
			return err
		}
		pos := 0
		if in.Position != nil {
			pos = *in.Position
		} else {
			next, err := s.items.NextPosition(dbc, sectionID)
			if err != nil {
				return aggregates.MapError(op, err)
			}
			pos = next
		}
		row := &types.SectionItem{
			SectionID:    sectionID,
			Name:         in.Name,
			Description:  in.Description,
			Type:         in.Type,
			Position:     pos,
			IsRequired:   in.IsRequired,
			UserModified: access.CurrentUserID(ctx),
		}
		if _, err := s.items.Create(dbc, []*types.SectionItem{row}); err != nil {
			return aggregates.MapError(op, err)
		}
		if len(in.Configs) > 0 {
			if _, err := s.itemConfigs.Create(dbc, configRows(row.ID, in.Configs)); err != nil {
				return aggregates.MapError(op, err)
			}
		}
		out = &ItemView{SectionItem: row, Configs: in.Configs}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *itemService) Get(ctx context.Context, id int64) (*ItemView, error) {
	const op = "item.Get"
	if err := access.Require(ctx, op, access.CapView); err != nil {
		return nil, err
	}
	return s.view(dbctx.Context{Ctx: ctx}, op, id)
}

func (s *itemService) Update(ctx context.Context, id int64, patch ItemPatch) (*ItemView, error) {
	const op = "item.Update"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return nil, err
	}
	trimPtr(patch.Name)
	if patch.Name != nil && *patch.Name == "" {
		return nil, domainagg.Validation(op, map[string]string{"name": itemMessages["name.required"]})
	}
	if err := validateInput(op, patch, itemMessages); err != nil {
		return nil, err
	}
	var out *ItemView
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		it, err := loadItem(dbc, s.items, op, id)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{"usermodified": access.CurrentUserID(ctx)}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.Description != nil {
			updates["description"] = *patch.Description
		}
		if patch.IsRequired != nil {
			updates["isrequired"] = *patch.IsRequired
		}
		if patch.SectionID != nil && *patch.SectionID != it.SectionID {
			from, err := loadSection(dbc, s.sections, op, it.SectionID)
			if err != nil {
				return err
			}
			to, err := loadSection(dbc, s.sections, op, *patch.SectionID)
			if err != nil {
				return err
			}
			if to.WTID != from.WTID {
				return domainagg.Validation(op, map[string]string{"sectionid": "Target section must belong to the same activity"})
			}
			updates["sectionid"] = to.ID
			if patch.Position == nil {
				next, err := s.items.NextPosition(dbc, to.ID)
				if err != nil {
					return aggregates.MapError(op, err)
				}
				updates["position"] = next
			}
		}
		if patch.Position != nil {
			updates["position"] = *patch.Position
		}
		if err := s.items.UpdateFields(dbc, id, updates); err != nil {
			return aggregates.MapError(op, err)
		}
		out, err = s.view(dbc, op, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *itemService) ReplaceConfigs(ctx context.Context, id int64, cfg map[string]string) (*ItemView, error) {
	const op = "item.ReplaceConfigs"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = map[string]string{}
	}
	var out *ItemView
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		it, err := loadItem(dbc, s.items, op, id)
		if err != nil {
			return err
		}
		if bad := checkConfigs(it.Type, cfg); len(bad) > 0 {
			return domainagg.Validation(op, bad)
		}
		if _, err := s.itemConfigs.ReplaceForItem(dbc, id, configRows(id, cfg)); err != nil {
			return aggregates.MapError(op, err)
		}
		out = &ItemView{SectionItem: it, Configs: cfg}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *itemService) Delete(ctx context.Context, id int64) error {
	const op = "item.Delete"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		it, err := loadItem(dbc, s.items, op, id)
		if err != nil {
			return err
		}
		sec, err := loadSection(dbc, s.sections, op, it.SectionID)
		if err != nil {
			return err
		}
		if err := s.cascade.deleteItems(dbc, sec.WTID, []*types.SectionItem{it}); err != nil {
			return aggregates.MapError(op, err)
		}
		return nil
	})
}
