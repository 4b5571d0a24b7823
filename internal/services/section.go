package services

import (
	"context"

	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/access"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/data/repos"
	types "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain"
	domainagg "github.com/PelorusLabs/moodle-mod-workplacetraining/internal/domain/aggregates"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/filestore"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/dbctx"
	"github.com/PelorusLabs/moodle-mod-workplacetraining/internal/platform/logger"

	"gorm.io/gorm"
)

type SectionInput struct {
	Name          string `json:"name" validate:"required,max=255"`
	ParentSection *int64 `json:"parentsection"`
	Position      *int   `json:"position" validate:"omitempty,gte=0"`
}

// SectionPatch renames and/or moves a section. Move is applied when
// MoveParent is true; ParentSection nil then moves it to the top level.
type SectionPatch struct {
	Name          *string `json:"name" validate:"omitempty,max=255"`
	MoveParent    bool    `json:"moveparent"`
	ParentSection *int64  `json:"parentsection"`
	Position      *int    `json:"position" validate:"omitempty,gte=0"`
}

var sectionMessages = fieldMessages{
	"name.required": "Section name is required",
	"name.max":      "Section name must be at most 255 characters",
	"position":      "Position must not be negative",
}

type SectionService interface {
	Create(ctx context.Context, wtid int64, in SectionInput) (*types.Section, error)
	Update(ctx context.Context, id int64, patch SectionPatch) (*types.Section, error)
	Delete(ctx context.Context, id int64) error
	Tree(ctx context.Context, wtid int64) ([]*SectionNode, error)
}

type sectionService struct {
	log         *logger.Logger
	tx          aggregates.TxRunner
	activities  repos.ActivityRepo
	sections    repos.SectionRepo
	items       repos.SectionItemRepo
	itemConfigs repos.ItemConfigRepo
	cascade     cascade
}

func NewSectionService(
	db *gorm.DB,
	baseLog *logger.Logger,
	activities repos.ActivityRepo,
	sections repos.SectionRepo,
	items repos.SectionItemRepo,
	itemConfigs repos.ItemConfigRepo,
	responses repos.ResponseRepo,
	files filestore.Store,
) SectionService {
	return &sectionService{
		log:         baseLog.With("service", "SectionService"),
		tx:          aggregates.NewGormTxRunner(db),
		activities:  activities,
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

func loadSection(dbc dbctx.Context, repo repos.SectionRepo, op string, id int64) (*types.Section, error) {
	s, err := repo.GetByID(dbc, id)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	if s == nil {
		return nil, domainagg.NotFound(op, "section")
	}
	return s, nil
}

// checkParent enforces that parent exists in the same activity.
func (s *sectionService) checkParent(dbc dbctx.Context, op string, wtid int64, parent *int64) error {
	if parent == nil {
		return nil
	}
	p, err := s.sections.GetByID(dbc, *parent)
	if err != nil {
		return aggregates.MapError(op, err)
	}
	if p == nil || p.WTID != wtid {
		return domainagg.Validation(op, map[string]string{"parentsection": "Parent section must belong to the same activity"})
	}
	return nil
}

func (s *sectionService) Create(ctx context.Context, wtid int64, in SectionInput) (*types.Section, error) {
	const op = "section.Create"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return nil, err
	}
	trimPtr(&in.Name)
	if err := validateInput(op, in, sectionMessages); err != nil {
		return nil, err
	}
	var out *types.Section
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		if _, err := loadActivity(dbc, s.activities, op, wtid); err != nil {
			return err
		}
		if err := s.checkParent(dbc, op, wtid, in.ParentSection); err != nil {
			return err
		}
		pos := 0
		if in.Position != nil {
			pos = *in.Position
		} else {
			next, err := s.sections.NextPosition(dbc, wtid, in.ParentSection)
			if err != nil {
				return aggregates.MapError(op, err)
			}
			pos = next
		}
		row := &types.Section{
			WTID:          wtid,
			Name:          in.Name,
			ParentSection: in.ParentSection,
			Position:      pos,
			UserModified:  access.CurrentUserID(ctx),
		}
		if _, err := s.sections.Create(dbc, []*types.Section{row}); err != nil {
			return aggregates.MapError(op, err)
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *sectionService) Update(ctx context.Context, id int64, patch SectionPatch) (*types.Section, error) {
	const op = "section.Update"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return nil, err
	}
	trimPtr(patch.Name)
	if patch.Name != nil && *patch.Name == "" {
		return nil, domainagg.Validation(op, map[string]string{"name": sectionMessages["name.required"]})
	}
	if err := validateInput(op, patch, sectionMessages); err != nil {
		return nil, err
	}
	var out *types.Section
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		sec, err := loadSection(dbc, s.sections, op, id)
		if err != nil {
			return err
		}
		updates := map[string]interface{}{"usermodified": access.CurrentUserID(ctx)}
		if patch.Name != nil {
			updates["name"] = *patch.Name
		}
		if patch.MoveParent {
			if patch.ParentSection != nil {
				if *patch.ParentSection == sec.ID {
					return domainagg.Validation(op, map[string]string{"parentsection": "A section cannot be its own parent"})
				}
				if err := s.checkParent(dbc, op, sec.WTID, patch.ParentSection); err != nil {
					return err
				}
				all, err := s.sections.ListByActivity(dbc, sec.WTID)
				if err != nil {
					return aggregates.MapError(op, err)
				}
				if isDescendant(all, sec.ID, *patch.ParentSection) {
					return domainagg.Validation(op, map[string]string{"parentsection": "A section cannot move under its own subsection"})
				}
			}
			if err := s.sections.SetParent(dbc, id, patch.ParentSection); err != nil {
				return aggregates.MapError(op, err)
			}
			if patch.Position == nil {
				next, err := s.sections.NextPosition(dbc, sec.WTID, patch.ParentSection)
				if err != nil {
					return aggregates.MapError(op, err)
				}
				updates["position"] = next
			}
		}
		if patch.Position != nil {
			updates["position"] = *patch.Position
		}
		if err := s.sections.UpdateFields(dbc, id, updates); err != nil {
			return aggregates.MapError(op, err)
		}
		out, err = loadSection(dbc, s.sections, op, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete removes the section and its subsections with all their items.
func (s *sectionService) Delete(ctx context.Context, id int64) error {
	const op = "section.Delete"
	if err := access.Require(ctx, op, access.CapManage); err != nil {
		return err
	}
	return s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		sec, err := loadSection(dbc, s.sections, op, id)
		if err != nil {
			return err
		}
		if err := s.cascade.deleteSections(dbc, sec.WTID, []int64{sec.ID}); err != nil {
			return aggregates.MapError(op, err)
		}
		return nil
	})
}

func (s *sectionService) Tree(ctx context.Context, wtid int64) ([]*SectionNode, error) {
	const op = "section.Tree"
	if err := access.Require(ctx, op, access.CapView); err != nil {
		return nil, err
	}
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := loadActivity(dbc, s.activities, op, wtid); err != nil {
		return nil, err
	}
	return loadTree(dbc, op, wtid, s.sections, s.items, s.itemConfigs)
}

func loadTree(dbc dbctx.Context, op string, wtid int64, sections repos.SectionRepo, items repos.SectionItemRepo, itemConfigs repos.ItemConfigRepo) ([]*SectionNode, error) {
	secs, err := sections.ListByActivity(dbc, wtid)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	ids := make([]int64, 0, len(secs))
	for _, sec := range secs {
		ids = append(ids, sec.ID)
	}
	its, err := items.ListBySectionIDs(dbc, ids)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	itemIDs := make([]int64, 0, len(its))
	for _, it := range its {
		itemIDs = append(itemIDs, it.ID)
	}
	cfgs, err := itemConfigs.ListByItemIDs(dbc, itemIDs)
	if err != nil {
		return nil, aggregates.MapError(op, err)
	}
	return buildTree(secs, its, cfgs), nil
}
