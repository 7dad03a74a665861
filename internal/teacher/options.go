package teacher

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/etbur/eschool-portal/internal/models"
)

// Options are the picker lists served by the teacher utility endpoints.
type Options struct {
	Subjects   []models.AvailableSubject `json:"subjects"`
	Sections   []models.AvailableSection `json:"sections"`
	GradeTypes []models.GradeTypeOption  `json:"grade_types"`
}

// Options fetches the three picker lists in parallel. The first failure cancels the rest.
func (p *Provider) Options(ctx context.Context) (*Options, error) {
	ctx, done := p.scope(ctx)
	defer done()

	out := &Options{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		out.Subjects, err = p.api.AvailableSubjects(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.Sections, err = p.api.AvailableSections(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		out.GradeTypes, err = p.api.GradeTypes(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if out.Subjects == nil {
		out.Subjects = []models.AvailableSubject{}
	}
	if out.Sections == nil {
		out.Sections = []models.AvailableSection{}
	}
	if out.GradeTypes == nil {
		out.GradeTypes = []models.GradeTypeOption{}
	}
	return out, nil
}
