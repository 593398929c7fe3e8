package service

import (
	"context"

	"github.com/yakoovad/scrapyard-registration/internal/config"
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/repository"
)

// VerificationGate decides whether every required party of a team has verified their email.
// It always reads fresh person records.
type VerificationGate struct {
	persons repository.PersonRepository
	policy  config.TeacherPolicy
}

func NewVerificationGate(persons repository.PersonRepository, policy config.TeacherPolicy) *VerificationGate {
	if policy == "" {
		policy = config.TeacherRequired
	}
	return &VerificationGate{
		persons: persons,
		policy:  policy,
	}
}

func (g *VerificationGate) required(team *model.Team, byID map[string]*model.Person) []string {
	ids := team.StudentIDs()

	switch g.policy {
	case config.TeacherRequired:
		ids = append(ids, team.TeacherID)
	case config.TeacherIfSubmitted:
		if _, ok := byID[team.TeacherID]; ok {
			ids = append(ids, team.TeacherID)
		}
	}
	return ids
}

func (g *VerificationGate) Check(ctx context.Context, team *model.Team) (*model.VerificationView, error) {
	persons, err := g.persons.ListByTeam(ctx, team.ID)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*model.Person, len(persons))
	for _, p := range persons {
		byID[p.ID] = p
	}

	view := &model.VerificationView{
		AllVerified: true,
		Verified:    make(map[string]bool),
		Names:       make(map[string]string),
		Outstanding: []string{},
	}

	for _, id := range g.required(team, byID) {
		p, ok := byID[id]
		verified := ok && p.EmailVerified

		view.Verified[id] = verified
		if ok {
			view.Names[id] = p.DisplayName()
		}
		if !verified {
			view.AllVerified = false
			view.Outstanding = append(view.Outstanding, id)
		}
	}

	return view, nil
}
