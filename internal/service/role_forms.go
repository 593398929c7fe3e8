package service

import (
	"github.com/yakoovad/scrapyard-registration/internal/model"
	"github.com/yakoovad/scrapyard-registration/internal/notify"
	"github.com/yakoovad/scrapyard-registration/internal/validation"
)

// roleForm is the per-role half of a form submission.
type roleForm interface {
	decode(v *validation.Validator, raw []byte, teamID, personID string) (*model.Person, *Error)
	verificationKind() notify.Kind
}

type leaderForm struct{}

func (leaderForm) decode(v *validation.Validator, raw []byte, teamID, personID string) (*model.Person, *Error) {
	in, errs := v.DecodeLeader(raw)
	if len(errs) > 0 {
		return nil, NewValidationError(errs)
	}
	return in.Person(personID, teamID, model.RoleLeader), nil
}

func (leaderForm) verificationKind() notify.Kind {
	return notify.KindLeaderVerification
}

type memberForm struct{}

func (memberForm) decode(v *validation.Validator, raw []byte, teamID, personID string) (*model.Person, *Error) {
	in, errs := v.DecodeMember(raw)
	if len(errs) > 0 {
		return nil, NewValidationError(errs)
	}
	if in.IsLeader {
		return nil, NewError(ErrorCodeRoleStateConflict, "a member cannot claim the leader role")
	}
	return in.Person(personID, teamID, model.RoleMember), nil
}

func (memberForm) verificationKind() notify.Kind {
	return notify.KindMemberVerification
}

type teacherForm struct{}

func (teacherForm) decode(v *validation.Validator, raw []byte, teamID, personID string) (*model.Person, *Error) {
	in, errs := v.DecodeTeacher(raw)
	if len(errs) > 0 {
		return nil, NewValidationError(errs)
	}
	return in.Person(personID, teamID), nil
}

func (teacherForm) verificationKind() notify.Kind {
	return notify.KindMemberVerification
}

var roleForms = map[model.Role]roleForm{
	model.RoleLeader:  leaderForm{},
	model.RoleMember:  memberForm{},
	model.RoleTeacher: teacherForm{},
}
