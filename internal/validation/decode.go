package validation

import (
	"bytes"
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

type intake interface {
	normalize()
}

// decode unmarshals raw into T, normalizes it and validates it. When strict is
// set, keys that T does not declare are reported as errors too.
func decode[T any, PT interface {
	*T
	intake
}](v *Validator, raw []byte, strict bool) (*T, Errors) {
	var out T
	var errs Errors

	if !isObject(raw) {
		return nil, Errors{{Field: "", Message: "must be a JSON object"}}
	}

	if strict {
		errs = append(errs, unknownFields(raw, reflect.TypeOf(out), "")...)
	}

	if err := json.Unmarshal(raw, &out); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, Errors{{Field: "", Message: "malformed JSON"}}
		}
		errs = append(errs, FieldError{Field: typeErr.Field, Message: "has the wrong type"})
	}

	PT(&out).normalize()

	seen := make(map[string]bool, len(errs))
	for _, fe := range errs {
		seen[fe.Field] = true
	}
	for _, fe := range v.Struct(&out) {
		if !seen[fe.Field] {
			errs = append(errs, fe)
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return &out, nil
}

func isObject(raw []byte) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

func unknownFields(raw []byte, t reflect.Type, prefix string) Errors {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil
	}

	known := make(map[string]reflect.Type, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			continue
		}
		known[name] = f.Type
	}

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var errs Errors
	for _, k := range keys {
		ft, ok := known[k]
		if !ok {
			errs = append(errs, FieldError{Field: prefix + k, Message: "is not allowed"})
			continue
		}
		if ft.Kind() == reflect.Struct && isObject(obj[k]) {
			errs = append(errs, unknownFields(obj[k], ft, prefix+k+".")...)
		}
	}
	return errs
}

func (v *Validator) DecodeTeam(raw []byte) (*TeamIntake, Errors) {
	return decode[TeamIntake](v, raw, false)
}

func (v *Validator) DecodeMember(raw []byte) (*MemberIntake, Errors) {
	return decode[MemberIntake](v, raw, false)
}

// DecodeLeader uses the member schema but rejects undeclared keys.
func (v *Validator) DecodeLeader(raw []byte) (*MemberIntake, Errors) {
	return decode[MemberIntake](v, raw, true)
}

func (v *Validator) DecodeTeacher(raw []byte) (*TeacherIntake, Errors) {
	return decode[TeacherIntake](v, raw, false)
}

func (v *Validator) DecodeAffidavits(raw []byte) (*AffidavitsIntake, Errors) {
	return decode[AffidavitsIntake](v, raw, false)
}

func (v *Validator) DecodeTeamName(raw []byte) (*TeamNameIntake, Errors) {
	return decode[TeamNameIntake](v, raw, false)
}

func (v *Validator) DecodeReview(raw []byte) (*ReviewIntake, Errors) {
	return decode[ReviewIntake](v, raw, false)
}
