package validation

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fields(errs Errors) []string {
	out := make([]string, 0, len(errs))
	for _, fe := range errs {
		out = append(out, fe.Field)
	}
	return out
}

func validMember() map[string]any {
	return map[string]any{
		"name_en": "Wang Xiao Ming",
		"name_zh": "王小明",
		"grade":   "高中/職/專科二年級",
		"school":  "建國中學",
		"student_id": map[string]any{
			"card_front": "https://files.hackit.tw/front.png",
			"card_back":  "https://files.hackit.tw/back.png",
		},
		"shirt_size":                  "M",
		"telephone":                   "0912345678",
		"email":                       " Ming@Example.com ",
		"national_id":                 "a123456789",
		"emergency_contact_name":      "王大明",
		"emergency_contact_telephone": "0987654321",
		"emergency_contact_relation":  "父親",
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func TestValidNationalID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{id: "A123456789", valid: true},
		{id: "A800000014", valid: true},
		{id: "AA00000009", valid: true},
		{id: "A123456788", valid: false},
		{id: "A323456789", valid: false},
		{id: "1123456789", valid: false},
		{id: "A12345678", valid: false},
		{id: "A12345678X", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			assert.Equal(t, tt.valid, ValidNationalID(tt.id))
		})
	}
}

func TestDecodeTeam(t *testing.T) {
	v := New()

	tests := []struct {
		name         string
		payload      map[string]any
		expectFields []string
	}{
		{
			name:    "success trims name",
			payload: map[string]any{"team_name": "  廢料場  ", "team_size": 4, "learn_about_us": "社群媒體"},
		},
		{
			name:         "all problems reported at once",
			payload:      map[string]any{"team_name": "", "team_size": 6, "learn_about_us": "路人"},
			expectFields: []string{"team_name", "team_size", "learn_about_us"},
		},
		{
			name:         "name of 25 characters",
			payload:      map[string]any{"team_name": "abcdefghijklmnopqrstuvwxy", "team_size": 3, "learn_about_us": "其他"},
			expectFields: []string{"team_name"},
		},
		{
			name:         "size too small",
			payload:      map[string]any{"team_name": "ok", "team_size": 2, "learn_about_us": "其他"},
			expectFields: []string{"team_size"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, errs := v.DecodeTeam(mustJSON(t, tt.payload))
			if tt.expectFields == nil {
				require.Empty(t, errs)
				assert.Equal(t, "廢料場", got.TeamName)
				return
			}
			assert.Nil(t, got)
			assert.ElementsMatch(t, tt.expectFields, fields(errs))
		})
	}
}

func TestDecodeMember(t *testing.T) {
	v := New()

	t.Run("success normalizes", func(t *testing.T) {
		got, errs := v.DecodeMember(mustJSON(t, validMember()))
		require.Empty(t, errs)
		assert.Equal(t, "ming@example.com", got.Email)
		assert.Equal(t, "A123456789", got.NationalID)
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		p := validMember()
		p["favourite_colour"] = "blue"
		_, errs := v.DecodeMember(mustJSON(t, p))
		assert.Empty(t, errs)
	})

	t.Run("collects every error", func(t *testing.T) {
		p := validMember()
		p["grade"] = "大學一年級"
		p["shirt_size"] = "XXL"
		p["national_id"] = "A123456788"
		p["student_id"] = map[string]any{"card_front": "not a url", "card_back": "https://x.tw/b.png"}
		p["emergency_contact_relation"] = "這個關係描述實在是太長了吧"

		_, errs := v.DecodeMember(mustJSON(t, p))
		assert.ElementsMatch(t, []string{
			"grade", "shirt_size", "national_id", "student_id.card_front", "emergency_contact_relation",
		}, fields(errs))
	})

	t.Run("phone numbers have exactly ten digits", func(t *testing.T) {
		for _, phone := range []string{"0912345", "09123456789", "09-1234567"} {
			p := validMember()
			p["telephone"] = phone
			p["emergency_contact_telephone"] = phone
			_, errs := v.DecodeMember(mustJSON(t, p))
			assert.ElementsMatch(t, []string{"telephone", "emergency_contact_telephone"}, fields(errs), phone)
		}
	})

	t.Run("wrong type", func(t *testing.T) {
		p := validMember()
		p["telephone"] = 912345678
		_, errs := v.DecodeMember(mustJSON(t, p))
		assert.Equal(t, []string{"telephone"}, fields(errs))
	})

	t.Run("not an object", func(t *testing.T) {
		_, errs := v.DecodeMember([]byte(`["a"]`))
		assert.Len(t, errs, 1)
	})
}

func TestDecodeLeader(t *testing.T) {
	v := New()

	t.Run("declared keys only", func(t *testing.T) {
		p := validMember()
		p["is_leader"] = true
		_, errs := v.DecodeLeader(mustJSON(t, p))
		assert.Empty(t, errs)
	})

	t.Run("every unknown key reported", func(t *testing.T) {
		p := validMember()
		p["status"] = "已接受"
		p["email_verified"] = true
		p["student_id"] = map[string]any{
			"card_front": "https://x.tw/f.png",
			"card_back":  "https://x.tw/b.png",
			"extra":      "x",
		}
		_, errs := v.DecodeLeader(mustJSON(t, p))
		assert.ElementsMatch(t, []string{"status", "email_verified", "student_id.extra"}, fields(errs))
	})
}

func TestDecodeTeacher(t *testing.T) {
	v := New()
	payload := map[string]any{
		"name_en":     "Chen",
		"name_zh":     "陳老師",
		"school":      "建國中學",
		"telephone":   "0223456789",
		"email":       "chen@school.edu.tw",
		"national_id": "A123456789",
	}

	_, errs := v.DecodeTeacher(mustJSON(t, payload))
	assert.Equal(t, []string{"will_attend"}, fields(errs))

	payload["will_attend"] = false
	got, errs := v.DecodeTeacher(mustJSON(t, payload))
	require.Empty(t, errs)
	assert.False(t, *got.WillAttend)

	person := got.Person("t1", "team-1")
	assert.Equal(t, false, person.Profile["will_attend"])

	for _, phone := range []string{"0223456", "02234567890"} {
		payload["telephone"] = phone
		_, errs = v.DecodeTeacher(mustJSON(t, payload))
		assert.Equal(t, []string{"telephone"}, fields(errs), phone)
	}
}

func TestDecodeAffidavits(t *testing.T) {
	v := New()

	got, errs := v.DecodeAffidavits([]byte(`{"team_affidavit":"https://x.tw/a.pdf","parents_affidavit":"https://x.tw/p.pdf","team_name":" 新名字 "}`))
	require.Empty(t, errs)
	assert.Equal(t, "新名字", *got.TeamName)

	_, errs = v.DecodeAffidavits([]byte(`{"team_affidavit":"nope","team_name":"  "}`))
	assert.ElementsMatch(t, []string{"team_affidavit", "parents_affidavit", "team_name"}, fields(errs))
}

func TestDecodeReview(t *testing.T) {
	v := New()

	_, errs := v.DecodeReview([]byte(`{"_id":"team-1","review":"approve"}`))
	assert.Empty(t, errs)

	_, errs = v.DecodeReview([]byte(`{"_id":"team-1","review":"rejected"}`))
	assert.Equal(t, []string{"reason"}, fields(errs))

	_, errs = v.DecodeReview([]byte(`{"_id":"team-1","review":"maybe"}`))
	assert.Equal(t, []string{"review"}, fields(errs))
}
