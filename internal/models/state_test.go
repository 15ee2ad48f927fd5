package models

import "testing"

func TestNewUserStateAllocatesContainers(t *testing.T) {
	st := NewUserState("user@test.com")
	if st.ChatHistory == nil || st.PlacementCalendar == nil || st.CompletedCompanies == nil {
		t.Error("All containers must be allocated for a new user")
	}
}

func TestEnsureContainers(t *testing.T) {
	// A decoded document with missing keys leaves nil maps behind
	st := &UserState{UserID: "user@test.com"}
	st.EnsureContainers()
	if st.ChatHistory == nil || st.PlacementCalendar == nil || st.CompletedCompanies == nil {
		t.Error("EnsureContainers must backfill every nil map")
	}

	st.ChatHistory["Session A"] = []ChatTurn{{Role: RoleUser, Content: "hi"}}
	st.EnsureContainers()
	if len(st.ChatHistory["Session A"]) != 1 {
		t.Error("EnsureContainers must not touch populated maps")
	}
}

func TestUserStateClone(t *testing.T) {
	st := NewUserState("user@test.com")
	st.ChatHistory["Session A"] = []ChatTurn{{Role: RoleUser, Content: "hi"}}
	st.PlacementCalendar["2026-03-10"] = []string{"Acme"}
	st.CompletedCompanies["2026-03-09"] = []string{"Globex"}
	st.ATSResult = "82/100"

	clone := st.Clone()

	// Mutate the original; the clone must not see it
	st.ChatHistory["Session A"][0].Content = "changed"
	st.ChatHistory["Session B"] = []ChatTurn{}
	st.PlacementCalendar["2026-03-10"] = append(st.PlacementCalendar["2026-03-10"], "Initech")
	st.ATSResult = "changed"

	if clone.ChatHistory["Session A"][0].Content != "hi" {
		t.Error("Clone must copy turn slices, not alias them")
	}
	if _, ok := clone.ChatHistory["Session B"]; ok {
		t.Error("Clone must copy the session map, not alias it")
	}
	if len(clone.PlacementCalendar["2026-03-10"]) != 1 {
		t.Error("Clone must copy company slices, not alias them")
	}
	if clone.ATSResult != "82/100" {
		t.Error("Clone must carry the scalar fields")
	}
}
