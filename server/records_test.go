package server

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/simtrack/simtrack/provider"
)

func TestChallenges_RequireSession(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "GET", "/api/challenges", "", reqOpts{addr: "10.6.0.1:1234"})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Authentication required" {
		t.Errorf("error = %v", got)
	}
}

func TestChallenges_CRUD(t *testing.T) {
	env := newTestEnv(t)
	session := env.signedIn(t, "vlad@example.com")
	token := env.csrfToken(t)
	opts := reqOpts{csrf: token, session: session, addr: "10.6.1.1:1234"}

	var id string

	t.Run("create", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/challenges",
			`{"name":"100 Baby Challenge","packs":["Growing Together"],"rules":[{"title":"No hired help"}]}`,
			opts)
		if rr.Code != http.StatusCreated {
			t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
		}

		var ch provider.Challenge
		if err := json.NewDecoder(rr.Body).Decode(&ch); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ch.ID == "" {
			t.Error("expected generated id")
		}
		if ch.OwnerUID != "uid-vlad@example.com" {
			t.Errorf("ownerUid = %q", ch.OwnerUID)
		}
		if ch.CreatedAt.IsZero() || ch.UpdatedAt.IsZero() {
			t.Error("expected timestamps")
		}
		id = ch.ID
	})

	t.Run("list", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/challenges", "", opts)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var list []*provider.Challenge
		if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(list) != 1 || list[0].ID != id {
			t.Errorf("list = %v", list)
		}
	})

	t.Run("get", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/challenges/"+id, "", opts)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
	})

	t.Run("update", func(t *testing.T) {
		rr := env.do(t, "PUT", "/api/challenges/"+id,
			`{"name":"100 Baby Challenge v2"}`, opts)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
		}
		var ch provider.Challenge
		if err := json.NewDecoder(rr.Body).Decode(&ch); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ch.Name != "100 Baby Challenge v2" {
			t.Errorf("name = %q", ch.Name)
		}
	})

	t.Run("delete", func(t *testing.T) {
		rr := env.do(t, "DELETE", "/api/challenges/"+id, "", opts)
		if rr.Code != http.StatusNoContent {
			t.Fatalf("status = %d", rr.Code)
		}
		if _, ok := env.data.challenges[id]; ok {
			t.Error("challenge still present")
		}
	})

	t.Run("missing name rejected", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/challenges", `{"description":"nameless"}`, opts)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rr.Code)
		}
		if got := decodeBody(t, rr)["field"]; got != "name" {
			t.Errorf("field = %v", got)
		}
	})
}

func TestChallenges_OwnershipHidesExistence(t *testing.T) {
	env := newTestEnv(t)
	session := env.signedIn(t, "vlad@example.com")
	token := env.csrfToken(t)

	env.data.challenges["theirs"] = &provider.Challenge{
		ID: "theirs", OwnerUID: "uid-someone-else", Name: "Rags to Riches",
	}

	for _, tc := range []struct {
		method, path, body string
	}{
		{"GET", "/api/challenges/theirs", ""},
		{"PUT", "/api/challenges/theirs", `{"name":"mine now"}`},
		{"DELETE", "/api/challenges/theirs", ""},
	} {
		rr := env.do(t, tc.method, tc.path, tc.body,
			reqOpts{csrf: token, session: session, addr: "10.6.2.1:1234"})
		if rr.Code != http.StatusNotFound {
			t.Errorf("%s %s: status = %d, want 404", tc.method, tc.path, rr.Code)
		}
	}
}

func TestSims_LinkAndUnlink(t *testing.T) {
	env := newTestEnv(t)
	session := env.signedIn(t, "vlad@example.com")
	token := env.csrfToken(t)
	opts := reqOpts{csrf: token, session: session, addr: "10.6.3.1:1234"}

	now := time.Now().UTC()
	env.data.challenges["ch1"] = &provider.Challenge{
		ID: "ch1", OwnerUID: "uid-vlad@example.com", Name: "Legacy", CreatedAt: now, UpdatedAt: now,
	}
	env.data.challenges["ch2"] = &provider.Challenge{
		ID: "ch2", OwnerUID: "uid-someone-else", Name: "Not Yours", CreatedAt: now, UpdatedAt: now,
	}
	env.data.sims["sim1"] = &provider.Sim{
		ID: "sim1", OwnerUID: "uid-vlad@example.com", Name: "Bella", CreatedAt: now, UpdatedAt: now,
	}

	t.Run("link to owned challenge", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/sims/sim1/link", `{"challengeId":"ch1"}`, opts)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
		}
		if got := env.data.sims["sim1"].ChallengeID; got != "ch1" {
			t.Errorf("challengeId = %q", got)
		}
	})

	t.Run("link to foreign challenge is not found", func(t *testing.T) {
		rr := env.do(t, "POST", "/api/sims/sim1/link", `{"challengeId":"ch2"}`, opts)
		if rr.Code != http.StatusNotFound {
			t.Fatalf("status = %d", rr.Code)
		}
		if got := env.data.sims["sim1"].ChallengeID; got != "ch1" {
			t.Errorf("link changed to %q", got)
		}
	})

	t.Run("unlink", func(t *testing.T) {
		rr := env.do(t, "DELETE", "/api/sims/sim1/link", "", opts)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		if got := env.data.sims["sim1"].ChallengeID; got != "" {
			t.Errorf("challengeId = %q, want cleared", got)
		}
	})
}

func TestSims_TraitLimit(t *testing.T) {
	env := newTestEnv(t)
	session := env.signedIn(t, "vlad@example.com")
	token := env.csrfToken(t)

	rr := env.do(t, "POST", "/api/sims",
		`{"name":"Bella","traits":["Cheerful","Genius","Ambitious","Clumsy"]}`,
		reqOpts{csrf: token, session: session, addr: "10.6.4.1:1234"})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for four traits", rr.Code)
	}
	if got := decodeBody(t, rr)["field"]; got != "traits" {
		t.Errorf("field = %v", got)
	}
}

func TestPreferences(t *testing.T) {
	env := newTestEnv(t)
	session := env.signedIn(t, "vlad@example.com")
	token := env.csrfToken(t)
	opts := reqOpts{csrf: token, session: session, addr: "10.6.5.1:1234"}

	t.Run("defaults when unset", func(t *testing.T) {
		rr := env.do(t, "GET", "/api/preferences", "", opts)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d", rr.Code)
		}
		var p provider.Preferences
		if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.UID != "uid-vlad@example.com" || p.Theme != "system" {
			t.Errorf("got %+v", p)
		}
	})

	t.Run("put then get", func(t *testing.T) {
		rr := env.do(t, "PUT", "/api/preferences",
			`{"theme":"dark","defaultPacks":["Seasons"]}`, opts)
		if rr.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rr.Code, rr.Body.String())
		}

		rr = env.do(t, "GET", "/api/preferences", "", opts)
		var p provider.Preferences
		if err := json.NewDecoder(rr.Body).Decode(&p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.Theme != "dark" || len(p.DefaultPacks) != 1 {
			t.Errorf("got %+v", p)
		}
	})

	t.Run("unknown theme rejected", func(t *testing.T) {
		rr := env.do(t, "PUT", "/api/preferences", `{"theme":"neon"}`, opts)
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rr.Code)
		}
		if got := decodeBody(t, rr)["field"]; got != "theme" {
			t.Errorf("field = %v", got)
		}
	})
}

func TestProtectedWrites_RequireCSRF(t *testing.T) {
	env := newTestEnv(t)
	session := env.signedIn(t, "vlad@example.com")

	rr := env.do(t, "POST", "/api/challenges", `{"name":"Legacy"}`,
		reqOpts{session: session, addr: "10.6.6.1:1234"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rr.Code)
	}
}

func TestUpstreamFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	session := env.signedIn(t, "vlad@example.com")
	env.data.failErr = provider.ErrUnavailable

	rr := env.do(t, "GET", "/api/challenges", "", reqOpts{session: session, addr: "10.6.7.1:1234"})
	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rr.Code)
	}
	if got := decodeBody(t, rr)["error"]; got != "Something went wrong" {
		t.Errorf("error = %v", got)
	}
}
