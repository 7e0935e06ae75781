package handlers

import (
	"encoding/json"
	"net/http"
	"testing"

	"syntrad-backend/dtos"
	"syntrad-backend/upstream"
)

func TestProfileRoutesRequireToken(t *testing.T) {
	r := setupProfileRouter(&fakeAPI{})
	for _, path := range []string{"/api/user/profile", "/api/orders/my", "/api/appointments/my-appointments"} {
		if w := serve(r, jsonRequest("GET", path, nil)); w.Code != http.StatusUnauthorized {
			t.Errorf("%s: expected 401, got %d", path, w.Code)
		}
	}
}

func TestGetProfileRelaysUpstream(t *testing.T) {
	api := &fakeAPI{profile: json.RawMessage(`{"user":{"username":"jo","email":"jo@example.com","role":"customer"}}`)}
	token := signToken(t, "customer")

	w := serve(setupProfileRouter(api), authRequest("GET", "/api/user/profile", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	user, _ := parseResponse(w)["user"].(map[string]interface{})
	if user["username"] != "jo" {
		t.Errorf("expected upstream profile, got %s", w.Body.String())
	}
	if len(api.tokens) != 1 || api.tokens[0] != token {
		t.Errorf("expected the customer's token forwarded, got %v", api.tokens)
	}
}

func TestUpdateProfile(t *testing.T) {
	api := &fakeAPI{}
	r := setupProfileRouter(api)
	token := signToken(t, "customer")

	w := serve(r, authRequest("POST", "/api/user/profile", map[string]string{"name": "Jo B"}, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if len(api.profileUpdates) != 1 || api.profileUpdates[0].Name != "Jo B" {
		t.Errorf("expected update forwarded, got %+v", api.profileUpdates)
	}

	tests := []struct {
		name string
		body map[string]string
		want string
	}{
		{"nothing to change", map[string]string{}, "Nothing to update"},
		{"new password without current", map[string]string{"newPassword": "longenough"}, "currentpassword is required"},
		{"short password", map[string]string{"currentPassword": "old", "newPassword": "short"}, "newpassword must be at least 8 characters"},
		{"bad image", map[string]string{"profileImage": "not a url"}, "profileimage must be a valid URL"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := serve(r, authRequest("POST", "/api/user/profile", tt.body, token))
			if w.Code != http.StatusBadRequest || parseResponse(w)["error"] != tt.want {
				t.Errorf("expected 400 %q, got %d %s", tt.want, w.Code, w.Body.String())
			}
		})
	}
	if len(api.profileUpdates) != 1 {
		t.Errorf("rejected updates must not reach the API, got %d", len(api.profileUpdates))
	}
}

func TestMyOrdersAndAppointmentsCountStatuses(t *testing.T) {
	api := &fakeAPI{
		myOrders:       []dtos.Record{record("o1", "pending"), record("o2", "delivered"), record("o3", "pending")},
		myAppointments: []dtos.Record{record("a1", "confirmed"), record("a2", "completed")},
	}
	r := setupProfileRouter(api)
	token := signToken(t, "customer")

	w := serve(r, authRequest("GET", "/api/orders/my", nil, token))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := parseResponse(w)
	counts, _ := body["status_counts"].(map[string]interface{})
	if len(body["orders"].([]interface{})) != 3 || counts["pending"] != float64(2) || counts["delivered"] != float64(1) {
		t.Errorf("unexpected orders response %v", body)
	}

	w = serve(r, authRequest("GET", "/api/appointments/my-appointments", nil, token))
	body = parseResponse(w)
	counts, _ = body["status_counts"].(map[string]interface{})
	if len(body["appointments"].([]interface{})) != 2 || counts["confirmed"] != float64(1) || counts["completed"] != float64(1) {
		t.Errorf("unexpected appointments response %v", body)
	}
}

func TestMyOrdersEmptyAndUpstreamErrors(t *testing.T) {
	token := signToken(t, "customer")

	w := serve(setupProfileRouter(&fakeAPI{}), authRequest("GET", "/api/orders/my", nil, token))
	if w.Code != http.StatusOK || w.Body.String() != `{"orders":[],"status_counts":{}}` {
		t.Errorf("expected empty lists, got %d %s", w.Code, w.Body.String())
	}

	w = serve(setupProfileRouter(&fakeAPI{err: &upstream.APIError{StatusCode: 401, Message: "Token expired"}}),
		authRequest("GET", "/api/appointments/my-appointments", nil, token))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected upstream 401 passed through, got %d", w.Code)
	}

	w = serve(setupProfileRouter(&fakeAPI{err: errUpstreamDown}), authRequest("GET", "/api/user/profile", nil, token))
	if w.Code != http.StatusBadGateway {
		t.Errorf("expected 502 when the API is down, got %d", w.Code)
	}
}
