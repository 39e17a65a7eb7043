package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"knowledge-race/internal/domain"
)

func TestRESTMatchLifecycle(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(), RouterOptions{}))
	defer server.Close()

	var created domain.MatchSnapshot
	status := doJSON(t, http.MethodPost, server.URL+"/matches", map[string]any{
		"teams": []map[string]any{{"id": "red", "name": "Red"}, {"id": "blue", "name": "Blue"}},
	}, &created)
	if status != http.StatusCreated {
		t.Fatalf("expected 201, got %d", status)
	}
	base := server.URL + "/matches/" + created.MatchID

	var snap domain.MatchSnapshot
	if status := doJSON(t, http.MethodPost, base+"/teams", map[string]any{"id": "green", "name": "Green"}, &snap); status != http.StatusCreated {
		t.Fatalf("add team: %d", status)
	}
	if status := doJSON(t, http.MethodPatch, base+"/teams/green", map[string]any{"name": "Emerald"}, &snap); status != http.StatusOK {
		t.Fatalf("update team: %d", status)
	}
	if len(snap.Teams) != 3 || snap.Teams[2].Name != "Emerald" {
		t.Fatalf("unexpected roster %+v", snap.Teams)
	}

	if status := doJSON(t, http.MethodPost, base+"/start", map[string]any{"count": 1}, &snap); status != http.StatusOK {
		t.Fatalf("start: %d", status)
	}
	if snap.Phase != domain.PhasePlaying || snap.Round == nil {
		t.Fatalf("expected playing snapshot, got %+v", snap)
	}

	// Roster is locked once play begins.
	if status := doJSON(t, http.MethodDelete, base+"/teams/green", nil, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 on roster edit, got %d", status)
	}

	var ack answerResponse
	doJSON(t, http.MethodPost, base+"/answers", map[string]any{"teamId": "red", "optionIndex": 1}, &ack)
	if !ack.Accepted {
		t.Fatalf("expected answer accepted")
	}
	doJSON(t, http.MethodPost, base+"/answers", map[string]any{"teamId": "blue", "optionIndex": 9}, &ack)
	if ack.Accepted {
		t.Fatalf("expected out of range answer to be ignored")
	}

	if status := doJSON(t, http.MethodPost, base+"/confirm", nil, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 before reveal, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, base+"/reveal", nil, &snap); status != http.StatusOK {
		t.Fatalf("reveal: %d", status)
	}

	var confirmed confirmResponse
	if status := doJSON(t, http.MethodPost, base+"/confirm", nil, &confirmed); status != http.StatusOK {
		t.Fatalf("confirm: %d", status)
	}
	if len(confirmed.Results) != 3 || !confirmed.Results[0].Correct {
		t.Fatalf("unexpected results %+v", confirmed.Results)
	}

	if status := doJSON(t, http.MethodPost, base+"/advance", nil, &snap); status != http.StatusOK {
		t.Fatalf("advance: %d", status)
	}
	if snap.Phase != domain.PhaseFinished {
		t.Fatalf("expected game over, got %s", snap.Phase)
	}
	if snap.Leaderboard[0].TeamID != "red" || snap.Leaderboard[0].Score != 100 {
		t.Fatalf("unexpected leaderboard %+v", snap.Leaderboard)
	}

	if status := doJSON(t, http.MethodPost, base+"/restart", nil, &snap); status != http.StatusOK {
		t.Fatalf("restart: %d", status)
	}
	if snap.Phase != domain.PhaseSetup || len(snap.Teams) != 3 {
		t.Fatalf("expected setup with roster kept, got %+v", snap)
	}

	if status := doJSON(t, http.MethodDelete, base, nil, nil); status != http.StatusNoContent {
		t.Fatalf("delete: %d", status)
	}
	if status := doJSON(t, http.MethodGet, base, nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", status)
	}
}

func TestRESTDefaultsAndErrors(t *testing.T) {
	server := httptest.NewServer(NewRouter(newTestService(), RouterOptions{}))
	defer server.Close()

	var created domain.MatchSnapshot
	doJSON(t, http.MethodPost, server.URL+"/matches", nil, &created)
	if len(created.Teams) != 2 || created.Teams[0].Name != "Atlas Lions" {
		t.Fatalf("expected default roster, got %+v", created.Teams)
	}
	base := server.URL + "/matches/" + created.MatchID

	if status := doJSON(t, http.MethodPost, base+"/reveal", nil, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 on reveal in setup, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, base+"/teams", map[string]any{"id": "1", "name": "Clone"}, nil); status != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate team, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, base+"/teams", map[string]any{"name": ""}, nil); status != http.StatusBadRequest {
		t.Fatalf("expected 400 on nameless team, got %d", status)
	}
	if status := doJSON(t, http.MethodPatch, base+"/teams/ghost", map[string]any{"name": "x"}, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 on unknown team, got %d", status)
	}
	if status := doJSON(t, http.MethodPost, server.URL+"/matches/missing/start", nil, nil); status != http.StatusNotFound {
		t.Fatalf("expected 404 on unknown match, got %d", status)
	}

	req, _ := http.NewRequest(http.MethodPost, base+"/answers", bytes.NewBufferString("{"))
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad body, got %d", resp.StatusCode)
	}
}

func TestBoardURL(t *testing.T) {
	service := newTestService()
	req := httptest.NewRequest(http.MethodGet, "http://race.local:8080/matches/m1/qr", nil)

	withBoard := &API{service: service, publicURL: "https://race.example.org/board"}
	if got := withBoard.boardURL(req, "m1"); got != "https://race.example.org/board/m1" {
		t.Fatalf("expected board front-end url, got %s", got)
	}

	fallback := &API{service: service}
	if got := fallback.boardURL(req, "m1"); got != "http://race.local:8080/matches/m1" {
		t.Fatalf("expected request host fallback, got %s", got)
	}
	req.Header.Set("X-Forwarded-Proto", "https")
	if got := fallback.boardURL(req, "m1"); got != "https://race.local:8080/matches/m1" {
		t.Fatalf("expected forwarded scheme, got %s", got)
	}
}

func TestQRCodeAndHealth(t *testing.T) {
	service := newTestService()
	server := httptest.NewServer(NewRouter(service, RouterOptions{PublicURL: "https://race.example.org/"}))
	defer server.Close()

	match := createTestMatch(t, service)
	resp, err := http.Get(server.URL + "/matches/" + match.MatchID + "/qr")
	if err != nil {
		t.Fatalf("get qr: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected qr response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(body, []byte("\x89PNG")) {
		t.Fatalf("expected png body")
	}

	resp, err = http.Get(server.URL + "/matches/missing/qr")
	if err != nil {
		t.Fatalf("get qr: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown match qr, got %d", resp.StatusCode)
	}

	resp, err = http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected healthy, got %d", resp.StatusCode)
	}
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s: %v", method, url, err)
		}
	}
	return resp.StatusCode
}
