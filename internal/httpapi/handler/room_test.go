package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/vntrieu/werewolf/internal/game"
	"github.com/vntrieu/werewolf/internal/registry"
)

var testSecret = []byte("handler-test-secret")

func newRoomServer(t *testing.T) (*httptest.Server, *registry.Registry) {
	t.Helper()
	reg := registry.New(registry.Config{Rng: rand.New(rand.NewSource(1))})
	h := NewRoomHandler(reg, testSecret)
	r := chi.NewRouter()
	r.Post("/api/rooms", h.CreateRoom)
	r.Get("/api/rooms/{code}", h.GetRoom)
	r.Post("/api/rooms/{code}/join", h.JoinRoom)
	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server, reg
}

func postJSON(t *testing.T, url string, body interface{}) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(raw))
	if err != nil {
		t.Fatalf("post %s: %v", url, err)
	}
	return resp
}

func decodeRoomResponse(t *testing.T, resp *http.Response) RoomResponse {
	t.Helper()
	defer resp.Body.Close()
	var out RoomResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestCreateRoom(t *testing.T) {
	server, _ := newRoomServer(t)

	resp := postJSON(t, server.URL+"/api/rooms", CreateRoomRequest{DisplayName: "alice"})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	out := decodeRoomResponse(t, resp)
	if !regexp.MustCompile(`^[0-9]{5}$`).MatchString(out.Room.Code) {
		t.Errorf("room code = %q, want five digits", out.Room.Code)
	}
	if out.PlayerID == "" {
		t.Error("player_id missing from create response")
	}
	if out.Token == "" || out.ExpiresAt == nil {
		t.Error("create response should include a websocket token")
	}
}

func TestCreateRoomRejectsBadInput(t *testing.T) {
	server, _ := newRoomServer(t)

	resp, err := http.Post(server.URL+"/api/rooms", "application/json", bytes.NewReader([]byte("{not json")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed body status = %d, want 400", resp.StatusCode)
	}

	resp = postJSON(t, server.URL+"/api/rooms", CreateRoomRequest{DisplayName: "   "})
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("blank name status = %d, want 400", resp.StatusCode)
	}
}

func TestCreateRoomRejectsBadSettings(t *testing.T) {
	server, _ := newRoomServer(t)

	resp := postJSON(t, server.URL+"/api/rooms", CreateRoomRequest{
		DisplayName: "alice",
		Settings:    &game.Settings{NightSeconds: 1, DaySeconds: 90},
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad settings status = %d, want 400", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), "night_seconds") {
		t.Errorf("body = %q, want the offending field named", body)
	}
}

func TestJoinRoomFlow(t *testing.T) {
	server, _ := newRoomServer(t)

	created := decodeRoomResponse(t, postJSON(t, server.URL+"/api/rooms",
		CreateRoomRequest{DisplayName: "alice", Password: "hunter2"}))
	joinURL := server.URL + "/api/rooms/" + created.Room.Code + "/join"

	resp := postJSON(t, joinURL, JoinRoomRequest{DisplayName: "bob", Password: "wrong"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("wrong password status = %d, want 401", resp.StatusCode)
	}

	resp = postJSON(t, joinURL, JoinRoomRequest{DisplayName: "bob", Password: "hunter2"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("join status = %d, want 200", resp.StatusCode)
	}
	joined := decodeRoomResponse(t, resp)
	if joined.PlayerID == "" || joined.Token == "" {
		t.Error("join response should include player_id and token")
	}
	if len(joined.Room.Players) != 2 {
		t.Errorf("room players = %d, want 2", len(joined.Room.Players))
	}

	resp = postJSON(t, joinURL, JoinRoomRequest{DisplayName: "BOB", Password: "hunter2"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("duplicate name status = %d, want 409", resp.StatusCode)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	server, reg := newRoomServer(t)

	created, err := reg.CreateRoom("alice", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	// Any code other than the one room that exists.
	missing := "00000"
	if created.Code == missing {
		missing = "00001"
	}
	resp := postJSON(t, server.URL+"/api/rooms/"+missing+"/join", JoinRoomRequest{DisplayName: "bob"})
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unknown room status = %d, want 404", resp.StatusCode)
	}
}

func TestGetRoom(t *testing.T) {
	server, reg := newRoomServer(t)

	created, err := reg.CreateRoom("alice", "secret", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	resp, err := http.Get(server.URL + "/api/rooms/" + created.Code)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var info registry.RoomInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if info.Code != created.Code || !info.HasPassword || info.InGame {
		t.Errorf("room info = %+v", info)
	}

	bad, err := http.Get(server.URL + "/api/rooms/abcde")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Errorf("non-numeric code status = %d, want 400", bad.StatusCode)
	}
}
