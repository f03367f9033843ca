package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendText(t *testing.T) {
	var gotPath, gotKey string
	var gotBody map[string]string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("apikey")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewEvolutionClient(EvolutionConfig{
		BaseURL:  srv.URL,
		Instance: "jarbas",
		APIKey:   "secret",
	})

	err := client.SendText(context.Background(), "5511999@s.whatsapp.net", "olá!")
	if err != nil {
		t.Fatalf("SendText failed: %v", err)
	}
	if gotPath != "/message/sendText/jarbas" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Errorf("apikey header = %q", gotKey)
	}
	if gotBody["number"] != "5511999@s.whatsapp.net" || gotBody["text"] != "olá!" {
		t.Errorf("body = %v", gotBody)
	}
}

func TestSendTextServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "instance not connected", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewEvolutionClient(EvolutionConfig{BaseURL: srv.URL, Instance: "jarbas"})

	if err := client.SendText(context.Background(), "x", "y"); err == nil {
		t.Fatal("expected error on 502 response")
	}
}

func TestGroupParticipants(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/group/participants/jarbas" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if r.URL.Query().Get("groupJid") != "123@g.us" {
			t.Errorf("groupJid = %q", r.URL.Query().Get("groupJid"))
		}
		json.NewEncoder(w).Encode(map[string]any{
			"participants": []map[string]string{
				{"id": "5511999@s.whatsapp.net", "admin": "superadmin"},
				{"id": "5521888@s.whatsapp.net", "lid": "777@lid"},
			},
		})
	}))
	defer srv.Close()

	client := NewEvolutionClient(EvolutionConfig{BaseURL: srv.URL, Instance: "jarbas"})

	members, err := client.GroupParticipants(context.Background(), "123@g.us")
	if err != nil {
		t.Fatalf("GroupParticipants failed: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("got %d members, want 2", len(members))
	}
	if members[0].Admin != "superadmin" {
		t.Errorf("member 0 admin = %q", members[0].Admin)
	}
	if members[1].LID != "777@lid" {
		t.Errorf("member 1 lid = %q", members[1].LID)
	}
}

func TestDownloadMedia(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	}))
	defer srv.Close()

	client := NewEvolutionClient(EvolutionConfig{BaseURL: srv.URL, Instance: "jarbas"})

	got, err := client.DownloadMedia(context.Background(), srv.URL+"/media/abc.enc")
	if err != nil {
		t.Fatalf("DownloadMedia failed: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("payload mismatch: %v", got)
	}
}
