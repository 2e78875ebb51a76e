package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"chapter-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestRankingLiveStream(t *testing.T) {
	env := newTestEnv(t)
	alice := env.login(t, "alice")
	id := env.createChapter(t, alice, mathForm())
	path := "/chapters/" + strconv.FormatInt(id, 10)

	serverURL, _ := url.Parse(env.server.URL)
	header := http.Header{}
	for _, c := range alice.Jar.Cookies(serverURL) {
		header.Add("Cookie", c.String())
	}

	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + path + "/ranking/live"
	conn, _, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	initial := readRanking(t, conn)
	if len(initial.Entries) != 0 {
		t.Fatalf("expected empty initial ranking, got %+v", initial.Entries)
	}

	resp, err := alice.Get(env.server.URL + path + "/quiz")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	var quiz domain.Quiz
	decode(t, resp, &quiz)
	qid := strconv.FormatInt(quiz.Questions[0].ID, 10)

	resp, err = alice.PostForm(env.server.URL+path+"/quiz", url.Values{"answers[" + qid + "]": {"B"}})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	resp.Body.Close()

	update := readRanking(t, conn)
	if len(update.Entries) != 1 || update.Entries[0].DisplayName != "Alice" || update.Entries[0].Rank != 1 {
		t.Fatalf("unexpected live ranking %+v", update.Entries)
	}
}

func TestRankingLiveRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	u := "ws" + strings.TrimPrefix(env.server.URL, "http") + "/chapters/1/ranking/live"
	_, resp, err := websocket.DefaultDialer.Dial(u, nil)
	if err == nil {
		t.Fatalf("expected dial to fail without a session")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %+v", resp)
	}
}

func readRanking(t *testing.T, conn *websocket.Conn) domain.Ranking {
	t.Helper()
	var msg outboundMessage[domain.Ranking]
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if msg.Type != "ranking" {
		t.Fatalf("expected ranking message, got %s", msg.Type)
	}
	return msg.Payload
}
