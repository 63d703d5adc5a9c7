package main

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/omochice/trovo-chat/pkg/api"
	"github.com/omochice/trovo-chat/pkg/chat"
	"github.com/omochice/trovo-chat/pkg/protocol"
)

func TestPrintEvent(t *testing.T) {
	tests := []struct {
		name string
		ev   protocol.ChatEvent
		want string
	}{
		{
			name: "normal message",
			ev:   protocol.ChatEvent{Kind: protocol.KindNormal, NickName: "alice", Content: "hello"},
			want: "[alice]: hello\n",
		},
		{
			name: "follow",
			ev:   protocol.ChatEvent{Kind: protocol.KindFollow, NickName: "bob"},
			want: "*** bob followed the channel ***\n",
		},
		{
			name: "welcome",
			ev:   protocol.ChatEvent{Kind: protocol.KindWelcome, NickName: "carol"},
			want: "*** carol joined the chat ***\n",
		},
		{
			name: "other kind",
			ev:   protocol.ChatEvent{Kind: protocol.KindRaid, NickName: "dave", Content: "raided"},
			want: "*** dave [RAID]: raided ***\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			printEvent(&buf, tt.ev)
			if buf.String() != tt.want {
				t.Errorf("printEvent() = %q, want %q", buf.String(), tt.want)
			}
		})
	}
}

func TestPrintUser(t *testing.T) {
	var buf bytes.Buffer
	printUser(&buf, &api.User{Username: "alice", ChannelID: "10"}, &api.ChannelInfo{IsLive: true, LiveTitle: "hi"})

	out := buf.String()
	for _, want := range []string{"Username:   alice", "Channel ID: 10", "Live:       true", "Title:      hi"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestMetricsRouter(t *testing.T) {
	reg := prometheus.NewRegistry()
	chat.NewMetrics(reg)

	server := httptest.NewServer(metricsRouter(reg))
	defer server.Close()

	resp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("failed to get metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "trovo_chat_events_delivered_total") {
		t.Errorf("expected chat metrics in output, got:\n%s", body)
	}

	health, err := http.Get(server.URL + "/healthz")
	if err != nil {
		t.Fatalf("failed to get healthz: %v", err)
	}
	health.Body.Close()
	if health.StatusCode != http.StatusOK {
		t.Errorf("expected status 200, got %d", health.StatusCode)
	}
}

func TestListenRequiresTarget(t *testing.T) {
	a := &app{}
	cmd := listenCmd(a)
	cmd.SetArgs([]string{})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)

	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "--user") {
		t.Errorf("expected missing target error, got %v", err)
	}
}
