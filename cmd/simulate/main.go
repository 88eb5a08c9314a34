// Simulate drives a proctor server with a scripted candidate: it creates a
// session, connects the signals socket and replays a sequence of browser
// events, printing every command and the resulting session state. Useful
// for exercising a running server without a real browser.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"github.com/proctorwatch/go-proctor/internal/httpc"
)

type event struct {
	Kind       string `json:"kind"`
	Visible    bool   `json:"visible,omitempty"`
	Fullscreen bool   `json:"fullscreen,omitempty"`
	Key        string `json:"key,omitempty"`
	Ctrl       bool   `json:"ctrl,omitempty"`
	Shift      bool   `json:"shift,omitempty"`
	Action     string `json:"action,omitempty"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
}

type metrics struct {
	InnerWidth  int  `json:"inner_width"`
	InnerHeight int  `json:"inner_height"`
	OuterWidth  int  `json:"outer_width"`
	OuterHeight int  `json:"outer_height"`
	Fullscreen  bool `json:"fullscreen"`
}

type signalMessage struct {
	Event   *event   `json:"event,omitempty"`
	Metrics *metrics `json:"metrics,omitempty"`
}

func main() {
	host := flag.String("host", "localhost:8090", "Proctor server host:port")
	pause := flag.Duration("pause", 300*time.Millisecond, "Delay between scripted events")
	flag.Parse()

	id, err := createSession(*host)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create session: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("session %s\n", id)

	url := fmt.Sprintf("ws://%s/ws/sessions/%s/signals", *host, id)
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		fmt.Fprintf(os.Stderr, "dial signals: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close()

	// Print fullscreen commands coming back from the monitor.
	go func() {
		for {
			var cmd map[string]string
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			fmt.Printf("<- %v\n", cmd)
		}
	}()

	script := []signalMessage{
		{Metrics: &metrics{InnerWidth: 1920, InnerHeight: 1080, OuterWidth: 1920, OuterHeight: 1160, Fullscreen: true}},
		{Event: &event{Kind: "visibility", Visible: false}},
		{Event: &event{Kind: "visibility", Visible: true}},
		{Event: &event{Kind: "blur"}},
		{Event: &event{Kind: "contextmenu"}},
		{Event: &event{Kind: "keydown", Key: "i", Ctrl: true, Shift: true}},
		{Event: &event{Kind: "clipboard", Action: "paste"}},
		{Event: &event{Kind: "resize", Width: 1700, Height: 1080}},
		{Event: &event{Kind: "fullscreen", Fullscreen: false}},
		{Event: &event{Kind: "visibility", Visible: false}},
		{Event: &event{Kind: "visibility", Visible: true}},
	}

	for _, msg := range script {
		if err := conn.WriteJSON(msg); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			os.Exit(1)
		}
		if msg.Event != nil {
			fmt.Printf("-> %s\n", msg.Event.Kind)
		}
		time.Sleep(*pause)
	}

	state, err := fetchState(*host, id)
	if err != nil {
		fmt.Fprintf(os.Stderr, "fetch state: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("final state: %s\n", state)
}

func createSession(host string) (string, error) {
	resp, err := httpc.Client.Post("http://"+host+"/api/sessions", "application/json", bytes.NewReader(nil))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var body struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.ID, nil
}

func fetchState(host, id string) (string, error) {
	resp, err := httpc.Client.Get(fmt.Sprintf("http://%s/api/sessions/%s", host, id))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return "", err
	}
	return buf.String(), nil
}
