// Standalone client that polls a running node's /api/hello.
//
// Usage:
//
//	go run ./example/cmd/probe http://127.0.0.1:8000
//
// Start a node first, for example:
//
//	go run ./example
package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var stateNames = []string{"down", "up", "req", "ready"}

type hello struct {
	Eth             int    `json:"eth"`
	FramesReceived  uint64 `json:"frames_received"`
	FramesSent      uint64 `json:"frames_sent"`
	FramesDropped   uint64 `json:"frames_dropped"`
	InterfaceErrors uint64 `json:"interface_errors"`
}

func main() {
	base := "http://127.0.0.1:8000"
	if len(os.Args) > 1 {
		base = os.Args[1]
	}

	client := &http.Client{Timeout: 2 * time.Second}
	for {
		h, err := fetch(client, base+"/api/hello")
		if err != nil {
			fmt.Fprintf(os.Stderr, "probe: %v\n", err)
		} else {
			state := "unknown"
			if h.Eth >= 0 && h.Eth < len(stateNames) {
				state = stateNames[h.Eth]
			}
			fmt.Printf("%s  eth=%-5s rx=%d tx=%d dr=%d er=%d\n",
				time.Now().Format(time.TimeOnly), state,
				h.FramesReceived, h.FramesSent, h.FramesDropped, h.InterfaceErrors)
		}
		time.Sleep(time.Second)
	}
}

func fetch(client *http.Client, url string) (hello, error) {
	var h hello
	resp, err := client.Get(url)
	if err != nil {
		return h, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return h, fmt.Errorf("unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(body, &h); err != nil {
		return h, fmt.Errorf("decoding response: %w", err)
	}
	return h, nil
}
