// Package main provides a CLI for driving the playback server.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/joho/godotenv"

	"github.com/vibefm/vibefm/internal/domain/track"
)

var (
	app    = kingpin.New("playerctl", "vibefm playback control client")
	server = app.Flag("server", "Server address").Default("http://localhost:8080").String()

	// status command
	statusCmd = app.Command("status", "Show the current player state")

	// play command
	playCmd    = app.Command("play", "Search for a track and play it")
	playQuery  = playCmd.Arg("query", "Search query (artist and title)").Required().Strings()
	playArtist = playCmd.Flag("artist", "Override the artist field").String()

	// transport commands
	toggleCmd = app.Command("toggle", "Toggle play/pause")
	nextCmd   = app.Command("next", "Skip to the next track")
	prevCmd   = app.Command("prev", "Go back to the previous track")

	// seek command
	seekCmd     = app.Command("seek", "Seek to an absolute position")
	seekSeconds = seekCmd.Arg("seconds", "Position in seconds").Required().Float64()

	// volume command
	volumeCmd   = app.Command("volume", "Set playback volume")
	volumeValue = volumeCmd.Arg("volume", "Volume between 0 and 1").Required().Float64()

	// mode commands
	shuffleCmd = app.Command("shuffle", "Toggle shuffle mode")
	repeatCmd  = app.Command("repeat", "Cycle repeat mode")

	// queue command
	queueCmd = app.Command("queue", "Show the queue")

	// recent command
	recentCmd = app.Command("recent", "Show recently played tracks")
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	c := &client{base: *server, http: &http.Client{Timeout: 30 * time.Second}}

	switch command {
	case statusCmd.FullCommand():
		printState(c.do("/api/player/state", nil, "GET"))
	case playCmd.FullCommand():
		play(c, strings.Join(*playQuery, " "), *playArtist)
	case toggleCmd.FullCommand():
		printState(c.do("/api/player/toggle", nil, "POST"))
	case nextCmd.FullCommand():
		printState(c.do("/api/player/next", nil, "POST"))
	case prevCmd.FullCommand():
		printState(c.do("/api/player/previous", nil, "POST"))
	case seekCmd.FullCommand():
		printState(c.do("/api/player/seek", map[string]any{"seconds": *seekSeconds}, "POST"))
	case volumeCmd.FullCommand():
		printState(c.do("/api/player/volume", map[string]any{"volume": *volumeValue}, "POST"))
	case shuffleCmd.FullCommand():
		printRaw(c.do("/api/player/shuffle", nil, "POST"))
	case repeatCmd.FullCommand():
		printRaw(c.do("/api/player/repeat", nil, "POST"))
	case queueCmd.FullCommand():
		printQueue(c.do("/api/player/state", nil, "GET"))
	case recentCmd.FullCommand():
		printTracks(c.do("/api/recent", nil, "GET"))
	}
}

type client struct {
	base string
	http *http.Client
}

// post sends a request and returns the decoded body, exiting on any
// transport or API error.
func (c *client) do(path string, body any, method string) json.RawMessage {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			fatal("failed to encode request: %v", err)
		}
		reader = strings.NewReader(string(data))
	}

	req, err := http.NewRequest(method, c.base+path, reader)
	if err != nil {
		fatal("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		fatal("request failed: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		fatal("failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			fatal("server error: %s", apiErr.Error)
		}
		fatal("server returned status %d", resp.StatusCode)
	}

	return data
}

type stateDoc struct {
	State        string        `json:"state"`
	Track        *track.Track  `json:"track"`
	Queue        []track.Track `json:"queue"`
	CurrentIndex int           `json:"currentIndex"`
	IsPlaying    bool          `json:"isPlaying"`
	CurrentTime  float64       `json:"currentTime"`
	Duration     float64       `json:"duration"`
	Volume       float64       `json:"volume"`
	Shuffle      bool          `json:"shuffle"`
	Repeat       string        `json:"repeat"`
	LastError    string        `json:"lastError"`
}

func play(c *client, query, artist string) {
	t := track.Track{ID: "manual:" + query, Title: query, Artist: artist}
	data := c.do("/api/player/play", map[string]any{"track": t}, "POST")
	printState(data)
}

func printState(data json.RawMessage) {
	var s stateDoc
	if err := json.Unmarshal(data, &s); err != nil {
		fatal("unexpected response: %v", err)
	}

	if s.Track == nil {
		fmt.Printf("State: %s (no track loaded)\n", s.State)
		return
	}

	indicator := "⏸"
	if s.IsPlaying {
		indicator = "▶"
	}
	fmt.Printf("%s %s - %s\n", indicator, s.Track.Artist, s.Track.Title)
	fmt.Printf("   %s / %s  state=%s volume=%.0f%%\n",
		formatTime(s.CurrentTime), formatTime(s.Duration), s.State, s.Volume*100)
	if s.Shuffle || s.Repeat != "none" {
		fmt.Printf("   shuffle=%v repeat=%s\n", s.Shuffle, s.Repeat)
	}
	if s.LastError != "" {
		fmt.Printf("   last error: %s\n", s.LastError)
	}
}

func formatTime(seconds float64) string {
	total := int(seconds)
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

func printQueue(data json.RawMessage) {
	var s stateDoc
	if err := json.Unmarshal(data, &s); err != nil {
		fatal("unexpected response: %v", err)
	}
	if len(s.Queue) == 0 {
		fmt.Println("Queue is empty")
		return
	}
	for i, t := range s.Queue {
		marker := "  "
		if i == s.CurrentIndex {
			marker = "> "
		}
		fmt.Printf("%s%2d. %s - %s\n", marker, i+1, t.Artist, t.Title)
	}
}

func printTracks(data json.RawMessage) {
	var tracks []track.Track
	if err := json.Unmarshal(data, &tracks); err != nil {
		fatal("unexpected response: %v", err)
	}
	if len(tracks) == 0 {
		fmt.Println("Nothing played yet")
		return
	}
	for i, t := range tracks {
		fmt.Printf("%2d. %s - %s\n", i+1, t.Artist, t.Title)
	}
}

func printRaw(data json.RawMessage) {
	fmt.Println(strings.TrimSpace(string(data)))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}
