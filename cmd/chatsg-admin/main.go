// ABOUTME: Operator CLI for inspecting a running chatsg-core server.
// ABOUTME: Prints dispatch stats, cache contents, session flags, and session history.

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

var serverURL string

func main() {
	flag.StringVar(&serverURL, "server", "http://localhost:8080", "chatsg-core server URL")
	flag.Parse()

	args := flag.Args()
	if len(args) < 1 {
		usage()
		os.Exit(1)
	}

	var err error
	switch args[0] {
	case "stats":
		err = showStats()
	case "sessions":
		err = showSessions()
	case "history":
		if len(args) < 2 {
			err = fmt.Errorf("usage: chatsg-admin history <session-id>")
		} else {
			err = showHistory(args[1])
		}
	default:
		usage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("Usage: chatsg-admin [-server URL] <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  stats                 show dispatch and cache statistics")
	fmt.Println("  sessions              list sessions and their flags")
	fmt.Println("  history <session-id>  show persisted turns for a session")
}

// get fetches a JSON endpoint into out.
func get(path string, out any) error {
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(serverURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type statsPayload struct {
	Dispatch struct {
		Created         uint64 `json:"created"`
		Evicted         uint64 `json:"evicted"`
		Hits            uint64 `json:"hits"`
		Misses          uint64 `json:"misses"`
		Responses       uint64 `json:"responses"`
		AvgResponseTime int64  `json:"avg_response_time_ns"`
	} `json:"dispatch"`
	Cache []struct {
		AgentType  string    `json:"agent_type"`
		LastUsedAt time.Time `json:"last_used_at"`
		UseCount   int       `json:"use_count"`
	} `json:"cache"`
}

func showStats() error {
	var stats statsPayload
	if err := get("/api/stats", &stats); err != nil {
		return err
	}

	cyan := color.New(color.FgCyan)
	green := color.New(color.FgGreen)

	cyan.Println("Dispatch")
	fmt.Printf("  created: %d  evicted: %d\n", stats.Dispatch.Created, stats.Dispatch.Evicted)
	fmt.Printf("  hits: %d  misses: %d\n", stats.Dispatch.Hits, stats.Dispatch.Misses)
	fmt.Printf("  responses: %d  avg: %s\n",
		stats.Dispatch.Responses, time.Duration(stats.Dispatch.AvgResponseTime))

	cyan.Println("Cache")
	if len(stats.Cache) == 0 {
		fmt.Println("  (empty)")
		return nil
	}
	for _, e := range stats.Cache {
		green.Printf("  %s", e.AgentType)
		fmt.Printf("  uses=%d  last_used=%s\n", e.UseCount, e.LastUsedAt.Format(time.RFC3339))
	}
	return nil
}

type sessionPayload struct {
	SessionID       string `json:"session_id"`
	InFlight        bool   `json:"in_flight"`
	HasUnseenOutput bool   `json:"has_unseen_output"`
	LastAgentType   string `json:"last_agent_type"`
	LastError       string `json:"last_error"`
}

func showSessions() error {
	var sessions []sessionPayload
	if err := get("/api/sessions", &sessions); err != nil {
		return err
	}

	if len(sessions) == 0 {
		fmt.Println("No sessions.")
		return nil
	}

	yellow := color.New(color.FgYellow)
	green := color.New(color.FgGreen)
	for _, s := range sessions {
		fmt.Printf("%s  ", s.SessionID)
		if s.InFlight {
			yellow.Print("working")
		} else {
			green.Print("idle")
		}
		if s.HasUnseenOutput {
			fmt.Print("  [new output]")
		}
		if s.LastAgentType != "" {
			fmt.Printf("  agent=%s", s.LastAgentType)
		}
		if s.LastError != "" {
			color.New(color.FgRed).Printf("  error=%s", s.LastError)
		}
		fmt.Println()
	}
	return nil
}

type historyPayload struct {
	SessionID string `json:"session_id"`
	Turns     []struct {
		AgentType string `json:"agent_type"`
		Input     string `json:"input"`
		Response  string `json:"response"`
		Error     string `json:"error"`
		CreatedAt string `json:"created_at"`
	} `json:"turns"`
}

func showHistory(sessionID string) error {
	var hist historyPayload
	if err := get("/api/sessions/"+sessionID+"/history", &hist); err != nil {
		return err
	}

	if len(hist.Turns) == 0 {
		fmt.Println("No turns recorded.")
		return nil
	}

	cyan := color.New(color.FgCyan)
	for _, turn := range hist.Turns {
		cyan.Printf("[%s] %s\n", turn.CreatedAt, turn.AgentType)
		fmt.Printf("  > %s\n", turn.Input)
		if turn.Error != "" {
			color.New(color.FgRed).Printf("  ! %s\n", turn.Error)
			continue
		}
		fmt.Printf("  %s\n", turn.Response)
	}
	return nil
}
