// Command plancheck verifies that regenerating a week against a running API
// is idempotent: two back-to-back generation runs must yield the same plan
// for every checked user, modulo volatile fields like block IDs.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"reflect"
	"strings"
	"time"
)

// Regeneration reissues row IDs for unlocked blocks, so these keys carry no
// signal when comparing runs.
var volatileKeys = map[string]struct{}{
	"id":           {},
	"planId":       {},
	"groupBlockId": {},
	"createdAt":    {},
	"updatedAt":    {},
}

type snapshot struct {
	userID string
	body   interface{}
}

func main() {
	var (
		base    string
		prefix  string
		week    string
		users   string
		timeout time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080", "API base URL")
	flag.StringVar(&prefix, "prefix", "/api/v1", "API route prefix")
	flag.StringVar(&week, "week", "", "target week start (YYYY-MM-DD); defaults to next week")
	flag.StringVar(&users, "users", "", "comma-separated user IDs to verify")
	flag.DurationVar(&timeout, "timeout", 30*time.Second, "HTTP client timeout")
	flag.Parse()

	userIDs := splitUsers(users)
	if len(userIDs) == 0 {
		log.Fatal("at least one user ID is required (-users)")
	}
	if week == "" {
		week = time.Now().UTC().AddDate(0, 0, 7).Format("2006-01-02")
	}

	client := &http.Client{Timeout: timeout}
	root := strings.TrimRight(base, "/") + prefix

	first, err := generateAndSnapshot(client, root, week, userIDs)
	if err != nil {
		log.Fatalf("first run failed: %v", err)
	}
	second, err := generateAndSnapshot(client, root, week, userIDs)
	if err != nil {
		log.Fatalf("second run failed: %v", err)
	}

	diffs := 0
	fmt.Printf("Plan idempotency check, week %s\n", week)
	for i, snap := range first {
		if reflect.DeepEqual(snap.body, second[i].body) {
			fmt.Printf("[OK]   %s\n", snap.userID)
			continue
		}
		diffs++
		fmt.Printf("[DIFF] %s\n", snap.userID)
	}

	fmt.Printf("Users checked: %d, diffs: %d\n", len(first), diffs)
	if diffs > 0 {
		os.Exit(1)
	}
}

func generateAndSnapshot(client *http.Client, root, week string, userIDs []string) ([]snapshot, error) {
	payload, _ := json.Marshal(map[string]string{"weekStart": week})
	resp, err := client.Post(root+"/plans/generate", "application/json", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("generate: %w", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()              //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("generate returned status %d", resp.StatusCode)
	}

	snaps := make([]snapshot, 0, len(userIDs))
	for _, userID := range userIDs {
		body, err := fetchPlan(client, root, userID, week)
		if err != nil {
			return nil, fmt.Errorf("fetch plan for %s: %w", userID, err)
		}
		snaps = append(snaps, snapshot{userID: userID, body: body})
	}
	return snaps, nil
}

func fetchPlan(client *http.Client, root, userID, week string) (interface{}, error) {
	resp, err := client.Get(fmt.Sprintf("%s/plans/%s?weekStart=%s", root, userID, week))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	var body interface{}
	if err := json.Unmarshal(raw, &body); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	normalize(&body)
	return body, nil
}

func normalize(v *interface{}) {
	switch val := (*v).(type) {
	case map[string]interface{}:
		for key := range val {
			if _, volatile := volatileKeys[key]; volatile {
				delete(val, key)
			}
		}
		for k, v2 := range val {
			normalize(&v2)
			val[k] = v2
		}
	case []interface{}:
		for i, v2 := range val {
			normalize(&v2)
			val[i] = v2
		}
	case float64:
		if val == float64(int64(val)) {
			*v = int64(val)
		}
	}
}

func splitUsers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
