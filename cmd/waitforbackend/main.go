// Command waitforbackend blocks until the LinkUp backend answers HTTP and, when
// DATABASE_URL is set, until the credential database accepts connections.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/lib/pq"
)

func main() {
	baseURL := os.Getenv("LINKUP_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:80/api"
	}

	timeout := 60 * time.Second
	if raw := os.Getenv("WAIT_FOR_BACKEND_TIMEOUT_SEC"); raw != "" {
		secs, err := strconv.Atoi(raw)
		if err != nil || secs <= 0 {
			fmt.Fprintf(os.Stderr, "invalid WAIT_FOR_BACKEND_TIMEOUT_SEC: %q\n", raw)
			os.Exit(2)
		}
		timeout = time.Duration(secs) * time.Second
	}
	deadline := time.Now().Add(timeout)

	client := &http.Client{Timeout: 2 * time.Second}
	wait("backend", deadline, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/users/profile", nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err != nil {
			return err
		}
		resp.Body.Close()
		// 401 means the backend is up and enforcing sessions.
		if resp.StatusCode >= 500 {
			return fmt.Errorf("status %d", resp.StatusCode)
		}
		return nil
	})

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		return
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open postgres: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	wait("postgres", deadline, db.PingContext)
}

func wait(name string, deadline time.Time, probe func(context.Context) error) {
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		err := probe(ctx)
		cancel()
		if err == nil {
			fmt.Printf("%s ready\n", name)
			return
		}
		if time.Now().After(deadline) {
			fmt.Fprintf(os.Stderr, "%s not ready before deadline: %v\n", name, err)
			os.Exit(1)
		}
		time.Sleep(2 * time.Second)
	}
}
