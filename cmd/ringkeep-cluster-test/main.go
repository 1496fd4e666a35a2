// Command ringkeep-cluster-test drives the end-to-end convergence checks
// from §8 against a running multi-container cluster: it discovers sibling
// node containers on a Docker network, polls each one's /membership debug
// endpoint, and reports when every node's view of the cluster agrees.
//
// It does not start or stop containers itself — pair it with a
// docker-compose cluster and drive scenarios (stop a container to
// exercise the silent-crash path, send it a leave over its console to
// exercise the voluntary-leave path) from the outside while this command
// watches for convergence.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"ringkeep/internal/bootstrap"
)

type membershipResponse struct {
	ID         string   `json:"id"`
	Joined     bool     `json:"joined"`
	Membership []string `json:"membership"`
}

func main() {
	suffix := flag.String("suffix", "ringkeep-node", "container name substring identifying cluster nodes")
	network := flag.String("network", "ringkeep-net", "docker network the cluster runs on")
	httpPort := flag.Int("http-port", 8080, "debug HTTP port exposed by each node")
	pollInterval := flag.Duration("interval", 2*time.Second, "polling interval")
	settleTimeout := flag.Duration("timeout", 2*time.Minute, "maximum time to wait for convergence")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	boot, err := bootstrap.NewDockerBootstrap(*suffix, *httpPort, *network)
	if err != nil {
		log.Fatalf("init docker bootstrap: %v", err)
	}

	deadline := time.Now().Add(*settleTimeout)
	ticker := time.NewTicker(*pollInterval)
	defer ticker.Stop()

	client := &http.Client{Timeout: 5 * time.Second}

	for {
		select {
		case <-ctx.Done():
			log.Println("interrupted")
			return
		case <-ticker.C:
		}

		peers, err := boot.Discover(ctx)
		if err != nil {
			log.Printf("discover failed: %v", err)
			continue
		}
		if len(peers) == 0 {
			log.Println("no cluster nodes discovered yet")
			if time.Now().After(deadline) {
				log.Fatal("timed out waiting for cluster nodes to appear")
			}
			continue
		}

		views := make(map[string][]string, len(peers))
		for _, addr := range peers {
			view, err := fetchMembership(ctx, client, addr)
			if err != nil {
				log.Printf("%s: %v", addr, err)
				continue
			}
			views[addr] = view
		}

		converged := allAgree(views, len(peers))
		log.Printf("polled %d/%d nodes, converged=%v", len(views), len(peers), converged)
		for addr, view := range views {
			log.Printf("  %s -> %v", addr, view)
		}

		if converged {
			log.Println("cluster membership converged")
			return
		}
		if time.Now().After(deadline) {
			log.Fatal("timed out waiting for membership convergence")
		}
	}
}

func fetchMembership(ctx context.Context, client *http.Client, addr string) ([]string, error) {
	url := fmt.Sprintf("http://%s/membership", addr)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body membershipResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	sort.Strings(body.Membership)
	return body.Membership, nil
}

func allAgree(views map[string][]string, expectedCount int) bool {
	if len(views) != expectedCount {
		return false
	}
	var reference []string
	first := true
	for _, view := range views {
		if first {
			reference = view
			first = false
			continue
		}
		if !equalStrings(reference, view) {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
