// Command loadgen fires concurrent adds for one item against a running server
// and reports how many increments were lost. With ATOMIC_UPDATES=false on the
// server the read-modify-write race shows up as lost updates.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

type item struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	totalRequests := flag.Int("n", 50, "number of concurrent adds")
	flag.Parse()

	name := "loadgen-" + uuid.NewString()[:8]
	body, _ := json.Marshal(map[string]string{"name": name})
	client := &http.Client{Timeout: 10 * time.Second}

	var successCount atomic.Int32
	var failCount atomic.Int32

	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < *totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			resp, err := client.Post(*baseURL+"/api/items", "application/json", bytes.NewReader(body))
			if err != nil {
				failCount.Add(1)
				return
			}
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}()
	}

	wg.Wait()
	elapsed := time.Since(start)

	final, err := fetchQuantity(client, *baseURL, name)
	if err != nil {
		log.Fatalf("failed to read final quantity: %v", err)
	}

	success := successCount.Load()
	fmt.Println("========== LOAD TEST RESULTS ==========")
	fmt.Printf("Item:             %s\n", name)
	fmt.Printf("Total Requests:   %d\n", *totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", failCount.Load())
	fmt.Printf("Final Quantity:   %d\n", final)
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("========================================")

	if final == int(success) {
		fmt.Println("PASS: no increments lost")
	} else {
		fmt.Printf("FAIL: %d increments lost\n", int(success)-final)
	}

	// leave the store as it was
	for i := 0; i < final; i++ {
		req, _ := http.NewRequest(http.MethodDelete, *baseURL+"/api/items/"+url.PathEscape(name), nil)
		if resp, err := client.Do(req); err == nil {
			resp.Body.Close()
		}
	}
}

func fetchQuantity(client *http.Client, baseURL, name string) (int, error) {
	resp, err := client.Get(baseURL + "/api/items?q=" + url.QueryEscape(name))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var items []item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return 0, err
	}
	for _, it := range items {
		if it.Name == name {
			return it.Quantity, nil
		}
	}
	return 0, nil
}
