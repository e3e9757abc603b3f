package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/atharv3903/tripcorridor/internal/model"
	"github.com/atharv3903/tripcorridor/internal/proximity"
	"github.com/atharv3903/tripcorridor/internal/resolver"
)

type cacheStats struct {
	Gets          int `json:"gets"`
	Hits          int `json:"hits"`
	Puts          int `json:"puts"`
	Evictions     int `json:"evictions"`
	Size          int `json:"size"`
	LimiterDenied int `json:"limiter_denied"`
}

type result struct {
	latency time.Duration
	status  int
	cached  bool
	err     error
}

func main() {
	server := flag.String("server", "http://localhost:8080", "tripcorridor base URL")
	duration := flag.Duration("duration", 30*time.Second, "how long to send requests")
	clients := flag.Int("clients", 4, "concurrent clients")
	pairs := flag.Int("pairs", 50, "distinct city pairs to draw from; fewer pairs means more cache hits")
	flag.Parse()
	if *pairs < 1 || *clients < 1 {
		log.Fatal("pairs and clients must be positive")
	}

	cities := resolver.DefaultCities()
	rnd := rand.New(rand.NewSource(time.Now().UnixNano()))
	work := make([][2]string, *pairs)
	for i := range work {
		a := cities[rnd.Intn(len(cities))]
		b := cities[rnd.Intn(len(cities))]
		work[i] = [2]string{a.Label(), b.Label()}
	}
	log.Printf("Drawing from %d city pairs over %d gazetteer cities", len(work), len(cities))

	client := &http.Client{Timeout: 30 * time.Second}

	// clear the LRU and the stored routes so hit rates start from zero
	resp, err := client.Post(*server+"/debug/clear_cache", "", nil)
	if err != nil {
		log.Fatalf("failed to clear cache: %v", err)
	}
	resp.Body.Close()
	log.Println("Cache cleared")

	log.Printf("Running loadgen for %v with %d clients…", *duration, *clients)

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()

	var (
		mu      sync.Mutex
		results []result
		wg      sync.WaitGroup
	)
	for c := 0; c < *clients; c++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			r := rand.New(rand.NewSource(seed))
			for ctx.Err() == nil {
				p := work[r.Intn(len(work))]
				res := send(ctx, client, *server, p[0], p[1], proximity.Tiers[r.Intn(len(proximity.Tiers))])
				if ctx.Err() != nil && res.err != nil {
					return
				}
				mu.Lock()
				results = append(results, res)
				mu.Unlock()
			}
		}(rnd.Int63())
	}
	wg.Wait()

	stats := cacheStats{}
	if resp, err := client.Get(*server + "/debug/cache_stats"); err == nil {
		json.NewDecoder(resp.Body).Decode(&stats)
		resp.Body.Close()
	}

	summarize(results, stats)
}

func send(ctx context.Context, client *http.Client, server, origin, destination string, radius float64) result {
	q := url.Values{
		"origin":      {origin},
		"destination": {destination},
		"radius":      {fmt.Sprint(radius)},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, server+"/route?"+q.Encode(), nil)
	if err != nil {
		return result{err: err}
	}

	start := time.Now()
	resp, err := client.Do(req)
	lat := time.Since(start)
	if err != nil {
		return result{latency: lat, err: err}
	}
	defer resp.Body.Close()

	out := result{latency: lat, status: resp.StatusCode}
	if resp.StatusCode == http.StatusOK {
		var tr model.TripResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			out.err = err
			return out
		}
		out.cached = tr.Cached
	}
	return out
}

func summarize(results []result, stats cacheStats) {
	var errs, hits, ok, limited int
	latencies := make([]time.Duration, 0, len(results))
	for _, r := range results {
		latencies = append(latencies, r.latency)
		switch {
		case r.err != nil:
			errs++
		case r.status == http.StatusTooManyRequests:
			limited++
		case r.status == http.StatusOK:
			ok++
			if r.cached {
				hits++
			}
		default:
			errs++
		}
	}

	fmt.Println("\n========== LOADGEN SUMMARY ==========")
	fmt.Printf("Total Requests: %d\n", len(results))
	fmt.Printf("OK: %d  Rate limited: %d  Errors: %d\n", ok, limited, errs)

	if ok > 0 {
		fmt.Printf("RouteCache Hit Rate: %.1f%%\n", float64(hits)/float64(ok)*100)
	}
	if stats.Gets > 0 {
		fmt.Printf("LRU Hit Rate: %.1f%% (gets=%d, hits=%d, puts=%d, size=%d)\n",
			float64(stats.Hits)/float64(stats.Gets)*100, stats.Gets, stats.Hits, stats.Puts, stats.Size)
	}
	fmt.Printf("Evictions: %d  Limiter denied: %d\n", stats.Evictions, stats.LimiterDenied)

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		fmt.Printf("Avg Latency: %v\n", sum/time.Duration(len(latencies)))
		fmt.Printf("p50: %v  p99: %v\n", latencies[len(latencies)/2], latencies[len(latencies)*99/100])
		fmt.Printf("Fastest: %v\n", latencies[0])
		fmt.Printf("Slowest: %v\n", latencies[len(latencies)-1])
	}

	fmt.Println("=====================================")
}
