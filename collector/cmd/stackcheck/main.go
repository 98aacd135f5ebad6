// Command stackcheck lints the deploy declaration before anything is
// started: structural problems in the compose file, plus a cross-check
// that every scrape target host in the collector config resolves to a
// service the collector shares a network with. It exits non-zero if any
// problem is found.
package main

import (
	"flag"
	"fmt"
	"net"
	"os"

	"github.com/pulsestack/pulsestack/collector/internal/config"
	"github.com/pulsestack/pulsestack/pkg/topology"
)

func main() {
	composePath := flag.String("compose", "deploy/docker-compose.yml", "path to the deploy declaration")
	collectorConfig := flag.String("collector-config", "", "collector config to cross-check (optional)")
	collectorService := flag.String("collector-service", "collector", "service name the collector runs as")
	flag.Parse()

	stack, err := topology.Load(*composePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	problems := stack.Validate()

	if *collectorConfig != "" {
		cfg, err := config.Load(*collectorConfig)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		problems = append(problems, crossCheck(stack, cfg, *collectorService)...)
	}

	if len(problems) == 0 {
		fmt.Printf("%s: ok (%d services)\n", *composePath, len(stack.Services))
		return
	}
	for _, p := range problems {
		fmt.Fprintln(os.Stderr, p)
	}
	os.Exit(1)
}

// crossCheck verifies that each scrape target's host is a service name
// reachable from the collector's network namespace. Literal IPs and
// localhost are skipped — they bypass service-name resolution entirely.
func crossCheck(stack *topology.Stack, cfg *config.Config, collectorSvc string) []string {
	var problems []string
	for _, job := range cfg.ScrapeConfigs {
		for _, sc := range job.StaticConfigs {
			for _, target := range sc.Targets {
				host, _, err := net.SplitHostPort(target)
				if err != nil {
					continue // config validation already rejected it
				}
				if host == "localhost" || net.ParseIP(host) != nil {
					continue
				}
				if !stack.Resolves(collectorSvc, host) {
					problems = append(problems, fmt.Sprintf(
						"job %q: target host %q does not resolve from service %q — "+
							"declare it as a service on a shared network",
						job.JobName, host, collectorSvc))
				}
			}
		}
	}
	return problems
}
