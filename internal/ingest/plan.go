package ingest

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// CrawlPlan is an operator-authored list of listing URLs to crawl, loaded
// from a YAML file by the crawl command.
type CrawlPlan struct {
	// Source labels the ingested data; defaults to the configured source.
	Source string   `yaml:"source"`
	URLs   []string `yaml:"urls"`
}

// LoadPlan reads a crawl plan from a YAML file.
func LoadPlan(path string) (*CrawlPlan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: read plan %s", path)
	}

	var plan CrawlPlan
	if err := yaml.Unmarshal(data, &plan); err != nil {
		return nil, eris.Wrapf(err, "ingest: parse plan %s", path)
	}

	urls := make([]string, 0, len(plan.URLs))
	for _, u := range plan.URLs {
		u = strings.TrimSpace(u)
		if u == "" {
			continue
		}
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return nil, eris.Errorf("ingest: plan url %q is not absolute", u)
		}
		urls = append(urls, u)
	}
	if len(urls) == 0 {
		return nil, eris.Errorf("ingest: plan %s has no urls", path)
	}
	plan.URLs = urls

	return &plan, nil
}
