package tui

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/goliatone/go-formgate/pkg/form"
)

type lookupOption struct {
	Label string
	Value string
}

func (s *Session) lookupOptions(ctx context.Context, lookup *form.Lookup) []lookupOption {
	if lookup == nil || lookup.URL == "" || s.httpClient == nil {
		return nil
	}
	if opts, ok := s.lookups[lookup.URL]; ok {
		return opts
	}

	opts, err := s.fetchLookup(ctx, *lookup)
	if err != nil {
		_ = s.info(ctx, fmt.Sprintf("Warning: could not load options (%v); falling back to manual input", err))
		opts = nil
	}
	s.lookups[lookup.URL] = opts
	return opts
}

func (s *Session) fetchLookup(ctx context.Context, lookup form.Lookup) ([]lookupOption, error) {
	target := lookup.URL
	if s.baseURL != "" && strings.HasPrefix(target, "/") {
		target = strings.TrimRight(s.baseURL, "/") + target
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var payload any
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	valueKey, labelKey := lookup.Keys()
	var opts []lookupOption
	for _, item := range extractResults(payload, lookup.ResultsPath) {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		value := pickValue(obj, valueKey)
		if value == "" {
			continue
		}
		label := pickValue(obj, labelKey)
		if label == "" {
			label = value
		}
		opts = append(opts, lookupOption{Label: label, Value: value})
	}
	return opts, nil
}

func extractResults(payload any, path string) []any {
	cur := payload
	if path != "" {
		for _, segment := range strings.Split(path, ".") {
			node, ok := cur.(map[string]any)
			if !ok {
				return nil
			}
			cur = node[segment]
		}
	}
	items, _ := cur.([]any)
	return items
}

func pickValue(m map[string]any, path string) string {
	var cur any = m
	for _, segment := range strings.Split(path, ".") {
		node, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur = node[segment]
	}
	if cur == nil {
		return ""
	}
	return fmt.Sprint(cur)
}

func optionLabels(opts []lookupOption) []string {
	out := make([]string, len(opts))
	for i, o := range opts {
		out[i] = o.Label
	}
	return out
}

func optionIndex(opts []lookupOption, value string) int {
	for i, o := range opts {
		if value != "" && o.Value == value {
			return i
		}
	}
	return -1
}
