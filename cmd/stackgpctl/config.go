package main

import (
	"encoding/json"
	"fmt"
	"os"

	"stackgp/pkg/stackgp"
)

// loadRunRequestFromConfig reads a run request from a JSON file keyed by
// snake_case field names. Missing keys keep their zero value so the client
// defaults still apply.
func loadRunRequestFromConfig(path string) (stackgp.RunRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return stackgp.RunRequest{}, err
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return stackgp.RunRequest{}, err
	}

	var req stackgp.RunRequest
	if v, ok := asString(raw["run_id"]); ok {
		req.RunID = v
	}
	if v, ok := asString(raw["sequence"]); ok {
		req.Sequence = v
	}
	if v, ok := asInt(raw["population"]); ok {
		req.Population = v
	}
	if v, ok := asInt(raw["generations"]); ok {
		req.Generations = v
	}
	if v, ok := asInt(raw["start_length"]); ok {
		req.StartLength = v
	}
	if v, ok := asString(raw["selection"]); ok {
		req.Selection = v
	}
	if v, ok := asBool(raw["crossover"]); ok {
		req.Crossover = v
	}
	if v, ok := asString(raw["crossover_strategy"]); ok {
		req.CrossoverStrategy = v
	}
	if v, ok := asBool(raw["mutation"]); ok {
		req.Mutation = v
	}
	if v, ok := asFloat64(raw["add_rate"]); ok {
		req.AddRate = v
	}
	if v, ok := asFloat64(raw["del_rate"]); ok {
		req.DelRate = v
	}
	if v, ok := asBool(raw["elitism"]); ok {
		req.Elitism = v
	}
	if v, ok := asInt64(raw["seed"]); ok {
		req.Seed = v
	}
	if v, ok := asInt(raw["workers"]); ok {
		req.Workers = v
	}
	return req, nil
}

func loadOrDefaultRunRequest(configPath string) (stackgp.RunRequest, error) {
	if configPath == "" {
		return stackgp.RunRequest{}, nil
	}
	req, err := loadRunRequestFromConfig(configPath)
	if err != nil {
		return stackgp.RunRequest{}, fmt.Errorf("load config: %w", err)
	}
	return req, nil
}

// overrideFromFlags applies flags the user set explicitly on top of a
// config-file request.
func overrideFromFlags(req *stackgp.RunRequest, set map[string]bool, flagValue map[string]any) {
	for name := range set {
		v, ok := flagValue[name]
		if !ok {
			continue
		}
		switch name {
		case "run-id":
			req.RunID = v.(string)
		case "sequence":
			req.Sequence = v.(string)
		case "pop":
			req.Population = v.(int)
		case "gens":
			req.Generations = v.(int)
		case "start-length":
			req.StartLength = v.(int)
		case "selection":
			req.Selection = v.(string)
		case "crossover":
			req.Crossover = v.(bool)
		case "crossover-strategy":
			req.CrossoverStrategy = v.(string)
		case "mutation":
			req.Mutation = v.(bool)
		case "add-rate":
			req.AddRate = v.(float64)
		case "del-rate":
			req.DelRate = v.(float64)
		case "elitism":
			req.Elitism = v.(bool)
		case "seed":
			req.Seed = v.(int64)
		case "workers":
			req.Workers = v.(int)
		}
	}
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

func asInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case float64:
		return int(x), true
	default:
		return 0, false
	}
}

func asInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case int:
		return int64(x), true
	case float64:
		return int64(x), true
	default:
		return 0, false
	}
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	default:
		return 0, false
	}
}
