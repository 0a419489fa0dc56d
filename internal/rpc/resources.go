package rpc

import (
	"context"
	"os"

	"pybun/internal/command"
	"pybun/internal/envmanager"
)

// Resource describes one readable RPC resource for resources/list.
type Resource struct {
	URI         string `json:"uri"`
	Description string `json:"description"`
}

// resourceDefs is the fixed resource catalog spec.md §4.8 names:
// cache/info, env/info.
var resourceDefs = []Resource{
	{URI: "cache/info", Description: "content-addressed cache root and its subtree names"},
	{URI: "env/info", Description: "discovered interpreter and its selection source"},
}

type readResourceParams struct {
	URI        string `json:"uri"`
	WorkingDir string `json:"working_dir"`
}

// cacheInfo is resources/read's result for "cache/info".
type cacheInfo struct {
	Dir      string   `json:"dir"`
	Subtrees []string `json:"subtrees"`
}

// envInfo is resources/read's result for "env/info".
type envInfo struct {
	InterpreterPath string `json:"interpreter_path,omitempty"`
	Source          string `json:"source,omitempty"`
	Error           string `json:"error,omitempty"`
}

func readResource(ctx context.Context, deps command.Deps, params readResourceParams) (any, error) {
	switch params.URI {
	case "cache/info":
		return cacheInfo{
			Dir:      deps.Cache.Dir,
			Subtrees: []string{"packages", "envs", "artifacts", "build", "logs"},
		}, nil

	case "env/info":
		wd := params.WorkingDir
		if wd == "" {
			if cwd, err := os.Getwd(); err == nil {
				wd = cwd
			}
		}
		interp, err := envmanager.Discover(ctx, wd)
		if err != nil {
			return envInfo{Error: err.Error()}, nil
		}
		return envInfo{InterpreterPath: interp.Path, Source: string(interp.Source)}, nil

	default:
		return nil, &unknownResourceError{uri: params.URI}
	}
}

type unknownResourceError struct{ uri string }

func (e *unknownResourceError) Error() string { return "rpc: unknown resource " + e.uri }
