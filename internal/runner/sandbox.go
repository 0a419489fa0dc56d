package runner

import (
	"os"
	"path/filepath"
)

// Policy is the sandbox configuration for a single run, spec.md §4.6 item 5.
type Policy struct {
	Active       bool
	AllowNetwork bool
}

// sandboxShim is a sitecustomize.py injected ahead of PYTHONPATH that denies
// subprocess creation and, unless network is opted in, socket construction.
// Ported from the original's apply_python_sandbox/sitecustomize_contents
// shim: import-time monkeypatching is the only hook Python exposes for this
// without a native extension, so the shim is kept as Python text rather
// than reimplemented in Go.
const sandboxShim = `
import os
import socket
import subprocess
import sys

ALLOW_NETWORK = os.environ.get("PYBUN_SANDBOX_ALLOW_NETWORK") == "1"

def _deny(reason):
    raise PermissionError("pybun sandbox: " + reason + " blocked")

def _block_subprocesses():
    def _blocked(*_args, **_kwargs):
        _deny("process creation")

    subprocess.Popen = _blocked
    subprocess.call = _blocked
    subprocess.run = _blocked
    subprocess.check_call = _blocked
    subprocess.check_output = _blocked
    os.system = _blocked

    if hasattr(os, "fork"):
        os.fork = lambda *_a, **_kw: _deny("fork")

    for name in ("execv", "execve", "execl", "execlp", "execvp", "execvpe", "execle"):
        if hasattr(os, name):
            setattr(os, name, lambda *_a, **_kw: _deny("process execution"))

def _block_network():
    def _blocked(*_args, **_kwargs):
        _deny("network access")

    socket.socket = _blocked
    socket.create_connection = _blocked
    if hasattr(socket, "socketpair"):
        socket.socketpair = _blocked

try:
    _block_subprocesses()
    if not ALLOW_NETWORK:
        _block_network()
    sys.stderr.write("[pybun] sandbox active (allow_network=" + str(ALLOW_NETWORK) + ")\n")
except Exception as exc:
    sys.stderr.write("[pybun] sandbox init failed: " + repr(exc) + "\n")
    raise
`

// applySandbox writes the sitecustomize shim into a private directory and
// returns the env additions needed to activate it: a PYTHONPATH entry that
// puts the shim ahead of basePYTHONPATH (the value the child would
// otherwise have seen — e.g. a materialized environment's site-packages),
// plus the flags the shim itself reads.
func applySandbox(dir string, policy Policy, basePYTHONPATH string) ([]string, error) {
	path := filepath.Join(dir, "sitecustomize.py")
	if err := os.WriteFile(path, []byte(sandboxShim), 0o644); err != nil {
		return nil, err
	}

	pythonPath := dir
	if basePYTHONPATH != "" {
		pythonPath = dir + string(os.PathListSeparator) + basePYTHONPATH
	}

	env := []string{
		"PYTHONPATH=" + pythonPath,
		"PYBUN_SANDBOX=1",
	}
	if policy.AllowNetwork {
		env = append(env, "PYBUN_SANDBOX_ALLOW_NETWORK=1")
	}
	return env, nil
}
