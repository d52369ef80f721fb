package replayclient

import "syscall"

// processGroupAttr puts the spawned master in its own process group so
// Kill can terminate it and every worker it forked with a single
// process-group signal (spec §4.8 "children killed via job/process-
// group").
func processGroupAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}
