package orchestrator

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nmxmxh/fossilize/internal/errutil"
	"github.com/nmxmxh/fossilize/internal/model"
)

// messageType enumerates the worker→master line protocol (spec §4.7
// "Messages on the pipe").
type messageType int

const (
	msgCrash messageType = iota
	msgGraphics
	msgCompute
	msgRaytrace
	msgModule
	msgGraphicsVerr
	msgComputeVerr
	msgRaytraceVerr
	msgModuleUUID
	msgHeartbeat
)

// message is one parsed line from a worker's out-of-band pipe.
type message struct {
	Type  messageType
	Index int
	Hash  model.Hash
	Hex   string // raw hex payload for MODULE / MODULE_UUID
}

// tagForProgress maps a progress message type to the pipeline tag it
// reports on.
func (m message) tagForProgress() (model.Tag, bool) {
	switch m.Type {
	case msgGraphics:
		return model.TagGraphicsPipeline, true
	case msgCompute:
		return model.TagComputePipeline, true
	case msgRaytrace:
		return model.TagRaytracingPipeline, true
	default:
		return 0, false
	}
}

// parseMessage decodes one newline-stripped IPC line (spec §4.7, §6
// "Cross-process IPC messages. Line-oriented ASCII, each at most 64
// bytes including the trailing newline").
func parseMessage(line string) (message, error) {
	line = strings.TrimSpace(line)
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return message{}, &errutil.ParseError{Reason: "empty IPC line"}
	}

	switch fields[0] {
	case "CRASH":
		return message{Type: msgCrash}, nil
	case "HEARTBEAT":
		return message{Type: msgHeartbeat}, nil
	case "GRAPHICS", "COMPUTE", "RAYTRACE":
		return parseProgressLine(fields)
	case "MODULE":
		hash, err := parseHexHash(fields, 1)
		if err != nil {
			return message{}, err
		}
		return message{Type: msgModule, Hash: hash}, nil
	case "GRAPHICS_VERR", "COMPUTE_VERR", "RAYTRACE_VERR":
		hash, err := parseHexHash(fields, 1)
		if err != nil {
			return message{}, err
		}
		t := map[string]messageType{
			"GRAPHICS_VERR": msgGraphicsVerr,
			"COMPUTE_VERR":  msgComputeVerr,
			"RAYTRACE_VERR": msgRaytraceVerr,
		}[fields[0]]
		return message{Type: t, Hash: hash}, nil
	case "MODULE_UUID":
		if len(fields) < 2 {
			return message{}, &errutil.ParseError{Reason: "MODULE_UUID missing payload"}
		}
		return message{Type: msgModuleUUID, Hex: fields[1]}, nil
	default:
		return message{}, &errutil.ParseError{Reason: "unrecognized IPC message: " + fields[0]}
	}
}

func parseProgressLine(fields []string) (message, error) {
	if len(fields) != 3 {
		return message{}, &errutil.ParseError{Reason: "progress message requires <index> <hash>"}
	}
	index, err := strconv.Atoi(fields[1])
	if err != nil {
		return message{}, &errutil.ParseError{Reason: "bad progress index", Cause: err}
	}
	hash, err := parseHexHash(fields, 2)
	if err != nil {
		return message{}, err
	}
	t := map[string]messageType{"GRAPHICS": msgGraphics, "COMPUTE": msgCompute, "RAYTRACE": msgRaytrace}[fields[0]]
	return message{Type: t, Index: index, Hash: hash}, nil
}

func parseHexHash(fields []string, idx int) (model.Hash, error) {
	if idx >= len(fields) {
		return 0, &errutil.ParseError{Reason: "missing hash field"}
	}
	v, err := strconv.ParseUint(fields[idx], 16, 64)
	if err != nil {
		return 0, &errutil.ParseError{Reason: "bad hex hash", Cause: err}
	}
	return model.Hash(v), nil
}

// encodeFaultSet formats the startup fault-set feed sent master→worker
// on stdin: one hex hash per line, terminated by a blank line (spec §4.7
// "used once at startup to feed the worker the set of already-known-
// faulty module hashes").
func encodeFaultSet(hashes []model.Hash) string {
	var b strings.Builder
	for _, h := range hashes {
		fmt.Fprintf(&b, "%x\n", uint64(h))
	}
	b.WriteString("\n")
	return b.String()
}
