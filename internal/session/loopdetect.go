package session

import (
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
)

// signature builds "<name>:<md5(JSON(args))>[:8]" for one tool call.
// encoding/json sorts map keys, so the hash is stable across calls with
// the same logical arguments.
func signature(name string, args map[string]interface{}) string {
	encoded, _ := json.Marshal(args)
	sum := md5.Sum(encoded)
	return name + ":" + hex.EncodeToString(sum[:])[:8]
}

// LoopDetector maintains the last N tool-call signatures (most-recent
// last) and checks them for pure periodic repetition at period 1, 2, or
// 3, only when N is divisible by that period.
type LoopDetector struct {
	window     int
	signatures []string
}

func NewLoopDetector(window int) *LoopDetector {
	return &LoopDetector{window: window}
}

// Record appends a tool call's signature and reports whether the
// resulting window is a loop.
func (d *LoopDetector) Record(name string, args map[string]interface{}) bool {
	d.signatures = append(d.signatures, signature(name, args))
	if len(d.signatures) > d.window {
		d.signatures = d.signatures[len(d.signatures)-d.window:]
	}
	return DetectLoop(d.signatures, d.window)
}

func (d *LoopDetector) Reset() {
	d.signatures = nil
}

// DetectLoop reports whether the last `window` signatures (the tail of
// sigs) form a pure repetition of period p ∈ {1,2,3} with p dividing
// window. Fewer than `window` signatures is never a loop.
func DetectLoop(sigs []string, window int) bool {
	if len(sigs) < window {
		return false
	}
	tail := sigs[len(sigs)-window:]
	for _, p := range []int{1, 2, 3} {
		if window%p != 0 {
			continue
		}
		pattern := tail[:p]
		match := true
		for i := p; i < window; i++ {
			if tail[i] != pattern[i%p] {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}
