package core

import (
	"strconv"
	"time"

	"github.com/SamuelRCrider/piiguard-go/utils"
)

// ScanObject scans every string leaf of a nested JSON-like value. Each
// violation carries the dotted/bracketed path of the leaf it was found in,
// e.g. "messages[0].content". Numbers, booleans and nulls are never scanned.
func (s *Scanner) ScanObject(value any, source, pathPrefix string) []utils.Violation {
	start := time.Now()
	defer func() {
		scanDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	snap := s.registry.Snapshot()
	if !snap.Enabled || value == nil {
		return nil
	}

	var out []utils.Violation
	walkValue(snap, FromAny(value), source, pathPrefix, 0, &out)
	return out
}

func walkValue(snap *Snapshot, v Value, source, path string, depth int, out *[]utils.Violation) {
	if depth > maxValueDepth {
		return
	}

	switch t := v.(type) {
	case String:
		for _, violation := range scanText(snap, string(t), source) {
			*out = append(*out, violation.WithFieldPath(path))
		}
	case Array:
		for i, item := range t {
			walkValue(snap, item, source, indexPath(path, i), depth+1, out)
		}
	case Object:
		for _, key := range t.SortedKeys() {
			walkValue(snap, t[key], source, keyPath(path, key), depth+1, out)
		}
	case Number, Bool, Null:
		// not scanned
	}
}

func keyPath(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func indexPath(parent string, i int) string {
	return parent + "[" + strconv.Itoa(i) + "]"
}
