package ndjson

import "bytes"

// Detect implements the pipeline's pre-check (spec §4.7): sample is
// classified as NDJSON when it contains at least two non-empty lines and
// every non-empty line starts with '{' or '[' after leading whitespace is
// trimmed. sample is typically a bounded prefix of the input, not the
// whole stream. A sample with only one non-empty line (for instance one
// long line that fills the whole prefix) is classified as not NDJSON.
func Detect(sample []byte) bool {
	lines := bytes.Split(sample, []byte("\n"))
	nonEmpty := 0
	for _, line := range lines {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		if line[0] != '{' && line[0] != '[' {
			return false
		}
		nonEmpty++
	}
	return nonEmpty >= 2
}
