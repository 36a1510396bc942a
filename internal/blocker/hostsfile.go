package blocker

import (
	"regexp"
	"strings"
)

const (
	StartMarker = "# studyblock managed block - START"
	EndMarker   = "# studyblock managed block - END"

	// LoopbackIP is the address every blocked hostname is redirected to.
	LoopbackIP = "127.0.0.1"
)

var hostnameRegex = regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9\-\.]*[a-zA-Z0-9])?$`)

// splitLines keeps each line's terminator so unmanaged lines can be written
// back byte-for-byte.
func splitLines(content string) []string {
	if content == "" {
		return nil
	}
	lines := strings.SplitAfter(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func joinLines(lines []string) []byte {
	var sb strings.Builder
	for _, line := range lines {
		sb.WriteString(line)
	}
	return []byte(sb.String())
}

// lineEnding picks CRLF when the file already uses it, LF otherwise.
func lineEnding(lines []string) string {
	for _, line := range lines {
		if strings.HasSuffix(line, "\r\n") {
			return "\r\n"
		}
	}
	return "\n"
}

func isMarker(line, marker string) bool {
	return strings.TrimSpace(line) == marker
}

// stripManaged drops every line from a start marker through the next end
// marker. A start marker without an end marker drops everything to EOF.
func stripManaged(lines []string) (kept []string, removed int, found bool) {
	kept = make([]string, 0, len(lines))
	inBlock := false
	for _, line := range lines {
		if !inBlock && isMarker(line, StartMarker) {
			inBlock = true
			found = true
			removed++
			continue
		}
		if inBlock {
			removed++
			if isMarker(line, EndMarker) {
				inBlock = false
			}
			continue
		}
		kept = append(kept, line)
	}
	return kept, removed, found
}

// managedHosts lists the bare hostnames inside the managed block, folding the
// www. twin of each requested name.
func managedHosts(lines []string) []string {
	var entries []string
	inBlock := false
	for _, line := range lines {
		switch {
		case !inBlock && isMarker(line, StartMarker):
			inBlock = true
		case inBlock && isMarker(line, EndMarker):
			inBlock = false
		case inBlock:
			fields := strings.Fields(line)
			if len(fields) >= 2 && !strings.HasPrefix(fields[0], "#") {
				entries = append(entries, fields[1])
			}
		}
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e] = true
	}
	seen := make(map[string]bool, len(entries))
	hosts := []string{}
	for _, e := range entries {
		if bare, ok := strings.CutPrefix(e, "www."); ok && present[bare] {
			continue
		}
		if !seen[e] {
			seen[e] = true
			hosts = append(hosts, e)
		}
	}
	return hosts
}

func blockLines(hostnames []string, eol string) []string {
	lines := make([]string, 0, len(hostnames)*2+2)
	lines = append(lines, StartMarker+eol)
	for _, host := range hostnames {
		lines = append(lines,
			LoopbackIP+" "+host+eol,
			LoopbackIP+" www."+host+eol,
		)
	}
	return append(lines, EndMarker+eol)
}

// normalizeHostnames trims each name and rejects anything that is not a
// plain DNS name. Order and duplicates are preserved.
func normalizeHostnames(hostnames []string) ([]string, error) {
	if len(hostnames) == 0 {
		return nil, invalidArgument("no websites specified")
	}
	out := make([]string, 0, len(hostnames))
	for _, h := range hostnames {
		h = strings.TrimSpace(h)
		if h == "" {
			return nil, invalidArgument("hostname must not be empty")
		}
		if !hostnameRegex.MatchString(h) {
			return nil, invalidArgument("invalid hostname: " + h)
		}
		out = append(out, h)
	}
	return out, nil
}
