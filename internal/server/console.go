package server

import (
	"bufio"
	"io"
	"strings"
)

// ParseAddressed splits the @host:port addressing prefix off a line of user
// input. Lines without the prefix are broadcasts. The relay core only ever
// sees the plain body.
func ParseAddressed(line string) (dst, body string) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "@") {
		return "", line
	}
	rest := line[1:]
	if idx := strings.IndexByte(rest, ' '); idx >= 0 {
		return rest[:idx], strings.TrimSpace(rest[idx+1:])
	}
	return rest, ""
}

// RunConsole reads chat input line by line and feeds it to the node.
// "quit", "exit" and "q" stop the node; EOF just ends input. Runs on its
// own goroutine, the node processes enqueued sends on its event loop.
func RunConsole(n *MeshNode, r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		switch strings.ToLower(line) {
		case "quit", "exit", "q":
			n.RequestStop()
			return
		}
		dst, body := ParseAddressed(line)
		n.Say(body, dst)
	}
}
