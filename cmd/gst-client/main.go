// Command gst-client is a line-protocol client for gstd: given
// command-line arguments it sends one command and exits, otherwise it
// reads commands from stdin, one per line, printing each reply.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"
)

func main() {
	address := flag.String("address", "localhost", "daemon TCP address")
	port := flag.Int("port", 5000, "daemon TCP port")
	useUnix := flag.Bool("unix", false, "connect over a Unix-domain socket instead of TCP")
	unixBase := flag.String("unix-base-path", "/tmp/gstd", "Unix-domain socket base path")
	unixPort := flag.Int("unix-port", 0, "which of the base path's numbered listeners to use")
	quiet := flag.Bool("quiet", false, "don't print the startup header")
	file := flag.String("file", "", "execute the commands in this file, one per line")
	timeout := flag.Duration("timeout", 5*time.Second, "connect timeout")
	flag.Parse()

	dial := func() (net.Conn, error) {
		if *useUnix {
			path := fmt.Sprintf("%s_%d", *unixBase, *unixPort)
			return net.DialTimeout("unix", path, *timeout)
		}
		return net.DialTimeout("tcp", net.JoinHostPort(*address, strconv.Itoa(*port)), *timeout)
	}

	args := flag.Args()
	switch {
	case len(args) > 0:
		line := strings.Join(args, " ")
		if err := runOne(dial, line); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case *file != "":
		if err := runFile(dial, *file, *quiet); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		if !*quiet {
			printHeader()
		}
		runRepl(dial)
	}
}

func printHeader() {
	fmt.Println("gstd client")
	fmt.Println("Type a command (create/read/update/delete <URI> ...) or \"quit\" to exit.")
}

// runOne sends a single command over a fresh connection and prints the
// reply, mirroring the original client's one-shot command-line mode.
func runOne(dial func() (net.Conn, error), line string) error {
	conn, err := dial()
	if err != nil {
		return err
	}
	defer conn.Close()
	reply, err := send(conn, line)
	if err != nil {
		return err
	}
	fmt.Println(reply)
	return nil
}

// runFile sources a script file, one command per line, printing each
// reply as it goes — a new connection per line, since the daemon does
// not require clients to hold one open across requests.
func runFile(dial func() (net.Conn, error), path string, quiet bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !quiet {
			fmt.Println("gstd> " + line)
		}
		if err := runOne(dial, line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
	return scanner.Err()
}

// runRepl reads commands from stdin until EOF or "quit"/"exit",
// opening one connection per command the way the original client's
// socket command handler does.
func runRepl(dial func() (net.Conn, error)) {
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("gstd> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			return
		}
		if err := runOne(dial, line); err != nil {
			fmt.Fprintln(os.Stderr, err)
		}
	}
}

// send writes line NUL-terminated and reads back the NUL-terminated
// reply, per §6.2's wire framing.
func send(conn net.Conn, line string) (string, error) {
	if _, err := conn.Write(append([]byte(line), 0)); err != nil {
		return "", err
	}
	reader := bufio.NewReader(conn)
	reply, err := reader.ReadString(0)
	if err != nil {
		return "", err
	}
	return reply[:len(reply)-1], nil
}
