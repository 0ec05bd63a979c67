// verdict-cli is an interactive client for the judge service, handy for
// poking at problems and submissions without writing curl incantations.
package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/chzyer/readline"
)

type client struct {
	baseURL string
	http    *http.Client
}

func main() {
	addr := flag.String("addr", "http://127.0.0.1:8086", "judge service base URL")
	flag.Parse()

	cli := &client{
		baseURL: strings.TrimRight(*addr, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}

	completer := readline.NewPrefixCompleter(
		readline.PcItem("judge"),
		readline.PcItem("problem"),
		readline.PcItem("result"),
		readline.PcItem("languages"),
		readline.PcItem("health"),
		readline.PcItem("help"),
		readline.PcItem("exit"),
	)
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "verdict> ",
		AutoComplete: completer,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "init readline failed: %v\n", err)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Println("verdict cli, type 'help' for commands")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if err != nil {
			return
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			return
		case "help":
			printHelp()
		case "health":
			cli.get("/healthz")
		case "languages":
			cli.get("/api/v1/languages")
		case "problem":
			if len(fields) != 2 {
				fmt.Println("usage: problem <id>")
				continue
			}
			cli.get("/api/v1/problems/" + fields[1])
		case "result":
			if len(fields) != 2 {
				fmt.Println("usage: result <id>")
				continue
			}
			cli.get("/api/v1/results/" + fields[1])
		case "judge":
			if len(fields) != 4 {
				fmt.Println("usage: judge <problemId> <language> <sourceFile>")
				continue
			}
			cli.judge(fields[1], fields[2], fields[3])
		default:
			fmt.Printf("unknown command %q, type 'help'\n", fields[0])
		}
	}
}

func printHelp() {
	fmt.Println(`commands:
  judge <problemId> <language> <sourceFile>   submit a file for judging
  problem <id>                                show a problem's visible cases
  result <id>                                 fetch a stored judge result
  languages                                   list supported languages
  health                                      service health check
  exit                                        leave`)
}

func (c *client) judge(problemID, language, sourcePath string) {
	code, err := os.ReadFile(sourcePath)
	if err != nil {
		fmt.Printf("read %s: %v\n", sourcePath, err)
		return
	}
	body, err := json.Marshal(map[string]string{
		"problemId": problemID,
		"code":      string(code),
		"language":  language,
	})
	if err != nil {
		fmt.Printf("encode request: %v\n", err)
		return
	}
	resp, err := c.http.Post(c.baseURL+"/api/v1/judge", "application/json", bytes.NewReader(body))
	if err != nil {
		fmt.Printf("request failed: %v\n", err)
		return
	}
	printResponse(resp)
}

func (c *client) get(path string) {
	resp, err := c.http.Get(c.baseURL + path)
	if err != nil {
		fmt.Printf("request failed: %v\n", err)
		return
	}
	printResponse(resp)
}

func printResponse(resp *http.Response) {
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		fmt.Printf("read response: %v\n", err)
		return
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Printf("[%d] %s\n", resp.StatusCode, string(data))
		return
	}
	fmt.Printf("[%d]\n%s\n", resp.StatusCode, pretty.String())
}
