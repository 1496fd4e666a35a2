package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/peterh/liner"

	"ringkeep/internal/logger"
	"ringkeep/internal/node"
)

// consoleREPL is the interactive liner-backed shell for inspecting and
// driving a running node manually (§11.5), mirroring the teacher's
// client REPL's prompt/command-loop shape.
type consoleREPL struct {
	n    *node.Node
	lgr  logger.Logger
	line *liner.State
}

func (c *consoleREPL) run(ctx context.Context) {
	defer c.line.Close()
	c.line.SetCtrlCAborts(true)

	fmt.Println("ringkeep interactive console. Commands: join/leave/membership/successors/predecessors/id/exit")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		input, err := c.line.Prompt("ringkeep> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				fmt.Println("Aborted")
				continue
			}
			return
		}
		c.line.AppendHistory(input)

		args := strings.Fields(strings.TrimSpace(input))
		if len(args) == 0 {
			continue
		}

		switch args[0] {
		case "join":
			if err := c.n.Join(ctx); err != nil {
				fmt.Printf("join failed: %v\n", err)
			} else {
				fmt.Println("join broadcast sent")
			}

		case "leave":
			if err := c.n.Leave(ctx); err != nil {
				fmt.Printf("leave failed: %v\n", err)
			} else {
				fmt.Println("leave synthesized")
			}

		case "id":
			fmt.Println(string(c.n.State().MyID()))

		case "membership":
			fmt.Println("[")
			for _, id := range c.n.State().Membership() {
				fmt.Println(" ", string(id))
			}
			fmt.Println("]")

		case "successors":
			for _, id := range c.n.State().Successors() {
				fmt.Println(" ", string(id))
			}

		case "predecessors":
			for _, id := range c.n.State().Predecessors() {
				fmt.Println(" ", string(id))
			}

		case "exit", "quit":
			fmt.Println("Bye!")
			return

		default:
			fmt.Printf("Unknown command: %s\n", args[0])
		}
	}
}
