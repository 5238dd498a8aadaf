// Command ordo-cli is an interactive REPL over the client package, for
// poking at a running ordo-server by hand. Line editing and history come
// from github.com/chzyer/readline; each line is split into words with
// github.com/mattn/go-shellwords so values containing spaces can be quoted.
package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	shellwords "github.com/mattn/go-shellwords"
	"github.com/spf13/cobra"

	"github.com/ordodb/ordo/client"
)

var addr string

func main() {
	root := &cobra.Command{
		Use:   "ordo-cli",
		Short: "ordo-cli is an interactive client for an ordo-server",
		RunE:  run,
	}
	root.Flags().StringVar(&addr, "addr", "127.0.0.1:9999", "ordo-server address")

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	conn, err := client.DialAuto(addr)
	if err != nil {
		return fmt.Errorf("connecting to %s: %w", addr, err)
	}
	defer conn.Close()

	rl, err := readline.New("ordo> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	var tx *client.Transaction
	table := ""

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			return err
		}

		words, err := shellwords.Parse(line)
		if err != nil {
			fmt.Fprintln(os.Stderr, "parse error:", err)
			continue
		}
		if len(words) == 0 {
			continue
		}

		if err := dispatch(conn, &tx, &table, words); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
		}
	}
}

func dispatch(conn *client.Conn, txp **client.Transaction, table *string, words []string) error {
	cmd := strings.ToLower(words[0])
	args := words[1:]

	switch cmd {
	case "begin":
		tx, err := client.Begin(conn)
		if err != nil {
			return err
		}
		*txp = tx
		fmt.Println("started transaction")
		return nil

	case "table":
		if len(args) != 1 {
			return fmt.Errorf("usage: table <name>")
		}
		*table = args[0]
		if *txp != nil {
			(*txp).ChooseTable(*table)
		}
		return nil

	case "read":
		if *txp == nil {
			return fmt.Errorf("no open transaction")
		}
		if len(args) != 1 {
			return fmt.Errorf("usage: read <key>")
		}
		value, found, err := (*txp).Read([]byte(args[0]))
		if err != nil {
			return err
		}
		if !found {
			fmt.Println("(not found)")
			return nil
		}
		fmt.Println(string(value))
		return nil

	case "write":
		if *txp == nil {
			return fmt.Errorf("no open transaction")
		}
		if len(args) != 2 {
			return fmt.Errorf("usage: write <key> <value>")
		}
		return (*txp).Write([]byte(args[0]), []byte(args[1]))

	case "delete":
		if *txp == nil {
			return fmt.Errorf("no open transaction")
		}
		if len(args) != 1 {
			return fmt.Errorf("usage: delete <key>")
		}
		return (*txp).Delete([]byte(args[0]))

	case "scan":
		if *txp == nil {
			return fmt.Errorf("no open transaction")
		}
		var prefix []byte
		if len(args) == 1 {
			prefix = []byte(args[0])
		}
		kvs, err := (*txp).GetMatchingKeys(prefix)
		if err != nil {
			return err
		}
		for _, kv := range kvs {
			fmt.Printf("%s = %s\n", kv.Key, kv.Value)
		}
		return nil

	case "abort":
		if *txp == nil {
			return fmt.Errorf("no open transaction")
		}
		return (*txp).Abort()

	case "end":
		if *txp == nil {
			return fmt.Errorf("no open transaction")
		}
		fence := len(args) == 1 && args[0] == "fence"
		committed, err := (*txp).End(fence)
		if err != nil {
			return err
		}
		*txp = nil
		fmt.Println("committed:", strconv.FormatBool(committed))
		return nil

	case "fence":
		return client.Fence(conn)

	case "quit", "exit":
		os.Exit(0)
		return nil

	default:
		return fmt.Errorf("unknown command %q", cmd)
	}
}
